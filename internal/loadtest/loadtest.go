// Package loadtest drives concurrent HTTP load against the application and
// summarizes latencies and status codes.
//
// The runner is transport-agnostic: callers supply an attempt function, so
// the same worker pool serves plain GET floods and forum topic creation
// runs. Individual request failures are recorded in the report, never
// returned as errors; only context cancellation stops a run early.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures a load test run.
type Options struct {
	// Requests is the total number of requests to issue.
	Requests int
	// Concurrency is the number of parallel workers.
	Concurrency int
}

// AttemptFunc issues one request and returns the HTTP status code. A
// transport failure is reported by returning an error with status 0.
type AttemptFunc func(ctx context.Context) (status int, err error)

// LatencyStats summarizes response latencies for attempts that got a
// response.
type LatencyStats struct {
	Min  time.Duration `json:"min_ns"`
	Mean time.Duration `json:"mean_ns"`
	P50  time.Duration `json:"p50_ns"`
	P90  time.Duration `json:"p90_ns"`
	P99  time.Duration `json:"p99_ns"`
	Max  time.Duration `json:"max_ns"`
}

// Report is the outcome of a load test run.
type Report struct {
	Target      string        `json:"target,omitempty"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Errors      int           `json:"errors"`
	StatusCodes map[int]int   `json:"status_codes"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	RPS         float64       `json:"rps"`
	Latency     LatencyStats  `json:"latency"`
}

// SuccessRate returns the fraction of attempts that returned a 2xx status.
func (r *Report) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Total)
}

type attemptResult struct {
	done    bool
	status  int
	latency time.Duration
	err     error
}

// Run executes the load test. On context cancellation the partial report is
// returned together with the context error.
func Run(ctx context.Context, opts Options, attempt AttemptFunc) (*Report, error) {
	if opts.Requests < 1 {
		return nil, fmt.Errorf("requests must be at least 1, got %d", opts.Requests)
	}
	if opts.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", opts.Concurrency)
	}
	workers := opts.Concurrency
	if workers > opts.Requests {
		workers = opts.Requests
	}

	results := make([]attemptResult, opts.Requests)
	var next atomic.Int64

	g, runCtx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := next.Add(1) - 1
				if i >= int64(opts.Requests) {
					return nil
				}
				if err := runCtx.Err(); err != nil {
					return err
				}
				attemptStart := time.Now()
				status, err := attempt(runCtx)
				results[i] = attemptResult{
					done:    true,
					status:  status,
					latency: time.Since(attemptStart),
					err:     err,
				}
			}
		})
	}

	runErr := g.Wait()
	report := buildReport(results, time.Since(start))
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return report, runErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func buildReport(results []attemptResult, elapsed time.Duration) *Report {
	report := &Report{
		StatusCodes: make(map[int]int),
		Elapsed:     elapsed,
	}

	var latencies []time.Duration
	var sum time.Duration
	for _, res := range results {
		if !res.done {
			continue
		}
		report.Total++
		if res.status == 0 {
			report.Errors++
			continue
		}
		report.StatusCodes[res.status]++
		if res.status >= 200 && res.status < 300 {
			report.Succeeded++
		}
		latencies = append(latencies, res.latency)
		sum += res.latency
	}

	if elapsed > 0 {
		report.RPS = float64(report.Total) / elapsed.Seconds()
	}
	if len(latencies) == 0 {
		return report
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	report.Latency = LatencyStats{
		Min:  latencies[0],
		Mean: sum / time.Duration(len(latencies)),
		P50:  percentile(latencies, 0.50),
		P90:  percentile(latencies, 0.90),
		P99:  percentile(latencies, 0.99),
		Max:  latencies[len(latencies)-1],
	}
	return report
}

// percentile returns the q-th percentile of sorted latencies using
// nearest-rank.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(q*float64(len(sorted)) + 0.5)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
