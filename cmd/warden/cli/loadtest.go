package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/forum"
	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/loadtest"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var (
	loadRequests    int
	loadConcurrency int
	loadDuration    time.Duration
	loadPath        string
	loadTopics      bool
	loadCategory    string
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Run a load test against the application",
	Long: `Flood the application with concurrent requests and report latency
percentiles, throughput, and a status-code histogram.

The default mode issues GET requests against the health endpoint. With
--topics the test POSTs generated topic-creation payloads instead, so the
write path gets exercised with schema-valid bodies.

Examples:
  warden loadtest                          # GET /health, defaults from warden.yaml
  warden loadtest -n 1000 -c 25            # 1000 requests, 25 workers
  warden loadtest -n 50000 --duration 30s  # stop after 30s even if requests remain
  warden loadtest --topics                 # POST generated topics
  warden loadtest --topics --category <uuid>`,
	Args: cobra.NoArgs,
	RunE: runLoadtest,
}

func init() {
	rootCmd.AddCommand(loadtestCmd)
	loadtestCmd.Flags().IntVarP(&loadRequests, "requests", "n", 0, "total number of requests (default from warden.yaml)")
	loadtestCmd.Flags().IntVarP(&loadConcurrency, "concurrency", "c", 0, "number of parallel workers (default from warden.yaml)")
	loadtestCmd.Flags().DurationVar(&loadDuration, "duration", 0, "stop the run after this long even if requests remain")
	loadtestCmd.Flags().StringVar(&loadPath, "path", "/health", "application path to GET")
	loadtestCmd.Flags().BoolVar(&loadTopics, "topics", false, "POST generated topic-creation payloads instead of GETs")
	loadtestCmd.Flags().StringVar(&loadCategory, "category", "", "category UUID for generated topics (fresh UUID when empty)")
}

func runLoadtest(cmd *cobra.Command, args []string) error {
	cfg, err := loadProjectOrDefault()
	if err != nil {
		return err
	}

	opts := loadtest.Options{
		Requests:    cfg.LoadTest.Requests,
		Concurrency: cfg.LoadTest.Concurrency,
	}
	if cmd.Flags().Changed("requests") {
		opts.Requests = loadRequests
	}
	if cmd.Flags().Changed("concurrency") {
		opts.Concurrency = loadConcurrency
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.LoadTest.TimeoutSeconds) * time.Second}

	var target string
	var attempt loadtest.AttemptFunc
	if loadTopics {
		client := forum.NewClient(cfg.App.BaseURL, cfg.App.TopicsPath)
		client.SetHTTPClient(httpClient)
		gen := forum.NewGenerator(loadCategory)
		target = "POST " + client.TopicsURL()
		attempt = loadtest.TopicAttempt(client, gen)
	} else {
		target = "GET " + cfg.AppURL(loadPath)
		attempt = loadtest.GetAttempt(httpClient, cfg.AppURL(loadPath))
	}

	if dryRun {
		fmt.Printf("Dry run - would issue %d requests (%d workers) against %s\n",
			opts.Requests, opts.Concurrency, target)
		return nil
	}

	fmt.Printf("Running %d requests with %d workers against %s\n", opts.Requests, opts.Concurrency, target)

	ctx := cmd.Context()
	if loadDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, loadDuration)
		defer cancel()
	}

	report, runErr := loadtest.Run(ctx, opts, attempt)
	capped := loadDuration > 0 && report != nil && errors.Is(runErr, context.DeadlineExceeded)
	if capped {
		runErr = nil
	}
	if report != nil {
		report.Target = target
		recordEvent(cfg, history.Event{
			Kind:      history.KindLoadTest,
			Target:    target,
			OK:        runErr == nil && report.Errors == 0,
			LatencyMS: report.Elapsed.Milliseconds(),
			Detail:    fmt.Sprintf("%d/%d ok, p90 %s", report.Succeeded, report.Total, intcli.FormatLatency(report.Latency.P90)),
		})
	}
	if runErr != nil {
		return runErr
	}
	if capped {
		ui.Warn(fmt.Sprintf("stopped by --duration after %s with %d of %d requests issued",
			loadDuration, report.Total, opts.Requests))
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(report)
	}
	printLoadReport(report)
	return nil
}

func printLoadReport(r *loadtest.Report) {
	fmt.Println()
	fmt.Printf("  Requests:    %d (%d succeeded, %d errors)\n", r.Total, r.Succeeded, r.Errors)
	fmt.Printf("  Duration:    %s (%.1f req/s)\n", r.Elapsed.Round(time.Millisecond), r.RPS)
	fmt.Printf("  Latency:     min %s  p50 %s  p90 %s  p99 %s  max %s\n",
		intcli.FormatLatency(r.Latency.Min), intcli.FormatLatency(r.Latency.P50),
		intcli.FormatLatency(r.Latency.P90), intcli.FormatLatency(r.Latency.P99),
		intcli.FormatLatency(r.Latency.Max))

	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  HTTP %d:    %d\n", code, r.StatusCodes[code])
	}

	fmt.Println()
	rate := r.SuccessRate() * 100
	if r.Errors == 0 && rate == 100 {
		fmt.Printf("%s all requests succeeded\n", ui.OKTag())
	} else {
		fmt.Printf("%s %.1f%% success rate\n", ui.StatusTag(false), rate)
	}
}
