// Package probe checks the HTTP surface of a monitored application.
//
// A Prober issues GET requests against the application's health endpoints
// and reports per-endpoint status with latency. Probes never fail fast: a
// dead endpoint produces a Result with Err set so callers can render the
// whole table and decide the exit code at the end.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single probe request.
const DefaultTimeout = 5 * time.Second

// maxBodyBytes caps how much of a response body a probe keeps.
const maxBodyBytes = 2048

// Endpoint is a named path probed on the target application.
type Endpoint struct {
	Name string
	Path string
}

// HealthEndpoints are the standard application health paths, probed in order.
var HealthEndpoints = []Endpoint{
	{Name: "health", Path: "/health"},
	{Name: "liveness", Path: "/health/live"},
	{Name: "readiness", Path: "/health/ready"},
}

// Result is the outcome of probing a single endpoint.
type Result struct {
	Name    string
	URL     string
	OK      bool
	Status  int
	Latency time.Duration
	Body    string
	Err     error
}

// Prober issues probes against a single application base URL.
type Prober struct {
	baseURL string
	client  *http.Client
}

// New creates a Prober for the application at baseURL.
func New(baseURL string) *Prober {
	return &Prober{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// Check probes one endpoint and records status, latency, and a body excerpt.
func (p *Prober) Check(ctx context.Context, ep Endpoint) Result {
	url := p.baseURL + ep.Path
	res := Result{Name: ep.Name, URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Err = err
		return res
	}
	start := time.Now()
	resp, err := p.client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("%s is not responding: %w", ep.Name, err)
		return res
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	res.Status = resp.StatusCode
	res.Body = strings.TrimSpace(string(body))
	res.OK = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !res.OK {
		res.Err = fmt.Errorf("%s returned %d", ep.Name, resp.StatusCode)
	}
	return res
}

// CheckAll probes every endpoint and returns one result per endpoint.
func (p *Prober) CheckAll(ctx context.Context, eps []Endpoint) []Result {
	results := make([]Result, 0, len(eps))
	for _, ep := range eps {
		results = append(results, p.Check(ctx, ep))
	}
	return results
}

// Healthy reports whether every result succeeded.
func Healthy(results []Result) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}
