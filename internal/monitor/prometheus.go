package monitor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/praxislabs/warden/internal/log"
)

// Prometheus queries a Prometheus server and drives its lifecycle endpoints.
type Prometheus struct {
	base   string
	api    promv1.API
	client *http.Client
}

// NewPrometheus creates a client for the Prometheus server at baseURL.
func NewPrometheus(baseURL string) (*Prometheus, error) {
	c, err := api.NewClient(api.Config{Address: baseURL})
	if err != nil {
		return nil, fmt.Errorf("creating prometheus client: %w", err)
	}
	return &Prometheus{
		base:   strings.TrimSuffix(baseURL, "/"),
		api:    promv1.NewAPI(c),
		client: &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// Ready reports whether the server answers its readiness endpoint.
func (p *Prometheus) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+"/-/ready", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to prometheus: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prometheus not ready: status %d", resp.StatusCode)
	}
	return nil
}

// Sample is one flattened result from an instant query.
type Sample struct {
	Metric map[string]string
	Value  float64
	Time   time.Time
}

// Query evaluates an instant PromQL expression and flattens the result.
// Range expressions are rejected; use an instant-vector selector instead.
func (p *Prometheus) Query(ctx context.Context, expr string) ([]Sample, error) {
	val, warnings, err := p.api.Query(ctx, expr, time.Now())
	if err != nil {
		return nil, fmt.Errorf("querying prometheus: %w", err)
	}
	for _, w := range warnings {
		log.Warn("prometheus query warning", "query", expr, "warning", w)
	}
	return flattenValue(val)
}

func flattenValue(val model.Value) ([]Sample, error) {
	switch v := val.(type) {
	case model.Vector:
		samples := make([]Sample, 0, len(v))
		for _, s := range v {
			metric := make(map[string]string, len(s.Metric))
			for name, value := range s.Metric {
				metric[string(name)] = string(value)
			}
			samples = append(samples, Sample{
				Metric: metric,
				Value:  float64(s.Value),
				Time:   s.Timestamp.Time(),
			})
		}
		return samples, nil
	case *model.Scalar:
		return []Sample{{Value: float64(v.Value), Time: v.Timestamp.Time()}}, nil
	default:
		return nil, fmt.Errorf("query returned %s result, expected an instant vector or scalar", val.Type())
	}
}

// Target is one active scrape target.
type Target struct {
	Job        string
	Instance   string
	Health     string
	ScrapeURL  string
	LastError  string
	LastScrape time.Time
}

// TargetsReport lists active scrape targets and counts dropped ones.
type TargetsReport struct {
	Active  []Target
	Dropped int
}

// Targets returns the server's scrape targets.
func (p *Prometheus) Targets(ctx context.Context) (*TargetsReport, error) {
	result, err := p.api.Targets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing prometheus targets: %w", err)
	}
	report := &TargetsReport{
		Active:  make([]Target, 0, len(result.Active)),
		Dropped: len(result.Dropped),
	}
	for _, t := range result.Active {
		report.Active = append(report.Active, Target{
			Job:        string(t.Labels[model.JobLabel]),
			Instance:   string(t.Labels[model.InstanceLabel]),
			Health:     string(t.Health),
			ScrapeURL:  t.ScrapeURL,
			LastError:  t.LastError,
			LastScrape: t.LastScrape,
		})
	}
	return report, nil
}

// RuleAlert is an alert as evaluated by the server's rule engine.
type RuleAlert struct {
	Name        string            `json:"name"`
	State       string            `json:"state"`
	Value       string            `json:"value,omitempty"`
	ActiveAt    time.Time         `json:"active_at"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// Alerts returns the alerts the rule engine currently has firing or pending.
func (p *Prometheus) Alerts(ctx context.Context) ([]RuleAlert, error) {
	result, err := p.api.Alerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing prometheus alerts: %w", err)
	}
	alerts := make([]RuleAlert, 0, len(result.Alerts))
	for _, a := range result.Alerts {
		labels := labelMap(a.Labels)
		alerts = append(alerts, RuleAlert{
			Name:        labels[model.AlertNameLabel],
			State:       string(a.State),
			Value:       a.Value,
			ActiveAt:    a.ActiveAt,
			Labels:      labels,
			Annotations: labelMap(a.Annotations),
		})
	}
	return alerts, nil
}

// Rule is one alerting or recording rule with its evaluation state.
type Rule struct {
	Name      string        `json:"name"`
	Kind      string        `json:"kind"`
	Query     string        `json:"query"`
	Duration  time.Duration `json:"duration,omitempty"`
	State     string        `json:"state,omitempty"`
	Health    string        `json:"health"`
	LastError string        `json:"last_error,omitempty"`
}

// RuleGroup is one group from the server's rule files.
type RuleGroup struct {
	Name  string `json:"name"`
	File  string `json:"file"`
	Rules []Rule `json:"rules"`
}

// Rules returns the server's rule groups with per-rule evaluation state.
func (p *Prometheus) Rules(ctx context.Context) ([]RuleGroup, error) {
	result, err := p.api.Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing prometheus rules: %w", err)
	}
	groups := make([]RuleGroup, 0, len(result.Groups))
	for _, g := range result.Groups {
		group := RuleGroup{
			Name:  g.Name,
			File:  g.File,
			Rules: make([]Rule, 0, len(g.Rules)),
		}
		for _, r := range g.Rules {
			switch rule := r.(type) {
			case promv1.AlertingRule:
				group.Rules = append(group.Rules, Rule{
					Name:      rule.Name,
					Kind:      "alerting",
					Query:     rule.Query,
					Duration:  time.Duration(rule.Duration * float64(time.Second)),
					State:     rule.State,
					Health:    string(rule.Health),
					LastError: rule.LastError,
				})
			case promv1.RecordingRule:
				group.Rules = append(group.Rules, Rule{
					Name:      rule.Name,
					Kind:      "recording",
					Query:     rule.Query,
					Health:    string(rule.Health),
					LastError: rule.LastError,
				})
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func labelMap(set model.LabelSet) map[string]string {
	m := make(map[string]string, len(set))
	for name, value := range set {
		m[string(name)] = string(value)
	}
	return m
}

// Reload asks the server to re-read its configuration. Requires the server
// to run with --web.enable-lifecycle.
func (p *Prometheus) Reload(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/-/reload", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to prometheus: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prometheus reload rejected: status %d: %s", resp.StatusCode, readBody(resp))
	}
	return nil
}
