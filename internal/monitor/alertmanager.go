package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Alert is an alert as AlertManager's v2 API reports it.
type Alert struct {
	Fingerprint  string            `json:"fingerprint,omitempty"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations,omitempty"`
	StartsAt     time.Time         `json:"startsAt,omitempty"`
	EndsAt       time.Time         `json:"endsAt,omitempty"`
	GeneratorURL string            `json:"generatorURL,omitempty"`
	Status       *AlertStatus      `json:"status,omitempty"`
}

// AlertStatus carries an alert's lifecycle state.
type AlertStatus struct {
	State       string   `json:"state"`
	SilencedBy  []string `json:"silencedBy"`
	InhibitedBy []string `json:"inhibitedBy"`
}

// Name returns the alert's alertname label.
func (a Alert) Name() string {
	return a.Labels["alertname"]
}

// AlertManager talks to an AlertManager server over its v2 API.
type AlertManager struct {
	base   string
	client *http.Client
}

// NewAlertManager creates a client for the AlertManager at baseURL.
func NewAlertManager(baseURL string) *AlertManager {
	return &AlertManager{
		base:   strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

// Ready reports whether the server answers its readiness endpoint.
func (a *AlertManager) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/-/ready", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to alertmanager: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alertmanager not ready: status %d", resp.StatusCode)
	}
	return nil
}

// StatusInfo is AlertManager's runtime status: build version, uptime, and
// cluster state.
type StatusInfo struct {
	Cluster     ClusterInfo `json:"cluster"`
	VersionInfo VersionInfo `json:"versionInfo"`
	Uptime      time.Time   `json:"uptime"`
}

// ClusterInfo is the cluster section of AlertManager's status.
type ClusterInfo struct {
	Status string `json:"status"`
}

// VersionInfo identifies the AlertManager build.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
}

// Status fetches AlertManager's runtime status.
func (a *AlertManager) Status(ctx context.Context) (*StatusInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/api/v2/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to alertmanager: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alertmanager returned %d: %s", resp.StatusCode, readBody(resp))
	}
	var status StatusInfo
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &status, nil
}

// Alerts lists the alerts AlertManager currently knows about. With
// activeOnly set, silenced and inhibited alerts are excluded.
func (a *AlertManager) Alerts(ctx context.Context, activeOnly bool) ([]Alert, error) {
	url := a.base + "/api/v2/alerts"
	if activeOnly {
		url += "?active=true&silenced=false&inhibited=false"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to alertmanager: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alertmanager returned %d: %s", resp.StatusCode, readBody(resp))
	}
	var alerts []Alert
	if err := json.NewDecoder(resp.Body).Decode(&alerts); err != nil {
		return nil, fmt.Errorf("decoding alerts: %w", err)
	}
	return alerts, nil
}

// PostAlert submits a synthetic alert directly to AlertManager, bypassing
// Prometheus. The alert fires until EndsAt passes.
func (a *AlertManager) PostAlert(ctx context.Context, alert Alert) error {
	body, err := json.Marshal([]Alert{alert})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/api/v2/alerts", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to alertmanager: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alertmanager rejected alert: status %d: %s", resp.StatusCode, readBody(resp))
	}
	return nil
}

// WaitForAlert polls until an alert with the given alertname appears or the
// deadline passes.
func (a *AlertManager) WaitForAlert(ctx context.Context, name string, timeout time.Duration) (*Alert, error) {
	deadline := time.Now().Add(timeout)
	for {
		alerts, err := a.Alerts(ctx, false)
		if err == nil {
			for i := range alerts {
				if alerts[i].Name() == name {
					return &alerts[i], nil
				}
			}
		}
		if time.Now().After(deadline) {
			if err != nil {
				return nil, fmt.Errorf("waiting for alert %q: %w", name, err)
			}
			return nil, fmt.Errorf("alert %q did not appear within %s", name, timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Silence is a silence as AlertManager's v2 API reports it.
type Silence struct {
	ID        string        `json:"id"`
	Status    SilenceStatus `json:"status"`
	Matchers  []Matcher     `json:"matchers"`
	CreatedBy string        `json:"createdBy"`
	Comment   string        `json:"comment"`
	StartsAt  time.Time     `json:"startsAt"`
	EndsAt    time.Time     `json:"endsAt"`
}

// SilenceStatus carries a silence's lifecycle state.
type SilenceStatus struct {
	State string `json:"state"`
}

// Matcher is one label matcher of a silence.
type Matcher struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	IsEqual bool   `json:"isEqual"`
	IsRegex bool   `json:"isRegex"`
}

// Silences lists silences. With activeOnly set, expired and pending
// silences are excluded.
func (a *AlertManager) Silences(ctx context.Context, activeOnly bool) ([]Silence, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/api/v2/silences", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to alertmanager: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alertmanager returned %d: %s", resp.StatusCode, readBody(resp))
	}
	var silences []Silence
	if err := json.NewDecoder(resp.Body).Decode(&silences); err != nil {
		return nil, fmt.Errorf("decoding silences: %w", err)
	}
	if !activeOnly {
		return silences, nil
	}
	active := silences[:0]
	for _, s := range silences {
		if s.Status.State == "active" {
			active = append(active, s)
		}
	}
	return active, nil
}

// Reload asks AlertManager to re-read its configuration.
func (a *AlertManager) Reload(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/-/reload", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to alertmanager: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alertmanager reload rejected: status %d: %s", resp.StatusCode, readBody(resp))
	}
	return nil
}
