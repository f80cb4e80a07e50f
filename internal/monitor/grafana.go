package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// GrafanaHealth is the response of Grafana's /api/health endpoint.
type GrafanaHealth struct {
	Database string `json:"database"`
	Version  string `json:"version"`
	Commit   string `json:"commit"`
}

// Datasource is one configured Grafana datasource.
type Datasource struct {
	ID        int64  `json:"id"`
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	IsDefault bool   `json:"isDefault"`
}

// Dashboard is one dashboard search hit.
type Dashboard struct {
	ID     int64  `json:"id"`
	UID    string `json:"uid"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Folder string `json:"folderTitle"`
}

// Grafana talks to a Grafana server's HTTP API. Authenticated endpoints use
// basic auth with the configured admin credentials.
type Grafana struct {
	base   string
	user   string
	pass   string
	client *http.Client
}

// NewGrafana creates a client for the Grafana server at baseURL. user and
// pass may be empty for unauthenticated endpoints only.
func NewGrafana(baseURL, user, pass string) *Grafana {
	return &Grafana{
		base:   strings.TrimSuffix(baseURL, "/"),
		user:   user,
		pass:   pass,
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

func (g *Grafana) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+path, nil)
	if err != nil {
		return err
	}
	if g.user != "" {
		req.SetBasicAuth(g.user, g.pass)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to grafana: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("grafana denied access to %s: status %d", path, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("grafana returned %d for %s: %s", resp.StatusCode, path, readBody(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding grafana response: %w", err)
	}
	return nil
}

// Health returns the server's health report. Works without credentials.
func (g *Grafana) Health(ctx context.Context) (*GrafanaHealth, error) {
	var health GrafanaHealth
	if err := g.get(ctx, "/api/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Datasources lists the configured datasources. Requires admin credentials.
func (g *Grafana) Datasources(ctx context.Context) ([]Datasource, error) {
	var sources []Datasource
	if err := g.get(ctx, "/api/datasources", &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// Dashboards lists all dashboards visible to the configured user.
func (g *Grafana) Dashboards(ctx context.Context) ([]Dashboard, error) {
	var dashboards []Dashboard
	if err := g.get(ctx, "/api/search?type=dash-db", &dashboards); err != nil {
		return nil, err
	}
	return dashboards, nil
}
