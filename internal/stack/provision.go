package stack

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/praxislabs/warden/internal/config"
)

// Rendered config file paths, relative to the stack config dir. These are
// what the containers mount and what reload re-validates.
const (
	PrometheusConfig   = "prometheus/prometheus.yml"
	PrometheusRules    = "prometheus/alerts.yml"
	AlertmanagerConfig = "alertmanager/alertmanager.yml"
	GrafanaDatasource  = "grafana/provisioning/datasources/prometheus.yml"
	GrafanaDashboards  = "grafana/provisioning/dashboards/provider.yml"
)

var prometheusTemplate = template.Must(template.New("prometheus.yml").Parse(`global:
  scrape_interval: 15s
  evaluation_interval: 15s

rule_files:
  - alerts.yml

alerting:
  alertmanagers:
    - static_configs:
        - targets: ["{{ .AlertmanagerTarget }}"]

scrape_configs:
  - job_name: forum-app
    metrics_path: {{ .MetricsPath }}
    static_configs:
      - targets: ["{{ .AppTarget }}"]

  - job_name: prometheus
    static_configs:
      - targets: ["localhost:9090"]

  - job_name: alertmanager
    static_configs:
      - targets: ["{{ .AlertmanagerTarget }}"]
{{- if .NodeExporterTarget }}

  - job_name: node
    static_configs:
      - targets: ["{{ .NodeExporterTarget }}"]
{{- end }}
`))

// alertRules uses Prometheus's own {{ }} template syntax in annotations, so
// it is a literal rather than a Go template.
const alertRules = `groups:
  - name: warden
    rules:
      - alert: InstanceDown
        expr: up == 0
        for: 1m
        labels:
          severity: critical
        annotations:
          summary: "{{ $labels.job }} target {{ $labels.instance }} is down"
          description: "Prometheus has not scraped {{ $labels.instance }} for over a minute."

      - alert: HighErrorRate
        expr: sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) > 0.05
        for: 5m
        labels:
          severity: warning
        annotations:
          summary: "High HTTP error rate"
          description: "More than 5% of requests returned 5xx over the last 5 minutes."
`

const alertmanagerConfig = `route:
  receiver: default
  group_by: [alertname]
  group_wait: 10s
  group_interval: 5m
  repeat_interval: 4h

# The default receiver has no notifier: alerts are visible in the
# AlertManager UI and API. Add webhook/email/slack configs here.
receivers:
  - name: default
`

var grafanaDatasourceTemplate = template.Must(template.New("datasource.yml").Parse(`apiVersion: 1

datasources:
  - name: Prometheus
    type: prometheus
    access: proxy
    url: http://{{ .PrometheusTarget }}
    isDefault: true
    editable: true
`))

const grafanaDashboards = `apiVersion: 1

providers:
  - name: warden
    type: file
    disableDeletion: false
    updateIntervalSeconds: 30
    options:
      path: /etc/grafana/provisioning/dashboards
`

// templateData feeds the prometheus and grafana templates. Targets are
// container-network addresses: stack components reach each other by container
// name, and the app through the host gateway mapping.
type templateData struct {
	AppTarget          string
	MetricsPath        string
	AlertmanagerTarget string
	NodeExporterTarget string
	PrometheusTarget   string
}

// File is one rendered config file, path relative to the config dir.
type File struct {
	Path    string
	Content []byte
}

// RenderConfigs produces the monitoring config tree for cfg.
func RenderConfigs(cfg *config.Config) ([]File, error) {
	appTarget, err := appScrapeTarget(cfg.App.BaseURL)
	if err != nil {
		return nil, err
	}

	data := templateData{
		AppTarget:          appTarget,
		MetricsPath:        cfg.App.MetricsPath,
		AlertmanagerTarget: fmt.Sprintf("%s%s:9093", containerPrefix, Alertmanager),
		PrometheusTarget:   fmt.Sprintf("%s%s:9090", containerPrefix, Prometheus),
	}
	if !cfg.Stack.NodeExporter.Disabled {
		data.NodeExporterTarget = fmt.Sprintf("%s%s:9100", containerPrefix, NodeExporter)
	}

	var prom, datasource bytes.Buffer
	if err := prometheusTemplate.Execute(&prom, data); err != nil {
		return nil, fmt.Errorf("rendering prometheus config: %w", err)
	}
	if err := grafanaDatasourceTemplate.Execute(&datasource, data); err != nil {
		return nil, fmt.Errorf("rendering grafana datasource: %w", err)
	}

	return []File{
		{Path: PrometheusConfig, Content: prom.Bytes()},
		{Path: PrometheusRules, Content: []byte(alertRules)},
		{Path: AlertmanagerConfig, Content: []byte(alertmanagerConfig)},
		{Path: GrafanaDatasource, Content: datasource.Bytes()},
		{Path: GrafanaDashboards, Content: []byte(grafanaDashboards)},
	}, nil
}

// WriteConfigs renders the config tree under cfg's config dir, creating any
// missing files. Existing files are never overwritten, so operator edits
// survive repeated init and up. Returns the relative paths written.
func WriteConfigs(cfg *config.Config) ([]string, error) {
	files, err := RenderConfigs(cfg)
	if err != nil {
		return nil, err
	}

	configDir := cfg.ConfigDirPath()
	var written []string
	for _, f := range files {
		path := filepath.Join(configDir, f.Path)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, fmt.Errorf("creating config dir: %w", err)
		}
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.Path, err)
		}
		written = append(written, f.Path)
	}
	return written, nil
}

// requiredKeys guards reload against structurally-empty configs that YAML
// parsing alone would accept.
var requiredKeys = map[string][]string{
	PrometheusConfig:   {"scrape_configs"},
	PrometheusRules:    {"groups"},
	AlertmanagerConfig: {"route", "receivers"},
}

// ValidateConfigs re-parses every stack config file and reports the first
// problem found. Reload calls this before signalling the servers so a typo
// can't take prometheus down.
func ValidateConfigs(cfg *config.Config) error {
	files, err := RenderConfigs(cfg)
	if err != nil {
		return err
	}

	configDir := cfg.ConfigDirPath()
	for _, f := range files {
		path := filepath.Join(configDir, f.Path)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("missing config %s: run 'warden init' to create it", f.Path)
			}
			return fmt.Errorf("reading %s: %w", f.Path, err)
		}

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%s is not valid YAML: %w", f.Path, err)
		}
		for _, key := range requiredKeys[f.Path] {
			if _, ok := doc[key]; !ok {
				return fmt.Errorf("%s is missing the %q section", f.Path, key)
			}
		}
	}
	return nil
}

// appScrapeTarget converts the app base URL into the address stack
// containers scrape it at. Containers can't reach the host's localhost, so
// the host is always addressed as host.docker.internal (mapped to the host
// gateway via extra_hosts).
func appScrapeTarget(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing app base URL: %w", err)
	}
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return "host.docker.internal:" + port, nil
}

const manifestContent = `# warden.yaml - monitoring stack manifest
#
# Every value is optional; settings here override the built-in defaults.

app:
  # Where the forum application listens on the host.
  base_url: http://localhost:3000
  metrics_path: /metrics
  topics_path: /api/topics
  test_alert_path: /test-alert

stack:
  network: warden-net
  config_dir: monitoring
  prometheus:
    port: 9090
    retention: 15d
  alertmanager:
    port: 9093
  grafana:
    port: 3001
  node_exporter:
    port: 9100
    # disabled: true

backup:
  dir: backups
  keep: 10
  # exclude:
  #   - "*.bak"
  # s3:
  #   bucket: my-backups
  #   prefix: warden
  #   region: us-east-1

loadtest:
  requests: 200
  concurrency: 10
`

// WriteManifest scaffolds warden.yaml in dir. Refuses to clobber an
// existing manifest.
func WriteManifest(dir string) (string, error) {
	path := filepath.Join(dir, "warden.yaml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("warden.yaml already exists in %s", dir)
	}
	if err := os.WriteFile(path, []byte(manifestContent), 0o644); err != nil {
		return "", fmt.Errorf("writing warden.yaml: %w", err)
	}
	return path, nil
}
