package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "warden.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
app:
  base_url: http://forum.internal:8080
  test_alert_name: SyntheticAlert

stack:
  network: forum-mon
  prometheus:
    tag: v3.6.0
    retention: 30d

backup:
  keep: 5
  exclude:
    - "*.bak"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.BaseURL != "http://forum.internal:8080" {
		t.Errorf("App.BaseURL = %q, want %q", cfg.App.BaseURL, "http://forum.internal:8080")
	}
	if cfg.App.TestAlertName != "SyntheticAlert" {
		t.Errorf("App.TestAlertName = %q, want %q", cfg.App.TestAlertName, "SyntheticAlert")
	}
	if cfg.Stack.Network != "forum-mon" {
		t.Errorf("Stack.Network = %q, want %q", cfg.Stack.Network, "forum-mon")
	}
	if cfg.Stack.Prometheus.Tag != "v3.6.0" {
		t.Errorf("Prometheus.Tag = %q, want %q", cfg.Stack.Prometheus.Tag, "v3.6.0")
	}
	if cfg.Stack.Prometheus.Retention != "30d" {
		t.Errorf("Prometheus.Retention = %q, want %q", cfg.Stack.Prometheus.Retention, "30d")
	}
	if cfg.Backup.Keep != 5 {
		t.Errorf("Backup.Keep = %d, want 5", cfg.Backup.Keep)
	}
	if len(cfg.Backup.Exclude) != 1 || cfg.Backup.Exclude[0] != "*.bak" {
		t.Errorf("Backup.Exclude = %v, want [*.bak]", cfg.Backup.Exclude)
	}
}

func TestLoadConfigNotFound(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load should not error for missing config: %v", err)
	}
	if cfg != nil {
		t.Error("Expected nil config when warden.yaml doesn't exist")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
app:
  base_url: http://localhost:4000
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Everything not set falls back to defaults.
	if cfg.App.MetricsPath != "/metrics" {
		t.Errorf("MetricsPath = %q, want /metrics", cfg.App.MetricsPath)
	}
	if cfg.App.TopicsPath != "/api/topics" {
		t.Errorf("TopicsPath = %q, want /api/topics", cfg.App.TopicsPath)
	}
	if cfg.Stack.Prometheus.Port != 9090 {
		t.Errorf("Prometheus.Port = %d, want 9090", cfg.Stack.Prometheus.Port)
	}
	if cfg.Stack.Alertmanager.Port != 9093 {
		t.Errorf("Alertmanager.Port = %d, want 9093", cfg.Stack.Alertmanager.Port)
	}
	if cfg.Stack.Grafana.Port != 3001 {
		t.Errorf("Grafana.Port = %d, want 3001", cfg.Stack.Grafana.Port)
	}
	if cfg.Stack.Network != "warden-net" {
		t.Errorf("Network = %q, want warden-net", cfg.Stack.Network)
	}
	if cfg.LoadTest.Concurrency != 10 {
		t.Errorf("LoadTest.Concurrency = %d, want 10", cfg.LoadTest.Concurrency)
	}
	if cfg.Backup.Keep != 10 {
		t.Errorf("Backup.Keep = %d, want 10", cfg.Backup.Keep)
	}
}

func TestLoadConfigInvalidBaseURL(t *testing.T) {
	dir := writeConfig(t, `
app:
  base_url: localhost:3000
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for base_url without scheme")
	}
	if !strings.Contains(err.Error(), "app.base_url") {
		t.Errorf("error should name the field, got: %v", err)
	}
}

func TestLoadConfigInvalidPort(t *testing.T) {
	dir := writeConfig(t, `
stack:
  grafana:
    port: 70000
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
	if !strings.Contains(err.Error(), "stack.grafana.port") {
		t.Errorf("error should name the field, got: %v", err)
	}
}

func TestLoadConfigInvalidRetention(t *testing.T) {
	dir := writeConfig(t, `
stack:
  prometheus:
    retention: fifteen days
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for malformed retention")
	}
	if !strings.Contains(err.Error(), "retention") {
		t.Errorf("error should mention retention, got: %v", err)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	dir := writeConfig(t, "app: [unclosed")

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for malformed yaml")
	}
	if !strings.Contains(err.Error(), "parsing warden.yaml") {
		t.Errorf("error should mention parsing, got: %v", err)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("WARDEN_APP_URL", "http://staging.forum.internal")
	t.Setenv("WARDEN_GRAFANA_PORT", "3002")

	dir := writeConfig(t, `
app:
  base_url: http://localhost:3000
stack:
  grafana:
    port: 3001
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.BaseURL != "http://staging.forum.internal" {
		t.Errorf("BaseURL = %q, want env override", cfg.App.BaseURL)
	}
	if cfg.Stack.Grafana.Port != 3002 {
		t.Errorf("Grafana.Port = %d, want env override 3002", cfg.Stack.Grafana.Port)
	}
	if cfg.Stack.Prometheus.Port != 9090 {
		t.Errorf("Prometheus.Port = %d, want default untouched", cfg.Stack.Prometheus.Port)
	}
}

func TestLoadConfigEnvOverrideBadPort(t *testing.T) {
	t.Setenv("WARDEN_PROMETHEUS_PORT", "ninety-ninety")

	dir := writeConfig(t, "app:\n  base_url: http://localhost:3000\n")

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for non-numeric port override")
	}
	if !strings.Contains(err.Error(), "WARDEN_PROMETHEUS_PORT") {
		t.Errorf("error should name the variable, got: %v", err)
	}
}

func TestConfigPaths(t *testing.T) {
	dir := writeConfig(t, `
stack:
  config_dir: monitoring
backup:
  dir: /var/backups/forum
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.ConfigDirPath(); got != filepath.Join(dir, "monitoring") {
		t.Errorf("ConfigDirPath = %q", got)
	}
	// Absolute paths pass through untouched.
	if got := cfg.BackupDirPath(); got != "/var/backups/forum" {
		t.Errorf("BackupDirPath = %q", got)
	}
	if got := cfg.HistoryPath(); got != filepath.Join(dir, ".warden", "history.db") {
		t.Errorf("HistoryPath = %q", got)
	}
}

func TestAppURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.App.BaseURL = "http://localhost:3000/"

	if got := cfg.AppURL("/health"); got != "http://localhost:3000/health" {
		t.Errorf("AppURL = %q", got)
	}
}
