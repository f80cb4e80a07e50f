package stack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/praxislabs/warden/internal/config"
)

func TestWriteConfigsCreatesTree(t *testing.T) {
	cfg := testConfig(t)

	written, err := WriteConfigs(cfg)
	require.NoError(t, err)
	assert.Len(t, written, 5)

	for _, rel := range []string{
		PrometheusConfig,
		PrometheusRules,
		AlertmanagerConfig,
		GrafanaDatasource,
		GrafanaDashboards,
	} {
		path := filepath.Join(cfg.ConfigDirPath(), rel)
		_, err := os.Stat(path)
		assert.NoError(t, err, "expected %s to exist", rel)
	}
}

func TestWriteConfigsNeverOverwrites(t *testing.T) {
	cfg := testConfig(t)

	_, err := WriteConfigs(cfg)
	require.NoError(t, err)

	// Simulate an operator edit, then re-render.
	promPath := filepath.Join(cfg.ConfigDirPath(), PrometheusConfig)
	edited := []byte("global:\n  scrape_interval: 5s\nscrape_configs: []\n")
	require.NoError(t, os.WriteFile(promPath, edited, 0o644))

	written, err := WriteConfigs(cfg)
	require.NoError(t, err)
	assert.Empty(t, written, "nothing was missing, nothing should be written")

	data, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Equal(t, edited, data, "operator edit must survive re-render")
}

func TestWriteConfigsFillsMissingFile(t *testing.T) {
	cfg := testConfig(t)

	_, err := WriteConfigs(cfg)
	require.NoError(t, err)

	rulesPath := filepath.Join(cfg.ConfigDirPath(), PrometheusRules)
	require.NoError(t, os.Remove(rulesPath))

	written, err := WriteConfigs(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{PrometheusRules}, written)
}

func TestPrometheusConfigContent(t *testing.T) {
	cfg := testConfig(t)

	_, err := WriteConfigs(cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.ConfigDirPath(), PrometheusConfig))
	require.NoError(t, err)
	content := string(data)

	// The app is scraped over the host gateway, never localhost.
	assert.Contains(t, content, `targets: ["host.docker.internal:3000"]`)
	assert.Contains(t, content, "metrics_path: /metrics")
	assert.Contains(t, content, `targets: ["warden-alertmanager:9093"]`)
	assert.Contains(t, content, "job_name: node")
	assert.NotContains(t, content, "localhost:3000")

	// Rendered output must itself be valid YAML.
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Contains(t, doc, "scrape_configs")
	assert.Contains(t, doc, "alerting")
}

func TestPrometheusConfigCustomAppPort(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.BaseURL = "http://localhost:8080"

	files, err := RenderConfigs(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(files[0].Content), "host.docker.internal:8080")
}

func TestPrometheusConfigNodeExporterDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Stack.NodeExporter.Disabled = true

	files, err := RenderConfigs(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(files[0].Content), "job_name: node\n")
}

func TestGrafanaDatasourcePointsAtPrometheus(t *testing.T) {
	files, err := RenderConfigs(testConfig(t))
	require.NoError(t, err)

	var datasource []byte
	for _, f := range files {
		if f.Path == GrafanaDatasource {
			datasource = f.Content
		}
	}
	require.NotNil(t, datasource)
	assert.Contains(t, string(datasource), "url: http://warden-prometheus:9090")

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(datasource, &doc))
}

func TestAlertRulesParse(t *testing.T) {
	// The rules file carries Prometheus template syntax in annotations;
	// it still has to be plain valid YAML.
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(alertRules), &doc))
	assert.Contains(t, doc, "groups")
}

func TestValidateConfigsOK(t *testing.T) {
	cfg := testConfig(t)
	_, err := WriteConfigs(cfg)
	require.NoError(t, err)

	assert.NoError(t, ValidateConfigs(cfg))
}

func TestValidateConfigsMalformed(t *testing.T) {
	cfg := testConfig(t)
	_, err := WriteConfigs(cfg)
	require.NoError(t, err)

	path := filepath.Join(cfg.ConfigDirPath(), AlertmanagerConfig)
	require.NoError(t, os.WriteFile(path, []byte("route: [unclosed"), 0o644))

	err = ValidateConfigs(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), AlertmanagerConfig)
	assert.Contains(t, err.Error(), "not valid YAML")
}

func TestValidateConfigsMissingSection(t *testing.T) {
	cfg := testConfig(t)
	_, err := WriteConfigs(cfg)
	require.NoError(t, err)

	// Valid YAML, but prometheus would refuse it: no scrape_configs.
	path := filepath.Join(cfg.ConfigDirPath(), PrometheusConfig)
	require.NoError(t, os.WriteFile(path, []byte("global:\n  scrape_interval: 15s\n"), 0o644))

	err = ValidateConfigs(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape_configs")
}

func TestValidateConfigsMissingFile(t *testing.T) {
	cfg := testConfig(t)
	_, err := WriteConfigs(cfg)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(cfg.ConfigDirPath(), PrometheusConfig)))

	err = ValidateConfigs(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warden init")
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "warden.yaml"), path)

	// The scaffold must load cleanly with defaults intact.
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:3000", cfg.App.BaseURL)
	assert.Equal(t, 9090, cfg.Stack.Prometheus.Port)
}

func TestWriteManifestRefusesExisting(t *testing.T) {
	dir := t.TempDir()

	_, err := WriteManifest(dir)
	require.NoError(t, err)

	_, err = WriteManifest(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAppScrapeTarget(t *testing.T) {
	tests := []struct {
		baseURL string
		want    string
	}{
		{"http://localhost:3000", "host.docker.internal:3000"},
		{"http://127.0.0.1:8080", "host.docker.internal:8080"},
		{"http://forum.internal", "host.docker.internal:80"},
		{"https://forum.internal", "host.docker.internal:443"},
	}
	for _, tt := range tests {
		got, err := appScrapeTarget(tt.baseURL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "baseURL %s", tt.baseURL)
	}
}
