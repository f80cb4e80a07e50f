// Package config handles warden.yaml manifest parsing.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents a warden.yaml project manifest.
type Config struct {
	App      AppConfig      `yaml:"app,omitempty"`
	Stack    StackConfig    `yaml:"stack,omitempty"`
	Backup   BackupConfig   `yaml:"backup,omitempty"`
	LoadTest LoadTestConfig `yaml:"loadtest,omitempty"`

	// Dir is the project directory the config was loaded from.
	// Not serialized; set by Load.
	Dir string `yaml:"-"`
}

// AppConfig describes the monitored application. The application itself is
// deployed and operated elsewhere; warden only consumes its HTTP surface.
type AppConfig struct {
	// BaseURL is where the application listens, e.g. http://localhost:3000.
	BaseURL string `yaml:"base_url,omitempty"`

	// MetricsPath is the Prometheus exposition endpoint.
	MetricsPath string `yaml:"metrics_path,omitempty"`

	// TopicsPath is the topic-creation endpoint exercised by load tests.
	TopicsPath string `yaml:"topics_path,omitempty"`

	// TestAlertPath triggers a synthetic alert in the application.
	TestAlertPath string `yaml:"test_alert_path,omitempty"`

	// TestAlertName is the alertname the synthetic alert surfaces as.
	TestAlertName string `yaml:"test_alert_name,omitempty"`
}

// StackConfig configures the monitoring containers.
type StackConfig struct {
	// Network is the docker bridge network the stack runs on.
	Network string `yaml:"network,omitempty"`

	// ConfigDir holds the rendered prometheus/alertmanager/grafana
	// configuration, relative to the project dir unless absolute.
	ConfigDir string `yaml:"config_dir,omitempty"`

	// ExtraHosts is passed to every stack container. The default maps
	// host.docker.internal to the host gateway so scrape configs can
	// reach the application published on the host.
	ExtraHosts []string `yaml:"extra_hosts,omitempty"`

	Prometheus   ComponentConfig `yaml:"prometheus,omitempty"`
	Alertmanager ComponentConfig `yaml:"alertmanager,omitempty"`
	Grafana      ComponentConfig `yaml:"grafana,omitempty"`
	NodeExporter ComponentConfig `yaml:"node_exporter,omitempty"`
}

// ComponentConfig overrides image and port settings for one stack component.
type ComponentConfig struct {
	Image string `yaml:"image,omitempty"`
	Tag   string `yaml:"tag,omitempty"`

	// Port is the host port the component is published on.
	Port int `yaml:"port,omitempty"`

	// Retention is the TSDB retention window (prometheus only), e.g. "15d".
	Retention string `yaml:"retention,omitempty"`

	// Disabled skips the component (node-exporter only).
	Disabled bool `yaml:"disabled,omitempty"`
}

// BackupConfig configures config-tree backups.
type BackupConfig struct {
	// Dir is where archives and their metadata live, relative to the
	// project dir unless absolute.
	Dir string `yaml:"dir,omitempty"`

	// Keep is how many backups survive a prune (0 = keep all).
	Keep int `yaml:"keep,omitempty"`

	// MaxAgeDays prunes backups older than this (0 = no age limit).
	MaxAgeDays int `yaml:"max_age_days,omitempty"`

	// Exclude lists gitignore-style patterns skipped when archiving.
	Exclude []string `yaml:"exclude,omitempty"`

	S3 S3Config `yaml:"s3,omitempty"`
}

// S3Config is the optional offsite target for backup archives.
type S3Config struct {
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Region string `yaml:"region,omitempty"`
}

// Configured reports whether an S3 target is set.
func (s S3Config) Configured() bool {
	return s.Bucket != ""
}

// LoadTestConfig holds load-test defaults, overridable per run by flags.
type LoadTestConfig struct {
	Requests       int `yaml:"requests,omitempty"`
	Concurrency    int `yaml:"concurrency,omitempty"`
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// retentionPattern matches Prometheus duration strings like "15d" or "2w".
var retentionPattern = regexp.MustCompile(`^\d+(ms|s|m|h|d|w|y)$`)

// Load reads warden.yaml from the given directory.
// Returns nil, nil if the file doesn't exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "warden.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading warden.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing warden.yaml: %w", err)
	}
	cfg.Dir = dir

	applyDefaults(&cfg)

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnvOverrides layers WARDEN_* environment variables over the
// configuration. Only the application base URL and component host ports
// are overridable; structural settings stay in warden.yaml. Load applies
// them before validation so a bad port from the environment fails the
// same way a bad port in the file does.
func ApplyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("WARDEN_APP_URL"); v != "" {
		cfg.App.BaseURL = v
	}

	ports := []struct {
		env  string
		port *int
	}{
		{"WARDEN_PROMETHEUS_PORT", &cfg.Stack.Prometheus.Port},
		{"WARDEN_ALERTMANAGER_PORT", &cfg.Stack.Alertmanager.Port},
		{"WARDEN_GRAFANA_PORT", &cfg.Stack.Grafana.Port},
		{"WARDEN_NODE_EXPORTER_PORT", &cfg.Stack.NodeExporter.Port},
	}
	for _, p := range ports {
		v := os.Getenv(p.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", p.env, err)
		}
		*p.port = n
	}
	return nil
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = def.App.BaseURL
	}
	if cfg.App.MetricsPath == "" {
		cfg.App.MetricsPath = def.App.MetricsPath
	}
	if cfg.App.TopicsPath == "" {
		cfg.App.TopicsPath = def.App.TopicsPath
	}
	if cfg.App.TestAlertPath == "" {
		cfg.App.TestAlertPath = def.App.TestAlertPath
	}
	if cfg.App.TestAlertName == "" {
		cfg.App.TestAlertName = def.App.TestAlertName
	}

	if cfg.Stack.Network == "" {
		cfg.Stack.Network = def.Stack.Network
	}
	if cfg.Stack.ConfigDir == "" {
		cfg.Stack.ConfigDir = def.Stack.ConfigDir
	}
	if cfg.Stack.ExtraHosts == nil {
		cfg.Stack.ExtraHosts = def.Stack.ExtraHosts
	}
	applyComponentDefaults(&cfg.Stack.Prometheus, def.Stack.Prometheus)
	applyComponentDefaults(&cfg.Stack.Alertmanager, def.Stack.Alertmanager)
	applyComponentDefaults(&cfg.Stack.Grafana, def.Stack.Grafana)
	applyComponentDefaults(&cfg.Stack.NodeExporter, def.Stack.NodeExporter)

	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = def.Backup.Dir
	}
	if cfg.Backup.Keep == 0 {
		cfg.Backup.Keep = def.Backup.Keep
	}

	if cfg.LoadTest.Requests == 0 {
		cfg.LoadTest.Requests = def.LoadTest.Requests
	}
	if cfg.LoadTest.Concurrency == 0 {
		cfg.LoadTest.Concurrency = def.LoadTest.Concurrency
	}
	if cfg.LoadTest.TimeoutSeconds == 0 {
		cfg.LoadTest.TimeoutSeconds = def.LoadTest.TimeoutSeconds
	}
}

func applyComponentDefaults(c *ComponentConfig, def ComponentConfig) {
	if c.Image == "" {
		c.Image = def.Image
	}
	if c.Tag == "" {
		c.Tag = def.Tag
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.Retention == "" {
		c.Retention = def.Retention
	}
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.App.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid app.base_url %q: must be an http(s) URL like http://localhost:3000", cfg.App.BaseURL)
	}

	for _, p := range []struct{ name, val string }{
		{"app.metrics_path", cfg.App.MetricsPath},
		{"app.topics_path", cfg.App.TopicsPath},
		{"app.test_alert_path", cfg.App.TestAlertPath},
	} {
		if !strings.HasPrefix(p.val, "/") {
			return fmt.Errorf("invalid %s %q: must start with '/'", p.name, p.val)
		}
	}

	for _, c := range []struct {
		name string
		cfg  ComponentConfig
	}{
		{"prometheus", cfg.Stack.Prometheus},
		{"alertmanager", cfg.Stack.Alertmanager},
		{"grafana", cfg.Stack.Grafana},
		{"node_exporter", cfg.Stack.NodeExporter},
	} {
		if c.cfg.Port < 1 || c.cfg.Port > 65535 {
			return fmt.Errorf("invalid stack.%s.port %d: must be 1-65535", c.name, c.cfg.Port)
		}
		if c.cfg.Image == "" {
			return fmt.Errorf("stack.%s.image cannot be empty", c.name)
		}
	}

	if r := cfg.Stack.Prometheus.Retention; !retentionPattern.MatchString(r) {
		return fmt.Errorf("invalid stack.prometheus.retention %q: expected a duration like 15d\n\nExample:\n  stack:\n    prometheus:\n      retention: 15d", r)
	}

	if cfg.Backup.Keep < 0 {
		return fmt.Errorf("invalid backup.keep %d: must be >= 0", cfg.Backup.Keep)
	}
	if cfg.Backup.MaxAgeDays < 0 {
		return fmt.Errorf("invalid backup.max_age_days %d: must be >= 0", cfg.Backup.MaxAgeDays)
	}

	if cfg.LoadTest.Requests < 1 {
		return fmt.Errorf("invalid loadtest.requests %d: must be >= 1", cfg.LoadTest.Requests)
	}
	if cfg.LoadTest.Concurrency < 1 {
		return fmt.Errorf("invalid loadtest.concurrency %d: must be >= 1", cfg.LoadTest.Concurrency)
	}

	return nil
}

// ConfigDirPath returns the absolute path of the stack config directory.
func (c *Config) ConfigDirPath() string {
	return c.resolve(c.Stack.ConfigDir)
}

// BackupDirPath returns the absolute path of the backup directory.
func (c *Config) BackupDirPath() string {
	return c.resolve(c.Backup.Dir)
}

// HistoryPath returns the path of the project-local history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Dir, ".warden", "history.db")
}

// AppURL joins the app base URL with the given path.
func (c *Config) AppURL(path string) string {
	return strings.TrimSuffix(c.App.BaseURL, "/") + path
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			BaseURL:       "http://localhost:3000",
			MetricsPath:   "/metrics",
			TopicsPath:    "/api/topics",
			TestAlertPath: "/test-alert",
			TestAlertName: "TestAlert",
		},
		Stack: StackConfig{
			Network:    "warden-net",
			ConfigDir:  "monitoring",
			ExtraHosts: []string{"host.docker.internal:host-gateway"},
			Prometheus: ComponentConfig{
				Image:     "prom/prometheus",
				Tag:       "v3.5.0",
				Port:      9090,
				Retention: "15d",
			},
			Alertmanager: ComponentConfig{
				Image: "prom/alertmanager",
				Tag:   "v0.28.1",
				Port:  9093,
			},
			Grafana: ComponentConfig{
				Image: "grafana/grafana",
				Tag:   "11.6.0",
				Port:  3001,
			},
			NodeExporter: ComponentConfig{
				Image: "prom/node-exporter",
				Tag:   "v1.9.1",
				Port:  9100,
			},
		},
		Backup: BackupConfig{
			Dir:  "backups",
			Keep: 10,
		},
		LoadTest: LoadTestConfig{
			Requests:       200,
			Concurrency:    10,
			TimeoutSeconds: 10,
		},
	}
}
