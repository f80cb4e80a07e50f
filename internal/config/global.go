package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// GlobalConfig holds global warden settings from ~/.warden/config.yaml.
type GlobalConfig struct {
	Logs LogsConfig `yaml:"logs"`
}

// LogsConfig holds debug log file settings.
type LogsConfig struct {
	// Dir is where log files are written. Empty means ~/.warden/logs.
	Dir string `yaml:"dir"`

	// RetentionDays is how many days of log files to keep.
	RetentionDays int `yaml:"retention_days"`
}

// DefaultGlobalConfig returns the default global configuration.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Logs: LogsConfig{
			RetentionDays: 14,
		},
	}
}

// LoadGlobal reads ~/.warden/config.yaml and applies environment overrides.
func LoadGlobal() (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".warden", "config.yaml")
		if data, err := os.ReadFile(configPath); err == nil {
			_ = yaml.Unmarshal(data, cfg) // Ignore unmarshal errors, use defaults
		}
	}

	if dir := os.Getenv("WARDEN_LOG_DIR"); dir != "" {
		cfg.Logs.Dir = dir
	}
	if days := os.Getenv("WARDEN_LOG_RETENTION_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil {
			cfg.Logs.RetentionDays = n
		}
	}

	return cfg, nil
}

// LogDir returns the effective log directory.
func (g *GlobalConfig) LogDir() string {
	if g.Logs.Dir != "" {
		return g.Logs.Dir
	}
	return filepath.Join(GlobalConfigDir(), "logs")
}

// GlobalConfigDir returns the path to ~/.warden.
func GlobalConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".warden")
	}
	return filepath.Join(homeDir, ".warden")
}
