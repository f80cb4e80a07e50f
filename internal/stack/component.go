// Package stack manages the monitoring containers (prometheus, alertmanager,
// grafana, node-exporter) over the Docker Engine API.
package stack

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/praxislabs/warden/internal/config"
)

// Component names as used in warden.yaml, on the command line, and in
// container labels.
const (
	Prometheus   = "prometheus"
	Alertmanager = "alertmanager"
	Grafana      = "grafana"
	NodeExporter = "node-exporter"
)

// Labels applied to every stack container so warden can find its own
// containers regardless of how they were named.
const (
	LabelComponent = "warden.component"
	LabelProject   = "warden.project"
)

// containerPrefix is prepended to the component name to form the container
// name, e.g. warden-prometheus.
const containerPrefix = "warden-"

// Bind mounts a host config directory read-only into the container.
type Bind struct {
	Source string
	Target string
}

// VolumeMount attaches a named volume for data that survives recreation.
type VolumeMount struct {
	Name   string
	Target string
}

// Component describes one stack container: what image to run, how to wire
// its ports and mounts, and how to tell it is ready.
type Component struct {
	Name          string
	ContainerName string
	Image         string
	HostPort      int
	ContainerPort int

	// ReadyPath is probed on the host port until it returns 200.
	ReadyPath string

	Cmd      []string
	Env      []string
	Binds    []Bind
	Volumes  []VolumeMount
	Disabled bool
}

// ReadyURL is the readiness endpoint as reachable from the host.
func (c Component) ReadyURL() string {
	return fmt.Sprintf("http://localhost:%d%s", c.HostPort, c.ReadyPath)
}

// Components returns the stack catalog in start order: exporters and the
// alert router first, then prometheus (which scrapes them), then grafana
// (which queries prometheus). Down processes the same list in reverse.
func Components(cfg *config.Config) []Component {
	configDir := cfg.ConfigDirPath()

	return []Component{
		{
			Name:          NodeExporter,
			ContainerName: containerPrefix + NodeExporter,
			Image:         imageRef(cfg.Stack.NodeExporter),
			HostPort:      cfg.Stack.NodeExporter.Port,
			ContainerPort: 9100,
			ReadyPath:     "/metrics",
			Disabled:      cfg.Stack.NodeExporter.Disabled,
		},
		{
			Name:          Alertmanager,
			ContainerName: containerPrefix + Alertmanager,
			Image:         imageRef(cfg.Stack.Alertmanager),
			HostPort:      cfg.Stack.Alertmanager.Port,
			ContainerPort: 9093,
			ReadyPath:     "/-/ready",
			Cmd: []string{
				"--config.file=/etc/alertmanager/alertmanager.yml",
				"--storage.path=/alertmanager",
			},
			Binds: []Bind{
				{Source: filepath.Join(configDir, "alertmanager"), Target: "/etc/alertmanager"},
			},
			Volumes: []VolumeMount{
				{Name: containerPrefix + Alertmanager + "-data", Target: "/alertmanager"},
			},
		},
		{
			Name:          Prometheus,
			ContainerName: containerPrefix + Prometheus,
			Image:         imageRef(cfg.Stack.Prometheus),
			HostPort:      cfg.Stack.Prometheus.Port,
			ContainerPort: 9090,
			ReadyPath:     "/-/ready",
			Cmd: []string{
				"--config.file=/etc/prometheus/prometheus.yml",
				"--storage.tsdb.path=/prometheus",
				"--storage.tsdb.retention.time=" + cfg.Stack.Prometheus.Retention,
				"--web.enable-lifecycle",
			},
			Binds: []Bind{
				{Source: filepath.Join(configDir, "prometheus"), Target: "/etc/prometheus"},
			},
			Volumes: []VolumeMount{
				{Name: containerPrefix + Prometheus + "-data", Target: "/prometheus"},
			},
		},
		{
			Name:          Grafana,
			ContainerName: containerPrefix + Grafana,
			Image:         imageRef(cfg.Stack.Grafana),
			HostPort:      cfg.Stack.Grafana.Port,
			ContainerPort: 3000,
			ReadyPath:     "/api/health",
			Env: []string{
				"GF_USERS_ALLOW_SIGN_UP=false",
				"GF_ANALYTICS_REPORTING_ENABLED=false",
			},
			Binds: []Bind{
				{Source: filepath.Join(configDir, "grafana", "provisioning"), Target: "/etc/grafana/provisioning"},
			},
			Volumes: []VolumeMount{
				{Name: containerPrefix + Grafana + "-data", Target: "/var/lib/grafana"},
			},
		},
	}
}

// Find looks up a component by name.
func Find(cfg *config.Config, name string) (Component, bool) {
	for _, c := range Components(cfg) {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

// Names lists the component names in start order.
func Names() []string {
	return []string{NodeExporter, Alertmanager, Prometheus, Grafana}
}

// NamesString renders the component names for error messages and flag help.
func NamesString() string {
	return strings.Join(Names(), ", ")
}

func imageRef(c config.ComponentConfig) string {
	if c.Tag == "" {
		return c.Image
	}
	return c.Image + ":" + c.Tag
}
