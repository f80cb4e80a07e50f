package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/praxislabs/warden/internal/config"
	"github.com/praxislabs/warden/internal/monitor"
	"github.com/praxislabs/warden/internal/probe"
	"github.com/praxislabs/warden/internal/secret/keyring"
	"github.com/praxislabs/warden/internal/stack"
)

const sectionTimeout = 15 * time.Second

// VersionSection reports the warden build.
type VersionSection struct {
	Version string
}

func (s *VersionSection) Name() string { return "Warden" }

func (s *VersionSection) Print(w io.Writer) error {
	fmt.Fprintf(w, "  version: %s (%s/%s)\n", s.Version, runtime.GOOS, runtime.GOARCH)
	return nil
}

// DockerSection reports daemon reachability and server version.
type DockerSection struct {
	Engine *stack.Engine

	// Err carries the client creation failure when Engine is nil.
	Err error
}

func (s *DockerSection) Name() string { return "Docker" }

func (s *DockerSection) Print(w io.Writer) error {
	if s.Engine == nil {
		return s.Err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Engine.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "  daemon: reachable")

	version, err := s.Engine.ServerVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  version: %s\n", version)
	return nil
}

// ConfigSection reports whether the project manifest loads cleanly.
type ConfigSection struct {
	Dir string
}

func (s *ConfigSection) Name() string { return "Project config" }

func (s *ConfigSection) Print(w io.Writer) error {
	cfg, err := config.Load(s.Dir)
	if err != nil {
		return err
	}
	if cfg == nil {
		fmt.Fprintln(w, "  warden.yaml: not found, defaults in effect (run 'warden init' to scaffold)")
		return nil
	}
	fmt.Fprintln(w, "  warden.yaml: ok")
	fmt.Fprintf(w, "  app: %s\n", cfg.App.BaseURL)
	fmt.Fprintf(w, "  network: %s\n", cfg.Stack.Network)
	return nil
}

// StackSection reports container state and readiness per component.
type StackSection struct {
	Manager *stack.Manager
}

func (s *StackSection) Name() string { return "Monitoring stack" }

func (s *StackSection) Print(w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), sectionTimeout)
	defer cancel()

	statuses, err := s.Manager.Status(ctx)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		switch {
		case st.Ready:
			fmt.Fprintf(w, "  %s: %s (ready)\n", st.Name, st.State)
		case st.ReadyErr != "":
			fmt.Fprintf(w, "  %s: %s (%s)\n", st.Name, st.State, st.ReadyErr)
		default:
			fmt.Fprintf(w, "  %s: %s\n", st.Name, st.State)
		}
	}
	if !stack.Healthy(statuses) {
		return errors.New("stack is not healthy; run 'warden up'")
	}
	return nil
}

// ScrapeSection checks that Prometheus sees its scrape targets.
type ScrapeSection struct {
	Prometheus *monitor.Prometheus
}

func (s *ScrapeSection) Name() string { return "Scrape targets" }

func (s *ScrapeSection) Print(w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), sectionTimeout)
	defer cancel()

	report, err := s.Prometheus.Targets(ctx)
	if err != nil {
		return err
	}
	down := 0
	for _, t := range report.Active {
		if t.Health == "up" {
			fmt.Fprintf(w, "  %s (%s): up\n", t.Job, t.Instance)
			continue
		}
		down++
		fmt.Fprintf(w, "  %s (%s): %s: %s\n", t.Job, t.Instance, t.Health, t.LastError)
	}

	samples, err := s.Prometheus.Query(ctx, "up")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  'up' series: %d\n", len(samples))

	if down > 0 {
		return fmt.Errorf("%d scrape target(s) down", down)
	}
	return nil
}

// AlertmanagerSection reports AlertManager's build and cluster state, and
// flags active silences since a forgotten silence suppresses paging.
type AlertmanagerSection struct {
	Client *monitor.AlertManager
}

func (s *AlertmanagerSection) Name() string { return "Alertmanager" }

func (s *AlertmanagerSection) Print(w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), sectionTimeout)
	defer cancel()

	status, err := s.Client.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  version: %s (cluster %s)\n", status.VersionInfo.Version, status.Cluster.Status)

	silences, err := s.Client.Silences(ctx, true)
	if err != nil {
		return err
	}
	if len(silences) > 0 {
		fmt.Fprintf(w, "  active silences: %d (alerts may be suppressed)\n", len(silences))
	}
	return nil
}

// GrafanaSection checks Grafana's health and, when an admin credential is
// stored, what it has provisioned.
type GrafanaSection struct {
	Client *monitor.Grafana
	// HasCreds gates the authenticated endpoints.
	HasCreds bool
}

func (s *GrafanaSection) Name() string { return "Grafana" }

func (s *GrafanaSection) Print(w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), sectionTimeout)
	defer cancel()

	health, err := s.Client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  version: %s (database %s)\n", health.Version, health.Database)

	if !s.HasCreds {
		fmt.Fprintln(w, "  datasources: skipped (no grafana credential stored; run 'warden grant grafana')")
		return nil
	}
	datasources, err := s.Client.Datasources(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(datasources))
	for _, ds := range datasources {
		names = append(names, ds.Name)
	}
	fmt.Fprintf(w, "  datasources: %d (%s)\n", len(datasources), strings.Join(names, ", "))

	dashboards, err := s.Client.Dashboards(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  dashboards: %d\n", len(dashboards))
	return nil
}

// AppSection probes the application health endpoints.
type AppSection struct {
	Prober *probe.Prober
}

func (s *AppSection) Name() string { return "Application" }

func (s *AppSection) Print(w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), sectionTimeout)
	defer cancel()

	results := s.Prober.CheckAll(ctx, probe.HealthEndpoints)
	for _, res := range results {
		if res.Status != 0 {
			fmt.Fprintf(w, "  %s: %d in %s\n", res.Name, res.Status, res.Latency.Round(time.Millisecond))
		} else {
			fmt.Fprintf(w, "  %s: %v\n", res.Name, res.Err)
		}
	}
	if !probe.Healthy(results) {
		return errors.New("application endpoints are failing")
	}
	return nil
}

// BackupSection verifies backups have somewhere to go.
type BackupSection struct {
	Dir string
}

func (s *BackupSection) Name() string { return "Backups" }

func (s *BackupSection) Print(w io.Writer) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating backup dir: %w", err)
	}
	f, err := os.CreateTemp(s.Dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("backup dir %s is not writable: %w", s.Dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	fmt.Fprintf(w, "  dir: %s (writable)\n", s.Dir)
	return nil
}

// CredentialSection reports where the secret-store encryption key lives.
type CredentialSection struct{}

func (s *CredentialSection) Name() string { return "Credentials" }

func (s *CredentialSection) Print(w io.Writer) error {
	backend := keyring.ActiveBackend()
	if backend == "" {
		fmt.Fprintln(w, "  encryption key: not provisioned (created on first 'warden grant')")
		return nil
	}
	fmt.Fprintf(w, "  encryption key: %s\n", backend)
	return nil
}
