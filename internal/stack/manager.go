package stack

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/praxislabs/warden/internal/config"
	"github.com/praxislabs/warden/internal/log"
)

const (
	readinessTimeout  = 30 * time.Second
	readinessInterval = 1 * time.Second
	stopTimeout       = 10 * time.Second
)

// Manager orchestrates the monitoring containers as one unit.
type Manager struct {
	engine *Engine
	cfg    *config.Config
	client *http.Client
}

// NewManager creates a stack manager for the given project.
func NewManager(engine *Engine, cfg *config.Config) *Manager {
	return &Manager{
		engine: engine,
		cfg:    cfg,
		client: &http.Client{Timeout: 3 * time.Second},
	}
}

// Up brings the whole stack to a running, ready state: render any missing
// config files, ensure the network, then start each component in order and
// wait for its readiness endpoint. Components that are already running and
// ready are left alone; exited containers are recreated so image and config
// changes take effect.
func (m *Manager) Up(ctx context.Context) error {
	if err := m.engine.Ping(ctx); err != nil {
		return err
	}

	written, err := WriteConfigs(m.cfg)
	if err != nil {
		return err
	}
	for _, path := range written {
		log.Info("rendered config", "path", path)
	}

	if _, err := m.engine.EnsureNetwork(ctx, m.cfg.Stack.Network); err != nil {
		return err
	}

	for _, comp := range Components(m.cfg) {
		if comp.Disabled {
			log.Debug("component disabled, skipping", "component", comp.Name)
			continue
		}
		if err := m.upComponent(ctx, comp); err != nil {
			return fmt.Errorf("bringing up %s: %w", comp.Name, err)
		}
	}
	return nil
}

func (m *Manager) upComponent(ctx context.Context, comp Component) error {
	state, exists, err := m.engine.ContainerState(ctx, comp.ContainerName)
	if err != nil {
		return err
	}

	switch {
	case exists && state == "running":
		if err := m.probeReady(ctx, comp); err == nil {
			log.Info("component already running", "component", comp.Name)
			return nil
		}
		// Running but not answering yet; fall through to the wait below.
	default:
		if exists {
			log.Debug("removing stale container", "container", comp.ContainerName, "state", state)
			if err := m.engine.RemoveContainer(ctx, comp.ContainerName); err != nil {
				return err
			}
		}
		for _, v := range comp.Volumes {
			if err := m.engine.EnsureVolume(ctx, v.Name); err != nil {
				return err
			}
		}
		id, err := m.engine.CreateContainer(ctx, m.createSpec(comp))
		if err != nil {
			return err
		}
		if err := m.engine.StartContainer(ctx, id); err != nil {
			return err
		}
		log.Info("started component", "component", comp.Name, "container", comp.ContainerName, "port", comp.HostPort)
	}

	if err := awaitHTTPReady(ctx, m.client, comp.ReadyURL(), readinessTimeout, readinessInterval); err != nil {
		return err
	}
	return nil
}

func (m *Manager) createSpec(comp Component) CreateSpec {
	return CreateSpec{
		Name:       comp.ContainerName,
		Image:      comp.Image,
		Cmd:        comp.Cmd,
		Env:        comp.Env,
		Binds:      comp.Binds,
		Volumes:    comp.Volumes,
		HostPort:   comp.HostPort,
		Port:       comp.ContainerPort,
		Network:    m.cfg.Stack.Network,
		Alias:      comp.Name,
		ExtraHosts: m.cfg.Stack.ExtraHosts,
		Labels: map[string]string{
			LabelComponent: comp.Name,
			LabelProject:   filepath.Base(m.cfg.Dir),
		},
	}
}

// Down stops and removes every stack container, then the network.
// removeVolumes also deletes the named data volumes, losing all metric and
// dashboard data.
func (m *Manager) Down(ctx context.Context, removeVolumes bool) error {
	if err := m.engine.Ping(ctx); err != nil {
		return err
	}

	comps := Components(m.cfg)

	// Stack containers don't depend on each other for shutdown; stop them
	// in parallel.
	g, gctx := errgroup.WithContext(ctx)
	for i := len(comps) - 1; i >= 0; i-- {
		comp := comps[i]
		g.Go(func() error {
			if err := m.engine.StopContainer(gctx, comp.ContainerName); err != nil {
				return err
			}
			if err := m.engine.RemoveContainer(gctx, comp.ContainerName); err != nil {
				return err
			}
			log.Info("removed component", "component", comp.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := m.engine.RemoveNetwork(ctx, m.cfg.Stack.Network); err != nil {
		return err
	}

	if removeVolumes {
		for _, comp := range comps {
			for _, v := range comp.Volumes {
				if err := m.engine.RemoveVolume(ctx, v.Name); err != nil {
					return err
				}
				log.Info("removed volume", "volume", v.Name)
			}
		}
	}
	return nil
}

// Restart restarts one component, or the whole stack when name is empty,
// waiting for readiness after each restart.
func (m *Manager) Restart(ctx context.Context, name string) error {
	if err := m.engine.Ping(ctx); err != nil {
		return err
	}

	comps := Components(m.cfg)
	if name != "" {
		comp, ok := Find(m.cfg, name)
		if !ok {
			return fmt.Errorf("unknown component %q: expected one of %s", name, NamesString())
		}
		comps = []Component{comp}
	}

	for _, comp := range comps {
		if comp.Disabled {
			continue
		}
		_, exists, err := m.engine.ContainerState(ctx, comp.ContainerName)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%s has no container; run 'warden up' first", comp.Name)
		}
		if err := m.engine.RestartContainer(ctx, comp.ContainerName); err != nil {
			return err
		}
		if err := awaitHTTPReady(ctx, m.client, comp.ReadyURL(), readinessTimeout, readinessInterval); err != nil {
			return err
		}
		log.Info("restarted component", "component", comp.Name)
	}
	return nil
}

// ComponentStatus is one row of Status output.
type ComponentStatus struct {
	Name      string `json:"name"`
	Container string `json:"container"`
	State     string `json:"state"`
	Ready     bool   `json:"ready"`
	ReadyErr  string `json:"ready_error,omitempty"`
	HostPort  int    `json:"port"`
}

// Status reports container state and readiness for every component.
// State is the Docker status for existing containers, "missing" when no
// container exists, or "disabled" for components switched off in config.
func (m *Manager) Status(ctx context.Context) ([]ComponentStatus, error) {
	if err := m.engine.Ping(ctx); err != nil {
		return nil, err
	}

	statuses := make([]ComponentStatus, 0, 4)
	for _, comp := range Components(m.cfg) {
		st := ComponentStatus{
			Name:      comp.Name,
			Container: comp.ContainerName,
			HostPort:  comp.HostPort,
		}

		state, exists, err := m.engine.ContainerState(ctx, comp.ContainerName)
		if err != nil {
			return nil, err
		}
		switch {
		case exists:
			st.State = state
		case comp.Disabled:
			st.State = "disabled"
		default:
			st.State = "missing"
		}

		if st.State == "running" {
			if err := m.probeReady(ctx, comp); err != nil {
				st.ReadyErr = err.Error()
			} else {
				st.Ready = true
			}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// Healthy reports whether every component that should be running is running
// and ready.
func Healthy(statuses []ComponentStatus) bool {
	for _, st := range statuses {
		if st.State == "disabled" {
			continue
		}
		if !st.Ready {
			return false
		}
	}
	return true
}

// Logs streams logs for one component to w.
func (m *Manager) Logs(ctx context.Context, name string, opts LogsOptions, w io.Writer) error {
	comp, ok := Find(m.cfg, name)
	if !ok {
		return fmt.Errorf("unknown component %q: expected one of %s", name, NamesString())
	}

	_, exists, err := m.engine.ContainerState(ctx, comp.ContainerName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s has no container; run 'warden up' first", comp.Name)
	}
	return m.engine.Logs(ctx, comp.ContainerName, opts, w)
}

// List returns every container this project's stack has created, including
// ones for components since disabled in config.
func (m *Manager) List(ctx context.Context) ([]ContainerInfo, error) {
	return m.engine.ListByLabel(ctx, LabelProject, filepath.Base(m.cfg.Dir))
}

func (m *Manager) probeReady(ctx context.Context, comp Component) error {
	return checkHTTPReady(ctx, m.client, comp.ReadyURL())
}

// awaitHTTPReady polls url until it answers 200 or the deadline passes.
// The returned error wraps the last probe failure so timeouts explain what
// kept going wrong.
func awaitHTTPReady(ctx context.Context, client *http.Client, url string, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := checkHTTPReady(ctx, client, url); err != nil {
			lastErr = err
			time.Sleep(interval)
			continue
		}
		return nil
	}

	return fmt.Errorf("not ready after %s: %w", timeout, lastErr)
}

func checkHTTPReady(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("readiness endpoint returned %d", resp.StatusCode)
	}
	return nil
}
