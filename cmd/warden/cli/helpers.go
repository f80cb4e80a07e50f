package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/config"
	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/log"
	"github.com/praxislabs/warden/internal/monitor"
	"github.com/praxislabs/warden/internal/secret"
	"github.com/praxislabs/warden/internal/secret/keyring"
	"github.com/praxislabs/warden/internal/stack"
)

// loadProject resolves --project and loads warden.yaml from it.
// Commands that manage the stack need the manifest to exist.
func loadProject() (*config.Config, error) {
	dir, err := intcli.ResolveProjectDir(projectDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("no warden.yaml in %s (run 'warden init' to scaffold one)", dir)
	}
	return cfg, nil
}

// loadProjectOrDefault is loadProject for commands that work against the
// application alone and can fall back to defaults without a manifest.
func loadProjectOrDefault() (*config.Config, error) {
	dir, err := intcli.ResolveProjectDir(projectDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Dir = dir
		if err := config.ApplyEnvOverrides(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// recordEvent appends an operation to the project history. History being
// unavailable never fails the command that performed the operation.
func recordEvent(cfg *config.Config, e history.Event) {
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		log.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()
	if _, err := store.Append(e); err != nil {
		log.Warn("recording history event", "kind", e.Kind, "error", err)
	}
}

// newManager opens a Docker engine client and wraps it in a stack manager.
// The caller closes the returned engine.
func newManager(cfg *config.Config) (*stack.Manager, *stack.Engine, error) {
	engine, err := stack.NewEngine()
	if err != nil {
		return nil, nil, err
	}
	return stack.NewManager(engine, cfg), engine, nil
}

// componentURL returns the host-side base URL for a stack component.
func componentURL(cfg *config.Config, name string) (string, error) {
	comp, ok := stack.Find(cfg, name)
	if !ok {
		return "", fmt.Errorf("unknown component %q: expected one of %s", name, stack.NamesString())
	}
	return fmt.Sprintf("http://localhost:%d", comp.HostPort), nil
}

// grafanaClient builds a Grafana client, attaching the stored admin
// credential when one exists. The store is not opened unless an encryption
// key is already provisioned, so read paths never create one.
func grafanaClient(cfg *config.Config) (*monitor.Grafana, bool, error) {
	url, err := componentURL(cfg, stack.Grafana)
	if err != nil {
		return nil, false, err
	}
	user, pass := "", ""
	if keyring.ActiveBackend() != "" {
		if store, err := secret.OpenDefault(); err == nil {
			if sec, err := store.Get(secret.ServiceGrafana); err == nil {
				user, pass = sec.User, sec.Token
			}
		}
	}
	return monitor.NewGrafana(url, user, pass), user != "", nil
}

// wrapConnRefused maps a connection-refused error from a stack component
// to a message that names the fix.
func wrapConnRefused(err error, component string) error {
	if err != nil && errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%s is not running (did you run 'warden up'?)", component)
	}
	return err
}

// confirm asks a y/N question on the terminal. force answers yes without
// prompting.
func confirm(prompt string, force bool) bool {
	if force {
		return true
	}
	return confirmFrom(os.Stdin, os.Stdout, prompt)
}

func confirmFrom(r io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
