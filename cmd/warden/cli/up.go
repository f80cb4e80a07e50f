package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/stack"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the monitoring stack",
	Long: `Start the Prometheus, Alertmanager, Grafana, and node-exporter containers
and wait for each to answer its readiness endpoint.

Missing configuration files are rendered first; existing ones are never
touched. Containers that are already running and healthy are left alone,
so 'warden up' is safe to re-run.`,
	Args: cobra.NoArgs,
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Printf("Dry run - would start %s on network %s\n", stack.NamesString(), cfg.Stack.Network)
		return nil
	}

	manager, engine, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()
	start := time.Now()
	upErr := manager.Up(ctx)

	recordEvent(cfg, history.Event{
		Kind:      history.KindUp,
		Target:    "stack",
		OK:        upErr == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Detail:    errDetail(upErr),
	})
	if upErr != nil {
		return upErr
	}

	statuses, err := manager.Status(ctx)
	if err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(statuses)
	}

	fmt.Println()
	for _, s := range statuses {
		if s.State == "disabled" {
			continue
		}
		fmt.Printf("%s %s ready at http://localhost:%d\n", ui.OKTag(), s.Name, s.HostPort)
	}
	fmt.Println()
	ui.Hint(fmt.Sprintf("grafana login is admin/admin on first start; open http://localhost:%d", cfg.Stack.Grafana.Port))
	return nil
}

// errDetail renders an error for a history record, empty when nil.
func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}
