package cli

import (
	"fmt"
	"time"

	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/stack"
	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart [component]",
	Short: "Restart a stack component, or the whole stack",
	Long: `Restart one component and wait for it to become ready again.

With no argument every component is restarted in dependency order.

Examples:
  warden restart              # Restart the whole stack
  warden restart prometheus   # Restart just Prometheus`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: stack.Names(),
	RunE:      runRestart,
}

func init() {
	rootCmd.AddCommand(restartCmd)
}

func runRestart(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	target := "stack"
	name := ""
	if len(args) > 0 {
		name = args[0]
		target = name
	}

	if dryRun {
		fmt.Printf("Dry run - would restart %s\n", target)
		return nil
	}

	manager, engine, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	start := time.Now()
	restartErr := manager.Restart(cmd.Context(), name)

	recordEvent(cfg, history.Event{
		Kind:      history.KindRestart,
		Target:    target,
		OK:        restartErr == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Detail:    errDetail(restartErr),
	})
	if restartErr != nil {
		return restartErr
	}

	fmt.Printf("Restarted %s in %s.\n", target, time.Since(start).Round(time.Millisecond))
	return nil
}
