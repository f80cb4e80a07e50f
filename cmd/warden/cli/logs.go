package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/praxislabs/warden/internal/stack"
	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsTail   string
)

var logsCmd = &cobra.Command{
	Use:   "logs <component>",
	Short: "View logs from a stack component",
	Long: `Print container logs for one stack component.

Examples:
  warden logs prometheus           # Recent Prometheus logs
  warden logs grafana -f           # Follow Grafana logs (Ctrl+C stops)
  warden logs alertmanager -n 50   # Last 50 lines`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: stack.Names(),
	RunE:      runStackLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	logsCmd.Flags().StringVarP(&logsTail, "tail", "n", "100", "number of lines to show from the end, or \"all\"")
}

func runStackLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	manager, engine, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()
	if logsFollow {
		// Ctrl+C ends the stream, not the command with an error.
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	opts := stack.LogsOptions{Follow: logsFollow, Tail: logsTail}
	return manager.Logs(ctx, args[0], opts, os.Stdout)
}
