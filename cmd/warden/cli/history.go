package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var (
	historyKind  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded operations for this project",
	Long: `Show what warden has done to this project: probes, load tests, stack
lifecycle changes, reloads, backups.

Examples:
  warden history                  # Recent operations
  warden history --kind probe     # Only probe runs
  warden history --limit 50`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "only show operations of this kind (probe, up, loadtest, ...)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of operations to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadProjectOrDefault()
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.Recent(history.Kind(historyKind), historyLimit)
	if err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(events)
	}

	if len(events) == 0 {
		fmt.Println("No recorded operations yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  WHEN\tKIND\tTARGET\tOK\tTOOK\tDETAIL")
	for _, e := range events {
		took := "-"
		if e.LatencyMS > 0 {
			took = intcli.FormatLatency(time.Duration(e.LatencyMS) * time.Millisecond)
		}
		target := e.Target
		if target == "" {
			target = "-"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			intcli.FormatAge(e.CreatedAt), e.Kind, target, ui.StatusTag(e.OK), took, e.Detail)
	}
	return w.Flush()
}
