package cli

import (
	"fmt"
	"time"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var (
	pruneKeep       int
	pruneMaxAgeDays int
	pruneForce      bool
)

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old backups",
	Long: `Remove backups beyond the keep count or older than the age limit.

Defaults come from warden.yaml. Use --dry-run to see what would go.`,
	Args: cobra.NoArgs,
	RunE: runBackupPrune,
}

func init() {
	backupCmd.AddCommand(backupPruneCmd)
	backupPruneCmd.Flags().IntVar(&pruneKeep, "keep", 0, "number of newest backups to keep (default from warden.yaml)")
	backupPruneCmd.Flags().IntVar(&pruneMaxAgeDays, "max-age-days", 0, "remove backups older than this many days (default from warden.yaml)")
	backupPruneCmd.Flags().BoolVar(&pruneForce, "force", false, "skip the confirmation prompt")
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	keep := pruneKeep
	if !cmd.Flags().Changed("keep") {
		keep = cfg.Backup.Keep
	}
	maxAgeDays := pruneMaxAgeDays
	if !cmd.Flags().Changed("max-age-days") {
		maxAgeDays = cfg.Backup.MaxAgeDays
	}
	maxAge := time.Duration(maxAgeDays) * 24 * time.Hour

	engine, err := openBackupEngine(cfg)
	if err != nil {
		return err
	}

	victims := engine.PruneCandidates(keep, maxAge)
	if len(victims) == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}

	for _, v := range victims {
		fmt.Printf("  %s  %s  %s\n", v.ID, intcli.FormatAge(v.CreatedAt), intcli.FormatBytes(v.SizeBytes))
	}
	if dryRun {
		fmt.Printf("Dry run - would remove %d backup(s)\n", len(victims))
		return nil
	}

	if !confirm(fmt.Sprintf("Remove %d backup(s)", len(victims)), pruneForce) {
		fmt.Println("Aborted.")
		return nil
	}

	start := time.Now()
	removed, pruneErr := engine.Prune(keep, maxAge)

	recordEvent(cfg, history.Event{
		Kind:      history.KindPrune,
		Target:    "backups",
		OK:        pruneErr == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Detail:    fmt.Sprintf("removed %d", len(removed)),
	})
	if pruneErr != nil {
		return pruneErr
	}

	fmt.Printf("%s removed %d backup(s)\n", ui.OKTag(), len(removed))
	return nil
}
