package cli

import (
	"fmt"
	"time"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var restoreForce bool

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Restore a backup over the current configuration",
	Long: `Replace the monitoring configuration tree with the contents of a backup.

A safety backup of the current tree is taken first, so a restore can
itself be rolled back. Run 'warden reload' afterwards so the running
stack picks up the restored files.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupRestore,
}

func init() {
	backupCmd.AddCommand(backupRestoreCmd)
	backupRestoreCmd.Flags().BoolVar(&restoreForce, "force", false, "skip the confirmation prompt")
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	backupID := args[0]

	engine, err := openBackupEngine(cfg)
	if err != nil {
		return err
	}
	meta, ok := engine.Get(backupID)
	if !ok {
		return fmt.Errorf("backup not found: %s (see 'warden backup list')", backupID)
	}

	if dryRun {
		fmt.Printf("Dry run - would restore %s (%s, %s) over %s\n",
			meta.ID, intcli.FormatAge(meta.CreatedAt), intcli.FormatBytes(meta.SizeBytes),
			intcli.ShortenPath(cfg.ConfigDirPath()))
		return nil
	}

	prompt := fmt.Sprintf("Replace %s with backup %s from %s",
		intcli.ShortenPath(cfg.ConfigDirPath()), meta.ID, intcli.FormatTimeAgo(meta.CreatedAt))
	if !confirm(prompt, restoreForce) {
		fmt.Println("Aborted.")
		return nil
	}

	start := time.Now()
	safety, restoreErr := engine.Restore(backupID)

	recordEvent(cfg, history.Event{
		Kind:      history.KindRestore,
		Target:    backupID,
		OK:        restoreErr == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Detail:    errDetail(restoreErr),
	})
	if restoreErr != nil {
		return restoreErr
	}

	fmt.Printf("%s restored %s\n", ui.OKTag(), backupID)
	fmt.Printf("Safety backup of the previous configuration: %s\n", safety.ID)
	ui.Hint("run 'warden reload' so the running stack picks up the restored files")
	return nil
}
