package cli

import (
	"fmt"
	"time"

	"github.com/praxislabs/warden/internal/backup"
	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/config"
	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var (
	backupLabel  string
	backupUpload bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up and restore the monitoring configuration",
	Long: `Archive the monitoring configuration tree so rule and dashboard changes
can be rolled back.

Subcommands:
  create    Create a new backup archive
  list      List existing backups
  restore   Restore a backup over the current configuration
  prune     Remove old backups by count or age`,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup of the monitoring configuration",
	Long: `Archive the monitoring configuration tree into a timestamped tar.gz.

Paths matched by the exclude patterns in warden.yaml are skipped. With
--upload the archive is also copied to the configured S3 bucket.`,
	Args: cobra.NoArgs,
	RunE: runBackupCreate,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCreateCmd.Flags().StringVar(&backupLabel, "label", "", "label to identify this backup in listings")
	backupCreateCmd.Flags().BoolVar(&backupUpload, "upload", false, "also copy the archive to the configured S3 bucket")
}

// openBackupEngine builds the backup engine from project config.
func openBackupEngine(cfg *config.Config) (*backup.Engine, error) {
	return backup.NewEngine(cfg.ConfigDirPath(), cfg.BackupDirPath(), cfg.Backup.Exclude)
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Printf("Dry run - would archive %s into %s\n",
			intcli.ShortenPath(cfg.ConfigDirPath()), intcli.ShortenPath(cfg.BackupDirPath()))
		return nil
	}

	engine, err := openBackupEngine(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	meta, err := engine.Create(backup.KindManual, backupLabel)

	recordEvent(cfg, history.Event{
		Kind:      history.KindBackup,
		Target:    meta.ID,
		OK:        err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Detail:    backupDetail(meta, err),
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s created %s (%s)\n", ui.OKTag(), meta.ID, intcli.FormatBytes(meta.SizeBytes))

	if backupUpload {
		if !cfg.Backup.S3.Configured() {
			ui.Warn("no S3 bucket configured in warden.yaml; skipping upload")
			return nil
		}
		ctx := cmd.Context()
		uploader, err := backup.NewUploader(ctx, cfg.Backup.S3.Bucket, cfg.Backup.S3.Prefix, cfg.Backup.S3.Region)
		if err != nil {
			return err
		}
		key, err := uploader.Upload(ctx, meta)
		if err != nil {
			return err
		}
		if err := engine.RecordUpload(meta.ID, key); err != nil {
			return err
		}
		fmt.Printf("%s uploaded to s3://%s/%s\n", ui.OKTag(), cfg.Backup.S3.Bucket, key)
	}
	return nil
}

func backupDetail(meta backup.Metadata, err error) string {
	if err != nil {
		return errDetail(err)
	}
	if meta.Label == "" {
		return intcli.FormatBytes(meta.SizeBytes)
	}
	return fmt.Sprintf("%s, %s", meta.Label, intcli.FormatBytes(meta.SizeBytes))
}
