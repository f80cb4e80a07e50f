package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/spf13/cobra"
)

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

func init() {
	backupCmd.AddCommand(backupListCmd)
}

func runBackupList(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	engine, err := openBackupEngine(cfg)
	if err != nil {
		return err
	}
	backups := engine.List()

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(backups)
	}

	if len(backups) == 0 {
		fmt.Println("No backups yet. Run 'warden backup create' to make one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tAGE\tSIZE\tKIND\tLABEL\tOFFSITE")
	for _, b := range backups {
		offsite := "-"
		if b.S3Key != "" {
			offsite = "s3"
		}
		label := b.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, intcli.FormatAge(b.CreatedAt), intcli.FormatBytes(b.SizeBytes), b.Kind, label, offsite)
	}
	return w.Flush()
}
