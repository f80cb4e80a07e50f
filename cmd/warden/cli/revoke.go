package cli

import (
	"fmt"

	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/secret"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var revokeForce bool

var revokeCmd = &cobra.Command{
	Use:   "revoke <service>",
	Short: "Remove a stored credential",
	Long: `Remove a credential from warden's encrypted store.

Examples:
  warden revoke grafana`,
	Args: cobra.ExactArgs(1),
	RunE: runRevoke,
}

func init() {
	rootCmd.AddCommand(revokeCmd)
	revokeCmd.Flags().BoolVar(&revokeForce, "force", false, "skip the confirmation prompt")
}

func runRevoke(cmd *cobra.Command, args []string) error {
	service, err := secret.ParseService(args[0])
	if err != nil {
		return err
	}

	store, err := secret.OpenDefault()
	if err != nil {
		return err
	}
	if _, err := store.Get(service); err != nil {
		return fmt.Errorf("no credential stored for %s", service)
	}

	if dryRun {
		fmt.Printf("Dry run - would remove the %s credential\n", service)
		return nil
	}
	if !confirm(fmt.Sprintf("Remove the %s credential", service), revokeForce) {
		fmt.Println("Aborted.")
		return nil
	}

	if err := store.Delete(service); err != nil {
		return err
	}
	fmt.Printf("%s removed credential for %s\n", ui.OKTag(), service)

	if cfg, err := loadProjectOrDefault(); err == nil {
		recordEvent(cfg, history.Event{
			Kind:   history.KindRevoke,
			Target: string(service),
			OK:     true,
		})
	}
	return nil
}
