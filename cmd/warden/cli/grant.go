package cli

import (
	"fmt"
	"time"

	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/secret"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var (
	grantUser      string
	grantBasicAuth bool
)

var grantCmd = &cobra.Command{
	Use:   "grant <service>",
	Short: "Store a credential for a stack service",
	Long: `Store a credential in warden's encrypted store. The encryption key lives
in the system keychain when one is available.

Stored credentials let warden authenticate against the Grafana admin API
and any other protected service without secrets in warden.yaml.

Subcommands:
  list   List stored credentials

Examples:
  warden grant grafana                      # Grafana admin login
  warden grant prometheus --basic-auth      # Also prints the web-config hash
  warden grant app                          # Application API token`,
	Args: cobra.ExactArgs(1),
	RunE: runGrant,
}

func init() {
	rootCmd.AddCommand(grantCmd)
	grantCmd.Flags().StringVar(&grantUser, "user", "admin", "username the credential belongs to")
	grantCmd.Flags().BoolVar(&grantBasicAuth, "basic-auth", false, "for prometheus: also print the bcrypt hash for a web-config basic_auth_users entry")
}

func runGrant(cmd *cobra.Command, args []string) error {
	service, err := secret.ParseService(args[0])
	if err != nil {
		return err
	}
	if grantBasicAuth && service != secret.ServicePrometheus {
		return fmt.Errorf("--basic-auth only applies to the prometheus service")
	}

	token, err := secret.Prompt(fmt.Sprintf("Secret for %s (user %s)", service, grantUser))
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("secret cannot be empty")
	}

	store, err := secret.OpenDefault()
	if err != nil {
		return err
	}
	if err := store.Save(secret.Secret{
		Service:   service,
		User:      grantUser,
		Token:     token,
		CreatedAt: time.Now(),
	}); err != nil {
		return err
	}
	fmt.Printf("%s stored credential for %s\n", ui.OKTag(), service)

	if cfg, err := loadProjectOrDefault(); err == nil {
		recordEvent(cfg, history.Event{
			Kind:   history.KindGrant,
			Target: string(service),
			OK:     true,
		})
	}

	if grantBasicAuth {
		hash, err := secret.BasicAuthHash(token)
		if err != nil {
			return err
		}
		fmt.Println("\nAdd this to Prometheus's web config to require basic auth:")
		fmt.Print(secret.BasicAuthSnippet(grantUser, hash))
	}
	return nil
}
