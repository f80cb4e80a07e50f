// Package cli implements the warden command-line interface using Cobra.
// It provides commands for managing the monitoring stack, probing the
// forum application, exercising the alerting pipeline, and protecting
// the stack's configuration and data.
package cli

import (
	"github.com/praxislabs/warden/internal/config"
	"github.com/praxislabs/warden/internal/log"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	jsonOut    bool
	dryRun     bool
	projectDir string
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - operations tooling for the forum monitoring stack",
	Long: `Warden manages the Prometheus, Alertmanager, Grafana, and node-exporter
containers deployed alongside the forum application, and exercises the
application's health, metrics, and topic-creation endpoints.

Run 'warden init' in a project directory to scaffold warden.yaml and the
monitoring configuration, then 'warden up' to start the stack.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		globalCfg, _ := config.LoadGlobal()

		if err := log.Init(log.Options{
			Verbose:       verbose,
			JSONFormat:    jsonOut,
			FileDir:       globalCfg.LogDir(),
			RetentionDays: globalCfg.Logs.RetentionDays,
		}); err != nil {
			// Log init failure is non-fatal - fall back to the default logger.
			cmd.PrintErrf("Warning: failed to initialize debug logging: %v\n", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	log.Close()
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show what would happen without executing")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", ".", "project directory containing warden.yaml")
}
