package cli

import (
	"fmt"
	"os"
	"path/filepath"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/config"
	"github.com/praxislabs/warden/internal/stack"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold warden.yaml and the monitoring configuration",
	Long: `Create warden.yaml and the monitoring configuration tree in the project
directory: Prometheus scrape and alerting rules, the Alertmanager route,
and Grafana provisioning.

Existing files are left untouched; init only fills in what is missing.
Edit warden.yaml afterwards to point warden at your application.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := intcli.ResolveProjectDir(projectDir)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Printf("Dry run - would scaffold warden.yaml and %s/ in %s\n",
			config.DefaultConfig().Stack.ConfigDir, intcli.ShortenPath(dir))
		return nil
	}

	manifestExisted := false
	if _, err := os.Stat(filepath.Join(dir, "warden.yaml")); err == nil {
		manifestExisted = true
		ui.Warn("warden.yaml already exists, leaving it unchanged")
	} else {
		if _, err := stack.WriteManifest(dir); err != nil {
			return err
		}
		fmt.Printf("%s created warden.yaml\n", ui.OKTag())
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	written, err := stack.WriteConfigs(cfg)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Printf("%s created %s\n", ui.OKTag(), filepath.Join(cfg.Stack.ConfigDir, path))
	}
	if manifestExisted && len(written) == 0 {
		fmt.Println("Nothing to do; everything is already in place.")
		return nil
	}

	fmt.Println()
	ui.Hint("review warden.yaml, then run 'warden up' to start the stack")
	return nil
}
