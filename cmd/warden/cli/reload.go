package cli

import (
	"fmt"
	"time"

	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/monitor"
	"github.com/praxislabs/warden/internal/stack"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload Prometheus and Alertmanager configuration",
	Long: `Validate every stack configuration file, then tell Prometheus and
Alertmanager to re-read theirs without a restart.

Nothing is signalled if any file fails validation, so a half-edited
alerts.yml can't take the alerting pipeline down.`,
	Args: cobra.NoArgs,
	RunE: runReload,
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	if err := stack.ValidateConfigs(cfg); err != nil {
		return err
	}
	fmt.Printf("%s configuration files are valid\n", ui.OKTag())

	if dryRun {
		fmt.Println("Dry run - would reload prometheus and alertmanager")
		return nil
	}

	promURL, err := componentURL(cfg, stack.Prometheus)
	if err != nil {
		return err
	}
	amURL, err := componentURL(cfg, stack.Alertmanager)
	if err != nil {
		return err
	}
	prom, err := monitor.NewPrometheus(promURL)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	start := time.Now()
	reloadErr := func() error {
		if err := prom.Reload(ctx); err != nil {
			return wrapConnRefused(err, "prometheus")
		}
		fmt.Printf("%s prometheus reloaded\n", ui.OKTag())
		if err := monitor.NewAlertManager(amURL).Reload(ctx); err != nil {
			return wrapConnRefused(err, "alertmanager")
		}
		fmt.Printf("%s alertmanager reloaded\n", ui.OKTag())
		return nil
	}()

	recordEvent(cfg, history.Event{
		Kind:      history.KindReload,
		Target:    "stack",
		OK:        reloadErr == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Detail:    errDetail(reloadErr),
	})
	return reloadErr
}
