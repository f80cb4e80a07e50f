package cli

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/monitor"
	"github.com/praxislabs/warden/internal/stack"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var testAlertTimeout time.Duration

var testAlertCmd = &cobra.Command{
	Use:   "test-alert",
	Short: "Fire a synthetic alert and watch it reach Alertmanager",
	Long: `Ask the application to raise a synthetic alert, then poll Alertmanager
until it shows up.

This proves the whole pipeline end to end: application, Prometheus scrape,
rule evaluation, and alert routing. Exits non-zero if the alert doesn't
arrive before the timeout.`,
	Args: cobra.NoArgs,
	RunE: runTestAlert,
}

func init() {
	rootCmd.AddCommand(testAlertCmd)
	testAlertCmd.Flags().DurationVar(&testAlertTimeout, "timeout", 90*time.Second, "how long to wait for the alert to reach alertmanager")
}

func runTestAlert(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	url := cfg.AppURL(cfg.App.TestAlertPath)
	name := cfg.App.TestAlertName

	if dryRun {
		fmt.Printf("Dry run - would POST %s and wait up to %s for alert %q\n", url, testAlertTimeout, name)
		return nil
	}

	amURL, err := componentURL(cfg, stack.Alertmanager)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	start := time.Now()

	alertErr := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
		if err != nil {
			return fmt.Errorf("triggering test alert: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("application rejected test alert: status %d", resp.StatusCode)
		}
		fmt.Printf("%s triggered test alert via %s\n", ui.OKTag(), url)

		fmt.Printf("Waiting up to %s for %q to reach alertmanager...\n", testAlertTimeout, name)
		alert, err := monitor.NewAlertManager(amURL).WaitForAlert(ctx, name, testAlertTimeout)
		if err != nil {
			return wrapConnRefused(err, "alertmanager")
		}
		fmt.Printf("%s alert %q arrived (started %s)\n", ui.OKTag(), alert.Name(), intcli.FormatTimeAgo(alert.StartsAt))
		return nil
	}()

	recordEvent(cfg, history.Event{
		Kind:      history.KindTestAlert,
		Target:    name,
		OK:        alertErr == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Detail:    errDetail(alertErr),
	})
	return alertErr
}
