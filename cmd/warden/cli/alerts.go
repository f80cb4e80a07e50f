package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/monitor"
	"github.com/praxislabs/warden/internal/stack"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var alertsRules bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show firing alerts and active silences",
	Long: `Show the alerts Prometheus's rule engine has firing or pending, and any
active silences in Alertmanager.

Examples:
  warden alerts           # Firing and pending alerts plus silences
  warden alerts --rules   # Configured rule groups with evaluation state`,
	Args: cobra.NoArgs,
	RunE: runAlerts,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.Flags().BoolVar(&alertsRules, "rules", false, "list configured rule groups instead of firing alerts")
}

// alertsOutput is the JSON shape of 'warden alerts --json'.
type alertsOutput struct {
	Alerts   []monitor.RuleAlert `json:"alerts"`
	Silences []monitor.Silence   `json:"silences"`
}

func runAlerts(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	promURL, err := componentURL(cfg, stack.Prometheus)
	if err != nil {
		return err
	}
	prom, err := monitor.NewPrometheus(promURL)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if alertsRules {
		return printRules(ctx, prom)
	}

	alerts, err := prom.Alerts(ctx)
	if err != nil {
		return wrapConnRefused(err, "prometheus")
	}

	amURL, err := componentURL(cfg, stack.Alertmanager)
	if err != nil {
		return err
	}
	silences, err := monitor.NewAlertManager(amURL).Silences(ctx, true)
	if err != nil {
		return wrapConnRefused(err, "alertmanager")
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(alertsOutput{Alerts: alerts, Silences: silences})
	}

	if len(alerts) == 0 {
		fmt.Printf("%s no alerts firing or pending\n", ui.OKTag())
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  ALERT\tSTATE\tSINCE\tSEVERITY")
		for _, a := range alerts {
			tag := ui.WarnTag()
			if a.State == "firing" {
				tag = ui.FailTag()
			}
			fmt.Fprintf(w, "  %s %s\t%s\t%s\t%s\n",
				tag, a.Name, a.State, intcli.FormatAge(a.ActiveAt), a.Labels["severity"])
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(silences) > 0 {
		fmt.Printf("\n%d active silence(s):\n", len(silences))
		for _, s := range silences {
			id := s.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Printf("  %s by %s until %s: %s\n",
				id, s.CreatedBy, s.EndsAt.Local().Format(time.RFC822), s.Comment)
		}
	}
	return nil
}

func printRules(ctx context.Context, prom *monitor.Prometheus) error {
	groups, err := prom.Rules(ctx)
	if err != nil {
		return wrapConnRefused(err, "prometheus")
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(groups)
	}

	for _, g := range groups {
		ui.Section(fmt.Sprintf("%s (%s)", g.Name, g.File))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  RULE\tKIND\tSTATE\tHEALTH")
		for _, r := range g.Rules {
			state := r.State
			if state == "" {
				state = "-"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", r.Name, r.Kind, state, r.Health)
			if r.LastError != "" {
				fmt.Fprintf(w, "  \t\t\t%s\n", r.LastError)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if len(groups) == 0 {
		fmt.Println("No rule groups loaded.")
	}
	return nil
}
