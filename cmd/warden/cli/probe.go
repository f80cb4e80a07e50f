package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/probe"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe the application's health endpoints",
	Long: `Hit the application's health, liveness, and readiness endpoints and
report status and latency for each.

Exits non-zero if any endpoint fails, so probe works as a deploy gate:
  warden probe && ./deploy.sh`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

// probeRow is the JSON shape of one probe result.
type probeRow struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	OK        bool   `json:"ok"`
	Status    int    `json:"status,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadProjectOrDefault()
	if err != nil {
		return err
	}

	prober := probe.New(cfg.App.BaseURL)
	start := time.Now()
	results := prober.CheckAll(cmd.Context(), probe.HealthEndpoints)
	healthy := probe.Healthy(results)

	var failed []string
	rows := make([]probeRow, 0, len(results))
	for _, r := range results {
		row := probeRow{
			Name:      r.Name,
			URL:       r.URL,
			OK:        r.OK,
			Status:    r.Status,
			LatencyMS: r.Latency.Milliseconds(),
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		rows = append(rows, row)
		if !r.OK {
			failed = append(failed, r.Name)
		}
	}

	recordEvent(cfg, history.Event{
		Kind:      history.KindProbe,
		Target:    cfg.App.BaseURL,
		OK:        healthy,
		LatencyMS: time.Since(start).Milliseconds(),
		Detail:    probeDetail(results),
	})

	if jsonOut {
		if err := json.NewEncoder(os.Stdout).Encode(rows); err != nil {
			return err
		}
	} else {
		fmt.Printf("Probing %s\n\n", cfg.App.BaseURL)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  ENDPOINT\tSTATUS\tLATENCY\t")
		for _, r := range results {
			status := "-"
			if r.Status != 0 {
				status = fmt.Sprintf("%d", r.Status)
			}
			note := ""
			if r.Err != nil {
				note = r.Err.Error()
			}
			fmt.Fprintf(w, "  %s %s\t%s\t%s\t%s\n",
				ui.StatusTag(r.OK), r.Name, status, intcli.FormatLatency(r.Latency), note)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if !healthy {
		return fmt.Errorf("probe failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

// probeDetail summarizes probe results for a history record, e.g.
// "health=200 liveness=200 readiness=503". Status 0 means the endpoint
// never responded.
func probeDetail(results []probe.Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Status == 0 {
			parts = append(parts, fmt.Sprintf("%s=error", r.Name))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", r.Name, r.Status))
	}
	return strings.Join(parts, " ")
}
