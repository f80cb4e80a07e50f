package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/probe"
	"github.com/spf13/cobra"
)

var metricsMatch string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Fetch and summarize the application's metrics",
	Long: `Fetch the application's Prometheus metrics endpoint, parse the exposition
format, and summarize what it exports.

Examples:
  warden metrics                  # All metric families
  warden metrics --match http     # Families whose name contains "http"`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().StringVar(&metricsMatch, "match", "", "only show families whose name contains this substring")
}

// metricsOutput is the JSON shape of 'warden metrics --json'.
type metricsOutput struct {
	URL      string         `json:"url"`
	Families int            `json:"families"`
	Series   int            `json:"series"`
	Matched  []probe.Family `json:"matched,omitempty"`
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cfg, err := loadProjectOrDefault()
	if err != nil {
		return err
	}

	prober := probe.New(cfg.App.BaseURL)
	url := cfg.AppURL(cfg.App.MetricsPath)

	start := time.Now()
	report, err := prober.FetchMetrics(cmd.Context(), cfg.App.MetricsPath)

	recordEvent(cfg, history.Event{
		Kind:      history.KindProbe,
		Target:    url,
		OK:        err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Detail:    metricsDetail(report, err),
	})
	if err != nil {
		return err
	}

	families := report.Filter(metricsMatch)

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(metricsOutput{
			URL:      url,
			Families: len(report.Families),
			Series:   report.Samples,
			Matched:  families,
		})
	}

	fmt.Printf("Fetched %d families, %d series from %s\n\n", len(report.Families), report.Samples, url)
	if metricsMatch != "" && len(families) == 0 {
		fmt.Printf("No families match %q.\n", metricsMatch)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  FAMILY\tTYPE\tSERIES\tVALUE")
	for _, f := range families {
		value := ""
		if f.Value != nil {
			value = strconv.FormatFloat(*f.Value, 'g', -1, 64)
		}
		fmt.Fprintf(w, "  %s\t%s\t%d\t%s\n", f.Name, f.Type, f.Samples, value)
	}
	return w.Flush()
}

func metricsDetail(report *probe.MetricsReport, err error) string {
	if err != nil {
		return errDetail(err)
	}
	return fmt.Sprintf("%d families, %d series", len(report.Families), report.Samples)
}
