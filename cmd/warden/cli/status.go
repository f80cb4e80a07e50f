package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	intcli "github.com/praxislabs/warden/internal/cli"
	"github.com/praxislabs/warden/internal/stack"
	"github.com/praxislabs/warden/internal/ui"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the monitoring stack",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusOutput is the JSON shape of 'warden status --json'.
type statusOutput struct {
	Project    string                  `json:"project"`
	AppURL     string                  `json:"app_url"`
	Healthy    bool                    `json:"healthy"`
	Components []stack.ComponentStatus `json:"components"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	manager, engine, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	statuses, err := manager.Status(cmd.Context())
	if err != nil {
		return err
	}
	healthy := stack.Healthy(statuses)

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(statusOutput{
			Project:    cfg.Dir,
			AppURL:     cfg.App.BaseURL,
			Healthy:    healthy,
			Components: statuses,
		})
	}

	fmt.Printf("Project: %s  (app %s)\n\n", intcli.ShortenPath(cfg.Dir), cfg.App.BaseURL)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  COMPONENT\tSTATE\tREADY\tPORT")
	for _, s := range statuses {
		ready := "-"
		switch {
		case s.Ready:
			ready = ui.OKTag()
		case s.State == "running":
			ready = ui.FailTag()
		}
		port := "-"
		if s.State != "disabled" {
			port = fmt.Sprintf("%d", s.HostPort)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", s.Name, s.State, ready, port)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	if healthy {
		fmt.Printf("%s stack is healthy\n", ui.OKTag())
	} else {
		fmt.Printf("%s stack is not healthy\n", ui.FailTag())
		for _, s := range statuses {
			if s.ReadyErr != "" {
				fmt.Printf("  %s: %s\n", s.Name, s.ReadyErr)
			}
		}
		ui.Hint("run 'warden up' to start missing components, 'warden logs <component>' to investigate")
	}
	return nil
}
