package cli

import (
	"fmt"
	"time"

	"github.com/praxislabs/warden/internal/history"
	"github.com/praxislabs/warden/internal/stack"
	"github.com/spf13/cobra"
)

var (
	downVolumes bool
	downForce   bool
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove the monitoring stack",
	Long: `Stop and remove the stack containers and the warden network.

Data volumes survive by default, so metrics and dashboards are still there
after the next 'warden up'. Pass --volumes to delete them too.`,
	Args: cobra.NoArgs,
	RunE: runDown,
}

func init() {
	rootCmd.AddCommand(downCmd)
	downCmd.Flags().BoolVar(&downVolumes, "volumes", false, "also remove data volumes (metrics and dashboards are lost)")
	downCmd.Flags().BoolVar(&downForce, "force", false, "skip the confirmation prompt")
}

func runDown(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Printf("Dry run - would stop and remove %s\n", stack.NamesString())
		if downVolumes {
			fmt.Println("Dry run - would remove data volumes")
		}
		return nil
	}

	if downVolumes && !confirm("Remove data volumes? All recorded metrics and dashboards are lost", downForce) {
		fmt.Println("Aborted.")
		return nil
	}

	manager, engine, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	start := time.Now()
	downErr := manager.Down(cmd.Context(), downVolumes)

	detail := ""
	if downVolumes {
		detail = "volumes removed"
	}
	if downErr != nil {
		detail = errDetail(downErr)
	}
	recordEvent(cfg, history.Event{
		Kind:      history.KindDown,
		Target:    "stack",
		OK:        downErr == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Detail:    detail,
	})
	if downErr != nil {
		return downErr
	}

	fmt.Println("Stack stopped.")
	return nil
}
