package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/praxislabs/warden/internal/doctor"
	"github.com/praxislabs/warden/internal/monitor"
	"github.com/praxislabs/warden/internal/probe"
	"github.com/praxislabs/warden/internal/stack"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check everything warden depends on",
	Long: `Run diagnostics against the Docker daemon, the project configuration,
the stack containers, the application endpoints, and the credential store.

Failing checks are annotated but don't stop the report, so one run shows
the full picture. Exits non-zero if any check failed.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadProjectOrDefault()
	if err != nil {
		return err
	}

	reg := doctor.NewRegistry()
	reg.Register(&doctor.VersionSection{Version: Version()})

	engine, engineErr := stack.NewEngine()
	if engine != nil {
		defer engine.Close()
	}
	reg.Register(&doctor.DockerSection{Engine: engine, Err: engineErr})
	reg.Register(&doctor.ConfigSection{Dir: cfg.Dir})

	if engine != nil {
		reg.Register(&doctor.StackSection{Manager: stack.NewManager(engine, cfg)})
	}
	if promURL, err := componentURL(cfg, stack.Prometheus); err == nil {
		if prom, err := monitor.NewPrometheus(promURL); err == nil {
			reg.Register(&doctor.ScrapeSection{Prometheus: prom})
		}
	}
	if amURL, err := componentURL(cfg, stack.Alertmanager); err == nil {
		reg.Register(&doctor.AlertmanagerSection{Client: monitor.NewAlertManager(amURL)})
	}
	if grafana, hasCreds, err := grafanaClient(cfg); err == nil {
		reg.Register(&doctor.GrafanaSection{Client: grafana, HasCreds: hasCreds})
	}
	reg.Register(&doctor.AppSection{Prober: probe.New(cfg.App.BaseURL)})
	reg.Register(&doctor.BackupSection{Dir: cfg.BackupDirPath()})
	reg.Register(&doctor.CredentialSection{})

	failed := reg.Run(os.Stdout)
	if len(failed) > 0 {
		return fmt.Errorf("%d check(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	fmt.Println("All checks passed.")
	return nil
}
