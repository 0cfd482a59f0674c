package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/virtualdyno/internal/config"
	"codeberg.org/mutker/virtualdyno/internal/dyno"
	"codeberg.org/mutker/virtualdyno/internal/logger"
	"codeberg.org/mutker/virtualdyno/internal/render"
	"codeberg.org/mutker/virtualdyno/internal/store"
	"codeberg.org/mutker/virtualdyno/internal/telemetry"
)

var cfg *config.Config

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "virtualdyno",
		Short: "Estimate engine torque and power from road telemetry",
		Long: `virtualdyno turns full-throttle acceleration telemetry into engine
torque and power curves: it detects wide-open pulls, attributes gears,
segments dual-clutch shifts, solves the longitudinal force balance and
scores how much the result can be trusted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}

			return logger.Init(cfg.LogLevel)
		},
	}

	// Parsed by config.Load; declared here so cobra accepts them.
	root.PersistentFlags().String("config", "", "path to the configuration file")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("database", "", "path to the run database")

	root.AddCommand(newAnalyzeCmd(), newRenderCmd(), newListCmd())

	return root
}

func newAnalyzeCmd() *cobra.Command {
	var (
		samplesPath string
		persist     bool
		chartPath   string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a telemetry sample log into a dyno run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			seq, err := telemetry.LoadSamples(samplesPath)
			if err != nil {
				return err
			}

			veh, err := cfg.VehicleConstants()
			if err != nil {
				return err
			}

			analysisCfg, err := cfg.AnalysisConfig()
			if err != nil {
				return err
			}

			run, err := dyno.Analyze(seq, veh, analysisCfg)
			if err != nil {
				return err
			}

			reportRun(run)

			if persist {
				repo, err := store.NewRepository(cfg.StoreConfig(), logger.NewLogger())
				if err != nil {
					return err
				}
				defer repo.Close()

				if err := repo.Store(cmd.Context(), run); err != nil {
					return err
				}
			}

			if chartPath != "" && run.Status == dyno.StatusAccepted {
				if err := render.WriteRunChart(run, chartPath); err != nil {
					return err
				}
				logger.Info().Str("path", chartPath).Msg("Chart written")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&samplesPath, "samples", "", "path to the telemetry sample log (JSON)")
	cmd.Flags().BoolVar(&persist, "store", false, "persist the run to the configured database")
	cmd.Flags().StringVar(&chartPath, "chart", "", "write the torque/power chart to this HTML file")
	_ = cmd.MarkFlagRequired("samples")

	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		id        string
		chartPath string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the chart of a stored run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := store.NewRepository(cfg.StoreConfig(), logger.NewLogger())
			if err != nil {
				return err
			}
			defer repo.Close()

			run, err := repo.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			if err := render.WriteRunChart(run, chartPath); err != nil {
				return err
			}
			logger.Info().Str("path", chartPath).Msg("Chart written")

			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "run identifier")
	cmd.Flags().StringVar(&chartPath, "out", "run.html", "output HTML file")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newListCmd() *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs for a vehicle constants version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := store.NewRepository(cfg.StoreConfig(), logger.NewLogger())
			if err != nil {
				return err
			}
			defer repo.Close()

			summaries, err := repo.ListByVehicleVersion(cmd.Context(), version)
			if err != nil {
				return err
			}

			for _, s := range summaries {
				fmt.Printf("%s  %-8s  conf=%5.1f  torque=%7.1f Nm  power=%7.1f kW  %s\n",
					s.ID, s.Status, s.Confidence, s.PeakTorqueNm, s.PeakPowerW/1000, s.CreatedAt)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&version, "vehicle-version", "", "vehicle constants version to list runs for")
	_ = cmd.MarkFlagRequired("vehicle-version")

	return cmd
}

func reportRun(run *dyno.Run) {
	if run.Status == dyno.StatusRejected {
		logger.Warn().
			Str("id", run.ID).
			Str("reason", run.RejectionReason).
			Msg("Run rejected")
		return
	}

	logger.Info().
		Str("id", run.ID).
		Int("pulls", run.PullCount).
		Int("shifts", run.ShiftCount).
		Float64("peak_torque_nm", run.PeakTorqueNm).
		Float64("peak_torque_rpm", run.PeakTorqueRPM).
		Float64("peak_power_kw", run.PeakPowerW/1000).
		Float64("peak_power_rpm", run.PeakPowerRPM).
		Float64("confidence", run.Confidence.Value).
		Str("rating", string(run.Confidence.Rating)).
		Msg("Run accepted")
}

func handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	cancel()
}
