package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/pipeline"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

func newRunCommand() *cobra.Command {
	var (
		configPath string
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an experiment",
		Long: `Run every iteration of the experiment described by the config file.

Tasks already completed by an earlier run, or by another process sharing the
output directory, are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Workers = workers
			}
			learners, err := pipeline.Learners(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := log.GetLoggerWithName("cli").With(log.ConfigPathKey, configPath)
			report, err := pipeline.Run(ctx, cfg, learners, logger)
			if err != nil {
				return err
			}
			for _, it := range report.Iterations {
				fmt.Fprint(cmd.OutOrStdout(), it.Format())
			}
			if !report.OK() {
				return &TaskFailureError{Failed: report.Tasks.Failed, Keys: report.Tasks.FailedKeys}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "experiment.yaml", "Experiment config file")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent tasks (default: workers from the config)")
	return cmd
}
