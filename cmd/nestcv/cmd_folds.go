package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/pipeline"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

func newFoldsCommand() *cobra.Command {
	var (
		configPath string
		iteration  int
	)
	cmd := &cobra.Command{
		Use:   "folds",
		Short: "Print the outer and inner fold assignments",
		Long: `Print the fold assignments of one iteration. The iteration's random seed is
created if no run has done so yet, so later runs use the same folds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			learners, err := pipeline.Learners(cfg)
			if err != nil {
				return err
			}
			logger := log.GetLoggerWithName("cli")
			ec, _, err := pipeline.Prepare(cmd.Context(), cfg, iteration, learners, pipeline.NewRunner(cfg, logger), logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# Iteration %d, random seed %d\n", iteration, ec.Seed)
			fmt.Fprint(out, ec.Folds.String())
			for _, fold := range ec.Folds.GetAllFoldNumbers() {
				inner, err := ec.Folds.GetInnerAssignments(fold)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "# Inner folds of outer fold %d\n", fold)
				fmt.Fprint(out, inner.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "experiment.yaml", "Experiment config file")
	cmd.Flags().IntVar(&iteration, "iteration", 1, "Iteration to print")
	return cmd
}
