package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// ConfigFileName is the config written by init.
const ConfigFileName = "experiment.yaml"

func newInitCommand() *cobra.Command {
	var (
		instances int
		features  int
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a synthetic example experiment",
		Long: `Write a synthetic two-class dataset and an experiment.yaml that evaluates it
with a nearest-centroid learner and the random baseline. The result runs as
is and is a starting point for real experiments.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path := filepath.Join(dir, ConfigFileName)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf("%s already exists (use --force to overwrite)", path)
			}
			if err := writeExample(dir, instances, features); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nRun it with: nestcv run -c %s\n", path, path)
			return nil
		},
	}

	cmd.Flags().IntVar(&instances, "instances", 40, "Number of synthetic instances")
	cmd.Flags().IntVar(&features, "features", 20, "Number of synthetic features")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing experiment.yaml")
	return cmd
}

func writeExample(dir string, instances, features int) error {
	if instances < 4 || features < 1 {
		return errors.NewValueError("init", "need at least 4 instances and 1 feature")
	}
	dv, procs, err := experiment.SyntheticDataset(instances, features, "A", "B").Save(dir)
	if err != nil {
		return err
	}

	cfg := &config.Config{
		OutputDir:         "Output",
		OuterFolds:        5,
		InnerFolds:        3,
		DependentVariable: dv,
		Processors:        procs,
		FeatureCounts:     slices.Compact([]int{max(1, features/4), max(1, features/2), features}),
		Learners: []config.LearnerConfig{
			{Key: "centroid", Kind: config.LearnerKindCentroid},
			{Key: "random", Kind: config.LearnerKindRandom},
		},
		FeatureSelectionAlgorithms: []config.AlgorithmConfig{
			{Key: model.NoFeatureSelection},
			{Key: "fisher", Learner: "centroid"},
		},
		ClassificationAlgorithms: []config.AlgorithmConfig{
			{Key: "centroid", Learner: "centroid"},
			{Key: "random", Learner: "random"},
		},
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, ConfigFileName), out, 0o644), "write config")
}
