// Package pipeline drives whole experiment iterations: it emits the
// feature-selection, prediction and ensemble tasks to a parallel.Runner in
// dependency order and summarises the results.
package pipeline

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/core/parallel"
	"github.com/YuminosukeSato/nestcv/ensemble"
	"github.com/YuminosukeSato/nestcv/evaluator"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/metrics"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
	"github.com/YuminosukeSato/nestcv/selector"
)

// Directories under the output root used for cross-process coordination.
const (
	LockDirName   = "Locks"
	StatusDirName = "Status"
)

// NewRunner builds the task runner described by cfg.
func NewRunner(cfg *config.Config, logger log.Logger) *parallel.Runner {
	root := cfg.Path(cfg.OutputDir)
	return &parallel.Runner{
		Workers:      cfg.Workers,
		LockDir:      filepath.Join(root, LockDirName),
		StatusDir:    filepath.Join(root, StatusDirName),
		LockTimeout:  cfg.LockTimeout,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
		Metrics:      parallel.NewMetrics(),
	}
}

// Run executes every iteration in cfg. Task failures are reported in the
// returned Report; an error means the run could not proceed at all.
func Run(ctx context.Context, cfg *config.Config, learners model.LearnerRegistry, logger log.Logger) (*Report, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if err := ensemble.Validate(cfg.EnsembleAlgorithms); err != nil {
		return nil, err
	}

	runner := NewRunner(cfg, logger)
	report := &Report{}
	for i := 1; i <= cfg.Iterations; i++ {
		it, err := runIteration(ctx, cfg, i, learners, runner, logger.With(log.IterationKey, i))
		if err != nil {
			return report, errors.Wrapf(err, "iteration %d", i)
		}
		report.Iterations = append(report.Iterations, *it)
		report.Tasks.Add(it.Tasks)
	}

	if cfg.MetricsFile != "" {
		if err := runner.Metrics.WriteTextfile(cfg.Path(cfg.MetricsFile)); err != nil {
			logger.Warn("Could not write metrics file", "error", err, log.PathKey, cfg.MetricsFile)
		}
	}
	return report, nil
}

// Prepare runs the seed task for iteration, loads the data and builds the
// experiment context.
func Prepare(ctx context.Context, cfg *config.Config, iteration int, learners model.LearnerRegistry,
	runner *parallel.Runner, logger log.Logger) (*experiment.Context, parallel.Summary, error) {
	seedPath := experiment.IterationDir(cfg, iteration, experiment.SeedFileName)
	summary, err := runner.Run(ctx, []parallel.Task{{
		Key:         seedPath,
		Description: "Set random seed for iteration " + strconv.Itoa(iteration),
		Run: func(context.Context) bool {
			if _, err := experiment.EnsureSeed(seedPath, iteration, cfg.RandomSeed); err != nil {
				logger.Error("Could not set random seed", "error", err, log.PathKey, seedPath)
				return false
			}
			return true
		},
	}})
	if err != nil {
		return nil, summary, err
	}
	seed, err := experiment.EnsureSeed(seedPath, iteration, cfg.RandomSeed)
	if err != nil {
		return nil, summary, err
	}
	logger.Info("Random seed", log.RandomSeedKey, seed)

	ds, err := experiment.LoadDataset(cfg, logger)
	if err != nil {
		return nil, summary, err
	}
	ec, err := experiment.NewContext(cfg, iteration, seed, ds.DependentVariable, ds.DependentVariableName,
		ds.Processors, learners, metrics.WeightedAUCScorer{}, logger)
	if err != nil {
		return nil, summary, err
	}
	return ec, summary, nil
}

func runIteration(ctx context.Context, cfg *config.Config, iteration int, learners model.LearnerRegistry,
	runner *parallel.Runner, logger log.Logger) (*IterationReport, error) {
	ec, summary, err := Prepare(ctx, cfg, iteration, learners, runner, logger)
	if err != nil {
		return nil, err
	}
	it := &IterationReport{Iteration: iteration, Seed: ec.Seed}
	it.Tasks.Add(summary)

	stage := func(name string, tasks []parallel.Task) error {
		logger.Info("Running tasks", "stage", name, "tasks", len(tasks))
		s, err := runner.Run(ctx, tasks)
		it.Tasks.Add(s)
		if err != nil {
			return errors.Wrapf(err, "%s tasks", name)
		}
		if !s.OK() {
			logger.Warn("Some tasks failed", "stage", name, "failed", s.Failed)
		}
		return nil
	}

	evaluateInner := ec.NeedToEvaluateInnerFolds()
	fsTasks, err := featureSelectionTasks(ec, evaluateInner)
	if err != nil {
		return nil, err
	}
	if err := stage("feature selection", fsTasks); err != nil {
		return nil, err
	}

	selectors, err := selector.Enumerate(ec)
	if err != nil {
		return nil, err
	}
	var predTasks []parallel.Task
	for _, s := range selectors {
		for _, e := range s.Evaluators() {
			tasks, err := e.Tasks(evaluateInner)
			if err != nil {
				return nil, err
			}
			predTasks = append(predTasks, tasks...)
		}
	}
	if err := stage("prediction", predTasks); err != nil {
		return nil, err
	}

	var agg *ensemble.Aggregator
	if ec.NeedToEnsemble() {
		if agg, err = ensemble.NewAggregator(ec, selectors); err != nil {
			return nil, err
		}
		var tasks []parallel.Task
		for _, fold := range ec.Folds.GetAllFoldNumbers() {
			tasks = append(tasks, agg.Tasks(fold)...)
		}
		if err := stage("ensemble", tasks); err != nil {
			return nil, err
		}
	}

	it.Selectors = selectorResults(ctx, selectors, cfg.Workers, logger)
	if agg != nil {
		it.Ensembles = ensembleResults(agg, logger)
	}
	if err := it.save(experiment.IterationDir(cfg, iteration, SummaryFileName)); err != nil {
		return nil, err
	}
	logger.Info("Iteration finished", "done", it.Tasks.Done, "skipped", it.Tasks.Skipped, "failed", it.Tasks.Failed)
	return it, nil
}

// featureSelectionTasks covers every processor, algorithm and outer fold with
// test data. Algorithms that need no selection are skipped.
func featureSelectionTasks(ec *experiment.Context, evaluateInner bool) ([]parallel.Task, error) {
	var out []parallel.Task
	for _, proc := range ec.Processors {
		folds, err := ec.Folds.GetFoldsWithTestData(proc)
		if err != nil {
			return nil, err
		}
		for _, fs := range ec.FeatureSelection {
			for _, fold := range folds {
				e := evaluator.NewFeatureSelectionEvaluator(ec, proc, fs, fold)
				if !e.NeedToSelectFeatures() {
					break
				}
				tasks, err := e.Tasks(evaluateInner)
				if err != nil {
					return nil, err
				}
				out = append(out, tasks...)
			}
		}
	}
	return out, nil
}
