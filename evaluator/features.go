package evaluator

import (
	"context"
	"path/filepath"

	"github.com/YuminosukeSato/nestcv/core/commit"
	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/core/parallel"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

// FeatureSelectionEvaluator ranks features for one processor, algorithm and
// outer fold, and for each inner fold of that outer fold.
type FeatureSelectionEvaluator struct {
	ctx       *experiment.Context
	Processor *experiment.Processor
	Algorithm model.FeatureSelectionAlgorithm
	OuterFold int

	allFeatures []string
	logger      log.Logger
}

// NewFeatureSelectionEvaluator binds an evaluator to its coordinates.
func NewFeatureSelectionEvaluator(ctx *experiment.Context, proc *experiment.Processor,
	fs model.FeatureSelectionAlgorithm, outerFold int) *FeatureSelectionEvaluator {
	return &FeatureSelectionEvaluator{
		ctx:         ctx,
		Processor:   proc,
		Algorithm:   fs,
		OuterFold:   outerFold,
		allFeatures: proc.Data.DataPointNames(),
		logger: ctx.Logger.With(log.ComponentKey, "evaluator.fs",
			log.ProcessorKey, proc.Name, log.FSAlgorithmKey, fs.Key, log.OuterFoldKey, outerFold),
	}
}

// Description is processor_algorithm.
func (e *FeatureSelectionEvaluator) Description() string {
	return e.Processor.Name + "_" + e.Algorithm.Key
}

// Dir is the directory holding this outer fold's ranking files.
func (e *FeatureSelectionEvaluator) Dir() string {
	return e.ctx.Dir("FeatureSelection", e.Processor.Name, e.Algorithm.Key, outerFoldDir(e.OuterFold))
}

// OuterPath is the ranking file of the outer fold.
func (e *FeatureSelectionEvaluator) OuterPath() string {
	return filepath.Join(e.Dir(), outerFeaturesFile)
}

// InnerPath is the ranking file of an inner fold.
func (e *FeatureSelectionEvaluator) InnerPath(innerFold int) string {
	return filepath.Join(e.Dir(), innerFeaturesFile(innerFold))
}

// NeedToSelectFeatures is false for None and PriorKnowledge, and when the
// only feature-count option is every feature.
func (e *FeatureSelectionEvaluator) NeedToSelectFeatures() bool {
	if !e.Algorithm.UsesLearner() {
		return false
	}
	options := e.ctx.NumFeaturesOptions(e.Processor, e.Algorithm)
	return !(len(options) == 1 && options[0] == len(e.allFeatures))
}

// Tasks returns one task per inner fold with test data when evaluateInner,
// followed by the outer-fold task. There are none when no selection is
// needed.
func (e *FeatureSelectionEvaluator) Tasks(evaluateInner bool) ([]parallel.Task, error) {
	if !e.NeedToSelectFeatures() {
		return nil, nil
	}
	var tasks []parallel.Task

	if evaluateInner {
		inner, err := e.ctx.Folds.GetInnerAssignments(e.OuterFold)
		if err != nil {
			return nil, err
		}
		innerFolds, err := inner.GetFoldsWithTestData(e.Processor)
		if err != nil {
			return nil, err
		}
		for _, k := range innerFolds {
			trainIDs, err := inner.GetTrainIDs(k)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, e.task(e.InnerPath(k), trainIDs, e.logger.With(log.InnerFoldKey, k)))
		}
	}

	trainIDs, err := e.ctx.Folds.GetTrainIDs(e.OuterFold)
	if err != nil {
		return nil, err
	}
	tasks = append(tasks, e.task(e.OuterPath(), trainIDs, e.logger))
	return tasks, nil
}

func (e *FeatureSelectionEvaluator) task(path string, trainIDs []string, logger log.Logger) parallel.Task {
	logger = logger.With(log.PathKey, path)
	return parallel.Task{
		Key:         path,
		Description: "Select features for " + e.Description() + ", " + filepath.Base(path),
		Run: func(ctx context.Context) bool {
			return e.selectAndSave(ctx, path, trainIDs, logger)
		},
	}
}

func (e *FeatureSelectionEvaluator) selectAndSave(ctx context.Context, path string, trainIDs []string, logger log.Logger) bool {
	if existing, ok, err := commit.Load[[]string](path, commit.FeatureListCodec{}); err == nil && ok && len(existing) > 0 {
		return true
	}

	learner, err := e.ctx.Learners.Lookup(e.Algorithm.LearnerKey)
	if err != nil {
		logger.Error("Feature selection learner is not registered", "error", err)
		return false
	}

	train := e.ctx.TrainData(e.Processor, trainIDs)
	selected, err := errors.SafeCall("select features for "+e.Description(), func() ([]string, error) {
		return learner.SelectOrRankFeatures(ctx, model.RankRequest{
			Train:             train,
			DependentVariable: e.ctx.DependentVariableName,
			Params:            e.Algorithm.Params,
		})
	})
	if err != nil {
		logger.Error("Feature selection failed", "error", err, log.TrainSamplesKey, train.Size())
		return false
	}
	if len(selected) == 0 {
		logger.Error("Feature selection returned no features", "error", errors.ErrNoFeaturesSelected)
		return false
	}

	if err := commit.Commit[[]string](path, selected, commit.FeatureListCodec{}, commit.EqualFeatures); err != nil {
		logger.Error("Could not save selected features", "error", err)
		return false
	}
	logger.Debug("Saved selected features", log.FeaturesKey, len(selected), log.TrainSamplesKey, train.Size())
	return true
}

// GetOuterSelectedFeatures returns the top numTop features of the outer fold.
func (e *FeatureSelectionEvaluator) GetOuterSelectedFeatures(numTop int) ([]string, error) {
	return e.selectedFeatures(e.OuterPath(), numTop)
}

// GetInnerSelectedFeatures returns the top numTop features of an inner fold.
func (e *FeatureSelectionEvaluator) GetInnerSelectedFeatures(innerFold, numTop int) ([]string, error) {
	return e.selectedFeatures(e.InnerPath(innerFold), numTop)
}

// selectedFeatures returns all features when no selection is needed, the
// prior list for PriorKnowledge, an empty list when the ranking has not been
// made yet, and otherwise the first numTop ranked features (all of them when
// numTop is out of range).
func (e *FeatureSelectionEvaluator) selectedFeatures(path string, numTop int) ([]string, error) {
	if e.Algorithm.Key == model.PriorKnowledge {
		return append([]string(nil), e.Processor.PriorKnowledge...), nil
	}
	if !e.NeedToSelectFeatures() {
		all := append([]string(nil), e.allFeatures...)
		data.SortNatural(all)
		return all, nil
	}

	ranked, ok, err := commit.Load[[]string](path, commit.FeatureListCodec{})
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}
	if len(ranked) == 0 {
		return nil, errors.Wrapf(errors.ErrNoFeaturesSelected, "%s", path)
	}
	if numTop < 1 || numTop > len(ranked) {
		return ranked, nil
	}
	return ranked[:numTop], nil
}
