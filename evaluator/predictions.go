package evaluator

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/YuminosukeSato/nestcv/core/commit"
	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/core/parallel"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

// PredictionEvaluator trains and tests one classifier on one feature count
// for one outer fold and its inner folds.
type PredictionEvaluator struct {
	ctx        *experiment.Context
	Processor  *experiment.Processor
	FS         model.FeatureSelectionAlgorithm
	Classifier model.ClassificationAlgorithm

	key      Key
	features *FeatureSelectionEvaluator
	logger   log.Logger

	loads singleflight.Group
	cache sync.Map // "outer" | "inner" -> *model.Predictions
}

// NewPredictionEvaluator binds an evaluator to its coordinates.
func NewPredictionEvaluator(ctx *experiment.Context, proc *experiment.Processor, fs model.FeatureSelectionAlgorithm,
	clf model.ClassificationAlgorithm, numFeatures, outerFold int) *PredictionEvaluator {
	key := Key{
		Processor:   proc.Name,
		FSAlgorithm: fs.Key,
		Classifier:  clf.Key,
		NumFeatures: numFeatures,
		OuterFold:   outerFold,
	}
	return &PredictionEvaluator{
		ctx:        ctx,
		Processor:  proc,
		FS:         fs,
		Classifier: clf,
		key:        key,
		features:   NewFeatureSelectionEvaluator(ctx, proc, fs, outerFold),
		logger: ctx.Logger.With(log.ComponentKey, "evaluator.predictions",
			log.ProcessorKey, proc.Name, log.FSAlgorithmKey, fs.Key, log.ClassifierKey, clf.Key,
			log.NumFeaturesKey, numFeatures, log.OuterFoldKey, outerFold),
	}
}

// Key returns the evaluation coordinates.
func (e *PredictionEvaluator) Key() Key { return e.key }

// Description is proc_fs_clf_<N>Features_OuterFold<n>.
func (e *PredictionEvaluator) Description() string { return e.key.Description() }

// Dir is the directory holding this evaluation's files.
func (e *PredictionEvaluator) Dir() string { return e.ctx.Dir(e.key.PathParts()...) }

// OuterPath is the outer-fold predictions file.
func (e *PredictionEvaluator) OuterPath() string {
	return filepath.Join(e.Dir(), outerPredictionsFile)
}

// InnerPath is the predictions file of an inner fold.
func (e *PredictionEvaluator) InnerPath(innerFold int) string {
	return filepath.Join(e.Dir(), innerPredictionsFile(innerFold))
}

// AlgorithmOutputPath is where the outer model description is kept.
func (e *PredictionEvaluator) AlgorithmOutputPath() string {
	return filepath.Join(e.Dir(), algorithmOutputFile)
}

func (e *PredictionEvaluator) innerAlgorithmOutputPath(innerFold int) string {
	return filepath.Join(e.Dir(), innerAlgorithmOutputFile(innerFold))
}

// foldJob is everything a prediction task needs about one fold.
type foldJob struct {
	description string
	path        string
	modelPath   string
	trainIDs    []string
	testIDs     []string
	features    func() ([]string, error)
	logger      log.Logger
}

// Tasks returns one task per inner fold with test data when evaluateInner,
// followed by the outer-fold task.
func (e *PredictionEvaluator) Tasks(evaluateInner bool) ([]parallel.Task, error) {
	var jobs []foldJob

	if evaluateInner {
		inner, err := e.ctx.Folds.GetInnerAssignments(e.key.OuterFold)
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
			testIDs, err := inner.GetTestIDs(k)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, foldJob{
				description: e.key.InnerDescription(k),
				path:        e.InnerPath(k),
				modelPath:   e.innerAlgorithmOutputPath(k),
				trainIDs:    trainIDs,
				testIDs:     testIDs,
				features:    func() ([]string, error) { return e.features.GetInnerSelectedFeatures(k, e.key.NumFeatures) },
				logger:      e.logger.With(log.InnerFoldKey, k),
			})
		}
	}

	trainIDs, err := e.ctx.Folds.GetTrainIDs(e.key.OuterFold)
	if err != nil {
		return nil, err
	}
	testIDs, err := e.ctx.Folds.GetTestIDs(e.key.OuterFold)
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, foldJob{
		description: e.key.Description(),
		path:        e.OuterPath(),
		modelPath:   e.AlgorithmOutputPath(),
		trainIDs:    trainIDs,
		testIDs:     testIDs,
		features:    func() ([]string, error) { return e.features.GetOuterSelectedFeatures(e.key.NumFeatures) },
		logger:      e.logger,
	})

	tasks := make([]parallel.Task, 0, len(jobs))
	for _, job := range jobs {
		tasks = append(tasks, parallel.Task{
			Key:         job.path,
			Description: "Make predictions for " + job.description,
			Run: func(ctx context.Context) bool {
				return e.makePredictions(ctx, job)
			},
		})
	}
	return tasks, nil
}

func (e *PredictionEvaluator) makePredictions(ctx context.Context, job foldJob) bool {
	logger := job.logger.With(log.PathKey, job.path)
	train := e.ctx.TrainData(e.Processor, job.trainIDs)
	test := e.ctx.TestData(e.Processor, job.testIDs)
	if e.committed(job.path, test, logger) {
		return true
	}

	selected, err := job.features()
	if err != nil {
		logger.Error("Could not read selected features", "error", err)
		return false
	}

	features := usableFeatures(selected, e.ctx.DependentVariableName, train, test)

	switch {
	case len(features) == 0:
		logger.Debug("No predictions were saved because no features were selected")
		return true
	case train.Size() == 0:
		logger.Debug("No predictions were saved because there were no training instances")
		return true
	case test.Size() == 0:
		logger.Debug("No predictions were saved because there were no test instances")
		return true
	}

	learner, err := e.ctx.Learners.Lookup(e.Classifier.LearnerKey)
	if err != nil {
		logger.Error("Classification learner is not registered", "error", err)
		return false
	}

	result, err := errors.SafeCall("train/test "+job.description, func() (*model.TrainTestResult, error) {
		return learner.TrainTest(ctx, model.TrainTestRequest{
			Train:             train,
			Test:              test,
			Features:          features,
			DependentVariable: e.ctx.DependentVariableName,
			Classes:           e.ctx.DependentVariableOptions,
			Params:            e.Classifier.Params,
		})
	})
	if err == nil && (result == nil || result.Predictions == nil) {
		err = errors.NewValueError("TrainTest", "learner returned no predictions")
	}
	if err != nil {
		logger.Error("Train/test failed", "error", err,
			log.TrainSamplesKey, train.Size(), log.TestSamplesKey, test.Size())
		return false
	}

	if err := validatePredictions(test, result.Predictions); err != nil {
		logger.Error("Predictions are inconsistent with the test instances", "error", err)
		return false
	}

	err = commit.Commit[*model.Predictions](job.path, result.Predictions,
		model.PredictionsCodec{Classes: e.ctx.DependentVariableOptions}, equalPredictions)
	if err != nil {
		logger.Error("Could not save predictions", "error", err)
		return false
	}
	if result.ModelDescription != "" {
		if err := commit.Commit[string](job.modelPath, result.ModelDescription, commit.TextCodec{}, commit.EqualText); err != nil {
			logger.Error("Could not save algorithm output", "error", err)
			return false
		}
	}

	logger.Debug("Saved predictions", log.PredsKey, result.Predictions.Len(), log.FeaturesKey, len(features))
	return true
}

// committed reports whether path already decodes to predictions for exactly
// the instances of test. Anything else is recomputed.
func (e *PredictionEvaluator) committed(path string, test *data.Collection, logger log.Logger) bool {
	existing, ok, err := commit.Load[*model.Predictions](path, model.PredictionsCodec{Classes: e.ctx.DependentVariableOptions})
	if !ok {
		return false
	}
	if err == nil {
		err = validatePredictions(test, existing)
	}
	if err == nil && !slices.Equal(existing.Classes(), e.ctx.DependentVariableOptions) {
		err = errors.NewValueError("PredictionEvaluator", "saved predictions have different classes")
	}
	if err != nil {
		logger.Warn("Recomputing unusable saved predictions", "error", err)
		return false
	}
	return true
}

// usableFeatures keeps, in ranked order, the selected features that both
// train and test carry. The class column is never a feature.
func usableFeatures(selected []string, dvName string, train, test *data.Collection) []string {
	out := make([]string, 0, len(selected))
	for _, f := range selected {
		if f != dvName && train.HasDataPoint(f) && test.HasDataPoint(f) {
			out = append(out, f)
		}
	}
	return out
}

// validatePredictions rejects predictions for non-test instances, missing
// test predictions and count mismatches.
func validatePredictions(test *data.Collection, preds *model.Predictions) error {
	for _, id := range preds.IDs() {
		if !test.Has(id) {
			return errors.NewLeakageError(errors.LeakageNonTestInstance, id, test.Size(), preds.Len())
		}
	}
	for _, id := range test.IDs() {
		if !preds.Has(id) {
			return errors.NewLeakageError(errors.LeakageMissingPrediction, id, test.Size(), preds.Len())
		}
	}
	if preds.Len() != test.Size() {
		return errors.NewLeakageError(errors.LeakageCountMismatch, "", test.Size(), preds.Len())
	}
	return nil
}

func equalPredictions(a, b *model.Predictions) bool { return a.Equal(b) }

// GetOuterPredictions reads the outer-fold predictions once. A fold without
// selected features yields an empty set.
func (e *PredictionEvaluator) GetOuterPredictions() (*model.Predictions, error) {
	return e.load("outer", func() (*model.Predictions, error) {
		features, err := e.features.GetOuterSelectedFeatures(e.key.NumFeatures)
		if err != nil {
			return nil, err
		}
		if len(features) == 0 {
			return e.empty(), nil
		}
		return model.LoadPredictions(e.OuterPath(), e.ctx.DependentVariableOptions)
	})
}

// GetInnerPredictions returns the union of predictions across inner folds
// with test data.
func (e *PredictionEvaluator) GetInnerPredictions() (*model.Predictions, error) {
	return e.load("inner", func() (*model.Predictions, error) {
		inner, err := e.ctx.Folds.GetInnerAssignments(e.key.OuterFold)
		if err != nil {
			return nil, err
		}
		innerFolds, err := inner.GetFoldsWithTestData(e.Processor)
		if err != nil {
			return nil, err
		}

		union := e.empty()
		for _, k := range innerFolds {
			features, err := e.features.GetInnerSelectedFeatures(k, e.key.NumFeatures)
			if err != nil {
				return nil, err
			}
			if len(features) == 0 {
				continue
			}
			p, err := model.LoadPredictions(e.InnerPath(k), e.ctx.DependentVariableOptions)
			if err != nil {
				return nil, err
			}
			union = union.Union(p)
		}
		return union, nil
	})
}

func (e *PredictionEvaluator) empty() *model.Predictions {
	return model.NewPredictions(e.ctx.DependentVariableOptions)
}

func (e *PredictionEvaluator) load(which string, read func() (*model.Predictions, error)) (*model.Predictions, error) {
	if v, ok := e.cache.Load(which); ok {
		return v.(*model.Predictions), nil
	}
	v, err, _ := e.loads.Do(which, func() (interface{}, error) {
		p, err := read()
		if err != nil {
			return nil, err
		}
		e.cache.Store(which, p)
		return p, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s predictions for %s", which, e.Description())
	}
	return v.(*model.Predictions), nil
}
