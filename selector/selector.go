// Package selector chooses, per outer fold, the feature count whose inner-fold
// predictions scored best, and exposes the predictions of that choice.
package selector

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/evaluator"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

// ModelSelector covers one (processor, feature selection, classifier) triple.
type ModelSelector struct {
	ctx        *experiment.Context
	Processor  *experiment.Processor
	FS         model.FeatureSelectionAlgorithm
	Classifier model.ClassificationAlgorithm

	options    []int
	evaluators map[int]map[int]*evaluator.PredictionEvaluator // outer fold -> feature count
	logger     log.Logger

	bestInner sync.Map // outer fold -> int
	group     singleflight.Group
}

// New groups evaluators that share the selector's triple.
func New(ctx *experiment.Context, proc *experiment.Processor, fs model.FeatureSelectionAlgorithm,
	clf model.ClassificationAlgorithm, evaluators []*evaluator.PredictionEvaluator) *ModelSelector {
	s := &ModelSelector{
		ctx:        ctx,
		Processor:  proc,
		FS:         fs,
		Classifier: clf,
		options:    ctx.NumFeaturesOptions(proc, fs),
		evaluators: make(map[int]map[int]*evaluator.PredictionEvaluator),
	}
	for _, e := range evaluators {
		k := e.Key()
		if s.evaluators[k.OuterFold] == nil {
			s.evaluators[k.OuterFold] = make(map[int]*evaluator.PredictionEvaluator)
		}
		s.evaluators[k.OuterFold][k.NumFeatures] = e
	}
	s.logger = ctx.Logger.With(log.ComponentKey, "selector", "selector", s.Description())
	return s
}

// NumFeaturesOptions returns the candidate feature counts in ascending order.
func (s *ModelSelector) NumFeaturesOptions() []int {
	return append([]int(nil), s.options...)
}

// Evaluators returns every evaluator of this selector.
func (s *ModelSelector) Evaluators() []*evaluator.PredictionEvaluator {
	var out []*evaluator.PredictionEvaluator
	for _, fold := range s.ctx.Folds.GetAllFoldNumbers() {
		for _, n := range s.options {
			if e, ok := s.evaluators[fold][n]; ok {
				out = append(out, e)
			}
		}
	}
	return out
}

func (s *ModelSelector) evaluator(numFeatures, outerFold int) *evaluator.PredictionEvaluator {
	return s.evaluators[outerFold][numFeatures]
}

// Description is proc_fs_clf, or proc_clf when no feature selection is needed.
func (s *ModelSelector) Description() string {
	parts := []string{s.Processor.Name, s.Classifier.Key}
	if evaluator.NewFeatureSelectionEvaluator(s.ctx, s.Processor, s.FS, 1).NeedToSelectFeatures() {
		parts = []string{s.Processor.Name, s.FS.Key, s.Classifier.Key}
	}
	return strings.Join(parts, "_")
}

// Equal compares the triple.
func (s *ModelSelector) Equal(o *ModelSelector) bool {
	return s.Processor.Name == o.Processor.Name && s.FS.Equal(o.FS) && s.Classifier.Equal(o.Classifier)
}

// GetBestNumFeaturesAcrossInnerFolds scores the inner predictions of each
// option and returns the strictly highest; the smallest option wins ties.
// Options without an evaluator, without inner predictions or whose scoring
// fails are skipped, and when nothing has a score the first option is
// returned.
func (s *ModelSelector) GetBestNumFeaturesAcrossInnerFolds(outerFold int) (int, error) {
	if len(s.options) == 1 {
		return s.options[0], nil
	}
	if v, ok := s.bestInner.Load(outerFold); ok {
		return v.(int), nil
	}

	v, err, _ := s.group.Do("inner/"+strconv.Itoa(outerFold), func() (interface{}, error) {
		if v, ok := s.bestInner.Load(outerFold); ok {
			return v, nil
		}
		best, err := s.pick(func(n int) (float64, bool, error) {
			e := s.evaluator(n, outerFold)
			if e == nil {
				return 0, false, nil
			}
			p, err := e.GetInnerPredictions()
			if err != nil || p.Len() == 0 {
				return 0, false, err
			}
			score, err := s.ctx.Scorer.Score(p)
			return score, err == nil, err
		})
		if err != nil {
			return nil, err
		}
		s.logger.Debug("Chose feature count from inner folds", log.OuterFoldKey, outerFold, log.NumFeaturesKey, best)
		s.bestInner.Store(outerFold, best)
		return best, nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "best feature count for %s, outer fold %d", s.Description(), outerFold)
	}
	return v.(int), nil
}

// GetBestNumFeaturesAcrossOuterFolds picks the option with the highest mean
// outer-fold score. It is for reporting only and never feeds back into
// model selection.
func (s *ModelSelector) GetBestNumFeaturesAcrossOuterFolds() (int, error) {
	if len(s.options) == 1 {
		return s.options[0], nil
	}
	v, err, _ := s.group.Do("outer", func() (interface{}, error) {
		return s.pick(func(n int) (float64, bool, error) {
			var scores []float64
			for _, fold := range s.ctx.Folds.GetAllFoldNumbers() {
				e := s.evaluator(n, fold)
				if e == nil {
					continue
				}
				p, err := e.GetOuterPredictions()
				if err != nil {
					return 0, false, err
				}
				if p.Len() == 0 {
					continue
				}
				score, err := s.ctx.Scorer.Score(p)
				if err != nil {
					return 0, false, err
				}
				scores = append(scores, score)
			}
			if len(scores) == 0 {
				return 0, false, nil
			}
			return floats.Sum(scores) / float64(len(scores)), true, nil
		})
	})
	if err != nil {
		return 0, errors.Wrapf(err, "best feature count across outer folds for %s", s.Description())
	}
	return v.(int), nil
}

// pick skips options that fail to score. It errors only when every option
// failed.
func (s *ModelSelector) pick(score func(numFeatures int) (float64, bool, error)) (int, error) {
	best, bestScore := s.options[0], math.Inf(-1)
	var lastErr error
	failed := 0
	for _, n := range s.options {
		v, ok, err := score(n)
		if err != nil {
			s.logger.Warn("Could not score feature-count option", "error", err, log.NumFeaturesKey, n)
			lastErr = err
			failed++
			continue
		}
		if ok && v > bestScore {
			best, bestScore = n, v
		}
	}
	if failed == len(s.options) {
		return 0, errors.Wrapf(lastErr, "none of %d feature-count options could be scored", failed)
	}
	return best, nil
}

// GetInnerPredictions returns the inner predictions for (numFeatures, outerFold),
// or an empty set when there is no such evaluator.
func (s *ModelSelector) GetInnerPredictions(numFeatures, outerFold int) (*model.Predictions, error) {
	e := s.evaluator(numFeatures, outerFold)
	if e == nil {
		return s.empty(), nil
	}
	return e.GetInnerPredictions()
}

// GetOuterPredictions returns the outer predictions for (numFeatures, outerFold).
func (s *ModelSelector) GetOuterPredictions(numFeatures, outerFold int) (*model.Predictions, error) {
	e := s.evaluator(numFeatures, outerFold)
	if e == nil {
		return s.empty(), nil
	}
	return e.GetOuterPredictions()
}

// GetBestInnerPredictions uses the feature count chosen for outerFold.
func (s *ModelSelector) GetBestInnerPredictions(outerFold int) (*model.Predictions, error) {
	n, err := s.GetBestNumFeaturesAcrossInnerFolds(outerFold)
	if err != nil {
		return nil, err
	}
	return s.GetInnerPredictions(n, outerFold)
}

// GetBestOuterPredictions uses the feature count chosen for outerFold.
func (s *ModelSelector) GetBestOuterPredictions(outerFold int) (*model.Predictions, error) {
	n, err := s.GetBestNumFeaturesAcrossInnerFolds(outerFold)
	if err != nil {
		return nil, err
	}
	return s.GetOuterPredictions(n, outerFold)
}

// GetOuterPredictionsAllFolds unions the outer predictions of one feature count.
func (s *ModelSelector) GetOuterPredictionsAllFolds(numFeatures int) (*model.Predictions, error) {
	union := s.empty()
	for _, fold := range s.ctx.Folds.GetAllFoldNumbers() {
		p, err := s.GetOuterPredictions(numFeatures, fold)
		if err != nil {
			return nil, err
		}
		union = union.Union(p)
	}
	return union, nil
}

// GetBestOuterPredictionsAllFolds unions the best outer predictions over
// folds with test data for this processor.
func (s *ModelSelector) GetBestOuterPredictionsAllFolds() (*model.Predictions, error) {
	folds, err := s.ctx.Folds.GetFoldsWithTestData(s.Processor)
	if err != nil {
		return nil, err
	}
	union := s.empty()
	for _, fold := range folds {
		p, err := s.GetBestOuterPredictions(fold)
		if err != nil {
			return nil, err
		}
		union = union.Union(p)
	}
	return union, nil
}

// GetBestOuterPrediction returns the best outer prediction for one instance.
func (s *ModelSelector) GetBestOuterPrediction(instanceID string) (model.Prediction, bool, error) {
	fold, err := s.ctx.Folds.GetFoldNumber(instanceID)
	if err != nil {
		return model.Prediction{}, false, err
	}
	p, err := s.GetBestOuterPredictions(fold)
	if err != nil {
		return model.Prediction{}, false, err
	}
	pred, ok := p.Get(instanceID)
	return pred, ok, nil
}

func (s *ModelSelector) empty() *model.Predictions {
	return model.NewPredictions(s.ctx.DependentVariableOptions)
}

func (s *ModelSelector) String() string { return s.Description() }
