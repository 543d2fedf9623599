package ensemble

import (
	"context"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// stacked trains a second-level classifier whose features are the class
// probabilities of the base models: inner-fold predictions form the training
// set and outer-fold predictions the test set.
type stacked struct {
	voter
	dvName    string
	algorithm model.ClassificationAlgorithm
	learner   model.Learner
}

func newStacked(ctx *experiment.Context, v voter) (*stacked, error) {
	algorithm, ok := ctx.Config.Stacking()
	if !ok {
		return nil, errors.NewConfigurationError("stacking_algorithm", "no classification algorithm to stack with")
	}
	learner, err := ctx.Learners.Lookup(algorithm.LearnerKey)
	if err != nil {
		return nil, err
	}
	return &stacked{voter: v, dvName: ctx.DependentVariableName, algorithm: algorithm, learner: learner}, nil
}

func (*stacked) Name() string { return Stacked }

// Combine stacks a single instance.
func (s *stacked) Combine(id string, infos *PredictionInfos) (model.Prediction, error) {
	preds, err := s.CombineAll(context.Background(), map[string]*PredictionInfos{id: infos})
	if err != nil {
		return model.Prediction{}, err
	}
	p, ok := preds.Get(id)
	if !ok {
		return model.Prediction{}, noVotes(id)
	}
	return p, nil
}

func (s *stacked) featureName(description, class string) string {
	return stackingName(description + "_" + class)
}

func (s *stacked) CombineAll(ctx context.Context, infos map[string]*PredictionInfos) (*model.Predictions, error) {
	train := data.NewCollection()
	test := data.NewCollection()
	features := make(map[string]bool)

	ids := make([]string, 0, len(infos))
	for id := range infos {
		ids = append(ids, id)
	}
	data.SortNatural(ids)

	// Each base model contributes its inner predictions once.
	seen := make(map[string]bool)
	for _, id := range ids {
		for _, info := range infos[id].Infos {
			if seen[info.Description] || info.InnerPredictions == nil {
				continue
			}
			seen[info.Description] = true
			for _, p := range info.InnerPredictions.All() {
				for k, class := range s.classes {
					name := s.featureName(info.Description, class)
					features[name] = true
					train.Add(name, p.InstanceID, formatProbability(p.Probabilities, k))
				}
				train.Add(s.dvName, p.InstanceID, s.actual(p.InstanceID))
			}
		}
	}

	for _, id := range ids {
		for _, info := range infos[id].Infos {
			for k, class := range s.classes {
				test.Add(s.featureName(info.Description, class), id, formatProbability(info.OuterPrediction.Probabilities, k))
			}
		}
		test.Add(s.dvName, id, s.actual(id))
	}

	if train.Size() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "stacking needs inner-fold predictions")
	}
	if test.Size() == 0 {
		return model.NewPredictions(s.classes), nil
	}

	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	result, err := errors.SafeCall("stacked train/test", func() (*model.TrainTestResult, error) {
		return s.learner.TrainTest(ctx, model.TrainTestRequest{
			Train:             train,
			Test:              test,
			Features:          names,
			DependentVariable: s.dvName,
			Classes:           s.classes,
			Params:            s.algorithm.Params,
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "stack with %s", s.algorithm.Key)
	}
	if result == nil || result.Predictions == nil {
		return nil, errors.NewValueError(Stacked, "learner returned no predictions")
	}
	for _, id := range ids {
		if !result.Predictions.Has(id) {
			return nil, errors.NewLeakageError(errors.LeakageMissingPrediction, id, len(ids), result.Predictions.Len())
		}
	}
	return result.Predictions, nil
}

func formatProbability(probs []float64, k int) string {
	if k >= len(probs) {
		return data.MissingValue
	}
	return strconv.FormatFloat(probs[k], 'f', -1, 64)
}
