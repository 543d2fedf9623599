// Package baseline provides a seeded random learner. It ranks features and
// predicts classes at random, giving a null model to compare real learners
// against and a dependency-free learner for smoke runs and tests.
package baseline

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Random implements model.Learner.
type Random struct {
	Seed int64
}

// New returns a Random learner driven by seed.
func New(seed int64) *Random {
	return &Random{Seed: seed}
}

var _ model.Learner = (*Random)(nil)

// SelectOrRankFeatures shuffles the feature names. When params[0] is a
// positive integer only that many names are returned.
func (r *Random) SelectOrRankFeatures(ctx context.Context, req model.RankRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Train == nil || req.Train.Size() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "rank features")
	}

	features := slices.DeleteFunc(req.Train.DataPointNames(), func(name string) bool {
		return name == req.DependentVariable
	})
	rng := r.rng(req.Train.IDs())
	rng.Shuffle(len(features), func(i, j int) { features[i], features[j] = features[j], features[i] })

	if len(req.Params) > 0 {
		n, err := strconv.Atoi(strings.TrimSpace(req.Params[0]))
		if err != nil {
			return nil, errors.NewValueError("Random.SelectOrRankFeatures", "params[0] must be a feature count")
		}
		if n > 0 && n < len(features) {
			features = features[:n]
		}
	}
	return features, nil
}

// TrainTest assigns the shuffled training labels to the test instances in turn.
func (r *Random) TrainTest(ctx context.Context, req model.TrainTestRequest) (*model.TrainTestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Train == nil || req.Test == nil {
		return nil, errors.Wrap(errors.ErrEmptyData, "train/test")
	}

	trainIDs := req.Train.IDs()
	for _, id := range req.Test.IDs() {
		if req.Train.Has(id) {
			return nil, errors.NewValueError("Random.TrainTest", "instance "+id+" is in both training and test data")
		}
	}

	var labels []string
	for _, id := range trainIDs {
		if v := req.Train.GetValue(id, req.DependentVariable); !data.IsMissing(v) {
			labels = append(labels, v)
		}
	}
	if len(labels) == 0 {
		return nil, errors.NewValueError("Random.TrainTest", "no training instance has a class value")
	}

	rng := r.rng(trainIDs)
	rng.Shuffle(len(labels), func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })

	preds := model.NewPredictions(req.Classes)
	for i, id := range req.Test.IDs() {
		preds.Add(model.Prediction{
			InstanceID: id,
			Actual:     req.Test.GetValue(id, req.DependentVariable),
			Predicted:  labels[i%len(labels)],
		})
	}

	return &model.TrainTestResult{
		ModelDescription: fmt.Sprintf("Random baseline: seed %d, %d training labels, %d features ignored\n",
			r.Seed, len(labels), len(req.Features)),
		Predictions: preds,
	}, nil
}

// rng derives a generator from the seed and the training IDs, so the same
// training set always yields the same ranking and predictions.
func (r *Random) rng(ids []string) *rand.Rand {
	seed := uint64(r.Seed)
	for _, id := range ids {
		h := fnv.New64a()
		_, _ = h.Write([]byte(id))
		seed += h.Sum64()
	}
	return rand.New(rand.NewPCG(seed, seed))
}
