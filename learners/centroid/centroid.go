// Package centroid implements a nearest-centroid learner over standardized
// numeric features, with Fisher-score feature ranking.
package centroid

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Centroid is stateless; every call fits from scratch.
type Centroid struct{}

// New returns a nearest-centroid learner.
func New() *Centroid { return &Centroid{} }

// matrix reads features of ids into a dense matrix. Missing and non-numeric
// values become NaN.
func matrix(c *data.Collection, ids, features []string) *mat.Dense {
	X := mat.NewDense(len(ids), len(features), nil)
	for i, id := range ids {
		for j, f := range features {
			v, err := strconv.ParseFloat(c.GetValue(id, f), 64)
			if err != nil {
				v = math.NaN()
			}
			X.Set(i, j, v)
		}
	}
	return X
}

func labelled(c *data.Collection, dv string) (ids, labels []string) {
	for _, id := range c.IDs() {
		if v := c.GetValue(id, dv); !data.IsMissing(v) {
			ids = append(ids, id)
			labels = append(labels, v)
		}
	}
	return ids, labels
}

// SelectOrRankFeatures orders features by Fisher score: the spread of the
// class means over the pooled within-class variance. Ties keep natural name
// order. params[0], when set, limits the result to that many features.
func (c *Centroid) SelectOrRankFeatures(ctx context.Context, req model.RankRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Train == nil || req.Train.Size() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "rank features")
	}
	features := slices.DeleteFunc(req.Train.DataPointNames(), func(name string) bool {
		return name == req.DependentVariable
	})
	ids, labels := labelled(req.Train, req.DependentVariable)
	if len(ids) == 0 {
		return nil, errors.NewValueError("Centroid.SelectOrRankFeatures", "no training instance has a class value")
	}
	if len(features) == 0 {
		return []string{}, nil
	}

	X := matrix(req.Train, ids, features)
	scores := make([]float64, len(features))
	col := make([]float64, len(ids))
	for j := range features {
		mat.Col(col, j, X)
		scores[j] = fisherScore(col, labels)
	}

	order := make([]int, len(features))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	ranked := make([]string, len(features))
	for i, j := range order {
		ranked[i] = features[j]
	}
	if len(req.Params) > 0 {
		n, err := strconv.Atoi(strings.TrimSpace(req.Params[0]))
		if err != nil {
			return nil, errors.NewValueError("Centroid.SelectOrRankFeatures", "params[0] must be a feature count")
		}
		if n > 0 && n < len(ranked) {
			ranked = ranked[:n]
		}
	}
	return ranked, nil
}

// fisherScore ignores NaN values. A feature with no within-class variance
// scores +Inf when its class means differ and 0 otherwise.
func fisherScore(values []float64, labels []string) float64 {
	groups := make(map[string][]float64)
	var all []float64
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		groups[labels[i]] = append(groups[labels[i]], v)
		all = append(all, v)
	}
	if len(groups) < 2 {
		return 0
	}

	overall := floats.Sum(all) / float64(len(all))
	var between, within float64
	for _, g := range groups {
		mean := floats.Sum(g) / float64(len(g))
		between += float64(len(g)) * (mean - overall) * (mean - overall)
		for _, v := range g {
			within += (v - mean) * (v - mean)
		}
	}
	switch {
	case within > 0:
		return between / within
	case between > 0:
		return math.Inf(1)
	}
	return 0
}

// TrainTest standardizes the features on the training data, computes one
// centroid per class and assigns each test instance to the nearest one.
// Probabilities are a softmax over negative squared distances.
func (c *Centroid) TrainTest(ctx context.Context, req model.TrainTestRequest) (*model.TrainTestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Train == nil || req.Test == nil {
		return nil, errors.Wrap(errors.ErrEmptyData, "train/test")
	}
	for _, id := range req.Test.IDs() {
		if req.Train.Has(id) {
			return nil, errors.NewValueError("Centroid.TrainTest", "instance "+id+" is in both training and test data")
		}
	}
	features := slices.DeleteFunc(slices.Clone(req.Features), func(f string) bool { return f == req.DependentVariable })
	if len(features) == 0 {
		return nil, errors.WithStack(errors.ErrNoFeaturesSelected)
	}
	trainIDs, labels := labelled(req.Train, req.DependentVariable)
	if len(trainIDs) == 0 {
		return nil, errors.NewValueError("Centroid.TrainTest", "no training instance has a class value")
	}

	scaler := fitScaler(matrix(req.Train, trainIDs, features))
	train := scaler.transform(matrix(req.Train, trainIDs, features))

	centroids := make(map[string][]float64)
	counts := make(map[string]float64)
	row := make([]float64, len(features))
	for i, label := range labels {
		if centroids[label] == nil {
			centroids[label] = make([]float64, len(features))
		}
		mat.Row(row, i, train)
		floats.Add(centroids[label], row)
		counts[label]++
	}
	for label, sum := range centroids {
		floats.Scale(1/counts[label], sum)
	}
	if !slices.ContainsFunc(req.Classes, func(class string) bool { return centroids[class] != nil }) {
		return nil, errors.NewValueError("Centroid.TrainTest", "no training label is in the class list")
	}

	preds := model.NewPredictions(req.Classes)
	testIDs := req.Test.IDs()
	if len(testIDs) == 0 {
		return &model.TrainTestResult{Predictions: preds}, nil
	}
	test := scaler.transform(matrix(req.Test, testIDs, features))
	for i, id := range testIDs {
		mat.Row(row, i, test)
		predicted, probs := nearest(row, req.Classes, centroids)
		preds.Add(model.Prediction{
			InstanceID:    id,
			Actual:        req.Test.GetValue(id, req.DependentVariable),
			Predicted:     predicted,
			Probabilities: probs,
		})
	}

	return &model.TrainTestResult{
		ModelDescription: describe(features, req.Classes, centroids),
		Predictions:      preds,
	}, nil
}

// nearest returns the closest class, the first in class order on ties.
// Classes without a centroid get probability 0.
func nearest(row []float64, classes []string, centroids map[string][]float64) (string, []float64) {
	logits := make([]float64, len(classes))
	best, bestLogit := "", math.Inf(-1)
	for k, class := range classes {
		centre, ok := centroids[class]
		if !ok {
			logits[k] = math.Inf(-1)
			continue
		}
		d := floats.Distance(row, centre, 2)
		logits[k] = -d * d
		if logits[k] > bestLogit {
			best, bestLogit = class, logits[k]
		}
	}

	probs := make([]float64, len(classes))
	for k, l := range logits {
		probs[k] = math.Exp(l - bestLogit)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return best, probs
}

func describe(features, classes []string, centroids map[string][]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nearest centroid over %d standardized features: %s\n", len(features), strings.Join(features, ","))
	for _, class := range classes {
		centre, ok := centroids[class]
		if !ok {
			continue
		}
		parts := make([]string, len(centre))
		for i, v := range centre {
			parts[i] = strconv.FormatFloat(v, 'f', 4, 64)
		}
		fmt.Fprintf(&b, "%s\t%s\n", class, strings.Join(parts, "\t"))
	}
	return b.String()
}
