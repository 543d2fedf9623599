package ensemble

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Combiner names, in the order they run by default.
const (
	MajorityVote            = "MajorityVote"
	WeightedVote            = "WeightedVote"
	SelectBest              = "SelectBest"
	MaxProbability          = "MaxProbability"
	MeanProbability         = "MeanProbability"
	WeightedMeanProbability = "WeightedMeanProbability"
	Stacked                 = "Stacked"
)

// Names lists every combiner.
var Names = []string{
	MajorityVote, WeightedVote, SelectBest, MaxProbability,
	MeanProbability, WeightedMeanProbability, Stacked,
}

// Combiner merges the votes of one instance into a single prediction.
type Combiner interface {
	Name() string
	Combine(id string, infos *PredictionInfos) (model.Prediction, error)
}

// BatchCombiner is a Combiner that needs every instance of the fold at once.
type BatchCombiner interface {
	Combiner
	CombineAll(ctx context.Context, infos map[string]*PredictionInfos) (*model.Predictions, error)
}

// ByName returns the combiner registered under name.
func ByName(ctx *experiment.Context, name string) (Combiner, error) {
	b := voter{classes: ctx.DependentVariableOptions, actual: ctx.Actual, seed: ctx.Seed, scorer: ctx.Scorer}
	switch name {
	case MajorityVote:
		return majorityVote{b}, nil
	case WeightedVote:
		return weightedVote{b}, nil
	case SelectBest:
		return selectBest{b}, nil
	case MaxProbability:
		return maxProbability{b}, nil
	case MeanProbability:
		return meanProbability{voter: b}, nil
	case WeightedMeanProbability:
		return meanProbability{voter: b, weighted: true}, nil
	case Stacked:
		return newStacked(ctx, b)
	}
	return nil, errors.NewConfigurationError("ensemble_algorithms", "unknown combiner "+name)
}

// All resolves names, or every combiner when names is empty.
func All(ctx *experiment.Context, names []string) ([]Combiner, error) {
	if len(names) == 0 {
		names = Names
	}
	out := make([]Combiner, 0, len(names))
	for _, name := range names {
		c, err := ByName(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type voter struct {
	classes []string
	actual  func(id string) string
	seed    int64
	scorer  model.Scorer
}

// rng is seeded from the experiment seed and the instance ID so ties resolve
// the same way on every worker.
func (v voter) rng(id string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(id))
	return rand.New(rand.NewPCG(uint64(v.seed), h.Sum64()))
}

// choose returns the class with the highest score, breaking ties at random.
func (v voter) choose(id string, scores []float64) string {
	best := floats.Max(scores)
	var tied []int
	for i, s := range scores {
		if scalar.EqualWithinAbsOrRel(s, best, 1e-12, 1e-12) {
			tied = append(tied, i)
		}
	}
	if len(tied) == 1 {
		return v.classes[tied[0]]
	}
	return v.classes[tied[v.rng(id).IntN(len(tied))]]
}

func (v voter) prediction(id, predicted string, scores []float64) model.Prediction {
	probs := make([]float64, len(scores))
	copy(probs, scores)
	if total := floats.Sum(probs); total > 0 {
		floats.Scale(1/total, probs)
	} else {
		probs = model.DefaultProbabilities(v.classes, predicted)
	}
	return model.Prediction{InstanceID: id, Actual: v.actual(id), Predicted: predicted, Probabilities: probs}
}

func (v voter) classIndex(class string) int {
	for i, c := range v.classes {
		if c == class {
			return i
		}
	}
	return -1
}

func noVotes(id string) error {
	return errors.NewValueError("ensemble", "no votes were cast for "+id)
}

type majorityVote struct{ voter }

func (majorityVote) Name() string { return MajorityVote }

// Combine returns the single vote or the unanimous one as is. Otherwise the
// probabilities are the vote shares.
func (c majorityVote) Combine(id string, infos *PredictionInfos) (model.Prediction, error) {
	if infos.Len() == 0 {
		return model.Prediction{}, noVotes(id)
	}
	if len(infos.ClassOptions()) == 1 {
		return infos.Infos[0].OuterPrediction, nil
	}
	counts := make([]float64, len(c.classes))
	for _, p := range infos.Predictions() {
		if i := c.classIndex(p.Predicted); i >= 0 {
			counts[i]++
		}
	}
	return c.prediction(id, c.choose(id, counts), counts), nil
}

type weightedVote struct{ voter }

func (weightedVote) Name() string { return WeightedVote }

// Combine sums the weights of the models voting for each class.
func (c weightedVote) Combine(id string, infos *PredictionInfos) (model.Prediction, error) {
	if infos.Len() == 0 {
		return model.Prediction{}, noVotes(id)
	}
	weights, err := infos.Weights(c.scorer)
	if err != nil {
		return model.Prediction{}, err
	}
	sums := make([]float64, len(c.classes))
	for i, p := range infos.Predictions() {
		if k := c.classIndex(p.Predicted); k >= 0 {
			sums[k] += weights[i]
		}
	}
	return c.prediction(id, c.choose(id, sums), sums), nil
}

type selectBest struct{ voter }

func (selectBest) Name() string { return SelectBest }

// Combine returns the vote of the heaviest model; the first one wins ties.
func (c selectBest) Combine(id string, infos *PredictionInfos) (model.Prediction, error) {
	if infos.Len() == 0 {
		return model.Prediction{}, noVotes(id)
	}
	weights, err := infos.Weights(c.scorer)
	if err != nil {
		return model.Prediction{}, err
	}
	best := 0
	for i, w := range weights {
		if w > weights[best] {
			best = i
		}
	}
	return infos.Infos[best].OuterPrediction, nil
}

type maxProbability struct{ voter }

func (maxProbability) Name() string { return MaxProbability }

// Combine returns the vote holding the single highest class probability.
func (c maxProbability) Combine(id string, infos *PredictionInfos) (model.Prediction, error) {
	if infos.Len() == 0 {
		return model.Prediction{}, noVotes(id)
	}
	preds := infos.Predictions()
	peaks := make([]float64, len(preds))
	for i, p := range preds {
		if len(p.Probabilities) == 0 {
			return model.Prediction{}, errors.NewValueError("ensemble", "a vote for "+id+" has no probabilities")
		}
		peaks[i] = floats.Max(p.Probabilities)
	}
	best := floats.Max(peaks)
	var tied []int
	for i, peak := range peaks {
		if scalar.EqualWithinAbsOrRel(peak, best, 1e-12, 1e-12) {
			tied = append(tied, i)
		}
	}
	if len(tied) == 1 {
		return preds[tied[0]], nil
	}
	return preds[tied[c.rng(id).IntN(len(tied))]], nil
}

type meanProbability struct {
	voter
	weighted bool
}

func (c meanProbability) Name() string {
	if c.weighted {
		return WeightedMeanProbability
	}
	return MeanProbability
}

// Combine sums the probability vectors, scaled by model weight when
// weighted, and normalises the result.
func (c meanProbability) Combine(id string, infos *PredictionInfos) (model.Prediction, error) {
	if infos.Len() == 0 {
		return model.Prediction{}, noVotes(id)
	}
	weights := make([]float64, infos.Len())
	if c.weighted {
		var err error
		if weights, err = infos.Weights(c.scorer); err != nil {
			return model.Prediction{}, err
		}
	} else {
		for i := range weights {
			weights[i] = 1
		}
	}

	sums := make([]float64, len(c.classes))
	for i, p := range infos.Predictions() {
		if len(p.Probabilities) != len(sums) {
			return model.Prediction{}, errors.NewValueError(c.Name(),
				"probabilities of "+infos.Infos[i].Description+" do not match the class list")
		}
		floats.AddScaled(sums, weights[i], p.Probabilities)
	}
	return c.prediction(id, c.choose(id, sums), sums), nil
}

// stackingName makes a description safe to use as a data point name.
func stackingName(name string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(name)
}

// Validate reports an unknown combiner name as a ConfigurationError.
func Validate(names []string) error {
	for _, name := range names {
		known := false
		for _, n := range Names {
			known = known || n == name
		}
		if !known {
			return errors.NewConfigurationError("ensemble_algorithms", "unknown combiner "+name)
		}
	}
	return nil
}
