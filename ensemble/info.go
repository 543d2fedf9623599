// Package ensemble combines the best outer-fold prediction of every model
// selector into one prediction per instance.
package ensemble

import (
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
	"github.com/YuminosukeSato/nestcv/selector"
)

// defaultWeight is used for a base model without inner predictions.
const defaultWeight = 0.5

// PredictionInfo is one base model's vote for one instance.
type PredictionInfo struct {
	OuterPrediction  model.Prediction
	InnerPredictions *model.Predictions
	Description      string

	weight    float64
	hasWeight bool
}

// GetWeight returns the weighted AUC of the inner predictions, or 0.5 when
// there are none.
func (i *PredictionInfo) GetWeight(scorer model.Scorer) (float64, error) {
	if i.hasWeight {
		return i.weight, nil
	}
	if i.InnerPredictions == nil || i.InnerPredictions.Len() == 0 {
		return defaultWeight, nil
	}
	w, err := scorer.Score(i.InnerPredictions)
	if err != nil {
		return 0, errors.Wrapf(err, "weight of %s", i.Description)
	}
	return w, nil
}

// Equal compares descriptions.
func (i *PredictionInfo) Equal(o *PredictionInfo) bool {
	return i.Description == o.Description
}

// PredictionInfos collects the votes for one instance, one per description.
type PredictionInfos struct {
	Infos []*PredictionInfo
}

// Add appends info unless an info with the same description is present.
func (p *PredictionInfos) Add(info *PredictionInfo) {
	for _, o := range p.Infos {
		if o.Equal(info) {
			return
		}
	}
	p.Infos = append(p.Infos, info)
}

// Len returns the number of votes.
func (p *PredictionInfos) Len() int { return len(p.Infos) }

// Predictions returns the outer predictions in insertion order.
func (p *PredictionInfos) Predictions() []model.Prediction {
	out := make([]model.Prediction, len(p.Infos))
	for i, info := range p.Infos {
		out[i] = info.OuterPrediction
	}
	return out
}

// Weights returns the weight of each info in insertion order.
func (p *PredictionInfos) Weights(scorer model.Scorer) ([]float64, error) {
	out := make([]float64, len(p.Infos))
	for i, info := range p.Infos {
		w, err := info.GetWeight(scorer)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

// ClassOptions returns the distinct predicted classes in first-seen order.
func (p *PredictionInfos) ClassOptions() []string {
	var out []string
	seen := make(map[string]bool)
	for _, info := range p.Infos {
		c := info.OuterPrediction.Predicted
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// GetInstanceEnsemblePredictionInfos gathers, for every test instance of
// outerFold, one PredictionInfo per selector. Without inner evaluation each
// selector contributes the outer predictions of its first feature count.
// Otherwise it contributes its best inner and outer predictions and is
// skipped when either set is empty. Each selector's weight is scored once.
func GetInstanceEnsemblePredictionInfos(ctx *experiment.Context, outerFold int,
	selectors []*selector.ModelSelector, evaluateInner bool) (map[string]*PredictionInfos, error) {
	testIDs, err := ctx.Folds.GetTestIDs(outerFold)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*PredictionInfos, len(testIDs))
	for _, s := range selectors {
		var outer, inner *model.Predictions
		if evaluateInner {
			if inner, err = s.GetBestInnerPredictions(outerFold); err != nil {
				return nil, err
			}
			if outer, err = s.GetBestOuterPredictions(outerFold); err != nil {
				return nil, err
			}
			if inner.Len() == 0 || outer.Len() == 0 {
				ctx.Logger.Debug("Selector has no predictions to ensemble", "selector", s.Description(), log.OuterFoldKey, outerFold)
				continue
			}
		} else {
			if outer, err = s.GetOuterPredictions(s.NumFeaturesOptions()[0], outerFold); err != nil {
				return nil, err
			}
			inner = model.NewPredictions(ctx.DependentVariableOptions)
		}

		weight := defaultWeight
		if inner.Len() > 0 {
			if weight, err = ctx.Scorer.Score(inner); err != nil {
				return nil, errors.Wrapf(err, "weight of %s", s.Description())
			}
		}

		for _, id := range testIDs {
			pred, ok := outer.Get(id)
			if !ok {
				continue
			}
			if out[id] == nil {
				out[id] = &PredictionInfos{}
			}
			out[id].Add(&PredictionInfo{
				OuterPrediction:  pred,
				InnerPredictions: inner,
				Description:      s.Description(),
				weight:           weight,
				hasWeight:        true,
			})
		}
	}
	return out, nil
}
