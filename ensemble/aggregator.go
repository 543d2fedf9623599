package ensemble

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/YuminosukeSato/nestcv/core/commit"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/core/parallel"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
	"github.com/YuminosukeSato/nestcv/selector"
)

// Aggregator runs every configured combiner for every outer fold.
type Aggregator struct {
	ctx           *experiment.Context
	selectors     []*selector.ModelSelector
	combiners     []Combiner
	evaluateInner bool
	logger        log.Logger

	group singleflight.Group
	infos sync.Map // outer fold -> map[string]*PredictionInfos
}

// NewAggregator resolves the configured combiners.
func NewAggregator(ctx *experiment.Context, selectors []*selector.ModelSelector) (*Aggregator, error) {
	combiners, err := All(ctx, ctx.Config.EnsembleAlgorithms)
	if err != nil {
		return nil, err
	}
	return &Aggregator{
		ctx:           ctx,
		selectors:     selectors,
		combiners:     combiners,
		evaluateInner: ctx.NeedToEvaluateInnerFolds(),
		logger:        ctx.Logger.With(log.ComponentKey, "ensemble"),
	}, nil
}

// Combiners returns the combiners in run order.
func (a *Aggregator) Combiners() []Combiner { return a.combiners }

// Path is where a combiner's predictions for outerFold are saved.
func (a *Aggregator) Path(combiner string, outerFold int) string {
	return a.ctx.Dir("Ensemble", "OuterFold"+strconv.Itoa(outerFold), combiner+"_Predictions.txt")
}

// Tasks returns one task per combiner for outerFold.
func (a *Aggregator) Tasks(outerFold int) []parallel.Task {
	tasks := make([]parallel.Task, 0, len(a.combiners))
	for _, c := range a.combiners {
		tasks = append(tasks, parallel.Task{
			Key:         a.Path(c.Name(), outerFold),
			Description: "Ensemble " + c.Name() + " for outer fold " + strconv.Itoa(outerFold),
			Run: func(ctx context.Context) bool {
				return a.combine(ctx, c, outerFold)
			},
		})
	}
	return tasks
}

func (a *Aggregator) combine(ctx context.Context, c Combiner, outerFold int) bool {
	path := a.Path(c.Name(), outerFold)
	logger := a.logger.With(log.EnsembleKey, c.Name(), log.OuterFoldKey, outerFold, log.PathKey, path)
	infos, err := a.instanceInfos(outerFold)
	if err != nil {
		logger.Error("Could not collect base predictions", "error", err)
		return false
	}
	if len(infos) == 0 {
		logger.Debug("No base predictions to combine")
		return true
	}
	if a.committed(path, infos, logger) {
		return true
	}

	preds, err := errors.SafeCall("ensemble "+c.Name(), func() (*model.Predictions, error) {
		return a.apply(ctx, c, infos)
	})
	if err != nil {
		logger.Error("Could not combine predictions", "error", err)
		return false
	}

	err = commit.Commit[*model.Predictions](path, preds,
		model.PredictionsCodec{Classes: a.ctx.DependentVariableOptions},
		func(x, y *model.Predictions) bool { return x.Equal(y) })
	if err != nil {
		logger.Error("Could not save ensemble predictions", "error", err)
		return false
	}
	logger.Debug("Saved ensemble predictions", log.PredsKey, preds.Len())
	return true
}

// committed reports whether path already decodes to one prediction per
// instance in infos.
func (a *Aggregator) committed(path string, infos map[string]*PredictionInfos, logger log.Logger) bool {
	existing, ok, err := commit.Load[*model.Predictions](path, model.PredictionsCodec{Classes: a.ctx.DependentVariableOptions})
	if !ok {
		return false
	}
	if err == nil && existing.Len() != len(infos) {
		err = errors.NewLeakageError(errors.LeakageCountMismatch, "", len(infos), existing.Len())
	}
	if err == nil {
		for id := range infos {
			if !existing.Has(id) {
				err = errors.NewLeakageError(errors.LeakageMissingPrediction, id, len(infos), existing.Len())
				break
			}
		}
	}
	if err != nil {
		logger.Warn("Recomputing unusable saved ensemble predictions", "error", err)
		return false
	}
	return true
}

func (a *Aggregator) apply(ctx context.Context, c Combiner, infos map[string]*PredictionInfos) (*model.Predictions, error) {
	if b, ok := c.(BatchCombiner); ok {
		return b.CombineAll(ctx, infos)
	}
	preds := model.NewPredictions(a.ctx.DependentVariableOptions)
	for id, votes := range infos {
		p, err := c.Combine(id, votes)
		if err != nil {
			return nil, err
		}
		preds.Add(p)
	}
	return preds, nil
}

func (a *Aggregator) instanceInfos(outerFold int) (map[string]*PredictionInfos, error) {
	if v, ok := a.infos.Load(outerFold); ok {
		return v.(map[string]*PredictionInfos), nil
	}
	v, err, _ := a.group.Do(strconv.Itoa(outerFold), func() (interface{}, error) {
		infos, err := GetInstanceEnsemblePredictionInfos(a.ctx, outerFold, a.selectors, a.evaluateInner)
		if err != nil {
			return nil, err
		}
		a.infos.Store(outerFold, infos)
		return infos, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]*PredictionInfos), nil
}

// GetEnsemblePredictions reads a combiner's saved predictions for outerFold.
func (a *Aggregator) GetEnsemblePredictions(combiner string, outerFold int) (*model.Predictions, error) {
	return model.LoadPredictions(a.Path(combiner, outerFold), a.ctx.DependentVariableOptions)
}

// GetEnsemblePredictionsAllFolds unions a combiner's saved predictions.
func (a *Aggregator) GetEnsemblePredictionsAllFolds(combiner string) (*model.Predictions, error) {
	union := model.NewPredictions(a.ctx.DependentVariableOptions)
	for _, fold := range a.ctx.Folds.GetAllFoldNumbers() {
		p, err := a.GetEnsemblePredictions(combiner, fold)
		if err != nil {
			return nil, err
		}
		union = union.Union(p)
	}
	return union, nil
}
