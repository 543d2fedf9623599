package selector

import (
	"github.com/YuminosukeSato/nestcv/evaluator"
	"github.com/YuminosukeSato/nestcv/experiment"
)

// Enumerate builds one selector per (processor, fs, classifier) triple for
// processors with any test data, each holding an evaluator for every outer
// fold with test data and every feature-count option.
func Enumerate(ctx *experiment.Context) ([]*ModelSelector, error) {
	var selectors []*ModelSelector
	for _, proc := range ctx.Processors {
		hasTest, err := ctx.Folds.HasAnyTestData(proc)
		if err != nil {
			return nil, err
		}
		if !hasTest {
			ctx.Logger.Warn("Processor has no test data in any fold", "processor", proc.Name)
			continue
		}
		folds, err := ctx.Folds.GetFoldsWithTestData(proc)
		if err != nil {
			return nil, err
		}

		for _, fs := range ctx.FeatureSelection {
			for _, clf := range ctx.Classification {
				var evaluators []*evaluator.PredictionEvaluator
				for _, fold := range folds {
					for _, n := range ctx.NumFeaturesOptions(proc, fs) {
						evaluators = append(evaluators, evaluator.NewPredictionEvaluator(ctx, proc, fs, clf, n, fold))
					}
				}
				s := New(ctx, proc, fs, clf, evaluators)
				if !contains(selectors, s) {
					selectors = append(selectors, s)
				}
			}
		}
	}
	return selectors, nil
}

func contains(selectors []*ModelSelector, s *ModelSelector) bool {
	for _, o := range selectors {
		if o.Equal(s) {
			return true
		}
	}
	return false
}
