package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/YuminosukeSato/nestcv/core/commit"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/core/parallel"
	"github.com/YuminosukeSato/nestcv/ensemble"
	"github.com/YuminosukeSato/nestcv/metrics"
	"github.com/YuminosukeSato/nestcv/pkg/log"
	"github.com/YuminosukeSato/nestcv/selector"
)

// SummaryFileName is written to each iteration directory.
const SummaryFileName = "Summary.txt"

// Report is the outcome of Run.
type Report struct {
	Iterations []IterationReport
	Tasks      parallel.Summary
}

// OK reports whether every task of every iteration succeeded.
func (r *Report) OK() bool { return r.Tasks.OK() }

// IterationReport summarises one iteration.
type IterationReport struct {
	Iteration int
	Seed      int64
	Tasks     parallel.Summary
	Selectors []Result
	Ensembles []Result
}

// Result scores one model or combiner over all outer folds. Scores are NaN
// when there were no predictions.
type Result struct {
	Description string
	// NumFeatures is the feature count with the best mean outer-fold score,
	// zero for combiners.
	NumFeatures int
	WeightedAUC float64
	Accuracy    float64
	Predictions int
}

func score(description string, numFeatures int, p *model.Predictions, logger log.Logger) Result {
	r := Result{Description: description, NumFeatures: numFeatures, WeightedAUC: math.NaN(), Accuracy: math.NaN()}
	if p == nil || p.Len() == 0 {
		logger.Warn("No predictions to score", "model", description)
		return r
	}
	r.Predictions = p.Len()
	if auc, err := metrics.WeightedAUC(p); err == nil {
		r.WeightedAUC = auc
	} else {
		logger.Warn("Could not compute weighted AUC", "error", err, "model", description)
	}
	if acc, err := metrics.PredictionAccuracy(p); err == nil {
		r.Accuracy = acc
	}
	return r
}

// selectorResults scores the selectors concurrently; each slot is written by
// exactly one goroutine.
func selectorResults(ctx context.Context, selectors []*selector.ModelSelector, workers int, logger log.Logger) []Result {
	out := make([]Result, len(selectors))
	_ = parallel.ChunksWithThreshold(ctx, len(selectors), 4, workers, func(_ context.Context, start, end int) error {
		for i := start; i < end; i++ {
			s := selectors[i]
			n, err := s.GetBestNumFeaturesAcrossOuterFolds()
			if err != nil {
				logger.Warn("Could not choose a feature count across outer folds", "error", err, "model", s.Description())
			}
			p, err := s.GetBestOuterPredictionsAllFolds()
			if err != nil {
				logger.Warn("Could not read best outer predictions", "error", err, "model", s.Description())
			}
			out[i] = score(s.Description(), n, p, logger)
		}
		return nil
	})
	return out
}

func ensembleResults(agg *ensemble.Aggregator, logger log.Logger) []Result {
	var out []Result
	for _, c := range agg.Combiners() {
		p, err := agg.GetEnsemblePredictionsAllFolds(c.Name())
		if err != nil {
			logger.Warn("Could not read ensemble predictions", "error", err, log.EnsembleKey, c.Name())
		}
		out = append(out, score("Ensemble_"+c.Name(), 0, p, logger))
	}
	return out
}

// Format renders the report as a tab-delimited table.
func (it *IterationReport) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Iteration %d, random seed %d\n", it.Iteration, it.Seed)
	fmt.Fprintf(&b, "# Tasks: %d done, %d skipped, %d failed\n", it.Tasks.Done, it.Tasks.Skipped, it.Tasks.Failed)
	b.WriteString("Model\tNumFeatures\tWeightedAUC\tAccuracy\tPredictions\n")
	for _, r := range append(append([]Result(nil), it.Selectors...), it.Ensembles...) {
		features := "NA"
		if r.NumFeatures > 0 {
			features = fmt.Sprint(r.NumFeatures)
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\n", r.Description, features,
			formatScore(r.WeightedAUC), formatScore(r.Accuracy), r.Predictions)
	}
	return b.String()
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return decimal.NewFromFloat(v).StringFixed(3)
}

func (it *IterationReport) save(path string) error {
	return commit.Commit[string](path, it.Format(), commit.TextCodec{}, commit.EqualText)
}
