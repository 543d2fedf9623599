package selector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/core/model/mocks"
	"github.com/YuminosukeSato/nestcv/evaluator"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/learners/baseline"
	"github.com/YuminosukeSato/nestcv/metrics"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

// newContext builds a 12-instance, 6-feature context with three outer and
// two inner folds, one random ranker and one random classifier.
func newContext(t *testing.T, scorer model.Scorer, fs string, counts ...int) *experiment.Context {
	t.Helper()
	cfg := config.New()
	cfg.OutputDir = t.TempDir()
	cfg.OuterFolds = 3
	cfg.InnerFolds = 2
	cfg.FeatureCounts = counts
	cfg.FeatureSelectionAlgorithms = []config.AlgorithmConfig{{Key: fs, Learner: "rand"}}
	cfg.ClassificationAlgorithms = []config.AlgorithmConfig{{Key: "clf", Learner: "rand"}}

	ds := experiment.SyntheticDataset(12, 6, "A", "B")
	logger, _ := log.NewTestLogger(log.LevelInfo)
	ctx, err := experiment.NewContext(cfg, 1, 5, ds.DependentVariable, ds.DependentVariableName,
		ds.Processors, model.LearnerRegistry{"rand": baseline.New(3)}, scorer, logger)
	require.NoError(t, err)
	return ctx
}

// evaluate enumerates the selectors and runs every feature selection and
// prediction task they need.
func evaluate(t *testing.T, ctx *experiment.Context) []*ModelSelector {
	t.Helper()
	selectors, err := Enumerate(ctx)
	require.NoError(t, err)

	for _, s := range selectors {
		for _, fold := range ctx.Folds.GetAllFoldNumbers() {
			tasks, err := evaluator.NewFeatureSelectionEvaluator(ctx, s.Processor, s.FS, fold).Tasks(true)
			require.NoError(t, err)
			for _, task := range tasks {
				require.True(t, task.Run(context.Background()), task.Key)
			}
		}
	}
	for _, s := range selectors {
		for _, e := range s.Evaluators() {
			tasks, err := e.Tasks(ctx.NeedToEvaluateInnerFolds())
			require.NoError(t, err)
			for _, task := range tasks {
				require.True(t, task.Run(context.Background()), task.Key)
			}
		}
	}
	return selectors
}

func TestEnumerate(t *testing.T) {
	ctx := newContext(t, metrics.WeightedAUCScorer{}, "ranker", 2, 4, 6)
	selectors, err := Enumerate(ctx)
	require.NoError(t, err)
	require.Len(t, selectors, 1)

	s := selectors[0]
	assert.Equal(t, "synthetic_ranker_clf", s.Description())
	assert.Equal(t, []int{2, 4, 6}, s.NumFeaturesOptions())
	assert.Len(t, s.Evaluators(), 9, "three folds by three feature counts")
	assert.True(t, s.Equal(New(ctx, s.Processor, s.FS, s.Classifier, nil)))
}

func TestDescriptionWithoutFeatureSelection(t *testing.T) {
	ctx := newContext(t, metrics.WeightedAUCScorer{}, model.NoFeatureSelection)
	selectors, err := Enumerate(ctx)
	require.NoError(t, err)
	require.Len(t, selectors, 1)
	assert.Equal(t, "synthetic_clf", selectors[0].Description())
	assert.Equal(t, []int{6}, selectors[0].NumFeaturesOptions())
}

func TestBestNumFeaturesAcrossInnerFolds(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   int
	}{
		{"strict maximum", []float64{0.7, 0.9, 0.8}, 4},
		{"ties go to the smallest count", []float64{0.8, 0.8, 0.8}, 2},
		{"later improvement", []float64{0.5, 0.6, 0.95}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			scorer := mocks.NewMockScorer(ctrl)
			ctx := newContext(t, scorer, "ranker", 2, 4, 6)
			s := evaluate(t, ctx)[0]

			calls := make([]any, 0, len(tt.scores))
			for _, v := range tt.scores {
				calls = append(calls, scorer.EXPECT().Score(gomock.Any()).Return(v, nil).Times(1))
			}
			gomock.InOrder(calls...)

			got, err := s.GetBestNumFeaturesAcrossInnerFolds(1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// The choice is cached per outer fold.
			again, err := s.GetBestNumFeaturesAcrossInnerFolds(1)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestBestNumFeaturesSkipsScoringFailures(t *testing.T) {
	failure := errors.New("scorer failed")
	tests := []struct {
		name    string
		errs    []error
		scores  []float64
		want    int
		wantErr bool
	}{
		{"failing best option is skipped", []error{nil, failure, nil}, []float64{0.7, 0.99, 0.8}, 6, false},
		{"only one option scores", []error{failure, failure, nil}, []float64{0, 0, 0.1}, 6, false},
		{"every option fails", []error{failure, failure, failure}, []float64{0, 0, 0}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			scorer := mocks.NewMockScorer(ctrl)
			ctx := newContext(t, scorer, "ranker", 2, 4, 6)
			s := evaluate(t, ctx)[0]

			calls := make([]any, 0, len(tt.scores))
			for i, v := range tt.scores {
				calls = append(calls, scorer.EXPECT().Score(gomock.Any()).Return(v, tt.errs[i]).Times(1))
			}
			gomock.InOrder(calls...)

			got, err := s.GetBestNumFeaturesAcrossInnerFolds(1)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, failure))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBestPredictionsFollowInnerChoice(t *testing.T) {
	ctrl := gomock.NewController(t)
	scorer := mocks.NewMockScorer(ctrl)
	ctx := newContext(t, scorer, "ranker", 2, 4, 6)
	s := evaluate(t, ctx)[0]

	gomock.InOrder(
		scorer.EXPECT().Score(gomock.Any()).Return(0.7, nil),
		scorer.EXPECT().Score(gomock.Any()).Return(0.9, nil),
		scorer.EXPECT().Score(gomock.Any()).Return(0.8, nil),
	)

	best, err := s.GetBestOuterPredictions(1)
	require.NoError(t, err)
	want, err := s.GetOuterPredictions(4, 1)
	require.NoError(t, err)
	assert.True(t, best.Equal(want))

	inner, err := s.GetBestInnerPredictions(1)
	require.NoError(t, err)
	wantInner, err := s.GetInnerPredictions(4, 1)
	require.NoError(t, err)
	assert.True(t, inner.Equal(wantInner))

	testIDs, err := ctx.Folds.GetTestIDs(1)
	require.NoError(t, err)
	pred, ok, err := s.GetBestOuterPrediction(testIDs[0])
	require.NoError(t, err)
	require.True(t, ok)
	wantPred, _ := want.Get(testIDs[0])
	assert.True(t, pred.Equal(wantPred))
}

func TestBestNumFeaturesAcrossOuterFolds(t *testing.T) {
	ctrl := gomock.NewController(t)
	scorer := mocks.NewMockScorer(ctrl)
	ctx := newContext(t, scorer, "ranker", 2, 4, 6)
	s := evaluate(t, ctx)[0]

	// Per option, one score per outer fold: means 0.6, 0.7 and 0.6.
	gomock.InOrder(
		scorer.EXPECT().Score(gomock.Any()).Return(0.6, nil).Times(3),
		scorer.EXPECT().Score(gomock.Any()).Return(0.7, nil).Times(3),
		scorer.EXPECT().Score(gomock.Any()).Return(0.9, nil),
		scorer.EXPECT().Score(gomock.Any()).Return(0.5, nil),
		scorer.EXPECT().Score(gomock.Any()).Return(0.4, nil),
	)

	got, err := s.GetBestNumFeaturesAcrossOuterFolds()
	require.NoError(t, err)
	assert.Equal(t, 4, got)
}

func TestSingleOptionSkipsScoring(t *testing.T) {
	ctrl := gomock.NewController(t)
	scorer := mocks.NewMockScorer(ctrl)
	ctx := newContext(t, scorer, model.NoFeatureSelection)
	s := evaluate(t, ctx)[0]

	got, err := s.GetBestNumFeaturesAcrossInnerFolds(2)
	require.NoError(t, err)
	assert.Equal(t, 6, got)

	got, err = s.GetBestNumFeaturesAcrossOuterFolds()
	require.NoError(t, err)
	assert.Equal(t, 6, got)
}

func TestOuterPredictionsAllFolds(t *testing.T) {
	ctx := newContext(t, metrics.WeightedAUCScorer{}, "ranker", 2, 4)
	s := evaluate(t, ctx)[0]

	all, err := s.GetOuterPredictionsAllFolds(2)
	require.NoError(t, err)
	assert.Equal(t, 12, all.Len(), "every instance is tested exactly once")

	best, err := s.GetBestOuterPredictionsAllFolds()
	require.NoError(t, err)
	assert.Equal(t, 12, best.Len())
	for _, id := range best.IDs() {
		p, _ := best.Get(id)
		assert.Equal(t, ctx.Actual(id), p.Actual)
	}
}

func TestMissingEvaluatorGivesEmptyPredictions(t *testing.T) {
	ctx := newContext(t, metrics.WeightedAUCScorer{}, "ranker", 2, 4)
	selectors, err := Enumerate(ctx)
	require.NoError(t, err)

	p, err := selectors[0].GetOuterPredictions(3, 1)
	require.NoError(t, err)
	assert.Zero(t, p.Len())

	p, err = selectors[0].GetInnerPredictions(2, 99)
	require.NoError(t, err)
	assert.Zero(t, p.Len())
}
