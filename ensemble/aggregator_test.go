package ensemble

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/core/commit"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/core/parallel"
	"github.com/YuminosukeSato/nestcv/evaluator"
	"github.com/YuminosukeSato/nestcv/experiment"
	"github.com/YuminosukeSato/nestcv/learners/baseline"
	"github.com/YuminosukeSato/nestcv/metrics"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
	"github.com/YuminosukeSato/nestcv/selector"
)

// newExperiment evaluates two classifiers over a random ranking so that
// there is something to ensemble.
func newExperiment(t *testing.T, combiners ...string) (*experiment.Context, []*selector.ModelSelector) {
	t.Helper()
	cfg := config.New()
	cfg.OutputDir = t.TempDir()
	cfg.OuterFolds = 3
	cfg.InnerFolds = 2
	cfg.FeatureCounts = []int{2, 4}
	cfg.FeatureSelectionAlgorithms = []config.AlgorithmConfig{{Key: "ranker", Learner: "rand"}}
	cfg.ClassificationAlgorithms = []config.AlgorithmConfig{
		{Key: "c1", Learner: "rand"},
		{Key: "c2", Learner: "rand2"},
	}
	cfg.EnsembleAlgorithms = combiners

	ds := experiment.SyntheticDataset(12, 6, "A", "B")
	logger, _ := log.NewTestLogger(log.LevelInfo)
	ctx, err := experiment.NewContext(cfg, 1, 9, ds.DependentVariable, ds.DependentVariableName, ds.Processors,
		model.LearnerRegistry{"rand": baseline.New(3), "rand2": baseline.New(4)}, metrics.WeightedAUCScorer{}, logger)
	require.NoError(t, err)

	selectors, err := selector.Enumerate(ctx)
	require.NoError(t, err)

	var tasks []parallel.Task
	for _, fold := range ctx.Folds.GetAllFoldNumbers() {
		fsTasks, err := evaluator.NewFeatureSelectionEvaluator(ctx, ctx.Processors[0], ctx.FeatureSelection[0], fold).Tasks(true)
		require.NoError(t, err)
		tasks = append(tasks, fsTasks...)
	}
	for _, s := range selectors {
		for _, e := range s.Evaluators() {
			predTasks, err := e.Tasks(true)
			require.NoError(t, err)
			tasks = append(tasks, predTasks...)
		}
	}
	for _, task := range tasks {
		require.True(t, task.Run(context.Background()), task.Key)
	}
	return ctx, selectors
}

func TestInstanceEnsemblePredictionInfos(t *testing.T) {
	ctx, selectors := newExperiment(t)
	require.Len(t, selectors, 2)
	require.True(t, ctx.NeedToEnsemble())

	infos, err := GetInstanceEnsemblePredictionInfos(ctx, 2, selectors, true)
	require.NoError(t, err)

	testIDs, err := ctx.Folds.GetTestIDs(2)
	require.NoError(t, err)
	assert.Len(t, infos, len(testIDs))
	for _, id := range testIDs {
		require.Contains(t, infos, id)
		assert.Equal(t, 2, infos[id].Len())
		for _, info := range infos[id].Infos {
			assert.Equal(t, id, info.OuterPrediction.InstanceID)
			assert.NotZero(t, info.InnerPredictions.Len())
			for _, innerID := range info.InnerPredictions.IDs() {
				assert.NotContains(t, testIDs, innerID, "inner predictions come from training instances")
			}
		}
	}
}

func TestAggregatorTasks(t *testing.T) {
	ctx, selectors := newExperiment(t)
	agg, err := NewAggregator(ctx, selectors)
	require.NoError(t, err)
	require.Len(t, agg.Combiners(), len(Names))

	for _, fold := range ctx.Folds.GetAllFoldNumbers() {
		tasks := agg.Tasks(fold)
		require.Len(t, tasks, len(Names))
		for _, task := range tasks {
			assert.True(t, task.Run(context.Background()), task.Key)
			assert.True(t, commit.Exists(task.Key))
		}
	}

	for _, name := range Names {
		all, err := agg.GetEnsemblePredictionsAllFolds(name)
		require.NoError(t, err)
		assert.Equal(t, 12, all.Len(), name)
		for _, p := range all.All() {
			assert.Equal(t, ctx.Actual(p.InstanceID), p.Actual, name)
			assert.Contains(t, ctx.DependentVariableOptions, p.Predicted, name)
		}
	}

	// Re-running finds the committed files.
	for _, task := range agg.Tasks(1) {
		assert.True(t, task.Run(context.Background()))
	}
}

func TestAggregatorRecomputesDamagedFile(t *testing.T) {
	ctx, selectors := newExperiment(t, MeanProbability)
	agg, err := NewAggregator(ctx, selectors)
	require.NoError(t, err)

	tasks := agg.Tasks(1)
	require.Len(t, tasks, 1)
	require.True(t, tasks[0].Run(context.Background()))
	infos, err := agg.instanceInfos(1)
	require.NoError(t, err)

	codec := model.PredictionsCodec{Classes: ctx.DependentVariableOptions}
	raw, err := os.ReadFile(tasks[0].Key)
	require.NoError(t, err)
	lines := strings.SplitAfter(strings.TrimSuffix(string(raw), "\n"), "\n")
	require.NoError(t, os.WriteFile(tasks[0].Key, []byte(strings.Join(lines[:len(lines)-1], "")), 0o644))
	short, ok, err := commit.Load[*model.Predictions](tasks[0].Key, codec)
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, len(infos)-1, short.Len(), "the damaged file still decodes")

	assert.True(t, tasks[0].Run(context.Background()))
	fixed, ok, err := commit.Load[*model.Predictions](tasks[0].Key, codec)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, len(infos), fixed.Len())
}

func TestAggregatorSelectedCombiners(t *testing.T) {
	ctx, selectors := newExperiment(t, MajorityVote, SelectBest)
	agg, err := NewAggregator(ctx, selectors)
	require.NoError(t, err)

	tasks := agg.Tasks(3)
	require.Len(t, tasks, 2)
	assert.Equal(t, agg.Path(MajorityVote, 3), tasks[0].Key)
	assert.Contains(t, tasks[1].Key, "Ensemble/OuterFold3/SelectBest_Predictions.txt")
}

func TestUnknownCombiner(t *testing.T) {
	ctx, _ := newExperiment(t)
	_, err := ByName(ctx, "Oracle")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}
