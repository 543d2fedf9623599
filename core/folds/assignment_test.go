package folds

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

const dvName = "Class"

// newDV builds a dependent-variable collection with counts[class] instances per class.
func newDV(counts map[string]int) *data.Collection {
	dv := data.NewCollection()
	i := 0
	for _, class := range []string{"A", "B", "C", "D"} {
		for j := 0; j < counts[class]; j++ {
			i++
			dv.Add(dvName, fmt.Sprintf("id%d", i), class)
		}
	}
	return dv
}

func classCounts(dv *data.Collection, ids []string) map[string]int {
	counts := make(map[string]int)
	for _, id := range ids {
		counts[dv.GetValue(id, dvName)]++
	}
	return counts
}

func TestStratifiedKFold(t *testing.T) {
	t.Run("coverage and balance", func(t *testing.T) {
		dv := newDV(map[string]int{"A": 47, "B": 31, "C": 22})
		a, err := Assign(Options{NumFolds: 5, Seed: 42}, dv, dvName)
		require.NoError(t, err)
		assert.Equal(t, KFold, a.Kind())
		assert.Equal(t, []int{1, 2, 3, 4, 5}, a.GetAllFoldNumbers())

		seen := make(map[string]int)
		minSize, maxSize := dv.Size(), 0
		for _, fold := range a.GetAllFoldNumbers() {
			test, err := a.GetTestIDs(fold)
			require.NoError(t, err)
			for _, id := range test {
				seen[id]++
			}
			minSize = min(minSize, len(test))
			maxSize = max(maxSize, len(test))

			train, err := a.GetTrainIDs(fold)
			require.NoError(t, err)
			assert.Len(t, train, dv.Size()-len(test))
			for _, id := range train {
				assert.NotContains(t, test, id, "fold %d", fold)
			}
		}

		assert.Len(t, seen, dv.Size())
		for _, id := range dv.IDs() {
			assert.Equal(t, 1, seen[id], "instance %s", id)
		}
		assert.LessOrEqual(t, maxSize-minSize, 3)
	})

	t.Run("six A four B in two folds", func(t *testing.T) {
		dv := newDV(map[string]int{"A": 6, "B": 4})
		a, err := Assign(Options{NumFolds: 2, Seed: 7}, dv, dvName)
		require.NoError(t, err)

		for _, fold := range []int{1, 2} {
			test, err := a.GetTestIDs(fold)
			require.NoError(t, err)
			assert.Equal(t, map[string]int{"A": 3, "B": 2}, classCounts(dv, test), "fold %d", fold)
		}
	})

	t.Run("same seed same partition", func(t *testing.T) {
		dv := newDV(map[string]int{"A": 20, "B": 13})
		first, err := Assign(Options{NumFolds: 4, Seed: 99}, dv, dvName)
		require.NoError(t, err)
		second, err := Assign(Options{NumFolds: 4, Seed: 99}, dv, dvName)
		require.NoError(t, err)
		other, err := Assign(Options{NumFolds: 4, Seed: 100}, dv, dvName)
		require.NoError(t, err)

		differs := false
		for _, fold := range first.GetAllFoldNumbers() {
			a, _ := first.GetTestIDs(fold)
			b, _ := second.GetTestIDs(fold)
			c, _ := other.GetTestIDs(fold)
			assert.Equal(t, a, b)
			if fmt.Sprint(a) != fmt.Sprint(c) {
				differs = true
			}
		}
		assert.True(t, differs, "a different seed should change the partition")
	})

	t.Run("unknown fold", func(t *testing.T) {
		dv := newDV(map[string]int{"A": 6, "B": 4})
		a, err := Assign(Options{NumFolds: 2, Seed: 1}, dv, dvName)
		require.NoError(t, err)

		_, err = a.GetTestIDs(3)
		var foldErr *errors.FoldError
		assert.True(t, errors.As(err, &foldErr))
	})
}

func TestLeaveOneOut(t *testing.T) {
	dv := newDV(map[string]int{"A": 4, "B": 3})

	for _, numFolds := range []int{7, 0, 50} {
		t.Run(fmt.Sprintf("folds=%d", numFolds), func(t *testing.T) {
			a, err := Assign(Options{NumFolds: numFolds, Seed: 3}, dv, dvName)
			require.NoError(t, err)
			assert.Equal(t, LeaveOneOut, a.Kind())
			assert.Len(t, a.GetAllFoldNumbers(), 7)

			owner := make(map[string]int)
			for i, fold := range a.GetAllFoldNumbers() {
				test, err := a.GetTestIDs(fold)
				require.NoError(t, err)
				require.Len(t, test, 1)
				assert.Equal(t, dv.IDs()[i], test[0])
				owner[test[0]] = fold

				got, err := a.GetFoldNumber(test[0])
				require.NoError(t, err)
				assert.Equal(t, fold, got)
			}
			assert.Len(t, owner, 7)
		})
	}
}

func TestTrainTestSplit(t *testing.T) {
	t.Run("single fold is a stratified split", func(t *testing.T) {
		dv := newDV(map[string]int{"A": 6, "B": 4})
		a, err := Assign(Options{NumFolds: 1, Seed: 11}, dv, dvName)
		require.NoError(t, err)
		assert.Equal(t, TrainTestSplit, a.Kind())
		assert.Equal(t, []int{1}, a.GetAllFoldNumbers())

		train, err := a.GetTrainIDs(1)
		require.NoError(t, err)
		test, err := a.GetTestIDs(1)
		require.NoError(t, err)

		assert.Len(t, train, 5)
		assert.Len(t, test, 5)
		for _, id := range train {
			assert.NotContains(t, test, id)
		}

		for _, id := range dv.IDs() {
			fold, err := a.GetFoldNumber(id)
			require.NoError(t, err)
			assert.Equal(t, 1, fold)
		}
	})

	t.Run("fold two is a programming error", func(t *testing.T) {
		dv := newDV(map[string]int{"A": 6, "B": 4})
		a, err := Assign(Options{NumFolds: 1, Seed: 11}, dv, dvName)
		require.NoError(t, err)

		var foldErr *errors.FoldError
		_, err = a.GetTestIDs(2)
		assert.True(t, errors.As(err, &foldErr))
		_, err = a.GetTrainIDs(2)
		assert.True(t, errors.As(err, &foldErr))
		_, err = a.HasTestData(dv, 2)
		assert.True(t, errors.As(err, &foldErr))
	})

	t.Run("explicit lists", func(t *testing.T) {
		dv := newDV(map[string]int{"A": 3, "B": 3})
		opts := Options{
			NumFolds: 10,
			TrainIDs: []string{"id1", "id2", "id4", "id5"},
			TestIDs:  []string{"id3", "id6", "ghost"},
		}
		a, err := Assign(opts, dv, dvName)
		require.NoError(t, err)
		assert.Equal(t, TrainTestSplit, a.Kind())

		test, err := a.GetTestIDs(1)
		require.NoError(t, err)
		assert.Equal(t, []string{"ghost", "id3", "id6"}, test)

		_, err = a.GetFoldNumber("id99")
		assert.Error(t, err)
	})

	t.Run("explicit lists without overlap are fatal", func(t *testing.T) {
		dv := newDV(map[string]int{"A": 3, "B": 3})

		_, err := Assign(Options{TrainIDs: []string{"x"}, TestIDs: []string{"id1"}}, dv, dvName)
		assert.True(t, errors.IsFatal(err))

		_, err = Assign(Options{TrainIDs: []string{"id1"}, TestIDs: []string{"y"}}, dv, dvName)
		assert.True(t, errors.IsFatal(err))
	})

	t.Run("no test data", func(t *testing.T) {
		dv := newDV(map[string]int{"A": 3, "B": 3})
		a, err := Assign(Options{TrainIDs: []string{"id1", "id2"}, TestIDs: []string{"id3"}}, dv, dvName)
		require.NoError(t, err)

		processor := dv.Get([]string{"id1", "id2"})
		_, err = a.GetFoldsWithTestData(processor)
		assert.Error(t, err)

		has, err := a.HasAnyTestData(processor)
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestFoldsWithTestData(t *testing.T) {
	dv := newDV(map[string]int{"A": 4, "B": 4})
	a, err := Assign(Options{NumFolds: 4, Seed: 5}, dv, dvName)
	require.NoError(t, err)

	test2, err := a.GetTestIDs(2)
	require.NoError(t, err)
	processor := dv.Get(test2)

	folds, err := a.GetFoldsWithTestData(processor)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, folds)

	has, err := a.HasTestData(processor, 1)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = a.HasAnyTestData(data.NewCollection())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestInnerAssignments(t *testing.T) {
	dv := newDV(map[string]int{"A": 30, "B": 20})
	a, err := Assign(Options{NumFolds: 5, NumInnerFolds: 3, Seed: 21}, dv, dvName)
	require.NoError(t, err)

	for _, outer := range a.GetAllFoldNumbers() {
		inner, err := a.GetInnerAssignments(outer)
		require.NoError(t, err)
		assert.True(t, inner.IsInner())
		assert.Equal(t, 3, inner.NumFolds())

		outerTrain, err := a.GetTrainIDs(outer)
		require.NoError(t, err)
		outerTest, err := a.GetTestIDs(outer)
		require.NoError(t, err)

		var innerAll []string
		for _, fold := range inner.GetAllFoldNumbers() {
			ids, err := inner.GetTestIDs(fold)
			require.NoError(t, err)
			innerAll = append(innerAll, ids...)
		}
		assert.ElementsMatch(t, outerTrain, innerAll)
		for _, id := range outerTest {
			assert.NotContains(t, innerAll, id)
		}
	}

	t.Run("cached per outer fold", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]Assignment, 16)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				inner, err := a.GetInnerAssignments(2)
				assert.NoError(t, err)
				results[i] = inner
			}(i)
		}
		wg.Wait()
		for _, r := range results {
			assert.Same(t, results[0], r)
		}
	})

	t.Run("train/test split ignores the outer fold", func(t *testing.T) {
		split, err := Assign(Options{NumFolds: 1, NumInnerFolds: 2, Seed: 4}, dv, dvName)
		require.NoError(t, err)

		first, err := split.GetInnerAssignments(1)
		require.NoError(t, err)
		other, err := split.GetInnerAssignments(7)
		require.NoError(t, err)
		assert.Same(t, first, other)

		train, err := split.GetTrainIDs(1)
		require.NoError(t, err)
		var innerAll []string
		for _, fold := range first.GetAllFoldNumbers() {
			ids, _ := first.GetTestIDs(fold)
			innerAll = append(innerAll, ids...)
		}
		assert.ElementsMatch(t, train, innerAll)
	})
}

func TestRandomExclusion(t *testing.T) {
	dv := newDV(map[string]int{"A": 12, "B": 8})
	opts := Options{NumFolds: 4, NumInnerFolds: 2, Seed: 8, NumToExclude: 3}
	a, err := Assign(opts, dv, dvName)
	require.NoError(t, err)

	for _, fold := range a.GetAllFoldNumbers() {
		test, _ := a.GetTestIDs(fold)
		train, err := a.GetTrainIDs(fold)
		require.NoError(t, err)
		assert.Len(t, train, dv.Size()-len(test)-3)

		again, _ := a.GetTrainIDs(fold)
		assert.Equal(t, train, again)

		inner, err := a.GetInnerAssignments(fold)
		require.NoError(t, err)
		innerTrain, err := inner.GetTrainIDs(1)
		require.NoError(t, err)
		innerTest, _ := inner.GetTestIDs(1)
		assert.Len(t, innerTrain, len(train)-len(innerTest), "inner folds never exclude")
	}

	excluded, err := a.GetAllExcludedTrainIDs()
	require.NoError(t, err)
	assert.NotEmpty(t, excluded)
	for _, fold := range a.GetAllFoldNumbers() {
		train, _ := a.GetTrainIDs(fold)
		test, _ := a.GetTestIDs(fold)
		for _, id := range dv.IDs() {
			if !contains(train, id) && !contains(test, id) {
				assert.Contains(t, excluded, id)
			}
		}
	}
}

func TestRandomSubset(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	assert.Len(t, randomSubset(ids, 2, 1), 2)
	assert.Equal(t, randomSubset(ids, 2, 1), randomSubset(ids, 2, 1))
	assert.ElementsMatch(t, ids, randomSubset(ids, 10, 1))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids, "input must not be reordered")
}

func TestEmptyCollection(t *testing.T) {
	_, err := Assign(Options{NumFolds: 3}, data.NewCollection(), dvName)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
