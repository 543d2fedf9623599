// Package folds partitions labeled instances into stratified cross-validation
// folds, with lazily built nested inner folds per outer fold.
//
// An Assignment is one of three kinds. KFold and LeaveOneOut share the general
// fold queries; TrainTestSplit is a fixed two-way split that only answers for
// fold 1 (train = fold 1, test = fold 2 internally).
package folds

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

// Kind tags the variant of an Assignment.
type Kind int

const (
	KFold Kind = iota + 1
	LeaveOneOut
	TrainTestSplit
)

func (k Kind) String() string {
	switch k {
	case KFold:
		return "k-fold"
	case LeaveOneOut:
		return "leave-one-out"
	case TrainTestSplit:
		return "train/test"
	default:
		return "unknown"
	}
}

// IDSet is anything that can answer instance membership, typically a
// processor's *data.Collection.
type IDSet interface {
	Has(id string) bool
}

// Options configures fold assignment.
type Options struct {
	// NumFolds is the outer fold count. Values below 1 mean one fold per instance.
	NumFolds int
	// NumInnerFolds is the fold count of each nested assignment.
	NumInnerFolds int
	// Seed drives every shuffle. The same seed yields the same partition.
	Seed int64
	// TrainIDs and TestIDs, when both are set, fix the outer split.
	TrainIDs []string
	TestIDs  []string
	// NumToExclude training instances are dropped at random from each outer fold.
	NumToExclude int
	Logger       log.Logger
}

// Assignment maps fold numbers to instance IDs.
type Assignment interface {
	Kind() Kind
	NumFolds() int
	IsInner() bool

	GetFoldNumber(id string) (int, error)
	GetAllFoldNumbers() []int
	GetTestIDs(fold int) ([]string, error)
	GetTrainIDs(fold int) ([]string, error)
	GetAllExcludedTrainIDs() ([]string, error)

	GetFoldsWithTestData(instances IDSet) ([]int, error)
	HasTestData(instances IDSet, fold int) (bool, error)
	HasAnyTestData(instances IDSet) (bool, error)

	// GetInnerAssignments returns the nested assignment built over the
	// training IDs of outerFold. It is built once and cached.
	GetInnerAssignments(outerFold int) (Assignment, error)

	String() string
}

// Assign builds the outer fold assignment over the dependent-variable
// instances. The variant is chosen in priority order: explicit train/test
// lists, a single fold (stratified train/test split), one fold per instance
// (leave-one-out), otherwise stratified k-fold.
func Assign(opts Options, dv *data.Collection, dvName string) (Assignment, error) {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return assign(opts, dv, dvName, false)
}

func assign(opts Options, dv *data.Collection, dvName string, isInner bool) (Assignment, error) {
	n := dv.Size()
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "assign folds")
	}

	k := opts.NumFolds
	if isInner {
		k = opts.NumInnerFolds
	}
	if k < 1 || k > n {
		k = n
	}

	logger := opts.Logger.With(log.ComponentKey, "folds", "inner", isInner)
	b := &base{opts: opts, dv: dv, dvName: dvName, isInner: isInner, numFolds: k}

	if !isInner && len(opts.TrainIDs) > 0 && len(opts.TestIDs) > 0 {
		if !overlaps(dv, opts.TrainIDs) {
			return nil, errors.NewConfigurationError("train_instance_ids",
				"none of the training IDs overlap with the actual data instances")
		}
		if !overlaps(dv, opts.TestIDs) {
			return nil, errors.NewConfigurationError("test_instance_ids",
				"none of the test IDs overlap with the actual data instances")
		}
		b.folds = map[int][]string{
			1: append([]string(nil), opts.TrainIDs...),
			2: append([]string(nil), opts.TestIDs...),
		}
		b.kind = TrainTestSplit
		b.numFolds = 1
		logger.Debug("Using train and test IDs from the experiment configuration",
			log.TrainSamplesKey, len(opts.TrainIDs), log.TestSamplesKey, len(opts.TestIDs))
		return &TrainTest{base: b}, nil
	}

	if k == 1 && n > 1 {
		b.folds = stratify(dv, dvName, 2, opts.Seed)
		b.kind = TrainTestSplit
		logger.Debug("Assigned stratified train/test split", log.SamplesKey, n)
		return &TrainTest{base: b}, nil
	}

	b.folds = make(map[int][]string, k)
	if k == n {
		for i, id := range dv.IDs() {
			b.folds[i+1] = []string{id}
		}
		b.kind = LeaveOneOut
	} else {
		b.folds = stratify(dv, dvName, k, opts.Seed)
		b.kind = KFold
	}
	logger.Debug("Assigned folds", "kind", b.kind.String(), "folds", k, log.SamplesKey, n)
	return &CrossValidation{base: b}, nil
}

func overlaps(dv *data.Collection, ids []string) bool {
	for _, id := range ids {
		if dv.Has(id) {
			return true
		}
	}
	return false
}

// base holds the state shared by both variants.
type base struct {
	opts     Options
	dv       *data.Collection
	dvName   string
	isInner  bool
	kind     Kind
	numFolds int
	folds    map[int][]string
	inner    innerCache
}

func (b *base) Kind() Kind    { return b.kind }
func (b *base) NumFolds() int { return b.numFolds }
func (b *base) IsInner() bool { return b.isInner }

func (b *base) allIDs() []string {
	var ids []string
	for _, fold := range sortedKeys(b.folds) {
		ids = append(ids, b.folds[fold]...)
	}
	data.SortNatural(ids)
	return ids
}

// excludedFrom re-derives the random exclusion for one list of training IDs.
// Only outer assignments exclude.
func (b *base) excludedFrom(trainIDs []string) []string {
	if b.isInner || b.opts.NumToExclude <= 0 {
		return nil
	}
	return randomSubset(trainIDs, b.opts.NumToExclude, b.opts.Seed)
}

func (b *base) filterTrainIDs(trainIDs []string) []string {
	return without(trainIDs, b.excludedFrom(trainIDs))
}

func (b *base) buildInner(trainIDs []string) (Assignment, error) {
	return assign(b.opts, b.dv.Get(trainIDs), b.dvName, true)
}

func (b *base) format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s assignment (%d folds, inner=%t)\n", b.kind, b.numFolds, b.isInner)
	for _, fold := range sortedKeys(b.folds) {
		fmt.Fprintf(&sb, "%d: %s\n", fold, strings.Join(b.folds[fold], ","))
	}
	return sb.String()
}

// CrossValidation is the KFold and LeaveOneOut variant.
type CrossValidation struct {
	*base
}

// GetFoldNumber returns the fold that holds id.
func (a *CrossValidation) GetFoldNumber(id string) (int, error) {
	for _, fold := range sortedKeys(a.folds) {
		for _, candidate := range a.folds[fold] {
			if candidate == id {
				return fold, nil
			}
		}
	}
	return 0, errors.NewValueError("GetFoldNumber", fmt.Sprintf("instance %s is not assigned to a fold", id))
}

// GetAllFoldNumbers returns every fold number in ascending order.
func (a *CrossValidation) GetAllFoldNumbers() []int {
	return sortedKeys(a.folds)
}

func (a *CrossValidation) checkFold(op string, fold int) error {
	if _, ok := a.folds[fold]; !ok {
		return errors.NewFoldError(op, fold, a.kind.String())
	}
	return nil
}

// GetTestIDs returns the IDs held out in fold.
func (a *CrossValidation) GetTestIDs(fold int) ([]string, error) {
	if err := a.checkFold("GetTestIDs", fold); err != nil {
		return nil, err
	}
	ids := append([]string(nil), a.folds[fold]...)
	data.SortNatural(ids)
	return ids, nil
}

// GetTrainIDs returns every assigned ID outside fold, minus random exclusions.
func (a *CrossValidation) GetTrainIDs(fold int) ([]string, error) {
	test, err := a.GetTestIDs(fold)
	if err != nil {
		return nil, err
	}
	return a.filterTrainIDs(without(a.allIDs(), test)), nil
}

// GetAllExcludedTrainIDs returns the union of the per-fold exclusions.
func (a *CrossValidation) GetAllExcludedTrainIDs() ([]string, error) {
	var excluded []string
	for _, fold := range a.GetAllFoldNumbers() {
		test, err := a.GetTestIDs(fold)
		if err != nil {
			return nil, err
		}
		excluded = union(excluded, a.excludedFrom(without(a.allIDs(), test)))
	}
	return excluded, nil
}

// GetFoldsWithTestData returns the folds holding at least one of instances.
func (a *CrossValidation) GetFoldsWithTestData(instances IDSet) ([]int, error) {
	var folds []int
	for _, fold := range a.GetAllFoldNumbers() {
		if anyIn(a.folds[fold], instances) {
			folds = append(folds, fold)
		}
	}
	return folds, nil
}

// HasTestData reports whether fold holds any of instances.
func (a *CrossValidation) HasTestData(instances IDSet, fold int) (bool, error) {
	if err := a.checkFold("HasTestData", fold); err != nil {
		return false, err
	}
	return anyIn(a.folds[fold], instances), nil
}

// HasAnyTestData reports whether any fold holds any of instances.
func (a *CrossValidation) HasAnyTestData(instances IDSet) (bool, error) {
	folds, err := a.GetFoldsWithTestData(instances)
	return len(folds) > 0, err
}

// GetInnerAssignments implements Assignment.
func (a *CrossValidation) GetInnerAssignments(outerFold int) (Assignment, error) {
	return a.inner.get(outerFold, func() (Assignment, error) {
		trainIDs, err := a.GetTrainIDs(outerFold)
		if err != nil {
			return nil, err
		}
		return a.buildInner(trainIDs)
	})
}

func (a *CrossValidation) String() string { return a.format() }

// TrainTest is the single train/test split variant. Only fold 1 exists from
// the caller's point of view.
type TrainTest struct {
	*base
}

const (
	trainFold = 1
	testFold  = 2
)

func (a *TrainTest) checkFold(op string, fold int) error {
	if fold != 1 {
		return errors.NewFoldError(op, fold, a.kind.String())
	}
	return nil
}

// GetFoldNumber returns 1 for any ID in the train or test list.
func (a *TrainTest) GetFoldNumber(id string) (int, error) {
	for _, fold := range []int{trainFold, testFold} {
		for _, candidate := range a.folds[fold] {
			if candidate == id {
				return 1, nil
			}
		}
	}
	return 0, errors.NewValueError("GetFoldNumber", fmt.Sprintf("instance %s is not assigned to a fold", id))
}

// GetAllFoldNumbers always returns [1].
func (a *TrainTest) GetAllFoldNumbers() []int {
	return []int{1}
}

// GetTestIDs returns the test list. Any fold other than 1 is an error.
func (a *TrainTest) GetTestIDs(fold int) ([]string, error) {
	if err := a.checkFold("GetTestIDs", fold); err != nil {
		return nil, err
	}
	ids := append([]string(nil), a.folds[testFold]...)
	data.SortNatural(ids)
	return ids, nil
}

// GetTrainIDs returns the train list minus any test IDs and random exclusions.
// Any fold other than 1 is an error.
func (a *TrainTest) GetTrainIDs(fold int) ([]string, error) {
	if err := a.checkFold("GetTrainIDs", fold); err != nil {
		return nil, err
	}
	return a.filterTrainIDs(a.trainList()), nil
}

func (a *TrainTest) trainList() []string {
	ids := without(a.folds[trainFold], a.folds[testFold])
	data.SortNatural(ids)
	return ids
}

// GetAllExcludedTrainIDs returns the exclusions drawn from the train list.
func (a *TrainTest) GetAllExcludedTrainIDs() ([]string, error) {
	return a.excludedFrom(a.trainList()), nil
}

// GetFoldsWithTestData returns [1], or an error when none of instances is a test ID.
func (a *TrainTest) GetFoldsWithTestData(instances IDSet) ([]int, error) {
	if !anyIn(a.folds[testFold], instances) {
		return nil, errors.NewValueError("GetFoldsWithTestData", "no test data for the train/test split")
	}
	return []int{1}, nil
}

// HasTestData reports whether any test ID is among instances.
func (a *TrainTest) HasTestData(instances IDSet, fold int) (bool, error) {
	if err := a.checkFold("HasTestData", fold); err != nil {
		return false, err
	}
	return anyIn(a.folds[testFold], instances), nil
}

// HasAnyTestData is HasTestData for fold 1.
func (a *TrainTest) HasAnyTestData(instances IDSet) (bool, error) {
	return anyIn(a.folds[testFold], instances), nil
}

// GetInnerAssignments ignores outerFold; the inner assignment is built from
// the split's training IDs.
func (a *TrainTest) GetInnerAssignments(_ int) (Assignment, error) {
	return a.inner.get(1, func() (Assignment, error) {
		trainIDs, err := a.GetTrainIDs(1)
		if err != nil {
			return nil, err
		}
		return a.buildInner(trainIDs)
	})
}

func (a *TrainTest) String() string { return a.format() }
