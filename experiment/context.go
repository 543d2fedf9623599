// Package experiment holds the explicit, per-iteration state shared by every
// evaluator: configuration, data, fold assignment, learners and logger.
//
// A Context is built once per iteration by NewContext and is read-only
// afterwards, so it can be shared freely between goroutines.
package experiment

import (
	"path/filepath"
	"strconv"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/core/folds"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

// Processor is one data source of independent variables.
type Processor struct {
	Name string
	Data *data.Collection
	// PriorKnowledge lists features known to be relevant, best first.
	PriorKnowledge []string
}

// Has reports whether the processor has data for id.
func (p *Processor) Has(id string) bool {
	return p.Data.Has(id)
}

// Context is the state of one experiment iteration.
type Context struct {
	Config    *config.Config
	Iteration int
	Seed      int64

	DependentVariable        *data.Collection
	DependentVariableName    string
	DependentVariableOptions []string

	Processors       []*Processor
	FeatureSelection []model.FeatureSelectionAlgorithm
	Classification   []model.ClassificationAlgorithm

	Folds    folds.Assignment
	Learners model.LearnerRegistry
	Scorer   model.Scorer
	Logger   log.Logger
}

// NewContext validates the inputs and assigns folds. Instances listed in
// instance_ids_to_exclude or lacking a class value are dropped from dv.
// NewContext takes ownership of the processors' data: a column carrying the
// dependent variable's name is removed so it cannot leak into features.
func NewContext(cfg *config.Config, iteration int, seed int64, dv *data.Collection, dvName string,
	processors []*Processor, learners model.LearnerRegistry, scorer model.Scorer, logger log.Logger) (*Context, error) {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.With(log.IterationKey, iteration, log.RandomSeedKey, seed)

	if !dv.HasDataPoint(dvName) {
		return nil, errors.NewConfigurationError("dependent_variable.name", "no column named "+dvName)
	}
	var keep []string
	for _, id := range dv.IDs() {
		if !data.IsMissing(dv.GetValue(id, dvName)) {
			keep = append(keep, id)
		}
	}
	dv = dv.Get(keep)
	dv.RemoveInstances(cfg.InstanceIDsToExclude)

	options := dv.UniqueValues(dvName)
	if len(options) == 0 {
		return nil, errors.NewConfigurationError("dependent_variable", "no instance has a class value")
	}

	for _, p := range processors {
		if p.Data.HasDataPoint(dvName) {
			p.Data.RemoveDataPointName(dvName)
		}
	}

	for _, a := range cfg.FeatureSelection() {
		if a.UsesLearner() {
			if _, err := learners.Lookup(a.LearnerKey); err != nil {
				return nil, err
			}
		}
	}
	for _, a := range cfg.Classification() {
		if _, err := learners.Lookup(a.LearnerKey); err != nil {
			return nil, err
		}
	}

	assignment, err := folds.Assign(folds.Options{
		NumFolds:      cfg.OuterFolds,
		NumInnerFolds: cfg.InnerFolds,
		Seed:          seed,
		TrainIDs:      cfg.TrainInstanceIDs,
		TestIDs:       cfg.TestInstanceIDs,
		NumToExclude:  cfg.NumTrainingInstancesToExcludeRandomly,
		Logger:        logger,
	}, dv, dvName)
	if err != nil {
		return nil, err
	}

	logger.Info("Experiment context ready",
		log.SamplesKey, dv.Size(), log.ClassesKey, len(options), "processors", len(processors),
		"folds", assignment.NumFolds(), "assignment", assignment.Kind().String())

	return &Context{
		Config:                   cfg,
		Iteration:                iteration,
		Seed:                     seed,
		DependentVariable:        dv,
		DependentVariableName:    dvName,
		DependentVariableOptions: options,
		Processors:               processors,
		FeatureSelection:         cfg.FeatureSelection(),
		Classification:           cfg.Classification(),
		Folds:                    assignment,
		Learners:                 learners,
		Scorer:                   scorer,
		Logger:                   logger,
	}, nil
}

// NumFeaturesOptions returns the feature counts to evaluate for (proc, fs).
func (c *Context) NumFeaturesOptions(proc *Processor, fs model.FeatureSelectionAlgorithm) []int {
	return c.Config.NumFeaturesOptions(fs.Key, proc.Data.NumDataPoints(), len(proc.PriorKnowledge))
}

// NeedToEvaluateInnerFolds is true when more than one model competes, i.e.
// when inner-fold performance is needed to choose between them.
func (c *Context) NeedToEvaluateInnerFolds() bool {
	combinations := 0
	for _, p := range c.Processors {
		for _, fs := range c.FeatureSelection {
			combinations += len(c.NumFeaturesOptions(p, fs)) * len(c.Classification)
		}
	}
	return combinations > 1
}

// NeedToEnsemble is true when more than one (processor, fs, classifier)
// combination produces predictions.
func (c *Context) NeedToEnsemble() bool {
	return len(c.Processors)*len(c.FeatureSelection)*len(c.Classification) > 1
}

// TrainData returns proc's instances among ids with the class column added.
func (c *Context) TrainData(proc *Processor, ids []string) *data.Collection {
	return c.withDependentVariable(proc.Data.Get(ids))
}

// TestData is TrainData for the held-out side of a fold.
func (c *Context) TestData(proc *Processor, ids []string) *data.Collection {
	return c.withDependentVariable(proc.Data.Get(ids))
}

func (c *Context) withDependentVariable(sub *data.Collection) *data.Collection {
	for _, id := range sub.IDs() {
		sub.Add(c.DependentVariableName, id, c.DependentVariable.GetValue(id, c.DependentVariableName))
	}
	return sub
}

// Dir joins parts under this iteration's output directory.
func (c *Context) Dir(parts ...string) string {
	return IterationDir(c.Config, c.Iteration, parts...)
}

// IterationDir joins parts under the output directory of iteration.
func IterationDir(cfg *config.Config, iteration int, parts ...string) string {
	base := filepath.Join(cfg.Path(cfg.OutputDir), "Iteration"+strconv.Itoa(iteration))
	return filepath.Join(append([]string{base}, parts...)...)
}

// Processor returns the processor named name.
func (c *Context) Processor(name string) (*Processor, bool) {
	for _, p := range c.Processors {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Actual returns the class value of id, or data.MissingValue.
func (c *Context) Actual(id string) string {
	return c.DependentVariable.GetValue(id, c.DependentVariableName)
}
