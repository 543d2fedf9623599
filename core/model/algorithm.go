package model

import "strings"

// Reserved feature-selection keys that never invoke a learner.
const (
	// NoFeatureSelection uses every available feature.
	NoFeatureSelection = "None"
	// PriorKnowledge uses the processor's predefined feature list.
	PriorKnowledge = "PriorKnowledge"
)

// FeatureSelectionAlgorithm is a ranking algorithm descriptor. Treat as
// immutable after construction; equality is by Key.
type FeatureSelectionAlgorithm struct {
	Key        string
	LearnerKey string
	Params     []string
}

// NewFeatureSelectionAlgorithm copies params so later changes to the caller's
// slice cannot leak into the descriptor.
func NewFeatureSelectionAlgorithm(key, learnerKey string, params ...string) FeatureSelectionAlgorithm {
	return FeatureSelectionAlgorithm{Key: key, LearnerKey: learnerKey, Params: append([]string(nil), params...)}
}

// Equal compares by key.
func (a FeatureSelectionAlgorithm) Equal(o FeatureSelectionAlgorithm) bool {
	return a.Key == o.Key
}

// UsesLearner is false for None and PriorKnowledge.
func (a FeatureSelectionAlgorithm) UsesLearner() bool {
	return a.Key != NoFeatureSelection && a.Key != PriorKnowledge
}

func (a FeatureSelectionAlgorithm) String() string {
	return describe(a.Key, a.LearnerKey, a.Params)
}

// ClassificationAlgorithm is a classifier descriptor. Treat as immutable after
// construction; equality is by Key.
type ClassificationAlgorithm struct {
	Key        string
	LearnerKey string
	Params     []string
}

// NewClassificationAlgorithm copies params.
func NewClassificationAlgorithm(key, learnerKey string, params ...string) ClassificationAlgorithm {
	return ClassificationAlgorithm{Key: key, LearnerKey: learnerKey, Params: append([]string(nil), params...)}
}

// Equal compares by key.
func (a ClassificationAlgorithm) Equal(o ClassificationAlgorithm) bool {
	return a.Key == o.Key
}

func (a ClassificationAlgorithm) String() string {
	return describe(a.Key, a.LearnerKey, a.Params)
}

func describe(key, learner string, params []string) string {
	if len(params) == 0 {
		return key + " (" + learner + ")"
	}
	return key + " (" + learner + ": " + strings.Join(params, " ") + ")"
}
