// Package evaluator turns one (processor, algorithm, fold, feature count)
// combination into a cached, verified result file.
//
// Every evaluator emits parallel.Tasks keyed by the path of the file they
// produce. A task whose file already exists is a no-op, so a sweep that is
// interrupted and restarted only redoes unfinished work.
package evaluator

import (
	"fmt"
	"strconv"
)

// Key identifies one prediction evaluation.
type Key struct {
	Processor   string
	FSAlgorithm string
	Classifier  string
	NumFeatures int
	OuterFold   int
}

// Description is the human-readable identifier used in logs and reports.
func (k Key) Description() string {
	return fmt.Sprintf("%s_%s_%s_%dFeatures_OuterFold%d",
		k.Processor, k.FSAlgorithm, k.Classifier, k.NumFeatures, k.OuterFold)
}

// InnerDescription identifies one inner fold of the evaluation.
func (k Key) InnerDescription(innerFold int) string {
	return k.Description() + "_InnerFold" + strconv.Itoa(innerFold)
}

// PathParts are the directory components below the iteration directory.
func (k Key) PathParts() []string {
	return []string{
		"Predictions", k.Processor, k.FSAlgorithm, k.Classifier,
		strconv.Itoa(k.NumFeatures) + "Features", outerFoldDir(k.OuterFold),
	}
}

func (k Key) String() string { return k.Description() }

func outerFoldDir(fold int) string {
	return "OuterFold" + strconv.Itoa(fold)
}

const (
	outerFeaturesFile    = "OuterFold_SelectedFeatures.txt"
	outerPredictionsFile = "OuterFold_Predictions.txt"
	algorithmOutputFile  = "Algorithm_Output.txt"
)

func innerFeaturesFile(fold int) string {
	return "InnerFold" + strconv.Itoa(fold) + "_SelectedFeatures.txt"
}

func innerPredictionsFile(fold int) string {
	return "InnerFold" + strconv.Itoa(fold) + "_Predictions.txt"
}

func innerAlgorithmOutputFile(fold int) string {
	return "InnerFold" + strconv.Itoa(fold) + "_" + algorithmOutputFile
}
