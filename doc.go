// Package nestcv evaluates classification algorithms with nested
// cross-validation and writes every intermediate result to disk so that
// several processes can share one experiment.
//
// For each iteration the instances are split into stratified outer folds,
// and the training part of every outer fold is split again into inner folds.
// Feature selection, classification and the choice of how many features to
// use are all made on inner folds only; outer-fold test instances are never
// seen before the final prediction for them is made.
//
// # Packages
//
// The module is organized into several packages:
//
//   - config: experiment settings loaded from YAML
//   - core/data: instance collections and delimited file I/O
//   - core/folds: stratified outer and inner fold assignments
//   - core/model: learner interfaces and predictions
//   - core/commit: verified, atomic writes of result files
//   - core/parallel: a file-locked task runner shared across processes
//   - experiment: per-iteration context, seeds and dataset loading
//   - evaluator: feature-selection and train/test tasks per fold
//   - selector: picks the number of features per algorithm combination
//   - ensemble: combines the selected predictions of all combinations
//   - metrics: weighted AUC, accuracy and related scores
//   - learners: the built-in random baseline and nearest-centroid learners
//   - pipeline: runs all iterations and writes the summary
//
// # Command line
//
// The nestcv command wraps the pipeline:
//
//	nestcv init example            # synthetic data and experiment.yaml
//	nestcv run -c example/experiment.yaml
//	nestcv folds -c example/experiment.yaml --iteration 1
//
// # Output
//
// Results for iteration i are written under <output_dir>/Iteration<i>:
//
//	Random_Seed.txt
//	Summary.txt
//	FeatureSelection/<processor>/<algorithm>/...
//	Predictions/<processor>/<feature selection>/<classifier>/<n>Features/OuterFold<k>/...
//	Ensemble/OuterFold<k>/<combiner>_Predictions.txt
//
// Files that already exist are treated as finished work, so an interrupted
// run picks up where it stopped.
package nestcv
