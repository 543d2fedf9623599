// Package log defines standard attribute keys for cross-validation runs.
//
// The keys follow the hierarchical naming convention ("cv.outer_fold",
// "file.path") so that records from many workers writing to one log
// collector can be filtered by experiment coordinates.

package log

// Experiment coordinates
// These attributes identify which unit of work a record belongs to.
const (
	// ComponentKey identifies which component emitted the record.
	// Examples: "folds", "evaluator.fs", "evaluator.predictions", "runner"
	ComponentKey = "cv.component"

	// IterationKey is the experiment iteration (1-based).
	IterationKey = "cv.iteration"

	// ProcessorKey names the data processor (data source).
	ProcessorKey = "cv.processor"

	// FSAlgorithmKey names the feature-selection algorithm.
	FSAlgorithmKey = "cv.fs_algorithm"

	// ClassifierKey names the classification algorithm.
	ClassifierKey = "cv.classifier"

	// NumFeaturesKey is the feature-count option being evaluated.
	NumFeaturesKey = "cv.num_features"

	// OuterFoldKey is the outer cross-validation fold number.
	OuterFoldKey = "cv.outer_fold"

	// InnerFoldKey is the inner cross-validation fold number.
	InnerFoldKey = "cv.inner_fold"

	// EnsembleKey names an ensemble combiner.
	EnsembleKey = "cv.ensemble"
)

// Data shape
const (
	// SamplesKey is the number of instances involved.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of features involved.
	FeaturesKey = "data.features"

	// TrainSamplesKey and TestSamplesKey describe a fold's split sizes.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"

	// ClassesKey is the number of dependent-variable classes.
	ClassesKey = "data.classes"
)

// Results
const (
	// PredsKey is the number of predictions made.
	PredsKey = "preds.count"

	// AUCKey records a weighted AUC score.
	AUCKey = "metrics.auc"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Tasks and files
const (
	// TaskKey is the cache key (output path) of a task.
	TaskKey = "task.key"

	// TaskStatusKey is the final status of a task: "done", "failed", "skipped", "deferred".
	TaskStatusKey = "task.status"

	// PathKey is a file path being read or written.
	PathKey = "file.path"
)

// Configuration and infrastructure
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// ConfigPathKey records the path of the experiment configuration.
	ConfigPathKey = "config.path"

	// WorkerIDKey identifies the worker process holding a lock.
	WorkerIDKey = "infra.worker_id"

	// WorkersKey is the size of the worker pool.
	WorkersKey = "infra.workers"
)

// Error context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)
