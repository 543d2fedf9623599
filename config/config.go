// Package config provides the experiment configuration and its YAML loader.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Default values for the experiment configuration. New() references them and
// no other code should duplicate them.
const (
	DefaultOutputDir    = "Output"
	DefaultIterations   = 1
	DefaultOuterFolds   = 10
	DefaultInnerFolds   = 10
	DefaultLockTimeout  = 10 * time.Minute
	DefaultPollInterval = 2 * time.Second
)

// Learner kinds built into nestcv. An empty kind means random.
const (
	LearnerKindRandom   = "random"
	LearnerKindCentroid = "centroid"
)

// DependentVariableConfig locates the class column.
type DependentVariableConfig struct {
	// Path is a tab-delimited file with an ID column.
	Path string `yaml:"path"`
	// Name is the class column. When empty the file must have exactly one data column.
	Name string `yaml:"name,omitempty"`
}

// ProcessorConfig describes one data source.
type ProcessorConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
	// PriorKnowledge lists features known to be relevant, best first.
	PriorKnowledge []string `yaml:"prior_knowledge,omitempty"`
}

// LearnerConfig registers a learner under a key.
type LearnerConfig struct {
	Key  string `yaml:"key"`
	Kind string `yaml:"kind,omitempty"`
}

// AlgorithmConfig describes a feature-selection or classification algorithm.
type AlgorithmConfig struct {
	Key     string   `yaml:"key"`
	Learner string   `yaml:"learner,omitempty"`
	Params  []string `yaml:"params,omitempty"`
}

// Config is the top-level experiment configuration.
type Config struct {
	OutputDir  string `yaml:"output_dir,omitempty"`
	Iterations int    `yaml:"iterations,omitempty"`
	// OuterFolds below 1 means one fold per instance.
	OuterFolds int `yaml:"outer_folds"`
	InnerFolds int `yaml:"inner_folds"`
	// RandomSeed is empty (use the iteration number), "0" (draw a random seed) or an integer.
	RandomSeed string `yaml:"random_seed,omitempty"`

	NumTrainingInstancesToExcludeRandomly int `yaml:"num_training_instances_to_exclude_randomly,omitempty"`

	TrainInstanceIDs     []string `yaml:"train_instance_ids,omitempty"`
	TestInstanceIDs      []string `yaml:"test_instance_ids,omitempty"`
	InstanceIDsToExclude []string `yaml:"instance_ids_to_exclude,omitempty"`

	FeatureCounts []int `yaml:"num_features_options,omitempty"`

	DependentVariable          DependentVariableConfig `yaml:"dependent_variable"`
	Processors                 []ProcessorConfig       `yaml:"processors"`
	Learners                   []LearnerConfig         `yaml:"learners,omitempty"`
	FeatureSelectionAlgorithms []AlgorithmConfig       `yaml:"feature_selection_algorithms,omitempty"`
	ClassificationAlgorithms   []AlgorithmConfig       `yaml:"classification_algorithms"`
	EnsembleAlgorithms         []string                `yaml:"ensemble_algorithms,omitempty"`
	// StackingAlgorithm is the classification algorithm key used by the Stacked combiner.
	StackingAlgorithm string `yaml:"stacking_algorithm,omitempty"`

	Workers      int           `yaml:"workers,omitempty"`
	LockTimeout  time.Duration `yaml:"lock_timeout,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	MetricsFile  string        `yaml:"metrics_file,omitempty"`

	// BaseDir resolves relative paths. Load sets it to the config file's directory.
	BaseDir string `yaml:"-"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		OutputDir:    DefaultOutputDir,
		Iterations:   DefaultIterations,
		OuterFolds:   DefaultOuterFolds,
		InnerFolds:   DefaultInnerFolds,
		Workers:      runtime.NumCPU(),
		LockTimeout:  DefaultLockTimeout,
		PollInterval: DefaultPollInterval,
	}
}

// Load reads the YAML file at path over the defaults, resolves ID list
// files and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	cfg.BaseDir = filepath.Dir(path)

	for _, list := range []*[]string{&cfg.TrainInstanceIDs, &cfg.TestInstanceIDs, &cfg.InstanceIDsToExclude} {
		if *list, err = cfg.resolveIDList(*list); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without touching the filesystem.
func Parse(data []byte) (*Config, error) {
	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigurationError("yaml", err.Error())
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Iterations < 1 {
		c.Iterations = DefaultIterations
	}
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU()
	}
	if len(c.FeatureSelectionAlgorithms) == 0 {
		c.FeatureSelectionAlgorithms = []AlgorithmConfig{{Key: model.NoFeatureSelection}}
	}
}

// Validate checks cross-field consistency. Every failure is a ConfigurationError.
func (c *Config) Validate() error {
	if c.DependentVariable.Path == "" {
		return errors.NewConfigurationError("dependent_variable.path", "must be set")
	}
	if len(c.Processors) == 0 {
		return errors.NewConfigurationError("processors", "at least one processor is required")
	}
	seen := make(map[string]bool, len(c.Processors))
	for _, p := range c.Processors {
		if p.Name == "" || p.Path == "" {
			return errors.NewConfigurationError("processors", "each processor needs a name and a path")
		}
		if seen[p.Name] {
			return errors.NewConfigurationError("processors", "duplicate processor name "+p.Name)
		}
		seen[p.Name] = true
	}

	learners := make(map[string]bool, len(c.Learners))
	for _, l := range c.Learners {
		if l.Key == "" {
			return errors.NewConfigurationError("learners", "each learner needs a key")
		}
		if l.Kind != "" && l.Kind != LearnerKindRandom && l.Kind != LearnerKindCentroid {
			return errors.NewConfigurationError("learners", "unsupported learner kind "+l.Kind)
		}
		learners[l.Key] = true
	}

	usesPrior := false
	for _, a := range c.FeatureSelectionAlgorithms {
		switch a.Key {
		case "":
			return errors.NewConfigurationError("feature_selection_algorithms", "each algorithm needs a key")
		case model.NoFeatureSelection:
		case model.PriorKnowledge:
			usesPrior = true
		default:
			if !learners[a.Learner] {
				return errors.NewConfigurationError("feature_selection_algorithms",
					"algorithm "+a.Key+" references unknown learner "+a.Learner)
			}
		}
	}
	if usesPrior {
		for _, p := range c.Processors {
			if len(p.PriorKnowledge) == 0 {
				return errors.NewConfigurationError("processors",
					"processor "+p.Name+" has no prior_knowledge but PriorKnowledge feature selection is configured")
			}
		}
	}

	if len(c.ClassificationAlgorithms) == 0 {
		return errors.NewConfigurationError("classification_algorithms", "at least one algorithm is required")
	}
	classifiers := make(map[string]bool, len(c.ClassificationAlgorithms))
	for _, a := range c.ClassificationAlgorithms {
		if a.Key == "" {
			return errors.NewConfigurationError("classification_algorithms", "each algorithm needs a key")
		}
		if !learners[a.Learner] {
			return errors.NewConfigurationError("classification_algorithms",
				"algorithm "+a.Key+" references unknown learner "+a.Learner)
		}
		classifiers[a.Key] = true
	}
	if c.StackingAlgorithm != "" && !classifiers[c.StackingAlgorithm] {
		return errors.NewConfigurationError("stacking_algorithm",
			"unknown classification algorithm "+c.StackingAlgorithm)
	}

	if (len(c.TrainInstanceIDs) == 0) != (len(c.TestInstanceIDs) == 0) {
		return errors.NewConfigurationError("train_instance_ids",
			"train_instance_ids and test_instance_ids must be set together")
	}
	if c.NumTrainingInstancesToExcludeRandomly < 0 {
		return errors.NewConfigurationError("num_training_instances_to_exclude_randomly", "must not be negative")
	}
	return nil
}

// Path resolves p against BaseDir unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// resolveIDList reads a single entry naming an existing file as one ID per line.
func (c *Config) resolveIDList(ids []string) ([]string, error) {
	if len(ids) != 1 {
		return ids, nil
	}
	path := c.Path(ids[0])
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ids, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading ID list %s", path)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" && !strings.HasPrefix(id, "#") {
			out = append(out, id)
		}
	}
	return out, errors.Wrapf(sc.Err(), "reading ID list %s", path)
}

// NumFeaturesOptions returns the ascending feature counts to evaluate for an
// algorithm over numDataPoints candidate features.
func (c *Config) NumFeaturesOptions(fsAlgorithm string, numDataPoints, priorKnowledgeCount int) []int {
	switch fsAlgorithm {
	case model.NoFeatureSelection:
		return []int{numDataPoints}
	case model.PriorKnowledge:
		return []int{priorKnowledgeCount}
	}

	var out []int
	for _, n := range c.FeatureCounts {
		if n <= 0 {
			n = numDataPoints
		}
		if n > numDataPoints {
			continue
		}
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return []int{numDataPoints}
	}
	slices.Sort(out)
	return out
}

// FeatureSelection converts the configured algorithms to descriptors.
func (c *Config) FeatureSelection() []model.FeatureSelectionAlgorithm {
	out := make([]model.FeatureSelectionAlgorithm, 0, len(c.FeatureSelectionAlgorithms))
	for _, a := range c.FeatureSelectionAlgorithms {
		out = append(out, model.NewFeatureSelectionAlgorithm(a.Key, a.Learner, a.Params...))
	}
	return out
}

// Classification converts the configured algorithms to descriptors.
func (c *Config) Classification() []model.ClassificationAlgorithm {
	out := make([]model.ClassificationAlgorithm, 0, len(c.ClassificationAlgorithms))
	for _, a := range c.ClassificationAlgorithms {
		out = append(out, model.NewClassificationAlgorithm(a.Key, a.Learner, a.Params...))
	}
	return out
}

// Stacking returns the classification algorithm used for stacked ensembles.
func (c *Config) Stacking() (model.ClassificationAlgorithm, bool) {
	key := c.StackingAlgorithm
	if key == "" && len(c.ClassificationAlgorithms) > 0 {
		key = c.ClassificationAlgorithms[0].Key
	}
	for _, a := range c.Classification() {
		if a.Key == key {
			return a, true
		}
	}
	return model.ClassificationAlgorithm{}, false
}
