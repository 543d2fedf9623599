package pipeline

import (
	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/learners/baseline"
	"github.com/YuminosukeSato/nestcv/learners/centroid"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Learners builds the in-tree learners declared in cfg. Each random learner
// is seeded by its position so two keys never behave identically.
func Learners(cfg *config.Config) (model.LearnerRegistry, error) {
	reg := make(model.LearnerRegistry, len(cfg.Learners))
	for i, l := range cfg.Learners {
		switch l.Kind {
		case "", config.LearnerKindRandom:
			reg[l.Key] = baseline.New(int64(i + 1))
		case config.LearnerKindCentroid:
			reg[l.Key] = centroid.New()
		default:
			return nil, errors.NewConfigurationError("learners", "unsupported learner kind "+l.Kind)
		}
	}
	return reg, nil
}
