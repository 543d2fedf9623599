// Package model defines the collaborators of the evaluation engine: learners
// that rank features or train and test a classifier, and scorers that grade a
// set of predictions.
package model

import (
	"context"

	"github.com/YuminosukeSato/nestcv/core/data"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// RankRequest is the input of a feature-ranking run.
type RankRequest struct {
	// Train holds the training instances including the dependent variable.
	Train *data.Collection
	// DependentVariable names the class column in Train.
	DependentVariable string
	Params            []string
}

// TrainTestRequest is the input of a classification run.
type TrainTestRequest struct {
	Train *data.Collection
	Test  *data.Collection
	// Features restricts the independent variables the learner may use.
	Features          []string
	DependentVariable string
	// Classes is the canonical, sorted list of dependent-variable values.
	Classes []string
	Params  []string
}

// TrainTestResult is what a learner returns for one fold.
type TrainTestResult struct {
	ModelDescription string
	Predictions      *Predictions
}

// Learner wraps an external learning tool.
type Learner interface {
	// SelectOrRankFeatures returns feature names, best first.
	SelectOrRankFeatures(ctx context.Context, req RankRequest) ([]string, error)

	// TrainTest fits on req.Train and predicts every instance of req.Test.
	TrainTest(ctx context.Context, req TrainTestRequest) (*TrainTestResult, error)
}

// Scorer is the interface for evaluation metrics over predictions.
type Scorer interface {
	// Score returns a performance score where higher is better.
	Score(p *Predictions) (float64, error)
}

// LearnerRegistry maps learner keys to implementations.
type LearnerRegistry map[string]Learner

// Lookup returns the learner registered under key.
func (r LearnerRegistry) Lookup(key string) (Learner, error) {
	l, ok := r[key]
	if !ok {
		return nil, errors.NewConfigurationError("learners", "no learner registered under key "+key)
	}
	return l, nil
}
