package model

import (
	"math"

	"github.com/YuminosukeSato/nestcv/core/data"
)

// Prediction is one instance's predicted class with per-class probabilities
// ordered like the owning Predictions' classes.
type Prediction struct {
	InstanceID    string
	Actual        string
	Predicted     string
	Probabilities []float64
}

// DefaultProbabilities returns a one-hot vector for predicted over classes.
func DefaultProbabilities(classes []string, predicted string) []float64 {
	probs := make([]float64, len(classes))
	for i, c := range classes {
		if c == predicted {
			probs[i] = 1
		}
	}
	return probs
}

// Equal compares predictions structurally. Probabilities are compared at the
// six decimal places the text format keeps.
func (p Prediction) Equal(o Prediction) bool {
	if p.InstanceID != o.InstanceID || p.Actual != o.Actual || p.Predicted != o.Predicted {
		return false
	}
	if len(p.Probabilities) != len(o.Probabilities) {
		return false
	}
	for i := range p.Probabilities {
		if roundProb(p.Probabilities[i]) != roundProb(o.Probabilities[i]) {
			return false
		}
	}
	return true
}

// Correct reports whether the predicted class matches the actual one.
func (p Prediction) Correct() bool {
	return p.Actual == p.Predicted
}

func roundProb(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Predictions holds at most one Prediction per instance.
type Predictions struct {
	classes []string
	byID    map[string]Prediction
}

// NewPredictions returns a set over the given class list.
func NewPredictions(classes []string, preds ...Prediction) *Predictions {
	p := &Predictions{
		classes: append([]string(nil), classes...),
		byID:    make(map[string]Prediction, len(preds)),
	}
	for _, pred := range preds {
		p.Add(pred)
	}
	return p
}

// Add stores pred, replacing any earlier prediction for the same instance.
// A prediction without probabilities gets the one-hot default.
func (p *Predictions) Add(pred Prediction) {
	if len(pred.Probabilities) == 0 {
		pred.Probabilities = DefaultProbabilities(p.classes, pred.Predicted)
	} else {
		pred.Probabilities = append([]float64(nil), pred.Probabilities...)
	}
	p.byID[pred.InstanceID] = pred
}

// Get returns the prediction for id.
func (p *Predictions) Get(id string) (Prediction, bool) {
	pred, ok := p.byID[id]
	return pred, ok
}

// Has reports whether id has a prediction.
func (p *Predictions) Has(id string) bool {
	_, ok := p.byID[id]
	return ok
}

// Len returns the number of predictions.
func (p *Predictions) Len() int {
	return len(p.byID)
}

// Classes returns the class list the probabilities refer to.
func (p *Predictions) Classes() []string {
	return append([]string(nil), p.classes...)
}

// IDs returns the predicted instance IDs in natural order.
func (p *Predictions) IDs() []string {
	ids := make([]string, 0, len(p.byID))
	for id := range p.byID {
		ids = append(ids, id)
	}
	data.SortNatural(ids)
	return ids
}

// All returns the predictions in natural ID order.
func (p *Predictions) All() []Prediction {
	ids := p.IDs()
	out := make([]Prediction, len(ids))
	for i, id := range ids {
		out[i] = p.byID[id]
	}
	return out
}

// Actuals returns the actual class of each prediction in natural ID order.
func (p *Predictions) Actuals() []string {
	all := p.All()
	out := make([]string, len(all))
	for i, pred := range all {
		out[i] = pred.Actual
	}
	return out
}

// Union returns a new set holding p and every prediction in others. Later
// sets win when an instance appears more than once.
func (p *Predictions) Union(others ...*Predictions) *Predictions {
	u := NewPredictions(p.classes)
	for _, pred := range p.byID {
		u.byID[pred.InstanceID] = pred
	}
	for _, o := range others {
		if o == nil {
			continue
		}
		if len(u.classes) == 0 {
			u.classes = o.Classes()
		}
		for _, pred := range o.byID {
			u.byID[pred.InstanceID] = pred
		}
	}
	return u
}

// Equal compares class lists and every prediction.
func (p *Predictions) Equal(o *Predictions) bool {
	if p == nil || o == nil {
		return p == o
	}
	if len(p.byID) != len(o.byID) || len(p.classes) != len(o.classes) {
		return false
	}
	for i := range p.classes {
		if p.classes[i] != o.classes[i] {
			return false
		}
	}
	for id, pred := range p.byID {
		other, ok := o.byID[id]
		if !ok || !pred.Equal(other) {
			return false
		}
	}
	return true
}
