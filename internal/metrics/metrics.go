// Package metrics summarises the activity of one input or layer over a run
// of steps.
package metrics

import "github.com/san-kum/htmviz/internal/htm"

// Metric is fed one step at a time, oldest first.
type Metric interface {
	Name() string
	Observe(active, predicted htm.IDSet)
	Value() float64
	Reset()
}

// Sparsity is the mean fraction of ids active per step.
type Sparsity struct {
	size    int
	sum     float64
	samples int
}

func NewSparsity(size int) *Sparsity {
	return &Sparsity{size: size}
}

func (s *Sparsity) Name() string { return "sparsity" }

func (s *Sparsity) Observe(active, _ htm.IDSet) {
	s.samples++
	if s.size > 0 {
		s.sum += float64(len(active)) / float64(s.size)
	}
}

func (s *Sparsity) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.sum / float64(s.samples)
}

func (s *Sparsity) Reset() {
	s.sum = 0
	s.samples = 0
}

// Prediction is the fraction of active ids that were predicted, over
// every step observed.
type Prediction struct {
	hits   int
	active int
}

func NewPrediction() *Prediction { return &Prediction{} }

func (p *Prediction) Name() string { return "prediction" }

func (p *Prediction) Observe(active, predicted htm.IDSet) {
	p.active += len(active)
	p.hits += len(active.Intersect(predicted))
}

func (p *Prediction) Value() float64 {
	if p.active == 0 {
		return 0
	}
	return float64(p.hits) / float64(p.active)
}

func (p *Prediction) Reset() {
	p.hits = 0
	p.active = 0
}

// Stability is the mean fraction of active ids that were also active the
// step before. The first step observed has nothing to compare with.
type Stability struct {
	prev    htm.IDSet
	sum     float64
	samples int
}

func NewStability() *Stability { return &Stability{} }

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(active, _ htm.IDSet) {
	if s.prev != nil && len(active) > 0 {
		s.sum += float64(len(active.Intersect(s.prev))) / float64(len(active))
		s.samples++
	}
	s.prev = active
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1
	}
	return s.sum / float64(s.samples)
}

func (s *Stability) Reset() {
	s.prev = nil
	s.sum = 0
	s.samples = 0
}

// Standard returns the metrics reported for a path of the given size.
func Standard(size int) []Metric {
	return []Metric{NewSparsity(size), NewPrediction(), NewStability()}
}
