package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/htmviz/internal/htm"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSparsity(t *testing.T) {
	m := NewSparsity(10)
	m.Observe(htm.NewIDSet(1, 2), nil)
	m.Observe(htm.NewIDSet(1, 2, 3, 4), nil)
	if got := m.Value(); !approx(got, 0.3) {
		t.Errorf("expected 0.3, got %f", got)
	}
	m.Reset()
	if got := m.Value(); got != 0 {
		t.Errorf("expected 0 after reset, got %f", got)
	}
}

func TestPrediction(t *testing.T) {
	m := NewPrediction()
	if got := m.Value(); got != 0 {
		t.Errorf("expected 0 with no steps, got %f", got)
	}
	m.Observe(htm.NewIDSet(1, 2, 3, 4), htm.NewIDSet(1, 2, 9))
	m.Observe(htm.NewIDSet(5, 6, 7, 8), htm.NewIDSet(5, 6, 7, 8))
	if got := m.Value(); !approx(got, 0.75) {
		t.Errorf("expected 0.75, got %f", got)
	}
}

func TestStability(t *testing.T) {
	m := NewStability()
	m.Observe(htm.NewIDSet(1, 2), nil)
	if got := m.Value(); got != 1 {
		t.Errorf("expected 1 after a single step, got %f", got)
	}
	m.Observe(htm.NewIDSet(2, 3), nil)
	m.Observe(htm.NewIDSet(2, 3), nil)
	if got := m.Value(); !approx(got, 0.75) {
		t.Errorf("expected 0.75, got %f", got)
	}
	m.Reset()
	m.Observe(htm.NewIDSet(7), nil)
	if got := m.Value(); got != 1 {
		t.Errorf("expected reset to forget the previous step, got %f", got)
	}
}

func TestStandard(t *testing.T) {
	names := map[string]bool{}
	for _, m := range Standard(8) {
		names[m.Name()] = true
	}
	for _, want := range []string{"sparsity", "prediction", "stability"} {
		if !names[want] {
			t.Errorf("missing %s", want)
		}
	}
}
