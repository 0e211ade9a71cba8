package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/htmviz/internal/htm"
)

func testFeed(limit int) Feed {
	return FeedFunc(func(t int) (htm.Step, bool) {
		if t >= limit {
			return htm.Step{}, false
		}
		return htm.Step{StepID: htm.StepID{ModelID: "m", Timestep: t}}, true
	})
}

type recorder struct {
	mu    sync.Mutex
	steps []int
}

func (r *recorder) OnStep(s htm.Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, s.Timestep)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps)
}

func TestRunN(t *testing.T) {
	r := New(testFeed(10), Config{Interval: time.Millisecond, Start: 2}, zerolog.Nop())
	rec := &recorder{}
	r.AddObserver(rec)

	result, err := r.RunN(context.Background(), 3)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 3 {
		t.Errorf("expected 3 steps, got %d", result.StepsTaken)
	}
	for i, ts := range rec.steps {
		if ts != i+2 {
			t.Errorf("step %d: expected timestep %d, got %d", i, i+2, ts)
		}
	}
}

func TestRunNStopsAtEndOfFeed(t *testing.T) {
	r := New(testFeed(2), Config{Interval: time.Millisecond}, zerolog.Nop())
	result, err := r.RunN(context.Background(), 5)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 2 {
		t.Errorf("expected 2 steps, got %d", result.StepsTaken)
	}
	if _, err := r.Step(); !errors.Is(err, ErrEndOfFeed) {
		t.Errorf("expected ErrEndOfFeed, got %v", err)
	}
}

func TestRunNRejectsBadCount(t *testing.T) {
	r := New(testFeed(2), Config{Interval: time.Millisecond}, zerolog.Nop())
	if _, err := r.RunN(context.Background(), 0); err == nil {
		t.Error("expected an error for zero steps")
	}
}

func TestRunValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero interval", Config{}},
		{"negative start", Config{Interval: time.Second, Start: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(testFeed(1), tt.cfg, zerolog.Nop())
			if err := r.Run(context.Background()); err == nil {
				t.Error("expected a config error")
			}
		})
	}
}

func startRunner(t *testing.T, r *Runner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAdvance(t *testing.T) {
	r := New(testFeed(10), Config{Interval: time.Hour}, zerolog.Nop())
	rec := &recorder{}
	r.AddObserver(rec)
	startRunner(t, r)

	r.Advance()
	r.Advance()
	r.Advance()
	waitFor(t, func() bool { return rec.count() == 3 })
}

func TestToggleRunsUntilEndOfFeed(t *testing.T) {
	r := New(testFeed(4), Config{Interval: time.Millisecond}, zerolog.Nop())
	rec := &recorder{}
	r.AddObserver(ObserverFunc(rec.OnStep))
	startRunner(t, r)

	if !r.Toggle() {
		t.Fatal("expected toggle to start the runner")
	}
	waitFor(t, func() bool { return !r.Running() })
	if rec.count() != 4 {
		t.Errorf("expected the whole feed, got %d steps", rec.count())
	}
}

func TestOnStopCalledAtEndOfFeed(t *testing.T) {
	r := New(testFeed(2), Config{Interval: time.Millisecond}, zerolog.Nop())
	stopped := make(chan bool, 1)
	r.OnStop(func() { stopped <- r.Running() })
	startRunner(t, r)

	r.Toggle()
	select {
	case running := <-stopped:
		if running {
			t.Error("runner should report stopped when OnStop fires")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnStop")
	}
}

func TestEndless(t *testing.T) {
	f := Endless(func(t int) htm.Step { return htm.Step{StepID: htm.StepID{Timestep: t}} })
	s, ok := f.Step(1000)
	if !ok || s.Timestep != 1000 {
		t.Errorf("expected timestep 1000, got %d/%v", s.Timestep, ok)
	}
}
