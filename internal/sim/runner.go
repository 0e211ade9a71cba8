package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/htmviz/internal/htm"
)

// Runner drives a Feed: one step per Advance call, and one per Interval
// while running.
type Runner struct {
	feed Feed
	cfg  Config
	log  zerolog.Logger

	mu        sync.Mutex
	observers []Observer
	onStop    func()
	next      int

	running atomic.Bool
	pending atomic.Int32
	wake    chan struct{}
}

func New(feed Feed, cfg Config, log zerolog.Logger) *Runner {
	return &Runner{
		feed: feed,
		cfg:  cfg,
		log:  log.With().Str("component", "sim").Logger(),
		next: cfg.Start,
		wake: make(chan struct{}, 1),
	}
}

func (r *Runner) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// OnStop sets fn to be called, on the Run goroutine, when interval
// stepping stops because the feed ran out.
func (r *Runner) OnStop(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStop = fn
}

// Advance asks Run for one more step and returns at once.
func (r *Runner) Advance() {
	r.pending.Add(1)
	r.notify()
}

// Toggle starts or stops stepping on the interval and returns the new
// state.
func (r *Runner) Toggle() bool {
	for {
		old := r.running.Load()
		if r.running.CompareAndSwap(old, !old) {
			r.notify()
			return !old
		}
	}
}

func (r *Runner) Running() bool { return r.running.Load() }

func (r *Runner) notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run serves Advance and Toggle until ctx is cancelled. The feed running
// out stops the interval stepping but not Run.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.validateConfig(); err != nil {
		return err
	}
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
			for r.pending.Load() > 0 {
				r.pending.Add(-1)
				if _, err := r.Step(); err != nil {
					r.log.Debug().Err(err).Msg("advance ignored")
				}
			}
		case <-ticker.C:
			if !r.running.Load() {
				continue
			}
			if _, err := r.Step(); err != nil {
				r.running.Store(false)
				r.log.Info().Err(err).Msg("stopped")
				r.mu.Lock()
				fn := r.onStop
				r.mu.Unlock()
				if fn != nil {
					fn()
				}
			}
		}
	}
}

// Step produces the next step and hands it to every observer.
func (r *Runner) Step() (htm.Step, error) {
	r.mu.Lock()
	t := r.next
	s, ok := r.feed.Step(t)
	if !ok {
		r.mu.Unlock()
		return htm.Step{}, fmt.Errorf("step %d: %w", t, ErrEndOfFeed)
	}
	r.next++
	observers := append([]Observer(nil), r.observers...)
	r.mu.Unlock()

	for _, o := range observers {
		o.OnStep(s)
	}
	return s, nil
}

// RunN produces up to n steps synchronously, stopping early at the end of
// the feed or on cancellation.
func (r *Runner) RunN(ctx context.Context, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("step count must be positive, got %d", n)
	}
	result := &Result{Steps: make([]htm.Step, 0, n)}
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
		s, err := r.Step()
		if err != nil {
			r.log.Debug().Err(err).Int("taken", result.StepsTaken).Msg("feed ended early")
			break
		}
		result.Steps = append(result.Steps, s)
		result.StepsTaken++
	}
	return result, nil
}

func (r *Runner) validateConfig() error {
	if r.cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", r.cfg.Interval)
	}
	if r.cfg.Start < 0 {
		return fmt.Errorf("start must not be negative, got %d", r.cfg.Start)
	}
	return nil
}
