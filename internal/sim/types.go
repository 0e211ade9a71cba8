package sim

import (
	"errors"
	"time"

	"github.com/san-kum/htmviz/internal/htm"
)

var ErrEndOfFeed = errors.New("end of feed")

// Feed is the step sequence of a model. Step returns false past its end.
type Feed interface {
	Step(t int) (htm.Step, bool)
}

type FeedFunc func(t int) (htm.Step, bool)

func (f FeedFunc) Step(t int) (htm.Step, bool) { return f(t) }

// Endless wraps a step function that never runs out.
func Endless(step func(t int) htm.Step) Feed {
	return FeedFunc(func(t int) (htm.Step, bool) { return step(t), true })
}

type Observer interface {
	OnStep(s htm.Step)
}

type ObserverFunc func(s htm.Step)

func (f ObserverFunc) OnStep(s htm.Step) { f(s) }

type Config struct {
	// Interval is the time between steps while running.
	Interval time.Duration
	// Start is the first timestep produced.
	Start int
}

type Result struct {
	Steps      []htm.Step
	StepsTaken int
}
