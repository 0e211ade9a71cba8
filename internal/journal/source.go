package journal

import "github.com/san-kum/htmviz/internal/htm"

// Source is the model data a Local journal serves.
type Source interface {
	Template() htm.Template
	// Payload returns the full, unscoped state of a step.
	Payload(id htm.StepID) (*htm.Payload, error)
	Wiring() *Wiring
}
