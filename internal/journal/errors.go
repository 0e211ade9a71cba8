package journal

import (
	"errors"
	"fmt"

	"github.com/san-kum/htmviz/internal/htm"
)

var (
	// ErrUnknownToken indicates a request scoped to a viewport that is not
	// registered.
	ErrUnknownToken = errors.New("journal: unknown viewport token")

	// ErrUnknownCommand indicates a request the journal cannot answer.
	ErrUnknownCommand = errors.New("journal: unknown command")

	// ErrBadRequest indicates a request whose arguments do not fit the
	// model, such as a layer command naming an input.
	ErrBadRequest = errors.New("journal: bad request")
)

// RequestError wraps an error with the request that caused it.
type RequestError struct {
	Command Command
	Step    htm.StepID
	Wrapped error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Command, e.Step, e.Wrapped)
}

func (e *RequestError) Unwrap() error {
	return e.Wrapped
}
