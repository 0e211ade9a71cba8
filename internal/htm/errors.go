package htm

import "errors"

var (
	// ErrUnknownPath indicates a path that is not part of the model template.
	ErrUnknownPath = errors.New("htm: unknown layout path")

	// ErrUnknownStep indicates a step identity the source no longer holds.
	ErrUnknownStep = errors.New("htm: unknown step")
)
