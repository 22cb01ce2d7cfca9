package human

import (
	"errors"
	"fmt"
)

// ErrNoBoundingBox means the target element is not rendered.
var ErrNoBoundingBox = errors.New("element has no bounding box")

// InteractionError reports a failed gesture step. Gestures log it and
// return nil; it never reaches the caller.
type InteractionError struct {
	Op  string
	Err error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InteractionError) Unwrap() error { return e.Err }

func stepError(op, step string, err error) error {
	return &InteractionError{Op: op, Err: fmt.Errorf("%s: %w", step, err)}
}
