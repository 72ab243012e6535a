package registry

import (
	"errors"
	"fmt"
)

// ErrUnknownActionType is returned when no handler is registered for a type.
var ErrUnknownActionType = errors.New("unknown action type")

// ActionError wraps a failure raised by an action handler.
type ActionError struct {
	Type string
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.Type, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func (e *ActionError) Is(target error) bool {
	t, ok := target.(*ActionError)

	return ok && (t.Type == "" || t.Type == e.Type)
}
