package persistence

import (
	"errors"
	"fmt"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

// RecordError wraps record store errors with the operation and record id.
type RecordError struct {
	Op       string // Operation being performed (e.g., "FindRecord", "UpdateRecord")
	RecordID int64  // Record ID if applicable
	Err      error  // Underlying error
}

func (e *RecordError) Error() string {
	if e.RecordID == 0 {
		return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for record %d: %v", e.Op, e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRecordError creates a new record error with context.
func NewRecordError(op string, recordID int64, err error) *RecordError {
	return &RecordError{
		Op:       op,
		RecordID: recordID,
		Err:      err,
	}
}

// IsRecordNotFound checks if an error indicates a record was not found.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, protocol.ErrRecordNotFound)
}

// IsNotFound checks if an error is any of the lookup misses.
func IsNotFound(err error) bool {
	for _, target := range []error{
		protocol.ErrRecordNotFound,
		protocol.ErrModuleNotFound,
		protocol.ErrPipelineNotFound,
		protocol.ErrStageNotFound,
		protocol.ErrUserNotFound,
		protocol.ErrTagNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
