package protocol

import "errors"

var (
	// ErrRecordNotFound is returned when a record id does not resolve.
	ErrRecordNotFound = errors.New("record not found")
	// ErrModuleNotFound is returned when a module id or api name does not resolve.
	ErrModuleNotFound = errors.New("module not found")
	// ErrPipelineNotFound is returned when a pipeline id does not resolve.
	ErrPipelineNotFound = errors.New("pipeline not found")
	// ErrStageNotFound is returned when a stage is not part of the pipeline.
	ErrStageNotFound = errors.New("stage not found")
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrTagNotFound is returned when a tag id or name does not resolve.
	ErrTagNotFound = errors.New("tag not found")
	// ErrTemplateNotFound is returned when an email template does not resolve.
	ErrTemplateNotFound = errors.New("email template not found")
	// ErrAccountNotFound is returned when no active email account is available.
	ErrAccountNotFound = errors.New("email account not found")
	// ErrLockNotAcquired is returned when a lock could not be taken within the wait window.
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrInvalidConfig is returned when an action runs with an unusable configuration.
	ErrInvalidConfig = errors.New("invalid action configuration")
)
