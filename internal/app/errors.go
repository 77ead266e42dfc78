package app

import "errors"

// ErrValidation and ErrRequest classify controller failures.
var (
	ErrValidation = errors.New("validation failed")
	ErrRequest    = errors.New("request failed")
)

// User-facing messages shown in the error banner.
const (
	MsgTitleRequired = "Task title is required"
	MsgTitleEmpty    = "Task title cannot be empty"
	MsgTaskNotFound  = "Task not found"
	MsgLoadFailed    = "Failed to load tasks. Please check if the backend server is running."
	MsgCreateFailed  = "Failed to create task"
	MsgUpdateFailed  = "Failed to update task"
	MsgDeleteFailed  = "Failed to delete task"
)

// ValidationError is a local failure reported without contacting the server.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports ErrValidation for errors.Is matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RequestError wraps a failed server call with its operation name.
type RequestError struct {
	Op      string
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Message
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes the transport or response cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is reports ErrRequest for errors.Is matching.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequest
}
