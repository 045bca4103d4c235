package task

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown task IDs.
	ErrNotFound = errors.New("task: not found")

	// ErrTerminal is returned when updating a finished task.
	ErrTerminal = errors.New("task: already finished")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("task: orchestrator closed")
)

// ValidationError reports a job specification rejected before any task was
// created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid job: " + e.Reason
	}
	return fmt.Sprintf("invalid job: %s: %s", e.Field, e.Reason)
}
