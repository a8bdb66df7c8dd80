// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrExecutionNotFound indicates an execution record was not found by the given id.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionAlreadyExists indicates an execution record with the same id already exists.
	ErrExecutionAlreadyExists = errors.New("execution already exists")

	// ErrCheckpointNotFound indicates no checkpoint has been stored for the execution.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrTerminalStatus indicates an attempt to transition an execution out of a terminal status.
	ErrTerminalStatus = errors.New("execution is in a terminal status")
)

// ExecutionError wraps execution-persistence errors with operation context.
type ExecutionError struct {
	Op          string // Operation being performed (e.g. "GetByID", "UpdateStatus")
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
