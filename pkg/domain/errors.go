package domain

import (
	"errors"
	"fmt"
)

// ErrScriptNotFound is returned when a script ID cannot be resolved.
var ErrScriptNotFound = errors.New("script not found")

// ErrNodeNotFound is returned when a node does not exist within the execution's script.
var ErrNodeNotFound = errors.New("node not found")

// ErrExecutionNotFound is returned when an execution ID cannot be resolved.
var ErrExecutionNotFound = errors.New("execution not found")

// ErrLeadNotFound is returned when a lead ID cannot be resolved.
var ErrLeadNotFound = errors.New("lead not found")

// ErrExecutionCompleted is returned when answering a frozen execution.
var ErrExecutionCompleted = errors.New("execution already completed")

// ErrValidation marks malformed or incomplete command input, caught before any mutation.
var ErrValidation = errors.New("invalid command")

// ErrInvalidState marks a guarded precondition violation: a lead outside the
// command's entry status, or an answer for a node that is not the current one.
// Guaranteed to occur before any mutation.
var ErrInvalidState = errors.New("invalid state")

// ErrUnknownEnum marks an unrecognized intent or call result. Unknown values
// are rejected, never silently ignored.
var ErrUnknownEnum = errors.New("unknown value")

// ValidationError reports which command field is malformed or missing.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid command: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidStateError reports a lead whose current status does not match the
// command's required entry status.
type InvalidStateError struct {
	LeadID   string
	Expected string
	Actual   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid lead status: lead %s is %s, expected %s", e.LeadID, e.Actual, e.Expected)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// UnknownEnumError reports an unrecognized member of a finite value set.
type UnknownEnumError struct {
	Kind  string
	Value string
}

func (e *UnknownEnumError) Error() string {
	return fmt.Sprintf("unknown %s: %q", e.Kind, e.Value)
}

func (e *UnknownEnumError) Unwrap() error { return ErrUnknownEnum }
