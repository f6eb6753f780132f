package stoat

import (
	"errors"
	"fmt"

	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// Sentinel errors for common error conditions.
// Use errors.Is() to check for these errors.
// Storage errors are aliases to the adapters package errors for compatibility.
var (
	// ErrStreamNotFound indicates the requested stream does not exist.
	ErrStreamNotFound = adapters.ErrStreamNotFound

	// ErrConcurrencyConflict indicates an optimistic concurrency violation.
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict

	// ErrNotInitialized indicates the aggregate has no state yet.
	// Update commands and state queries against a never-created aggregate fail with it.
	ErrNotInitialized = errors.New("stoat: aggregate not initialized")

	// ErrAlreadyInitialized indicates a creation command was sent to an
	// aggregate that already has state.
	ErrAlreadyInitialized = errors.New("stoat: aggregate already initialized")

	// ErrCommandRejected indicates the behavior rejected a command.
	ErrCommandRejected = errors.New("stoat: command rejected")

	// ErrValidationPanicked indicates the behavior panicked during validation.
	ErrValidationPanicked = errors.New("stoat: validation panicked")

	// ErrWorkerStopped indicates the aggregate worker is not running.
	ErrWorkerStopped = errors.New("stoat: worker stopped")

	// ErrWorkerStarted indicates Start was called on a running worker.
	ErrWorkerStarted = errors.New("stoat: worker already started")

	// ErrRuntimeClosed indicates the runtime has been closed.
	ErrRuntimeClosed = errors.New("stoat: runtime closed")

	// ErrPendingQueueFull indicates the pending command queue limit was reached.
	ErrPendingQueueFull = errors.New("stoat: pending command queue full")

	// ErrNilCommand indicates a nil command was passed.
	ErrNilCommand = errors.New("stoat: nil command")

	// ErrNilBehavior indicates a nil behavior was passed.
	ErrNilBehavior = errors.New("stoat: nil behavior")

	// ErrSerializationFailed indicates event serialization/deserialization failed.
	ErrSerializationFailed = errors.New("stoat: serialization failed")
)

// NotInitializedError reports an operation against a never-created aggregate.
type NotInitializedError struct {
	AggregateID string
}

// Error returns the error message.
func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("stoat: aggregate %q not initialized", e.AggregateID)
}

// Is reports whether this error matches the target error.
func (e *NotInitializedError) Is(target error) bool {
	return target == ErrNotInitialized
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *NotInitializedError) Unwrap() error {
	return ErrNotInitialized
}

// NewNotInitializedError creates a new NotInitializedError.
func NewNotInitializedError(aggregateID string) *NotInitializedError {
	return &NotInitializedError{AggregateID: aggregateID}
}

// AlreadyInitializedError reports a creation command against an existing aggregate.
type AlreadyInitializedError struct {
	AggregateID string
	CommandType string
}

// Error returns the error message.
func (e *AlreadyInitializedError) Error() string {
	return fmt.Sprintf("stoat: aggregate %q already initialized, rejecting creation command %q",
		e.AggregateID, e.CommandType)
}

// Is reports whether this error matches the target error.
func (e *AlreadyInitializedError) Is(target error) bool {
	return target == ErrAlreadyInitialized
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *AlreadyInitializedError) Unwrap() error {
	return ErrAlreadyInitialized
}

// NewAlreadyInitializedError creates a new AlreadyInitializedError.
func NewAlreadyInitializedError(aggregateID, cmdType string) *AlreadyInitializedError {
	return &AlreadyInitializedError{AggregateID: aggregateID, CommandType: cmdType}
}

// RejectedError wraps a business-rule violation reported by the behavior.
// The original caller receives it as the failure cause; the aggregate itself
// is unaffected and keeps serving later commands.
type RejectedError struct {
	CommandType string
	Cause       error
}

// Error returns the error message.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("stoat: command %q rejected: %v", e.CommandType, e.Cause)
}

// Is reports whether this error matches the target error.
func (e *RejectedError) Is(target error) bool {
	return target == ErrCommandRejected
}

// Unwrap returns the underlying cause for errors.Unwrap().
func (e *RejectedError) Unwrap() error {
	return e.Cause
}

// NewRejectedError creates a new RejectedError.
func NewRejectedError(cmdType string, cause error) *RejectedError {
	return &RejectedError{CommandType: cmdType, Cause: cause}
}

// PanicError reports a panic raised by the behavior during validation.
// Panics are caught and converted to a failure reply; they never crash the worker.
type PanicError struct {
	CommandType string
	Value       interface{}
	Stack       string
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("stoat: validation of %q panicked: %v", e.CommandType, e.Value)
}

// Is reports whether this error matches the target error.
func (e *PanicError) Is(target error) bool {
	return target == ErrValidationPanicked
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *PanicError) Unwrap() error {
	return ErrValidationPanicked
}

// NewPanicError creates a new PanicError.
func NewPanicError(cmdType string, value interface{}, stack string) *PanicError {
	return &PanicError{CommandType: cmdType, Value: value, Stack: stack}
}

// SerializationError provides detailed information about a serialization failure.
type SerializationError struct {
	EventType string
	Operation string // "serialize" or "deserialize"
	Cause     error
}

// Error returns the error message.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("stoat: failed to %s type %q: %v",
		e.Operation, e.EventType, e.Cause)
}

// Is reports whether this error matches the target error.
func (e *SerializationError) Is(target error) bool {
	return target == ErrSerializationFailed
}

// Unwrap returns the underlying cause for errors.Unwrap().
func (e *SerializationError) Unwrap() error {
	return e.Cause
}

// NewSerializationError creates a new SerializationError.
func NewSerializationError(eventType, operation string, cause error) *SerializationError {
	return &SerializationError{
		EventType: eventType,
		Operation: operation,
		Cause:     cause,
	}
}
