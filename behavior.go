package stoat

import "context"

// Behavior is the domain-supplied decision logic for one aggregate type.
// It maps commands plus current state to events, and events back to state.
// It contains no sequencing, persistence, or concurrency concerns; those are
// owned entirely by the worker.
//
// Validation methods may perform I/O and are called off the worker goroutine;
// their completion is delivered back to the worker as a message. Apply
// methods must be pure and deterministic: they run during both live
// processing and recovery replay, and replaying the same events must always
// yield the same state.
type Behavior interface {
	// ValidateCreate decides which events result from a creation command.
	// Returning an error rejects the command; nothing is persisted.
	ValidateCreate(ctx context.Context, cmd Command) ([]interface{}, error)

	// ValidateUpdate decides which events result from an update command
	// given the current state.
	ValidateUpdate(ctx context.Context, cmd Command, state interface{}) ([]interface{}, error)

	// ApplyCreate folds a creation event into the initial state.
	ApplyCreate(event interface{}) interface{}

	// ApplyUpdate folds an update event onto the current state, returning
	// the next state.
	ApplyUpdate(event interface{}, state interface{}) interface{}

	// IsCreationEvent classifies an event as creation-compatible (applied
	// via ApplyCreate when no state exists) or update-compatible (applied
	// via ApplyUpdate when state exists).
	IsCreationEvent(event interface{}) bool
}
