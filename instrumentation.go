package stoat

import "time"

// Instrumentation receives notifications about worker activity. It exists so
// observability backends can be plugged in without the core depending on
// them; the middleware/metrics package provides a Prometheus implementation.
//
// Implementations must be safe for concurrent use: workers for different
// aggregates call them independently, and snapshot saves report from
// background goroutines.
type Instrumentation interface {
	// CommandReceived is called when a command enters a worker's mailbox dispatch.
	CommandReceived(category, commandType string)

	// CommandCompleted is called when a command's reply is sent.
	// err is nil for successful commands.
	CommandCompleted(category, commandType string, duration time.Duration, err error)

	// CommandDeferred is called when a command is queued because the worker
	// is busy; depth is the pending queue depth after the enqueue.
	CommandDeferred(category string, depth int)

	// EventsApplied is called after events are persisted and folded into state.
	EventsApplied(category string, count int)

	// SnapshotSaved is called when a snapshot save attempt finishes.
	SnapshotSaved(category string, err error)

	// RecoveryCompleted is called when a worker finishes startup recovery.
	RecoveryCompleted(category string, events int, fromSnapshot bool, duration time.Duration)

	// WorkerStarted is called when a worker begins accepting commands.
	WorkerStarted(category string)

	// WorkerStopped is called when a worker's processing loop exits.
	WorkerStopped(category string)
}

// NopInstrumentation is an Instrumentation that does nothing.
type NopInstrumentation struct{}

func (NopInstrumentation) CommandReceived(category, commandType string) {}
func (NopInstrumentation) CommandCompleted(category, commandType string, duration time.Duration, err error) {
}
func (NopInstrumentation) CommandDeferred(category string, depth int) {}
func (NopInstrumentation) EventsApplied(category string, count int)   {}
func (NopInstrumentation) SnapshotSaved(category string, err error)   {}
func (NopInstrumentation) RecoveryCompleted(category string, events int, fromSnapshot bool, duration time.Duration) {
}
func (NopInstrumentation) WorkerStarted(category string) {}
func (NopInstrumentation) WorkerStopped(category string) {}
