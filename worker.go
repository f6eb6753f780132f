package stoat

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// Worker is the lifecycle state machine for one aggregate instance. It owns
// the lifecycle state, the aggregate state, and the pending command queue,
// and mutates them from exactly one goroutine: its mailbox loop.
//
// Validation runs off the loop so it may do I/O, but its completion re-enters
// the loop as a message; no state is ever touched from another goroutine.
// This keeps the worker logically single-threaded without locks.
type Worker struct {
	id       string
	category string
	streamID string

	behavior   Behavior
	log        adapters.EventLogAdapter
	snapshots  adapters.SnapshotAdapter
	sink       EventSink
	serializer Serializer
	logger     Logger
	instr      Instrumentation
	cfg        Config
	onStop     func(*Worker)

	// Owned by the mailbox loop; never accessed from other goroutines.
	lifecycle LifecycleState
	state     State
	version   int64
	pending   []envelope
	policy    snapshotPolicy

	mailbox chan interface{}

	baseCtx    context.Context
	baseCancel context.CancelFunc

	started  atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
	stopped  chan struct{}
}

// envelope carries a command together with its reply channel through the
// mailbox and the pending queue.
type envelope struct {
	cmd      Command
	replyTo  chan CommandResult
	received time.Time
}

// getStateRequest asks the worker for its current state.
type getStateRequest struct {
	replyTo chan stateReply
}

type stateReply struct {
	state State
	err   error
}

// validationOutcome is the completion message of an asynchronous validation:
// either the resulting events or the failure cause.
type validationOutcome struct {
	env    envelope
	events []interface{}
	err    error
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithSnapshotStore sets the snapshot store. Without one, snapshots are
// disabled regardless of the configured threshold.
func WithSnapshotStore(s adapters.SnapshotAdapter) WorkerOption {
	return func(w *Worker) {
		w.snapshots = s
	}
}

// WithEventSink sets a sink that receives events after they are persisted
// and applied.
func WithEventSink(s EventSink) WorkerOption {
	return func(w *Worker) {
		w.sink = s
	}
}

// WithSerializer sets a custom serializer.
func WithSerializer(s Serializer) WorkerOption {
	return func(w *Worker) {
		w.serializer = s
	}
}

// WithLogger sets a custom logger.
func WithLogger(l Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = l
	}
}

// WithInstrumentation sets the instrumentation backend.
func WithInstrumentation(i Instrumentation) WorkerOption {
	return func(w *Worker) {
		w.instr = i
	}
}

// WithConfig sets the worker configuration.
func WithConfig(cfg Config) WorkerOption {
	return func(w *Worker) {
		w.cfg = cfg
	}
}

// WithPassivationCallback sets a callback invoked after the worker's loop
// exits, on the loop goroutine. The Runtime uses it to drop stopped workers
// from its routing table.
func WithPassivationCallback(fn func(*Worker)) WorkerOption {
	return func(w *Worker) {
		w.onStop = fn
	}
}

// NewWorker creates a worker for one aggregate instance. The aggregate's
// stream ID is "{category}-{id}". The worker does not process anything until
// Start is called.
func NewWorker(category, id string, behavior Behavior, log adapters.EventLogAdapter, opts ...WorkerOption) (*Worker, error) {
	if category == "" || id == "" {
		return nil, adapters.ErrEmptyStreamID
	}
	if behavior == nil {
		return nil, ErrNilBehavior
	}
	if log == nil {
		return nil, fmt.Errorf("stoat: nil event log adapter")
	}

	w := &Worker{
		id:         id,
		category:   category,
		streamID:   BuildStreamID(category, id),
		behavior:   behavior,
		log:        log,
		serializer: NewJSONSerializer(),
		logger:     &noopLogger{},
		instr:      NopInstrumentation{},
		cfg:        DefaultConfig(),
		lifecycle:  Uninitialized,
		state:      EmptyState(),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.cfg.Validate(); err != nil {
		return nil, err
	}
	w.policy = snapshotPolicy{threshold: w.cfg.SnapshotThreshold}
	w.mailbox = make(chan interface{}, w.cfg.MailboxSize)
	w.baseCtx, w.baseCancel = context.WithCancel(context.Background())

	return w, nil
}

// AggregateID returns the aggregate instance ID.
func (w *Worker) AggregateID() string {
	return w.id
}

// Category returns the aggregate category.
func (w *Worker) Category() string {
	return w.category
}

// StreamID returns the event stream ID this worker reads and appends.
func (w *Worker) StreamID() string {
	return w.streamID
}

// Serializer returns the worker's serializer, for registering event and
// state types.
func (w *Worker) Serializer() Serializer {
	return w.serializer
}

// Start recovers the aggregate's state from its recovery stream and then
// begins processing commands. It must be called exactly once; commands sent
// before Start returns are rejected.
//
// Recovery mutates only in-memory state: no replies are sent, no events
// appended, no snapshots written.
func (w *Worker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrWorkerStarted
	}

	if err := w.recoverState(ctx); err != nil {
		w.started.Store(false)
		return fmt.Errorf("stoat: recovery of stream %q failed: %w", w.streamID, err)
	}

	w.instr.WorkerStarted(w.category)
	go w.run()
	return nil
}

// Stop requests shutdown and waits for the worker's loop to exit. Shutdown
// while a command is in flight is deferred until its validation resolves, so
// no pending completion is lost, and commands already accepted into the
// pending queue are drained before the loop exits. Commands sent after the
// loop has exited fail with ErrWorkerStopped.
func (w *Worker) Stop(ctx context.Context) error {
	w.quitOnce.Do(func() {
		close(w.quit)
	})

	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute sends a command to the worker and waits for its reply. Every
// accepted command receives exactly one reply: success with the resulting
// events, or failure with the cause. If the worker stops before replying,
// Execute returns ErrWorkerStopped; the command was not acknowledged as
// durable and can safely be retried.
func (w *Worker) Execute(ctx context.Context, cmd Command) (CommandResult, error) {
	if cmd == nil {
		return NewErrorResult(ErrNilCommand), ErrNilCommand
	}
	if !w.started.Load() {
		return NewErrorResult(ErrWorkerStopped), ErrWorkerStopped
	}

	env := envelope{
		cmd:      cmd,
		replyTo:  make(chan CommandResult, 1),
		received: time.Now(),
	}

	select {
	case w.mailbox <- env:
	case <-w.stopped:
		return NewErrorResult(ErrWorkerStopped), ErrWorkerStopped
	case <-ctx.Done():
		return NewErrorResult(ctx.Err()), ctx.Err()
	}

	select {
	case result := <-env.replyTo:
		return result, result.Error
	case <-w.stopped:
		// Replies are buffered before the loop exits; prefer one over the
		// stop signal.
		select {
		case result := <-env.replyTo:
			return result, result.Error
		default:
		}
		return NewErrorResult(ErrWorkerStopped), ErrWorkerStopped
	case <-ctx.Done():
		return NewErrorResult(ctx.Err()), ctx.Err()
	}
}

// GetState returns the current aggregate state. It is answerable in every
// lifecycle state; while a command is in flight the answer reflects the
// pre-in-flight value. A never-initialized aggregate yields ErrNotInitialized.
func (w *Worker) GetState(ctx context.Context) (State, error) {
	if !w.started.Load() {
		return EmptyState(), ErrWorkerStopped
	}

	req := getStateRequest{replyTo: make(chan stateReply, 1)}

	select {
	case w.mailbox <- req:
	case <-w.stopped:
		return EmptyState(), ErrWorkerStopped
	case <-ctx.Done():
		return EmptyState(), ctx.Err()
	}

	select {
	case reply := <-req.replyTo:
		return reply.state, reply.err
	case <-w.stopped:
		select {
		case reply := <-req.replyTo:
			return reply.state, reply.err
		default:
		}
		return EmptyState(), ErrWorkerStopped
	case <-ctx.Done():
		return EmptyState(), ctx.Err()
	}
}

// run is the mailbox loop: the only goroutine that touches worker state.
func (w *Worker) run() {
	defer func() {
		w.baseCancel()
		if w.onStop != nil {
			w.onStop(w)
		}
		w.instr.WorkerStopped(w.category)
		close(w.stopped)
	}()

	var idle *time.Timer
	var idleC <-chan time.Time
	if w.cfg.IdleTimeout > 0 {
		idle = time.NewTimer(w.cfg.IdleTimeout)
		defer idle.Stop()
		idleC = idle.C
	}

	quit := w.quit
	stopPending := false

	for {
		select {
		case msg := <-w.mailbox:
			w.handle(msg)
			if idle != nil {
				if !idle.Stop() {
					select {
					case <-idle.C:
					default:
					}
				}
				idle.Reset(w.cfg.IdleTimeout)
			}

		case <-idleC:
			if w.lifecycle != Busy {
				w.logger.Debug("passivating idle worker", "stream", w.streamID)
				return
			}
			stopPending = true
			idleC = nil

		case <-quit:
			if w.lifecycle != Busy {
				return
			}
			stopPending = true
			quit = nil
		}

		if stopPending && w.lifecycle != Busy {
			return
		}
	}
}

// handle dispatches one mailbox message according to the lifecycle state.
func (w *Worker) handle(msg interface{}) {
	switch m := msg.(type) {
	case envelope:
		w.instr.CommandReceived(w.category, m.cmd.CommandType())
		w.dispatchCommand(m)
	case getStateRequest:
		w.handleGetState(m)
	case validationOutcome:
		w.handleValidation(m)
	default:
		w.logger.Warn("dropping unknown message", "stream", w.streamID, "type", fmt.Sprintf("%T", msg))
	}
}

// dispatchCommand routes a command by lifecycle state: validate from an
// accepting state, queue while Busy.
func (w *Worker) dispatchCommand(env envelope) {
	switch w.lifecycle {
	case Busy:
		if w.cfg.PendingLimit > 0 && len(w.pending) >= w.cfg.PendingLimit {
			w.fail(env, ErrPendingQueueFull)
			return
		}
		w.pending = append(w.pending, env)
		w.instr.CommandDeferred(w.category, len(w.pending))

	case Uninitialized:
		if env.cmd.Kind() != CommandCreate {
			w.fail(env, NewNotInitializedError(w.id))
			return
		}
		w.startValidation(env)

	case Available:
		if env.cmd.Kind() != CommandUpdate {
			w.fail(env, NewAlreadyInitializedError(w.id, env.cmd.CommandType()))
			return
		}
		w.startValidation(env)
	}
}

// handleGetState answers a state query. Always answerable; while Busy the
// answer may be stale relative to the in-flight command.
func (w *Worker) handleGetState(req getStateRequest) {
	if w.state.IsPresent() {
		req.replyTo <- stateReply{state: w.state}
		return
	}
	req.replyTo <- stateReply{state: EmptyState(), err: NewNotInitializedError(w.id)}
}

// startValidation transitions to Busy and runs the behavior's validation off
// the loop. Its completion is posted back as a validationOutcome message.
func (w *Worker) startValidation(env envelope) {
	w.lifecycle = Busy
	go w.validate(env, w.state)
}

// validate runs on its own goroutine. Panics and errors from the behavior
// are converted to a failure outcome; they never crash the worker.
func (w *Worker) validate(env envelope, state State) {
	out := validationOutcome{env: env}

	defer func() {
		if r := recover(); r != nil {
			out.events = nil
			out.err = NewPanicError(env.cmd.CommandType(), r, string(debug.Stack()))
		}
		select {
		case w.mailbox <- out:
		case <-w.stopped:
			w.fail(env, ErrWorkerStopped)
		}
	}()

	if env.cmd.Kind() == CommandCreate {
		out.events, out.err = w.behavior.ValidateCreate(w.baseCtx, env.cmd)
	} else {
		out.events, out.err = w.behavior.ValidateUpdate(w.baseCtx, env.cmd, state.Value())
	}
	if out.err != nil {
		out.err = NewRejectedError(env.cmd.CommandType(), out.err)
	}
}

// handleValidation completes the in-flight command: persist the events,
// fold them into state, maybe snapshot, reply, and return to an accepting
// state, draining the pending queue.
func (w *Worker) handleValidation(out validationOutcome) {
	if w.lifecycle != Busy {
		w.logger.Warn("dropping validation result outside Busy", "stream", w.streamID,
			"command", out.env.cmd.CommandType())
		return
	}

	if out.err != nil {
		w.logger.Info("command rejected", "stream", w.streamID,
			"command", out.env.cmd.CommandType(), "error", out.err)
		w.fail(out.env, out.err)
		w.becomeAccepting()
		return
	}

	if len(out.events) == 0 {
		w.succeed(out.env, nil)
		w.becomeAccepting()
		return
	}

	records, err := w.encodeEvents(out.events)
	if err != nil {
		w.logger.Error("event serialization failed", "stream", w.streamID, "error", err)
		w.fail(out.env, err)
		w.becomeAccepting()
		return
	}

	stored, err := w.log.Append(w.baseCtx, w.streamID, records, w.version)
	if err != nil {
		w.logger.Error("event append failed", "stream", w.streamID,
			"command", out.env.cmd.CommandType(), "error", err)
		w.fail(out.env, err)
		w.becomeAccepting()
		return
	}

	snapshotDue := false
	for _, event := range out.events {
		w.state = applyEvent(w.behavior, w.state, event, w.logger)
		if w.policy.observe() {
			w.policy.reset()
			snapshotDue = true
		}
	}
	w.version = stored[len(stored)-1].Version
	w.instr.EventsApplied(w.category, len(out.events))

	// State present and lifecycle must not diverge, even if a mismatched
	// creation event was ignored during apply.
	if w.state.IsPresent() {
		w.lifecycle = Available
	} else {
		w.lifecycle = Uninitialized
	}

	if snapshotDue {
		w.saveSnapshot()
	}
	if w.sink != nil {
		go w.publish(stored)
	}

	w.succeed(out.env, out.events)
	w.drainPending()
}

// becomeAccepting returns to the accepting state matching the presence of
// aggregate state and drains the pending queue.
func (w *Worker) becomeAccepting() {
	if w.state.IsPresent() {
		w.lifecycle = Available
	} else {
		w.lifecycle = Uninitialized
	}
	w.drainPending()
}

// drainPending re-dispatches queued commands in FIFO arrival order. Each one
// is processed exactly as if newly arrived, so the first to validate makes
// the worker Busy again and the rest keep waiting.
func (w *Worker) drainPending() {
	for w.lifecycle.accepting() && len(w.pending) > 0 {
		env := w.pending[0]
		w.pending = w.pending[1:]
		w.dispatchCommand(env)
	}
}

// saveSnapshot captures (lifecycle, state) at the current version and writes
// it in the background. Failures are logged, not retried; the next threshold
// crossing produces a fresh attempt.
func (w *Worker) saveSnapshot() {
	if w.snapshots == nil {
		return
	}

	data, err := EncodeSnapshot(w.serializer, Snapshot{Lifecycle: w.lifecycle, State: w.state})
	if err != nil {
		w.logger.Error("snapshot encode failed", "stream", w.streamID, "error", err)
		w.instr.SnapshotSaved(w.category, err)
		return
	}

	version := w.version
	go func() {
		err := w.snapshots.SaveSnapshot(w.baseCtx, w.streamID, version, data)
		if err != nil {
			w.logger.Error("snapshot save failed", "stream", w.streamID,
				"version", version, "error", err)
		} else {
			w.logger.Debug("snapshot saved", "stream", w.streamID, "version", version)
		}
		w.instr.SnapshotSaved(w.category, err)
	}()
}

// publish forwards stored events to the sink, off the loop.
func (w *Worker) publish(stored []adapters.StoredEvent) {
	if err := w.sink.Publish(w.baseCtx, w.streamID, stored); err != nil {
		w.logger.Error("event publish failed", "stream", w.streamID, "error", err)
	}
}

// encodeEvents serializes domain events into adapter records.
func (w *Worker) encodeEvents(events []interface{}) ([]adapters.EventRecord, error) {
	records := make([]adapters.EventRecord, len(events))
	for i, event := range events {
		typeName := GetEventType(event)
		if typeName == "" {
			return nil, NewSerializationError("", "serialize", fmt.Errorf("cannot determine event type"))
		}
		data, err := w.serializer.Serialize(event)
		if err != nil {
			return nil, err
		}
		records[i] = adapters.EventRecord{Type: typeName, Data: data}
	}
	return records, nil
}

// fail replies with a failure result.
func (w *Worker) fail(env envelope, err error) {
	env.replyTo <- NewErrorResult(err)
	w.instr.CommandCompleted(w.category, env.cmd.CommandType(), time.Since(env.received), err)
}

// succeed replies with the resulting events.
func (w *Worker) succeed(env envelope, events []interface{}) {
	env.replyTo <- NewSuccessResult(w.id, w.version, events)
	w.instr.CommandCompleted(w.category, env.cmd.CommandType(), time.Since(env.received), nil)
}
