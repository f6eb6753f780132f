package stoat

import (
	"context"
	"errors"
	"sync"

	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// Runtime routes commands for one aggregate category to per-instance
// workers. Workers are spawned on demand — recovery runs before their first
// command — and drop out of the routing table when they passivate after the
// configured idle timeout.
//
// Workers for different aggregates share nothing but the (stream-addressed)
// log and snapshot store, so they run fully concurrently.
type Runtime struct {
	category string
	behavior Behavior
	log      adapters.EventLogAdapter
	opts     []WorkerOption

	mu      sync.Mutex
	workers map[string]*workerSlot
	closed  bool
}

// workerSlot holds a worker being started or running. ready is closed once
// start (including recovery) has finished, successfully or not.
type workerSlot struct {
	worker *Worker
	err    error
	ready  chan struct{}
}

// NewRuntime creates a runtime for one aggregate category. The given worker
// options are applied to every spawned worker.
func NewRuntime(category string, behavior Behavior, log adapters.EventLogAdapter, opts ...WorkerOption) (*Runtime, error) {
	if category == "" {
		return nil, adapters.ErrEmptyStreamID
	}
	if behavior == nil {
		return nil, ErrNilBehavior
	}

	return &Runtime{
		category: category,
		behavior: behavior,
		log:      log,
		opts:     opts,
		workers:  make(map[string]*workerSlot),
	}, nil
}

// Execute routes a command to the worker for the given aggregate ID,
// spawning it first if needed, and waits for the reply.
func (r *Runtime) Execute(ctx context.Context, aggregateID string, cmd Command) (CommandResult, error) {
	// A worker may passivate between lookup and send; retry once against a
	// fresh one.
	for attempt := 0; attempt < 2; attempt++ {
		w, err := r.worker(ctx, aggregateID)
		if err != nil {
			return NewErrorResult(err), err
		}

		result, err := w.Execute(ctx, cmd)
		if errors.Is(err, ErrWorkerStopped) {
			r.remove(aggregateID, w)
			continue
		}
		return result, err
	}
	return NewErrorResult(ErrWorkerStopped), ErrWorkerStopped
}

// GetState returns the current state of the given aggregate, spawning (and
// recovering) its worker if needed.
func (r *Runtime) GetState(ctx context.Context, aggregateID string) (State, error) {
	for attempt := 0; attempt < 2; attempt++ {
		w, err := r.worker(ctx, aggregateID)
		if err != nil {
			return EmptyState(), err
		}

		state, err := w.GetState(ctx)
		if errors.Is(err, ErrWorkerStopped) {
			r.remove(aggregateID, w)
			continue
		}
		return state, err
	}
	return EmptyState(), ErrWorkerStopped
}

// WorkerCount returns the number of live (or starting) workers.
func (r *Runtime) WorkerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// Close stops every worker and rejects further commands.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	slots := make([]*workerSlot, 0, len(r.workers))
	for _, slot := range r.workers {
		slots = append(slots, slot)
	}
	r.workers = make(map[string]*workerSlot)
	r.mu.Unlock()

	var errs []error
	for _, slot := range slots {
		<-slot.ready
		if slot.err != nil {
			continue
		}
		if err := slot.worker.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// worker returns the live worker for an aggregate ID, spawning and starting
// one if none exists. Concurrent callers for the same ID share a single
// spawn; only the spawning goroutine runs recovery.
func (r *Runtime) worker(ctx context.Context, aggregateID string) (*Worker, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRuntimeClosed
	}

	if slot, ok := r.workers[aggregateID]; ok {
		r.mu.Unlock()
		select {
		case <-slot.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if slot.err != nil {
			return nil, slot.err
		}
		return slot.worker, nil
	}

	slot := &workerSlot{ready: make(chan struct{})}
	r.workers[aggregateID] = slot
	r.mu.Unlock()

	defer close(slot.ready)

	opts := append([]WorkerOption{}, r.opts...)
	opts = append(opts, WithPassivationCallback(func(w *Worker) {
		r.remove(aggregateID, w)
	}))

	w, err := NewWorker(r.category, aggregateID, r.behavior, r.log, opts...)
	if err == nil {
		err = w.Start(ctx)
	}
	if err != nil {
		slot.err = err
		r.remove(aggregateID, nil)
		return nil, err
	}

	slot.worker = w
	return w, nil
}

// remove drops a slot from the routing table if it still holds the given
// worker (nil matches a failed spawn).
func (r *Runtime) remove(aggregateID string, w *Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.workers[aggregateID]
	if !ok {
		return
	}
	if w != nil && slot.worker != nil && slot.worker != w {
		return
	}
	delete(r.workers, aggregateID)
}
