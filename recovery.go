package stoat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// recoverState rebuilds the worker's state before it accepts any command:
// adopt the latest snapshot if one is offered, then fold every event recorded
// after it, in order. Runs on the Start goroutine, before the mailbox loop
// exists, so it owns the state without contention.
//
// When the log implements adapters.RecoveryStreamer the stream is consumed
// lazily; otherwise recovery composes a snapshot load with an event load.
// A snapshot store that is a different object from the log owns snapshots
// the log's recovery stream cannot see, so recovery composes the two loads
// in that case too.
func (w *Worker) recoverState(ctx context.Context) error {
	start := time.Now()
	replayed := 0
	fromSnapshot := false

	streamer, streaming := w.log.(adapters.RecoveryStreamer)
	if streaming && w.snapshots != nil && any(w.snapshots) != any(w.log) {
		streaming = false
	}

	if streaming {
		items, err := streamer.ReadRecovery(ctx, w.streamID)
		if err != nil {
			return err
		}
		for item := range items {
			switch {
			case item.Snapshot != nil:
				if err := w.adoptSnapshot(item.Snapshot); err != nil {
					return err
				}
				fromSnapshot = true
			case item.Event != nil:
				if err := w.replayEvent(item.Event); err != nil {
					return err
				}
				replayed++
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	} else {
		if w.snapshots != nil {
			record, err := w.snapshots.LoadSnapshot(ctx, w.streamID)
			switch {
			case errors.Is(err, adapters.ErrSnapshotNotFound):
				// full replay
			case err != nil:
				return err
			default:
				if err := w.adoptSnapshot(record); err != nil {
					return err
				}
				fromSnapshot = true
			}
		}

		events, err := w.log.Load(ctx, w.streamID, w.version)
		if err != nil {
			return err
		}
		for i := range events {
			if err := w.replayEvent(&events[i]); err != nil {
				return err
			}
			replayed++
		}
	}

	w.logger.Info("recovery completed", "stream", w.streamID,
		"events", replayed, "snapshot", fromSnapshot, "version", w.version)
	w.instr.RecoveryCompleted(w.category, replayed, fromSnapshot, time.Since(start))
	return nil
}

// adoptSnapshot replaces the worker's state with the snapshot's and resets
// the event counter. Events before the snapshot version are never replayed.
func (w *Worker) adoptSnapshot(record *adapters.SnapshotRecord) error {
	snap, err := DecodeSnapshot(w.serializer, record.Data)
	if err != nil {
		return fmt.Errorf("stoat: snapshot at version %d: %w", record.Version, err)
	}

	w.lifecycle = snap.Lifecycle
	w.state = snap.State
	w.version = record.Version
	w.policy.reset()
	return nil
}

// replayEvent folds one recovered event into state. An aggregate with any
// applied event is never left Uninitialized, so the lifecycle is forced to
// Available after each event.
func (w *Worker) replayEvent(stored *adapters.StoredEvent) error {
	event, err := w.serializer.Deserialize(stored.Data, stored.Type)
	if err != nil {
		return fmt.Errorf("stoat: event %d of stream %q: %w", stored.Version, stored.StreamID, err)
	}

	w.state = applyEvent(w.behavior, w.state, event, w.logger)
	w.version = stored.Version
	w.policy.observe()
	w.lifecycle = Available
	return nil
}
