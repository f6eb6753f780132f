// Package memory provides an in-memory implementation of the event log adapter.
// This adapter is primarily intended for testing and development purposes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AshkanYarmoradi/go-stoat/adapters"
	"github.com/google/uuid"
)

// Version constants for optimistic concurrency control.
// These are re-exported from the adapters package for convenience.
const (
	AnyVersion   = adapters.AnyVersion
	NoStream     = adapters.NoStream
	StreamExists = adapters.StreamExists
)

// Ensure MemoryAdapter implements all required interfaces.
var (
	_ adapters.EventLogAdapter  = (*MemoryAdapter)(nil)
	_ adapters.SnapshotAdapter  = (*MemoryAdapter)(nil)
	_ adapters.RecoveryStreamer = (*MemoryAdapter)(nil)
	_ adapters.HealthChecker    = (*MemoryAdapter)(nil)
)

// MemoryAdapter is an in-memory implementation of the event log and snapshot
// store. It is thread-safe and suitable for unit testing.
type MemoryAdapter struct {
	mu             sync.RWMutex
	streams        map[string]*streamData
	globalPosition uint64
	snapshots      map[string]*adapters.SnapshotRecord
	closed         bool
}

type streamData struct {
	info   adapters.StreamInfo
	events []adapters.StoredEvent
}

// Option configures a MemoryAdapter.
type Option func(*MemoryAdapter)

// NewAdapter creates a new in-memory event log adapter.
func NewAdapter(opts ...Option) *MemoryAdapter {
	adapter := &MemoryAdapter{
		streams:   make(map[string]*streamData),
		snapshots: make(map[string]*adapters.SnapshotRecord),
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// Initialize is a no-op for the memory adapter.
func (a *MemoryAdapter) Initialize(ctx context.Context) error {
	return nil
}

// Append stores events to the specified stream with optimistic concurrency control.
func (a *MemoryAdapter) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	if streamID == "" {
		return nil, adapters.ErrEmptyStreamID
	}

	if len(events) == 0 {
		return nil, adapters.ErrNoEvents
	}

	// Get or create stream
	stream, exists := a.streams[streamID]
	currentVersion := int64(0)
	if exists {
		currentVersion = stream.info.Version
	}

	// Check expected version
	if err := adapters.CheckVersion(streamID, expectedVersion, currentVersion, exists); err != nil {
		return nil, err
	}

	// Create stream if it doesn't exist
	if !exists {
		category := adapters.ExtractCategory(streamID)
		stream = &streamData{
			info: adapters.StreamInfo{
				StreamID:  streamID,
				Category:  category,
				Version:   0,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			},
			events: make([]adapters.StoredEvent, 0),
		}
		a.streams[streamID] = stream
	}

	// Append events
	now := time.Now()
	storedEvents := make([]adapters.StoredEvent, len(events))

	for i, event := range events {
		a.globalPosition++
		currentVersion++

		stored := adapters.StoredEvent{
			ID:             uuid.New().String(),
			StreamID:       streamID,
			Type:           event.Type,
			Data:           event.Data,
			Metadata:       event.Metadata,
			Version:        currentVersion,
			GlobalPosition: a.globalPosition,
			Timestamp:      now,
		}

		stream.events = append(stream.events, stored)
		storedEvents[i] = stored
	}

	// Update stream info
	stream.info.Version = currentVersion
	stream.info.EventCount = int64(len(stream.events))
	stream.info.UpdatedAt = now

	return storedEvents, nil
}

// Load retrieves events from a stream with version greater than fromVersion.
// A stream that does not exist yet yields an empty slice, not an error, so
// recovery of a fresh aggregate is clean.
func (a *MemoryAdapter) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	if streamID == "" {
		return nil, adapters.ErrEmptyStreamID
	}

	stream, exists := a.streams[streamID]
	if !exists {
		return []adapters.StoredEvent{}, nil
	}

	// Filter events by version
	events := make([]adapters.StoredEvent, 0)
	for _, event := range stream.events {
		if event.Version > fromVersion {
			events = append(events, event)
		}
	}

	return events, nil
}

// GetStreamInfo returns metadata about a stream.
func (a *MemoryAdapter) GetStreamInfo(ctx context.Context, streamID string) (*adapters.StreamInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	stream, exists := a.streams[streamID]
	if !exists {
		return nil, adapters.NewStreamNotFoundError(streamID)
	}

	// Return a copy to prevent mutation
	info := stream.info
	return &info, nil
}

// Close releases any resources held by the adapter.
func (a *MemoryAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	return nil
}

// SaveSnapshot stores a snapshot for the given stream, replacing any previous one.
func (a *MemoryAdapter) SaveSnapshot(ctx context.Context, streamID string, version int64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return adapters.ErrAdapterClosed
	}

	if streamID == "" {
		return adapters.ErrEmptyStreamID
	}

	// Copy data to prevent external mutation
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	a.snapshots[streamID] = &adapters.SnapshotRecord{
		StreamID:  streamID,
		Version:   version,
		Data:      dataCopy,
		CreatedAt: time.Now(),
	}

	return nil
}

// LoadSnapshot retrieves the latest snapshot for the given stream.
func (a *MemoryAdapter) LoadSnapshot(ctx context.Context, streamID string) (*adapters.SnapshotRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, adapters.ErrAdapterClosed
	}

	snapshot, exists := a.snapshots[streamID]
	if !exists {
		return nil, adapters.ErrSnapshotNotFound
	}

	// Return a copy to prevent mutation
	record := *snapshot
	return &record, nil
}

// DeleteSnapshot removes the snapshot for the given stream.
func (a *MemoryAdapter) DeleteSnapshot(ctx context.Context, streamID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return adapters.ErrAdapterClosed
	}

	delete(a.snapshots, streamID)
	return nil
}

// ReadRecovery returns the recovery stream for one aggregate: the latest
// snapshot offer (if any) followed by every event recorded after it, in
// version order. The channel is closed when recovery data is exhausted.
func (a *MemoryAdapter) ReadRecovery(ctx context.Context, streamID string) (<-chan adapters.RecoveryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if streamID == "" {
		return nil, adapters.ErrEmptyStreamID
	}

	// Capture a consistent view up front; the channel is then served
	// without holding the lock.
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return nil, adapters.ErrAdapterClosed
	}

	var snapshot *adapters.SnapshotRecord
	if rec, ok := a.snapshots[streamID]; ok {
		copied := *rec
		snapshot = &copied
	}

	fromVersion := int64(0)
	if snapshot != nil {
		fromVersion = snapshot.Version
	}

	var events []adapters.StoredEvent
	if stream, ok := a.streams[streamID]; ok {
		for _, event := range stream.events {
			if event.Version > fromVersion {
				events = append(events, event)
			}
		}
	}
	a.mu.RUnlock()

	ch := make(chan adapters.RecoveryItem)
	go func() {
		defer close(ch)

		if snapshot != nil {
			select {
			case ch <- adapters.RecoveryItem{Snapshot: snapshot}:
			case <-ctx.Done():
				return
			}
		}

		for i := range events {
			select {
			case ch <- adapters.RecoveryItem{Event: &events[i]}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// Ping reports whether the adapter is usable.
func (a *MemoryAdapter) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return adapters.ErrAdapterClosed
	}
	return nil
}

// Reset clears all streams and snapshots. It is intended for tests.
func (a *MemoryAdapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.streams = make(map[string]*streamData)
	a.snapshots = make(map[string]*adapters.SnapshotRecord)
	a.globalPosition = 0
}
