// Package adapters provides interfaces for event log and snapshot store backends.
package adapters

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for adapter implementations.
// Adapters should return these (or errors that match via errors.Is)
// to enable consistent error handling across different backends.
var (
	// ErrConcurrencyConflict is returned when optimistic concurrency check fails.
	ErrConcurrencyConflict = errors.New("stoat: concurrency conflict")

	// ErrStreamNotFound is returned when a stream does not exist.
	ErrStreamNotFound = errors.New("stoat: stream not found")

	// ErrEmptyStreamID is returned when an empty stream ID is provided.
	ErrEmptyStreamID = errors.New("stoat: stream ID is required")

	// ErrNoEvents is returned when attempting to append zero events.
	ErrNoEvents = errors.New("stoat: no events to append")

	// ErrInvalidVersion is returned when an invalid version is specified.
	ErrInvalidVersion = errors.New("stoat: invalid version")

	// ErrAdapterClosed is returned when operations are attempted on a closed adapter.
	ErrAdapterClosed = errors.New("stoat: adapter is closed")

	// ErrSnapshotNotFound is returned when no snapshot exists for a stream.
	ErrSnapshotNotFound = errors.New("stoat: snapshot not found")
)

// Metadata contains event context for tracing and multi-tenancy.
// These fields are preserved across serialization and can be used
// for correlation, audit trails, and multi-tenant isolation.
type Metadata struct {
	// CorrelationID links related events across services.
	CorrelationID string `json:"correlationId,omitempty"`

	// CausationID identifies the command that caused this event.
	CausationID string `json:"causationId,omitempty"`

	// UserID identifies who triggered this event.
	UserID string `json:"userId,omitempty"`

	// TenantID for multi-tenant applications.
	TenantID string `json:"tenantId,omitempty"`

	// Custom holds any additional metadata.
	Custom map[string]string `json:"custom,omitempty"`
}

// EventRecord represents an event to be appended to a stream.
// This is the adapter-level representation of an event.
type EventRecord struct {
	// Type is the event type identifier.
	Type string

	// Data is the serialized event payload.
	Data []byte

	// Metadata contains optional contextual information.
	Metadata Metadata
}

// StoredEvent represents a persisted event with its storage metadata.
// This is returned when loading events from the log.
type StoredEvent struct {
	// ID is the unique event identifier.
	ID string

	// StreamID is the stream this event belongs to.
	StreamID string

	// Type is the event type identifier.
	Type string

	// Data is the serialized event payload.
	Data []byte

	// Metadata contains contextual information.
	Metadata Metadata

	// Version is the position within the stream (1-based).
	Version int64

	// GlobalPosition is the global ordering position across all streams.
	GlobalPosition uint64

	// Timestamp is when the event was stored.
	Timestamp time.Time
}

// StreamInfo contains metadata about an event stream.
type StreamInfo struct {
	// StreamID is the stream identifier.
	StreamID string

	// Category is the aggregate type (first part of stream ID).
	Category string

	// Version is the current stream version.
	Version int64

	// EventCount is the number of events in the stream.
	EventCount int64

	// CreatedAt is when the first event was stored.
	CreatedAt time.Time

	// UpdatedAt is when the last event was stored.
	UpdatedAt time.Time
}

// EventLogAdapter is the interface durable event log backends must implement.
// It provides the low-level operations for persisting and retrieving events.
//
// The log is shared across aggregate workers but always addressed by a
// per-aggregate stream ID; serializing appends within one stream is the
// adapter's responsibility.
type EventLogAdapter interface {
	// Append stores events to the specified stream with optimistic concurrency control.
	// The append is ordered and all-or-nothing per call.
	// expectedVersion specifies the expected current version of the stream:
	//   - AnyVersion (-1): Skip version check
	//   - NoStream (0): Stream must not exist
	//   - StreamExists (-2): Stream must exist
	//   - Any positive number: Stream must be at this exact version
	// Returns the stored events with their assigned positions, or an error.
	Append(ctx context.Context, streamID string, events []EventRecord, expectedVersion int64) ([]StoredEvent, error)

	// Load retrieves events from a stream with version greater than fromVersion,
	// in version order. Use fromVersion=0 to load all events.
	Load(ctx context.Context, streamID string, fromVersion int64) ([]StoredEvent, error)

	// GetStreamInfo returns metadata about a stream.
	// Returns ErrStreamNotFound if the stream does not exist.
	GetStreamInfo(ctx context.Context, streamID string) (*StreamInfo, error)

	// Initialize sets up the required storage schema.
	// This should be called once during application startup.
	Initialize(ctx context.Context) error

	// Close releases any resources held by the adapter.
	Close() error
}

// SnapshotRecord represents a stored aggregate snapshot.
type SnapshotRecord struct {
	// StreamID is the stream identifier.
	StreamID string

	// Version is the stream version at the time of the snapshot.
	// Recovery replays only events with a greater version.
	Version int64

	// Data is the serialized snapshot payload.
	Data []byte

	// CreatedAt is when the snapshot was stored.
	CreatedAt time.Time
}

// SnapshotAdapter stores aggregate snapshots to bound replay cost.
type SnapshotAdapter interface {
	// SaveSnapshot stores a snapshot for the given stream, replacing any
	// previous snapshot.
	SaveSnapshot(ctx context.Context, streamID string, version int64, data []byte) error

	// LoadSnapshot retrieves the latest snapshot for the given stream.
	// Returns ErrSnapshotNotFound if no snapshot exists.
	LoadSnapshot(ctx context.Context, streamID string) (*SnapshotRecord, error)

	// DeleteSnapshot removes the snapshot for the given stream.
	DeleteSnapshot(ctx context.Context, streamID string) error
}

// RecoveryItem is one element of a recovery stream: either a snapshot offer
// or a stored event. Exactly one of the fields is non-nil.
type RecoveryItem struct {
	// Snapshot is the snapshot offer, delivered at most once and always first.
	Snapshot *SnapshotRecord

	// Event is an event recorded after the offered snapshot.
	Event *StoredEvent
}

// RecoveryStreamer provides the startup recovery stream for one aggregate:
// the latest snapshot (if any) followed by every event recorded after it,
// in version order. The channel is closed when the recovery data is
// exhausted; the close is the end-of-recovery marker.
//
// Adapters that also implement SnapshotAdapter should offer the snapshot
// through this stream so workers need a single recovery path.
type RecoveryStreamer interface {
	ReadRecovery(ctx context.Context, streamID string) (<-chan RecoveryItem, error)
}

// HealthChecker provides health check capabilities.
type HealthChecker interface {
	// Ping checks if the adapter can connect to its backend.
	Ping(ctx context.Context) error
}
