// Package tracing provides OpenTelemetry integration for stoat.
//
// This package enables distributed tracing for aggregate operations:
// command validation and event log access.
//
// Basic usage:
//
//	tp := sdktrace.NewTracerProvider(...)
//	otel.SetTracerProvider(tp)
//
//	tracer := tracing.NewTracer()
//	traced := tracing.WrapBehavior(accountBehavior{}, tracer)
//	worker, err := stoat.NewWorker("Account", "123", traced, log)
//
// The tracing spans capture:
//   - Command type and validation duration
//   - Success/failure status
//   - Error details when validation fails
//   - Event log operation attributes (stream ID, expected version, counts)
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	stoat "github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

const (
	// TracerName is the name of the stoat tracer.
	TracerName = "github.com/AshkanYarmoradi/go-stoat"

	// DefaultServiceName is the default service name for spans.
	DefaultServiceName = "stoat"
)

// Tracer wraps an OpenTelemetry tracer for stoat operations.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithTracerProvider sets a custom TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(t *Tracer) {
		t.tracer = tp.Tracer(TracerName)
	}
}

// WithServiceName sets the service name for spans.
func WithServiceName(name string) TracerOption {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// NewTracer creates a new Tracer with the global TracerProvider.
func NewTracer(opts ...TracerOption) *Tracer {
	t := &Tracer{
		tracer:      otel.Tracer(TracerName),
		serviceName: DefaultServiceName,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Tracer returns the underlying OpenTelemetry tracer.
func (t *Tracer) Tracer() trace.Tracer {
	return t.tracer
}

// ServiceName returns the configured service name.
func (t *Tracer) ServiceName() string {
	return t.serviceName
}

// =============================================================================
// Behavior Decorator
// =============================================================================

// Ensure TracedBehavior implements stoat.Behavior.
var _ stoat.Behavior = (*TracedBehavior)(nil)

// TracedBehavior wraps a stoat.Behavior and records a span around each
// validation. Apply functions are pure and fast so they are not traced.
type TracedBehavior struct {
	inner  stoat.Behavior
	tracer *Tracer
}

// WrapBehavior wraps a behavior with tracing.
func WrapBehavior(inner stoat.Behavior, tracer *Tracer) *TracedBehavior {
	return &TracedBehavior{
		inner:  inner,
		tracer: tracer,
	}
}

// ValidateCreate traces the create validation.
func (b *TracedBehavior) ValidateCreate(ctx context.Context, cmd stoat.Command) ([]interface{}, error) {
	ctx, span := b.startValidationSpan(ctx, cmd)
	defer span.End()

	events, err := b.inner.ValidateCreate(ctx, cmd)
	recordValidation(span, events, err)
	return events, err
}

// ValidateUpdate traces the update validation.
func (b *TracedBehavior) ValidateUpdate(ctx context.Context, cmd stoat.Command, state interface{}) ([]interface{}, error) {
	ctx, span := b.startValidationSpan(ctx, cmd)
	defer span.End()

	events, err := b.inner.ValidateUpdate(ctx, cmd, state)
	recordValidation(span, events, err)
	return events, err
}

// ApplyCreate delegates to the wrapped behavior.
func (b *TracedBehavior) ApplyCreate(event interface{}) interface{} {
	return b.inner.ApplyCreate(event)
}

// ApplyUpdate delegates to the wrapped behavior.
func (b *TracedBehavior) ApplyUpdate(event interface{}, state interface{}) interface{} {
	return b.inner.ApplyUpdate(event, state)
}

// IsCreationEvent delegates to the wrapped behavior.
func (b *TracedBehavior) IsCreationEvent(event interface{}) bool {
	return b.inner.IsCreationEvent(event)
}

func (b *TracedBehavior) startValidationSpan(ctx context.Context, cmd stoat.Command) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("validate.%s", cmd.CommandType())

	ctx, span := b.tracer.StartSpan(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String("stoat.service", b.tracer.serviceName),
		attribute.String("stoat.command.type", cmd.CommandType()),
		attribute.String("stoat.command.kind", cmd.Kind().String()),
	)
	return ctx, span
}

func recordValidation(span trace.Span, events []interface{}, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.Int("stoat.events.count", len(events)))
}

// =============================================================================
// Event Log Middleware
// =============================================================================

// Ensure EventLogMiddleware implements adapters.EventLogAdapter.
var _ adapters.EventLogAdapter = (*EventLogMiddleware)(nil)

// EventLogMiddleware wraps an EventLogAdapter with tracing.
type EventLogMiddleware struct {
	adapter adapters.EventLogAdapter
	tracer  *Tracer
}

// NewEventLogMiddleware wraps an adapter with tracing.
func NewEventLogMiddleware(adapter adapters.EventLogAdapter, tracer *Tracer) *EventLogMiddleware {
	return &EventLogMiddleware{
		adapter: adapter,
		tracer:  tracer,
	}
}

// Append stores events with tracing.
func (m *EventLogMiddleware) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	ctx, span := m.tracer.StartSpan(ctx, "eventlog.append",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("stoat.service", m.tracer.serviceName),
		attribute.String("stoat.stream_id", streamID),
		attribute.Int64("stoat.expected_version", expectedVersion),
		attribute.Int("stoat.events.count", len(events)),
	)

	stored, err := m.adapter.Append(ctx, streamID, events, expectedVersion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	if len(stored) > 0 {
		span.SetAttributes(attribute.Int64("stoat.version", stored[len(stored)-1].Version))
	}
	return stored, nil
}

// Load retrieves events with tracing.
func (m *EventLogMiddleware) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	ctx, span := m.tracer.StartSpan(ctx, "eventlog.load",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("stoat.service", m.tracer.serviceName),
		attribute.String("stoat.stream_id", streamID),
		attribute.Int64("stoat.from_version", fromVersion),
	)

	events, err := m.adapter.Load(ctx, streamID, fromVersion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.Int("stoat.events.count", len(events)))
	return events, nil
}

// GetStreamInfo returns stream metadata with tracing.
func (m *EventLogMiddleware) GetStreamInfo(ctx context.Context, streamID string) (*adapters.StreamInfo, error) {
	ctx, span := m.tracer.StartSpan(ctx, "eventlog.stream_info",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("stoat.service", m.tracer.serviceName),
		attribute.String("stoat.stream_id", streamID),
	)

	info, err := m.adapter.GetStreamInfo(ctx, streamID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return info, nil
}

// Initialize delegates to the wrapped adapter.
func (m *EventLogMiddleware) Initialize(ctx context.Context) error {
	return m.adapter.Initialize(ctx)
}

// Close delegates to the wrapped adapter.
func (m *EventLogMiddleware) Close() error {
	return m.adapter.Close()
}
