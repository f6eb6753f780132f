package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	stoat "github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// =============================================================================
// Test Types
// =============================================================================

type openAccount struct{}

func (openAccount) CommandType() string     { return "OpenAccount" }
func (openAccount) Kind() stoat.CommandKind { return stoat.CommandCreate }

type deposit struct {
	amount int64
}

func (deposit) CommandType() string     { return "Deposit" }
func (deposit) Kind() stoat.CommandKind { return stoat.CommandUpdate }

type accountOpened struct{}
type moneyDeposited struct {
	Amount int64
}

type accountState struct {
	balance int64
}

type accountBehavior struct {
	rejectUpdates bool
}

func (b accountBehavior) ValidateCreate(ctx context.Context, cmd stoat.Command) ([]interface{}, error) {
	return []interface{}{accountOpened{}}, nil
}

func (b accountBehavior) ValidateUpdate(ctx context.Context, cmd stoat.Command, state interface{}) ([]interface{}, error) {
	if b.rejectUpdates {
		return nil, errors.New("account frozen")
	}
	dep := cmd.(deposit)
	return []interface{}{moneyDeposited{Amount: dep.amount}}, nil
}

func (b accountBehavior) ApplyCreate(event interface{}) interface{} {
	return accountState{}
}

func (b accountBehavior) ApplyUpdate(event interface{}, state interface{}) interface{} {
	s := state.(accountState)
	if dep, ok := event.(moneyDeposited); ok {
		s.balance += dep.Amount
	}
	return s
}

func (b accountBehavior) IsCreationEvent(event interface{}) bool {
	_, ok := event.(accountOpened)
	return ok
}

type mockAdapter struct {
	appendErr error
	loadErr   error
	events    []adapters.StoredEvent
}

func (m *mockAdapter) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	stored := make([]adapters.StoredEvent, len(events))
	for i, e := range events {
		stored[i] = adapters.StoredEvent{
			ID:             "event-" + e.Type,
			StreamID:       streamID,
			Type:           e.Type,
			Data:           e.Data,
			Metadata:       e.Metadata,
			Version:        expectedVersion + int64(i+1),
			GlobalPosition: uint64(i + 1),
			Timestamp:      time.Now(),
		}
	}
	return stored, nil
}

func (m *mockAdapter) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.events, nil
}

func (m *mockAdapter) GetStreamInfo(ctx context.Context, streamID string) (*adapters.StreamInfo, error) {
	return &adapters.StreamInfo{
		StreamID:   streamID,
		Version:    int64(len(m.events)),
		EventCount: int64(len(m.events)),
	}, nil
}

func (m *mockAdapter) Initialize(ctx context.Context) error { return nil }
func (m *mockAdapter) Close() error                         { return nil }

// newTestTracer returns a tracer backed by an in-memory span recorder.
func newTestTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tracer := NewTracer(WithTracerProvider(tp), WithServiceName("test-service"))
	return tracer, recorder
}

func findAttribute(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

// =============================================================================
// Behavior Decorator Tests
// =============================================================================

func TestTracedBehavior_ValidateCreate(t *testing.T) {
	t.Run("records span with command attributes", func(t *testing.T) {
		tracer, recorder := newTestTracer(t)
		traced := WrapBehavior(accountBehavior{}, tracer)

		events, err := traced.ValidateCreate(context.Background(), openAccount{})

		require.NoError(t, err)
		require.Len(t, events, 1)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "validate.OpenAccount", spans[0].Name())
		assert.Equal(t, codes.Ok, spans[0].Status().Code)

		val, ok := findAttribute(spans[0].Attributes(), "stoat.command.kind")
		require.True(t, ok)
		assert.Equal(t, "create", val.AsString())

		count, ok := findAttribute(spans[0].Attributes(), "stoat.events.count")
		require.True(t, ok)
		assert.Equal(t, int64(1), count.AsInt64())
	})
}

func TestTracedBehavior_ValidateUpdate(t *testing.T) {
	t.Run("success records event count", func(t *testing.T) {
		tracer, recorder := newTestTracer(t)
		traced := WrapBehavior(accountBehavior{}, tracer)

		events, err := traced.ValidateUpdate(context.Background(), deposit{amount: 10}, accountState{})

		require.NoError(t, err)
		require.Len(t, events, 1)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "validate.Deposit", spans[0].Name())
		assert.Equal(t, codes.Ok, spans[0].Status().Code)
	})

	t.Run("failure records error status", func(t *testing.T) {
		tracer, recorder := newTestTracer(t)
		traced := WrapBehavior(accountBehavior{rejectUpdates: true}, tracer)

		_, err := traced.ValidateUpdate(context.Background(), deposit{amount: 10}, accountState{})

		require.Error(t, err)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.Equal(t, "account frozen", spans[0].Status().Description)
		require.Len(t, spans[0].Events(), 1)
	})
}

func TestTracedBehavior_Delegation(t *testing.T) {
	t.Run("apply functions pass through untraced", func(t *testing.T) {
		tracer, recorder := newTestTracer(t)
		traced := WrapBehavior(accountBehavior{}, tracer)

		state := traced.ApplyCreate(accountOpened{})
		state = traced.ApplyUpdate(moneyDeposited{Amount: 5}, state)

		assert.Equal(t, accountState{balance: 5}, state)
		assert.True(t, traced.IsCreationEvent(accountOpened{}))
		assert.False(t, traced.IsCreationEvent(moneyDeposited{}))
		assert.Empty(t, recorder.Ended())
	})
}

// =============================================================================
// Event Log Middleware Tests
// =============================================================================

func TestEventLogMiddleware_Append(t *testing.T) {
	t.Run("success records stream attributes", func(t *testing.T) {
		tracer, recorder := newTestTracer(t)
		traced := NewEventLogMiddleware(&mockAdapter{}, tracer)

		stored, err := traced.Append(context.Background(), "Account-123", []adapters.EventRecord{
			{Type: "AccountOpened", Data: []byte(`{}`)},
		}, 0)

		require.NoError(t, err)
		require.Len(t, stored, 1)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "eventlog.append", spans[0].Name())
		assert.Equal(t, codes.Ok, spans[0].Status().Code)

		val, ok := findAttribute(spans[0].Attributes(), "stoat.stream_id")
		require.True(t, ok)
		assert.Equal(t, "Account-123", val.AsString())
	})

	t.Run("failure records error", func(t *testing.T) {
		tracer, recorder := newTestTracer(t)
		traced := NewEventLogMiddleware(&mockAdapter{appendErr: adapters.ErrConcurrencyConflict}, tracer)

		_, err := traced.Append(context.Background(), "Account-123", []adapters.EventRecord{
			{Type: "AccountOpened", Data: []byte(`{}`)},
		}, 0)

		require.Error(t, err)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
	})
}

func TestEventLogMiddleware_Load(t *testing.T) {
	t.Run("records event count", func(t *testing.T) {
		tracer, recorder := newTestTracer(t)
		traced := NewEventLogMiddleware(&mockAdapter{
			events: []adapters.StoredEvent{{Type: "AccountOpened"}, {Type: "MoneyDeposited"}},
		}, tracer)

		events, err := traced.Load(context.Background(), "Account-123", 0)

		require.NoError(t, err)
		require.Len(t, events, 2)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "eventlog.load", spans[0].Name())

		count, ok := findAttribute(spans[0].Attributes(), "stoat.events.count")
		require.True(t, ok)
		assert.Equal(t, int64(2), count.AsInt64())
	})
}

func TestEventLogMiddleware_GetStreamInfo(t *testing.T) {
	t.Run("records span", func(t *testing.T) {
		tracer, recorder := newTestTracer(t)
		traced := NewEventLogMiddleware(&mockAdapter{}, tracer)

		info, err := traced.GetStreamInfo(context.Background(), "Account-123")

		require.NoError(t, err)
		assert.Equal(t, "Account-123", info.StreamID)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "eventlog.stream_info", spans[0].Name())
	})
}
