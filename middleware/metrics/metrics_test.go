package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stoat "github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

func TestNew(t *testing.T) {
	t.Run("creates metrics with defaults", func(t *testing.T) {
		m := New()

		assert.NotNil(t, m)
		assert.Equal(t, "stoat", m.namespace)
		assert.Equal(t, "unknown", m.serviceName)
	})

	t.Run("with custom options", func(t *testing.T) {
		m := New(
			WithNamespace("custom"),
			WithSubsystem("aggregates"),
			WithServiceName("account-service"),
		)

		assert.Equal(t, "custom", m.namespace)
		assert.Equal(t, "aggregates", m.subsystem)
		assert.Equal(t, "account-service", m.serviceName)
	})
}

func TestMetrics_Collectors(t *testing.T) {
	t.Run("returns all collectors", func(t *testing.T) {
		m := New()

		assert.Len(t, m.Collectors(), 10)
	})
}

func TestMetrics_Register(t *testing.T) {
	t.Run("registers with custom registry", func(t *testing.T) {
		m := New()
		registry := prometheus.NewRegistry()

		err := m.Register(registry)

		require.NoError(t, err)
	})

	t.Run("double registration fails", func(t *testing.T) {
		m := New()
		registry := prometheus.NewRegistry()

		require.NoError(t, m.Register(registry))
		err := m.Register(registry)

		assert.Error(t, err)
	})
}

func TestMetrics_CommandCompleted(t *testing.T) {
	t.Run("success increments success counter", func(t *testing.T) {
		m := New(WithServiceName("svc"))

		m.CommandCompleted("Account", "OpenAccount", 10*time.Millisecond, nil)

		count := testutil.ToFloat64(m.commandsTotal.WithLabelValues("svc", "Account", "OpenAccount", StatusSuccess))
		assert.Equal(t, float64(1), count)
	})

	t.Run("error increments error counter and error type", func(t *testing.T) {
		m := New(WithServiceName("svc"))

		m.CommandCompleted("Account", "Deposit", time.Millisecond, stoat.NewRejectedError("Deposit", errors.New("insufficient funds")))

		count := testutil.ToFloat64(m.commandsTotal.WithLabelValues("svc", "Account", "Deposit", StatusError))
		assert.Equal(t, float64(1), count)

		errCount := testutil.ToFloat64(m.errorsTotal.WithLabelValues("svc", "Account", "command_rejected"))
		assert.Equal(t, float64(1), errCount)
	})

	t.Run("concurrency conflict maps to its own error type", func(t *testing.T) {
		m := New(WithServiceName("svc"))

		m.CommandCompleted("Account", "Deposit", time.Millisecond, adapters.NewConcurrencyError("Account-1", 1, 2))

		errCount := testutil.ToFloat64(m.errorsTotal.WithLabelValues("svc", "Account", "concurrency_conflict"))
		assert.Equal(t, float64(1), errCount)
	})
}

func TestMetrics_CommandDeferred(t *testing.T) {
	t.Run("records counter and depth gauge", func(t *testing.T) {
		m := New(WithServiceName("svc"))

		m.CommandDeferred("Account", 3)
		m.CommandDeferred("Account", 5)

		count := testutil.ToFloat64(m.commandsDeferred.WithLabelValues("svc", "Account"))
		assert.Equal(t, float64(2), count)

		depth := testutil.ToFloat64(m.pendingDepth.WithLabelValues("svc", "Account"))
		assert.Equal(t, float64(5), depth)
	})
}

func TestMetrics_EventsApplied(t *testing.T) {
	t.Run("adds event count", func(t *testing.T) {
		m := New(WithServiceName("svc"))

		m.EventsApplied("Account", 2)
		m.EventsApplied("Account", 3)

		count := testutil.ToFloat64(m.eventsAppliedTotal.WithLabelValues("svc", "Account"))
		assert.Equal(t, float64(5), count)
	})
}

func TestMetrics_SnapshotSaved(t *testing.T) {
	t.Run("records success and error separately", func(t *testing.T) {
		m := New(WithServiceName("svc"))

		m.SnapshotSaved("Account", nil)
		m.SnapshotSaved("Account", errors.New("disk full"))

		ok := testutil.ToFloat64(m.snapshotsTotal.WithLabelValues("svc", "Account", StatusSuccess))
		assert.Equal(t, float64(1), ok)

		failed := testutil.ToFloat64(m.snapshotsTotal.WithLabelValues("svc", "Account", StatusError))
		assert.Equal(t, float64(1), failed)
	})
}

func TestMetrics_RecoveryCompleted(t *testing.T) {
	t.Run("records replayed events", func(t *testing.T) {
		m := New(WithServiceName("svc"))

		m.RecoveryCompleted("Account", 7, true, 20*time.Millisecond)

		count := testutil.ToFloat64(m.recoveryEventsTotal.WithLabelValues("svc", "Account"))
		assert.Equal(t, float64(7), count)
	})
}

func TestMetrics_WorkerLifecycle(t *testing.T) {
	t.Run("gauge tracks active workers", func(t *testing.T) {
		m := New(WithServiceName("svc"))

		m.WorkerStarted("Account")
		m.WorkerStarted("Account")
		m.WorkerStopped("Account")

		active := testutil.ToFloat64(m.workersActive.WithLabelValues("svc", "Account"))
		assert.Equal(t, float64(1), active)
	})
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rejected", stoat.ErrCommandRejected, "command_rejected"},
		{"panicked", stoat.ErrValidationPanicked, "validation_panicked"},
		{"not initialized", stoat.NewNotInitializedError("Account-1"), "not_initialized"},
		{"already initialized", stoat.ErrAlreadyInitialized, "already_initialized"},
		{"queue full", stoat.ErrPendingQueueFull, "pending_queue_full"},
		{"worker stopped", stoat.ErrWorkerStopped, "worker_stopped"},
		{"serialization", stoat.ErrSerializationFailed, "serialization_failed"},
		{"unknown", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorType(tt.err))
		})
	}
}
