// Package metrics provides Prometheus metrics integration for stoat.
//
// This package implements stoat.Instrumentation on top of Prometheus
// collectors, covering command processing, event application, snapshots,
// recovery, and worker lifecycle.
//
// Basic usage:
//
//	m := metrics.New(metrics.WithServiceName("accounts"))
//	m.MustRegister()
//
//	worker, err := stoat.NewWorker("Account", "123", behavior, log,
//		stoat.WithInstrumentation(m))
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	stoat "github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// Default metric labels.
const (
	LabelCategory    = "category"
	LabelCommandType = "command_type"
	LabelStatus      = "status"
	LabelErrorType   = "error_type"
	LabelService     = "service"
)

// Status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Ensure Metrics implements stoat.Instrumentation.
var _ stoat.Instrumentation = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for stoat workers.
type Metrics struct {
	namespace   string
	subsystem   string
	serviceName string

	// Command metrics
	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	commandsDeferred *prometheus.CounterVec
	pendingDepth     *prometheus.GaugeVec

	// Event metrics
	eventsAppliedTotal *prometheus.CounterVec

	// Snapshot metrics
	snapshotsTotal *prometheus.CounterVec

	// Recovery metrics
	recoveryDuration    *prometheus.HistogramVec
	recoveryEventsTotal *prometheus.CounterVec

	// Worker lifecycle metrics
	workersActive *prometheus.GaugeVec

	// Error metrics
	errorsTotal *prometheus.CounterVec
}

// Option configures Metrics.
type Option func(*Metrics)

// WithNamespace sets the Prometheus namespace.
func WithNamespace(namespace string) Option {
	return func(m *Metrics) {
		m.namespace = namespace
	}
}

// WithSubsystem sets the Prometheus subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Metrics) {
		m.subsystem = subsystem
	}
}

// WithServiceName sets the service name label.
func WithServiceName(name string) Option {
	return func(m *Metrics) {
		m.serviceName = name
	}
}

// New creates a new Metrics instance with default settings.
func New(opts ...Option) *Metrics {
	m := &Metrics{
		namespace:   "stoat",
		subsystem:   "",
		serviceName: "unknown",
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initMetrics()
	return m
}

// initMetrics initializes all Prometheus metrics.
func (m *Metrics) initMetrics() {
	m.commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "commands_total",
			Help:      "Total number of commands processed.",
		},
		[]string{LabelService, LabelCategory, LabelCommandType, LabelStatus},
	)

	m.commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "command_duration_seconds",
			Help:      "Duration of command processing in seconds, from mailbox receipt to reply.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelService, LabelCategory, LabelCommandType},
	)

	m.commandsDeferred = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "commands_deferred_total",
			Help:      "Total number of commands queued behind an in-flight validation.",
		},
		[]string{LabelService, LabelCategory},
	)

	m.pendingDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "pending_queue_depth",
			Help:      "Pending queue depth observed at the latest deferral.",
		},
		[]string{LabelService, LabelCategory},
	)

	m.eventsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_applied_total",
			Help:      "Total number of events persisted and applied to aggregate state.",
		},
		[]string{LabelService, LabelCategory},
	)

	m.snapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "snapshots_total",
			Help:      "Total number of snapshot save attempts.",
		},
		[]string{LabelService, LabelCategory, LabelStatus},
	)

	m.recoveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "recovery_duration_seconds",
			Help:      "Duration of worker startup recovery in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelService, LabelCategory},
	)

	m.recoveryEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "recovery_events_total",
			Help:      "Total number of events replayed during recovery.",
		},
		[]string{LabelService, LabelCategory},
	)

	m.workersActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "workers_active",
			Help:      "Number of workers currently running.",
		},
		[]string{LabelService, LabelCategory},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors by type.",
		},
		[]string{LabelService, LabelCategory, LabelErrorType},
	)
}

// Collectors returns all Prometheus collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.commandsTotal,
		m.commandDuration,
		m.commandsDeferred,
		m.pendingDepth,
		m.eventsAppliedTotal,
		m.snapshotsTotal,
		m.recoveryDuration,
		m.recoveryEventsTotal,
		m.workersActive,
		m.errorsTotal,
	}
}

// MustRegister registers all collectors with the default registry.
// Panics if registration fails.
func (m *Metrics) MustRegister() {
	prometheus.MustRegister(m.Collectors()...)
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(registry prometheus.Registerer) error {
	for _, collector := range m.Collectors() {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// CommandReceived implements stoat.Instrumentation.
func (m *Metrics) CommandReceived(category, commandType string) {
	// Counted at completion; nothing to record on receipt.
}

// CommandCompleted implements stoat.Instrumentation.
func (m *Metrics) CommandCompleted(category, commandType string, duration time.Duration, err error) {
	m.commandDuration.WithLabelValues(m.serviceName, category, commandType).Observe(duration.Seconds())

	status := StatusSuccess
	if err != nil {
		status = StatusError
		m.errorsTotal.WithLabelValues(m.serviceName, category, errorType(err)).Inc()
	}
	m.commandsTotal.WithLabelValues(m.serviceName, category, commandType, status).Inc()
}

// CommandDeferred implements stoat.Instrumentation.
func (m *Metrics) CommandDeferred(category string, depth int) {
	m.commandsDeferred.WithLabelValues(m.serviceName, category).Inc()
	m.pendingDepth.WithLabelValues(m.serviceName, category).Set(float64(depth))
}

// EventsApplied implements stoat.Instrumentation.
func (m *Metrics) EventsApplied(category string, count int) {
	m.eventsAppliedTotal.WithLabelValues(m.serviceName, category).Add(float64(count))
}

// SnapshotSaved implements stoat.Instrumentation.
func (m *Metrics) SnapshotSaved(category string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.snapshotsTotal.WithLabelValues(m.serviceName, category, status).Inc()
}

// RecoveryCompleted implements stoat.Instrumentation.
func (m *Metrics) RecoveryCompleted(category string, events int, fromSnapshot bool, duration time.Duration) {
	m.recoveryDuration.WithLabelValues(m.serviceName, category).Observe(duration.Seconds())
	m.recoveryEventsTotal.WithLabelValues(m.serviceName, category).Add(float64(events))
}

// WorkerStarted implements stoat.Instrumentation.
func (m *Metrics) WorkerStarted(category string) {
	m.workersActive.WithLabelValues(m.serviceName, category).Inc()
}

// WorkerStopped implements stoat.Instrumentation.
func (m *Metrics) WorkerStopped(category string) {
	m.workersActive.WithLabelValues(m.serviceName, category).Dec()
}

// errorType maps an error to a stable label value.
func errorType(err error) string {
	switch {
	case errors.Is(err, adapters.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, stoat.ErrCommandRejected):
		return "command_rejected"
	case errors.Is(err, stoat.ErrValidationPanicked):
		return "validation_panicked"
	case errors.Is(err, stoat.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, stoat.ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, stoat.ErrPendingQueueFull):
		return "pending_queue_full"
	case errors.Is(err, stoat.ErrWorkerStopped):
		return "worker_stopped"
	case errors.Is(err, stoat.ErrSerializationFailed):
		return "serialization_failed"
	default:
		return "unknown"
	}
}
