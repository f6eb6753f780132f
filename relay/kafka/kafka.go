// Package kafka provides a Kafka event sink for stoat.
// Persisted events are relayed to Kafka topics using github.com/segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	stoat "github.com/AshkanYarmoradi/go-stoat"
	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// Ensure Sink implements stoat.EventSink.
var _ stoat.EventSink = (*Sink)(nil)

// Sink relays stored events to Kafka. Events for a stream are keyed by the
// stream ID so a topic partition preserves per-aggregate ordering. The topic
// is derived from the stream's category: <prefix><category>.
type Sink struct {
	brokers      []string
	topicPrefix  string
	balancer     kafkago.Balancer
	batchTimeout time.Duration
	transport    kafkago.RoundTripper
	mu           sync.RWMutex
	writers      map[string]*kafkago.Writer
}

// Option configures a Kafka Sink.
type Option func(*Sink)

// WithBrokers sets the Kafka broker addresses.
func WithBrokers(brokers ...string) Option {
	return func(s *Sink) {
		s.brokers = brokers
	}
}

// WithTopicPrefix sets the prefix prepended to the category to form the topic.
func WithTopicPrefix(prefix string) Option {
	return func(s *Sink) {
		s.topicPrefix = prefix
	}
}

// WithBalancer sets the message balancer (partitioner).
func WithBalancer(balancer kafkago.Balancer) Option {
	return func(s *Sink) {
		s.balancer = balancer
	}
}

// WithBatchTimeout sets the batch timeout for the writer.
func WithBatchTimeout(d time.Duration) Option {
	return func(s *Sink) {
		s.batchTimeout = d
	}
}

// New creates a new Kafka Sink.
func New(opts ...Option) *Sink {
	s := &Sink{
		brokers:      []string{"localhost:9092"},
		topicPrefix:  "stoat.events.",
		balancer:     &kafkago.LeastBytes{},
		batchTimeout: 10 * time.Millisecond,
		writers:      make(map[string]*kafkago.Writer),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// eventEnvelope is the JSON wire format for relayed events.
type eventEnvelope struct {
	ID             string            `json:"id"`
	StreamID       string            `json:"stream_id"`
	Type           string            `json:"type"`
	Data           json.RawMessage   `json:"data"`
	Metadata       adapters.Metadata `json:"metadata"`
	Version        int64             `json:"version"`
	GlobalPosition uint64            `json:"global_position"`
	Timestamp      time.Time         `json:"timestamp"`
}

// marshalEnvelope wraps a stored event in the wire envelope.
func marshalEnvelope(event adapters.StoredEvent) ([]byte, error) {
	return json.Marshal(eventEnvelope{
		ID:             event.ID,
		StreamID:       event.StreamID,
		Type:           event.Type,
		Data:           event.Data,
		Metadata:       event.Metadata,
		Version:        event.Version,
		GlobalPosition: event.GlobalPosition,
		Timestamp:      event.Timestamp,
	})
}

// Publish writes the stored events to the topic derived from the stream's
// category, in order.
func (s *Sink) Publish(ctx context.Context, streamID string, events []adapters.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}

	topic := s.topicPrefix + adapters.ExtractCategory(streamID)

	msgs := make([]kafkago.Message, 0, len(events))
	for _, event := range events {
		payload, err := marshalEnvelope(event)
		if err != nil {
			return fmt.Errorf("kafka: failed to marshal event %s: %w", event.ID, err)
		}

		msgs = append(msgs, kafkago.Message{
			Key:   []byte(streamID),
			Value: payload,
			Headers: []kafkago.Header{
				{Key: "event_type", Value: []byte(event.Type)},
			},
		})
	}

	writer := s.getWriter(topic)
	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: failed to write to topic %s: %w", topic, err)
	}

	return nil
}

// Close closes all Kafka writers.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for topic, w := range s.writers {
		if err := w.Close(); err != nil {
			return err
		}
		delete(s.writers, topic)
	}
	return nil
}

// getWriter returns or creates a Kafka writer for the given topic.
func (s *Sink) getWriter(topic string) *kafkago.Writer {
	s.mu.RLock()
	if w, ok := s.writers[topic]; ok {
		s.mu.RUnlock()
		return w
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if w, ok := s.writers[topic]; ok {
		return w
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(s.brokers...),
		Topic:                  topic,
		Balancer:               s.balancer,
		BatchTimeout:           s.batchTimeout,
		Transport:              s.transport,
		AllowAutoTopicCreation: true,
	}

	s.writers[topic] = w
	return w
}
