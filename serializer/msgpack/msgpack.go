// Package msgpack provides a MessagePack serializer implementation for stoat.
//
// MessagePack is a binary serialization format that produces smaller payloads
// than JSON while maintaining similar flexibility. It's particularly useful
// for high-throughput aggregate workloads.
//
// Basic usage:
//
//	serializer := msgpack.NewSerializer()
//	serializer.Register("AccountOpened", AccountOpened{})
//
//	data, err := serializer.Serialize(AccountOpened{AccountID: "123"})
//	event, err := serializer.Deserialize(data, "AccountOpened")
package msgpack

import (
	"fmt"
	"reflect"
	"sync"

	stoat "github.com/AshkanYarmoradi/go-stoat"
	"github.com/vmihailenco/msgpack/v5"
)

// Ensure Serializer implements stoat.Serializer.
var _ stoat.Serializer = (*Serializer)(nil)

// Serializer is a MessagePack implementation of stoat.Serializer.
// It provides efficient binary serialization with type registry support.
type Serializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewSerializer creates a new MessagePack Serializer with an empty registry.
func NewSerializer() *Serializer {
	return &Serializer{
		registry: make(map[string]reflect.Type),
	}
}

// Register adds a mapping from typeName to the Go type of the example.
// The example should be a value (not a pointer) of the event type.
func (s *Serializer) Register(typeName string, example interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(example)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[typeName] = t
}

// RegisterAll registers multiple events using their struct names as type names.
// Each example should be a value (not a pointer) of the event type.
func (s *Serializer) RegisterAll(examples ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, example := range examples {
		t := reflect.TypeOf(example)
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		s.registry[t.Name()] = t
	}
}

// Lookup returns the Go type for the given event type name.
// Returns nil and false if the type is not registered.
func (s *Serializer) Lookup(typeName string) (reflect.Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.registry[typeName]
	return t, ok
}

// RegisteredTypes returns a slice of all registered event type names.
func (s *Serializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	return types
}

// Serialize converts a value to MessagePack bytes.
func (s *Serializer) Serialize(value interface{}) ([]byte, error) {
	if value == nil {
		return nil, stoat.NewSerializationError("nil", "serialize", fmt.Errorf("value cannot be nil"))
	}

	data, err := msgpack.Marshal(value)
	if err != nil {
		return nil, stoat.NewSerializationError(reflect.TypeOf(value).Name(), "serialize", err)
	}

	return data, nil
}

// Deserialize converts MessagePack bytes back to a value.
// If the type name is registered, returns a value of that type.
// Otherwise, returns a map[string]interface{}.
func (s *Serializer) Deserialize(data []byte, typeName string) (interface{}, error) {
	if len(data) == 0 {
		return nil, stoat.NewSerializationError(typeName, "deserialize", fmt.Errorf("data cannot be empty"))
	}

	t, ok := s.Lookup(typeName)
	if !ok {
		// Fall back to map if type not registered
		var result map[string]interface{}
		if err := msgpack.Unmarshal(data, &result); err != nil {
			return nil, stoat.NewSerializationError(typeName, "deserialize", err)
		}
		return result, nil
	}

	ptr := reflect.New(t)
	if err := msgpack.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, stoat.NewSerializationError(typeName, "deserialize", err)
	}

	// Return the value (not pointer)
	return ptr.Elem().Interface(), nil
}
