package stoat

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// Serializer handles event and snapshot-state payload serialization.
type Serializer interface {
	// Serialize converts a value to bytes.
	Serialize(value interface{}) ([]byte, error)

	// Deserialize converts bytes back to a value.
	// The typeName is used to determine the target type.
	Deserialize(data []byte, typeName string) (interface{}, error)
}

// TypeRegistry maps type names to Go types.
// It is used by the JSONSerializer to deserialize payloads to the correct type.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewTypeRegistry creates a new empty TypeRegistry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types: make(map[string]reflect.Type),
	}
}

// Register adds a mapping from typeName to the Go type of the example.
// The example should be a value (not a pointer) of the type.
func (r *TypeRegistry) Register(typeName string, example interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := reflect.TypeOf(example)
	// If a pointer was passed, get the element type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.types[typeName] = t
}

// RegisterAll registers multiple values using their struct names as type names.
// Each example should be a value (not a pointer) of the type.
func (r *TypeRegistry) RegisterAll(examples ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, example := range examples {
		t := reflect.TypeOf(example)
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		r.types[t.Name()] = t
	}
}

// Lookup returns the Go type for the given type name.
// Returns nil and false if the type is not registered.
func (r *TypeRegistry) Lookup(typeName string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[typeName]
	return t, ok
}

// RegisteredTypes returns a slice of all registered type names.
func (r *TypeRegistry) RegisteredTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.types))
	for t := range r.types {
		types = append(types, t)
	}
	return types
}

// Count returns the number of registered types.
func (r *TypeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// JSONSerializer is the default Serializer implementation using JSON encoding.
type JSONSerializer struct {
	registry *TypeRegistry
}

// NewJSONSerializer creates a new JSONSerializer with an empty registry.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{
		registry: NewTypeRegistry(),
	}
}

// NewJSONSerializerWithRegistry creates a new JSONSerializer with the given registry.
func NewJSONSerializerWithRegistry(registry *TypeRegistry) *JSONSerializer {
	if registry == nil {
		registry = NewTypeRegistry()
	}
	return &JSONSerializer{
		registry: registry,
	}
}

// Register adds a type to the serializer's registry.
func (s *JSONSerializer) Register(typeName string, example interface{}) {
	s.registry.Register(typeName, example)
}

// RegisterAll registers multiple types using their struct names as type names.
func (s *JSONSerializer) RegisterAll(examples ...interface{}) {
	s.registry.RegisterAll(examples...)
}

// Registry returns the underlying TypeRegistry.
func (s *JSONSerializer) Registry() *TypeRegistry {
	return s.registry
}

// Serialize converts a value to JSON bytes.
func (s *JSONSerializer) Serialize(value interface{}) ([]byte, error) {
	if value == nil {
		return nil, NewSerializationError("nil", "serialize", fmt.Errorf("value cannot be nil"))
	}

	data, err := json.Marshal(value)
	if err != nil {
		typeName := reflect.TypeOf(value).Name()
		return nil, NewSerializationError(typeName, "serialize", err)
	}

	return data, nil
}

// Deserialize converts JSON bytes back to a value.
// If the type is registered, returns a value of that type.
// Otherwise, returns a map[string]interface{}.
func (s *JSONSerializer) Deserialize(data []byte, typeName string) (interface{}, error) {
	if len(data) == 0 {
		return nil, NewSerializationError(typeName, "deserialize", fmt.Errorf("data cannot be empty"))
	}

	// Try to find registered type
	t, ok := s.registry.Lookup(typeName)
	if !ok {
		// Fall back to map if type not registered
		var result map[string]interface{}
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, NewSerializationError(typeName, "deserialize", err)
		}
		return result, nil
	}

	// Create new instance of registered type
	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, NewSerializationError(typeName, "deserialize", err)
	}

	// Return the value (not pointer)
	return ptr.Elem().Interface(), nil
}

// GetEventType returns the type name for the given value.
// It uses the struct name as the type name.
func GetEventType(event interface{}) string {
	if event == nil {
		return ""
	}

	t := reflect.TypeOf(event)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
