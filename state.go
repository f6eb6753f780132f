package stoat

// State is an optional aggregate state value: absent before creation,
// present after. It is a tagged variant rather than a nullable reference so
// the correspondence with the lifecycle (absent iff Uninitialized) cannot be
// confused with a legitimately nil state value.
//
// State values are owned exclusively by the aggregate worker and treated as
// immutable; behaviors return new values instead of mutating old ones.
type State struct {
	present bool
	value   interface{}
}

// EmptyState returns the absent state.
func EmptyState() State {
	return State{}
}

// PresentState returns a present state holding v.
func PresentState(v interface{}) State {
	return State{present: true, value: v}
}

// IsPresent reports whether a state value exists.
func (s State) IsPresent() bool {
	return s.present
}

// Value returns the state value, or nil when absent.
func (s State) Value() interface{} {
	return s.value
}

// Get returns the state value and whether it is present.
func (s State) Get() (interface{}, bool) {
	return s.value, s.present
}
