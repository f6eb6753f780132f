package stoat

import "fmt"

// LifecycleState is the control-plane state of an aggregate worker,
// distinct from the aggregate's business state.
type LifecycleState int

const (
	// Uninitialized means no state exists yet; only creation commands are accepted.
	Uninitialized LifecycleState = iota

	// Available means state exists; only update commands are accepted.
	Available

	// Busy means a command is mid-flight (validation outstanding);
	// new commands are queued, not processed.
	Busy
)

// String returns the string representation of the lifecycle state.
func (s LifecycleState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Available:
		return "available"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// ParseLifecycleState parses a lifecycle state from its string form.
// Busy is intentionally not parseable: snapshots are only taken from
// accepting states.
func ParseLifecycleState(s string) (LifecycleState, error) {
	switch s {
	case "uninitialized":
		return Uninitialized, nil
	case "available":
		return Available, nil
	default:
		return Uninitialized, fmt.Errorf("stoat: invalid lifecycle state %q", s)
	}
}

// accepting reports whether the state accepts new commands.
func (s LifecycleState) accepting() bool {
	return s == Uninitialized || s == Available
}
