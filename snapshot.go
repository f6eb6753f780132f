package stoat

import (
	"encoding/json"
	"fmt"
)

// DefaultSnapshotThreshold is the number of applied events after which a
// snapshot is persisted.
const DefaultSnapshotThreshold = 10

// Snapshot pairs the lifecycle state with the aggregate state at a
// prefix-consistent point in the event stream. Adopting a snapshot plus all
// events recorded after it reconstructs the same state as a full replay.
type Snapshot struct {
	// Lifecycle is the accepting lifecycle state at capture time.
	Lifecycle LifecycleState

	// State is the aggregate state at capture time.
	State State
}

// snapshotEnvelope is the storage representation of a Snapshot. The state
// payload goes through the worker's serializer so JSON and binary serializers
// both work; the envelope itself is always JSON.
type snapshotEnvelope struct {
	Lifecycle string          `json:"lifecycle"`
	StateType string          `json:"stateType,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
}

// EncodeSnapshot serializes a Snapshot for storage.
func EncodeSnapshot(serializer Serializer, snap Snapshot) ([]byte, error) {
	env := snapshotEnvelope{Lifecycle: snap.Lifecycle.String()}

	if value, present := snap.State.Get(); present {
		env.StateType = GetEventType(value)
		data, err := serializer.Serialize(value)
		if err != nil {
			return nil, err
		}
		env.State = data
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, NewSerializationError("Snapshot", "serialize", err)
	}
	return data, nil
}

// DecodeSnapshot deserializes a stored snapshot payload.
func DecodeSnapshot(serializer Serializer, data []byte) (Snapshot, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, NewSerializationError("Snapshot", "deserialize", err)
	}

	lifecycle, err := ParseLifecycleState(env.Lifecycle)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Lifecycle: lifecycle, State: EmptyState()}
	if len(env.State) > 0 {
		value, err := serializer.Deserialize(env.State, env.StateType)
		if err != nil {
			return Snapshot{}, err
		}
		snap.State = PresentState(value)
	}

	if snap.State.IsPresent() != (lifecycle == Available) {
		return Snapshot{}, fmt.Errorf("stoat: corrupt snapshot: lifecycle %q with state present=%v",
			env.Lifecycle, snap.State.IsPresent())
	}
	return snap, nil
}

// snapshotPolicy counts events applied since the last snapshot and decides
// when the next one is due. A threshold of zero (or less) disables snapshots.
type snapshotPolicy struct {
	threshold int
	sinceLast int
}

// observe records one applied event and reports whether a snapshot is due.
func (p *snapshotPolicy) observe() bool {
	p.sinceLast++
	return p.threshold > 0 && p.sinceLast >= p.threshold
}

// reset clears the counter, after a snapshot save or snapshot-based recovery.
func (p *snapshotPolicy) reset() {
	p.sinceLast = 0
}
