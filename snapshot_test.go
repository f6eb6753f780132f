package stoat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	t.Run("available state", func(t *testing.T) {
		s := accountSerializer()
		snap := Snapshot{
			Lifecycle: Available,
			State:     PresentState(accountState{Balance: 42}),
		}

		data, err := EncodeSnapshot(s, snap)
		require.NoError(t, err)

		decoded, err := DecodeSnapshot(s, data)
		require.NoError(t, err)
		assert.Equal(t, Available, decoded.Lifecycle)
		require.True(t, decoded.State.IsPresent())
		assert.Equal(t, accountState{Balance: 42}, decoded.State.Value())
	})

	t.Run("uninitialized state", func(t *testing.T) {
		s := accountSerializer()
		snap := Snapshot{Lifecycle: Uninitialized, State: EmptyState()}

		data, err := EncodeSnapshot(s, snap)
		require.NoError(t, err)

		decoded, err := DecodeSnapshot(s, data)
		require.NoError(t, err)
		assert.Equal(t, Uninitialized, decoded.Lifecycle)
		assert.False(t, decoded.State.IsPresent())
	})
}

func TestDecodeSnapshot_Invalid(t *testing.T) {
	t.Run("malformed envelope", func(t *testing.T) {
		_, err := DecodeSnapshot(accountSerializer(), []byte("not json"))
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("busy lifecycle is rejected", func(t *testing.T) {
		_, err := DecodeSnapshot(accountSerializer(), []byte(`{"lifecycle":"busy"}`))
		assert.Error(t, err)
	})

	t.Run("available without state is rejected", func(t *testing.T) {
		_, err := DecodeSnapshot(accountSerializer(), []byte(`{"lifecycle":"available"}`))
		assert.Error(t, err)
	})

	t.Run("uninitialized with state is rejected", func(t *testing.T) {
		_, err := DecodeSnapshot(accountSerializer(),
			[]byte(`{"lifecycle":"uninitialized","stateType":"accountState","state":{"balance":1}}`))
		assert.Error(t, err)
	})
}

func TestSnapshotPolicy(t *testing.T) {
	t.Run("crosses at the threshold", func(t *testing.T) {
		p := snapshotPolicy{threshold: 3}

		assert.False(t, p.observe())
		assert.False(t, p.observe())
		assert.True(t, p.observe())
	})

	t.Run("reset restarts the count", func(t *testing.T) {
		p := snapshotPolicy{threshold: 2}

		p.observe()
		assert.True(t, p.observe())
		p.reset()
		assert.False(t, p.observe())
		assert.True(t, p.observe())
	})

	t.Run("zero threshold never crosses", func(t *testing.T) {
		p := snapshotPolicy{threshold: 0}

		for i := 0; i < 100; i++ {
			assert.False(t, p.observe())
		}
	})
}
