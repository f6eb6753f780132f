package adapters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		streamID string
		want     string
	}{
		{"Account-42", "Account"},
		{"Account-abc-def", "Account"},
		{"NoHyphen", "NoHyphen"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.streamID, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCategory(tt.streamID))
		})
	}
}

func TestCheckVersion(t *testing.T) {
	t.Run("AnyVersion always passes", func(t *testing.T) {
		assert.NoError(t, CheckVersion("Account-1", AnyVersion, 5, true))
		assert.NoError(t, CheckVersion("Account-1", AnyVersion, 0, false))
	})

	t.Run("NoStream requires absence", func(t *testing.T) {
		assert.NoError(t, CheckVersion("Account-1", NoStream, 0, false))
		assert.ErrorIs(t, CheckVersion("Account-1", NoStream, 3, true), ErrConcurrencyConflict)
	})

	t.Run("StreamExists requires presence", func(t *testing.T) {
		assert.NoError(t, CheckVersion("Account-1", StreamExists, 3, true))
		assert.ErrorIs(t, CheckVersion("Account-1", StreamExists, 0, false), ErrStreamNotFound)
	})

	t.Run("exact version must match", func(t *testing.T) {
		assert.NoError(t, CheckVersion("Account-1", 3, 3, true))
		assert.ErrorIs(t, CheckVersion("Account-1", 3, 5, true), ErrConcurrencyConflict)
	})

	t.Run("other negative versions are invalid", func(t *testing.T) {
		assert.ErrorIs(t, CheckVersion("Account-1", -7, 5, true), ErrInvalidVersion)
	})
}

func TestConcurrencyError(t *testing.T) {
	err := NewConcurrencyError("Account-1", 3, 5)

	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Contains(t, err.Error(), "Account-1")

	var conflict *ConcurrencyError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, int64(3), conflict.ExpectedVersion)
	assert.Equal(t, int64(5), conflict.ActualVersion)
}

func TestStreamNotFoundError(t *testing.T) {
	err := NewStreamNotFoundError("Account-1")

	assert.ErrorIs(t, err, ErrStreamNotFound)
	assert.Contains(t, err.Error(), "Account-1")
}
