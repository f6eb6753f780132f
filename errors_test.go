package stoat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotInitializedError(t *testing.T) {
	err := NewNotInitializedError("acct-1")

	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Contains(t, err.Error(), "acct-1")
	assert.Equal(t, ErrNotInitialized, errors.Unwrap(err))
}

func TestAlreadyInitializedError(t *testing.T) {
	err := NewAlreadyInitializedError("acct-1", "OpenAccount")

	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Contains(t, err.Error(), "acct-1")
	assert.Contains(t, err.Error(), "OpenAccount")
}

func TestRejectedError(t *testing.T) {
	cause := errors.New("insufficient funds")
	err := NewRejectedError("Withdraw", cause)

	assert.ErrorIs(t, err, ErrCommandRejected)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Withdraw")
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestPanicError(t *testing.T) {
	err := NewPanicError("Deposit", "boom", "stack trace here")

	assert.ErrorIs(t, err, ErrValidationPanicked)
	assert.Contains(t, err.Error(), "Deposit")
	assert.Contains(t, err.Error(), "boom")

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "boom", panicErr.Value)
	assert.Equal(t, "stack trace here", panicErr.Stack)
}

func TestSerializationErrorType(t *testing.T) {
	cause := errors.New("bad json")
	err := NewSerializationError("accountOpened", "deserialize", cause)

	assert.ErrorIs(t, err, ErrSerializationFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "accountOpened")
	assert.Contains(t, err.Error(), "deserialize")
}

func TestCommandResult(t *testing.T) {
	t.Run("success result", func(t *testing.T) {
		result := NewSuccessResult("acct-1", 3, []interface{}{moneyDeposited{Amount: 5}})

		assert.True(t, result.IsSuccess())
		assert.False(t, result.IsError())
		assert.Equal(t, "acct-1", result.AggregateID)
		assert.Equal(t, int64(3), result.Version)
		assert.Len(t, result.Events, 1)
	})

	t.Run("error result", func(t *testing.T) {
		cause := errors.New("nope")
		result := NewErrorResult(cause)

		assert.False(t, result.IsSuccess())
		assert.True(t, result.IsError())
		assert.Equal(t, cause, result.Error)
	})
}

func TestBuildStreamID(t *testing.T) {
	assert.Equal(t, "Account-123", BuildStreamID("Account", "123"))
	assert.Equal(t, "Order-a-b-c", BuildStreamID("Order", "a-b-c"))
}
