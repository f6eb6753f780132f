package stoat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSerializer_RoundTrip(t *testing.T) {
	t.Run("registered type round-trips to the concrete type", func(t *testing.T) {
		s := NewJSONSerializer()
		s.Register("accountOpened", accountOpened{})

		data, err := s.Serialize(accountOpened{Initial: 100})
		require.NoError(t, err)
		assert.JSONEq(t, `{"initial":100}`, string(data))

		value, err := s.Deserialize(data, "accountOpened")
		require.NoError(t, err)
		assert.Equal(t, accountOpened{Initial: 100}, value)
	})

	t.Run("unregistered type falls back to map", func(t *testing.T) {
		s := NewJSONSerializer()

		value, err := s.Deserialize([]byte(`{"amount":5}`), "moneyDeposited")
		require.NoError(t, err)

		result, ok := value.(map[string]interface{})
		require.True(t, ok)
		assert.EqualValues(t, 5, result["amount"])
	})

	t.Run("pointer example registers the element type", func(t *testing.T) {
		s := NewJSONSerializer()
		s.Register("accountOpened", &accountOpened{})

		value, err := s.Deserialize([]byte(`{"initial":1}`), "accountOpened")
		require.NoError(t, err)
		assert.Equal(t, accountOpened{Initial: 1}, value)
	})
}

func TestJSONSerializer_Errors(t *testing.T) {
	t.Run("nil value", func(t *testing.T) {
		s := NewJSONSerializer()

		_, err := s.Serialize(nil)

		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("empty data", func(t *testing.T) {
		s := NewJSONSerializer()

		_, err := s.Deserialize(nil, "accountOpened")

		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("malformed data for registered type", func(t *testing.T) {
		s := NewJSONSerializer()
		s.Register("accountOpened", accountOpened{})

		_, err := s.Deserialize([]byte(`{`), "accountOpened")

		assert.ErrorIs(t, err, ErrSerializationFailed)
	})
}

func TestTypeRegistry(t *testing.T) {
	t.Run("RegisterAll uses struct names", func(t *testing.T) {
		r := NewTypeRegistry()
		r.RegisterAll(accountOpened{}, moneyDeposited{})

		assert.Equal(t, 2, r.Count())
		assert.ElementsMatch(t, []string{"accountOpened", "moneyDeposited"}, r.RegisteredTypes())

		typ, ok := r.Lookup("accountOpened")
		require.True(t, ok)
		assert.Equal(t, "accountOpened", typ.Name())
	})

	t.Run("lookup of unknown type", func(t *testing.T) {
		r := NewTypeRegistry()

		_, ok := r.Lookup("ghost")
		assert.False(t, ok)
	})
}

func TestGetEventType(t *testing.T) {
	assert.Equal(t, "accountOpened", GetEventType(accountOpened{}))
	assert.Equal(t, "accountOpened", GetEventType(&accountOpened{}))
	assert.Equal(t, "", GetEventType(nil))
}
