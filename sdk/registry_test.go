package sdk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/roost/sdk/testdata"
)

func playerTypes(t *testing.T) *TypeRegistry {
	t.Helper()
	types := NewTypeRegistry()
	require.NoError(t, RegisterJSON[testdata.Player](types, "Player"))
	return types
}

func TestRegisterJSON(t *testing.T) {
	types := playerTypes(t)

	obj, err := types.EncodeObject("p1", testdata.Player{Name: "Alice", Level: 7, Tags: []string{"pro"}})
	require.NoError(t, err)
	assert.Equal(t, "p1", obj.Key())
	assert.Equal(t, "Player", obj.Class())
	assert.Equal(t, `{"level":7,"name":"Alice","tags":["pro"],"__class__":"Player"}`, obj.JSON())

	back, err := DecodeAs[testdata.Player](types, obj)
	require.NoError(t, err)
	assert.Equal(t, testdata.Player{Name: "Alice", Level: 7, Tags: []string{"pro"}}, back)
}

func TestRegisterCodec(t *testing.T) {
	types := NewTypeRegistry()
	err := RegisterCodec(types, "Score",
		func(v int) (map[string]any, error) { return map[string]any{"points": v}, nil },
		func(obj *Object) (int, error) {
			n, ok := obj.GetInt("points")
			if !ok {
				return 0, errors.New("no points")
			}
			return int(n), nil
		})
	require.NoError(t, err)

	obj, err := types.EncodeObject("s", 42)
	require.NoError(t, err)
	v, err := DecodeAs[int](types, obj)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	broken, _ := NewObject("s", map[string]any{"other": 1})
	broken.SetClass("Score")
	_, err = types.Decode(broken)
	assert.True(t, IsConversion(err))
}

func TestTypeRegistry_Errors(t *testing.T) {
	types := playerTypes(t)

	t.Run("duplicate class", func(t *testing.T) {
		err := RegisterJSON[testdata.Player](types, "Player")
		assert.True(t, errors.Is(err, ErrInvalidOption))
	})

	t.Run("invalid registrations", func(t *testing.T) {
		assert.True(t, errors.Is(RegisterJSON[int](types, ""), ErrInvalidOption))
		err := RegisterCodec[int](types, "X", nil, nil)
		assert.True(t, errors.Is(err, ErrInvalidOption))
	})

	t.Run("unregistered type", func(t *testing.T) {
		_, err := types.EncodeObject("k", struct{}{})
		assert.True(t, IsConversion(err))
	})

	t.Run("missing or unknown class", func(t *testing.T) {
		plain, _ := NewObject("k", map[string]any{"a": 1})
		_, err := types.Decode(plain)
		assert.True(t, IsConversion(err))

		plain.SetClass("Ghost")
		_, err = types.Decode(plain)
		assert.True(t, IsConversion(err))
	})

	t.Run("wrong target type", func(t *testing.T) {
		obj, _ := types.EncodeObject("k", testdata.Player{Name: "x"})
		_, err := DecodeAs[string](types, obj)
		assert.True(t, IsConversion(err))
	})

	assert.Equal(t, []string{"Player"}, types.Classes())
	_, ok := types.Lookup("Player")
	assert.True(t, ok)
}

func TestLoadResponse_Decode(t *testing.T) {
	types := playerTypes(t)

	r := NewLoadResponse(jsonResponse(200, `{"success":{"a":{"__class__":"Player","name":"A","level":1}}}`))
	out, err := r.Decode(types)
	require.NoError(t, err)
	assert.Equal(t, testdata.Player{Name: "A", Level: 1}, out["a"])

	mixed := NewLoadResponse(jsonResponse(200, `{"success":{"a":{"name":"untyped"}}}`))
	_, err = mixed.Decode(types)
	assert.True(t, IsConversion(err))
}
