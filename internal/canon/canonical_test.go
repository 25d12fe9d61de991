package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeys(t *testing.T) {
	data, err := Marshal(map[string]any{
		"zebra": 1,
		"alpha": 2,
		"mango": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mango":3,"zebra":1}`, string(data))
}

func TestMarshalNoHTMLEscaping(t *testing.T) {
	data, err := Marshal(map[string]any{"q": "a < b && c > d"})
	require.NoError(t, err)
	assert.Equal(t, `{"q":"a < b && c > d"}`, string(data))
}

func TestMarshalRejectsFloatsAndNulls(t *testing.T) {
	_, err := Marshal(map[string]any{"x": 1.5})
	assert.Error(t, err)

	_, err = Marshal(map[string]any{"x": nil})
	assert.Error(t, err)

	_, err = Marshal(nil)
	assert.Error(t, err)
}

func TestMarshalNestedStructures(t *testing.T) {
	data, err := Marshal(map[string]any{
		"items": []any{"a", "b"},
		"inner": map[string]any{"flag": true, "count": int64(7)},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"inner":{"count":7,"flag":true},"items":["a","b"]}`, string(data))
}

func TestMarshalLineSeparatorsLiteral(t *testing.T) {
	// U+2028 must come out literal, not as an escape sequence.
	data, err := Marshal("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(data))

	// A literal backslash followed by the text "u2028" must survive as an
	// escaped backslash, not get rewritten to the separator character.
	data, err = Marshal("a\\u2028b")
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data))
}

func TestFingerprintStableAcrossKeyOrder(t *testing.T) {
	a, err := Fingerprint(map[string]any{"x": 1, "y": "two"})
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"y": "two", "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Fingerprint(map[string]any{"x": 2, "y": "two"})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
