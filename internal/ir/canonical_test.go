package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	out, err := MarshalCanonical(Object{"b": Int(1), "a": Int(2), "c": Array{Bool(true), Null{}}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":[true,null]}`, string(out))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	out, err := MarshalCanonical(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(out))
}

func TestMarshalCanonical_EscapesControlAndQuotes(t *testing.T) {
	out, err := MarshalCanonical(String("q\"b\\n\n\x01"))
	require.NoError(t, err)
	assert.Equal(t, `"q\"b\\n\n\u0001"`, string(out))
}

func TestMarshalCanonical_LineSeparatorsUnescaped(t *testing.T) {
	out, err := MarshalCanonical(String("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(out))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := String("e\u0301")
	composed := String("\u00e9")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestObjectMarshalJSON_SortedKeys(t *testing.T) {
	out, err := Object{"z": String("<"), "a": Int(1)}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"z":"<"}`, string(out))
}

func TestMarshalJSON_KeepsStringsVerbatim(t *testing.T) {
	for _, s := range []string{"Cafe\u0301", "\ufb01le", "\u212b", "A\u030a"} {
		out, err := Object{"name": String(s), "tags": Array{String(s)}}.MarshalJSON()
		require.NoError(t, err)

		var back struct {
			Name string   `json:"name"`
			Tags []string `json:"tags"`
		}
		require.NoError(t, json.Unmarshal(out, &back))
		assert.Equal(t, s, back.Name)
		assert.Equal(t, []string{s}, back.Tags)
	}

	// Identity encoding still folds equivalent forms together.
	a, err := MarshalCanonical(Object{"name": String("Cafe\u0301")})
	require.NoError(t, err)
	b, err := MarshalCanonical(Object{"name": String("Caf\u00e9")})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
