package rdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNative(t *testing.T) {
	t.Run("Integer", func(t *testing.T) {
		v, err := ToNative(Literal{Lexical: "42", Datatype: XSDInteger})
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)
	})

	t.Run("Double", func(t *testing.T) {
		v, err := ToNative(Literal{Lexical: "3.5", Datatype: XSDDouble})
		require.NoError(t, err)
		assert.Equal(t, 3.5, v)
	})

	t.Run("BooleanInvalidLexical", func(t *testing.T) {
		_, err := ToNative(Literal{Lexical: "not-a-bool", Datatype: XSDBoolean})
		require.Error(t, err)
		var lexErr *LexicalError
		assert.ErrorAs(t, err, &lexErr)
	})

	t.Run("NaiveDateTimeTreatedAsUTC", func(t *testing.T) {
		v, err := ToNative(Literal{Lexical: "2022-06-01T08:46:00", Datatype: XSDDateTime})
		require.NoError(t, err)
		tm, ok := v.(time.Time)
		require.True(t, ok)
		assert.Equal(t, time.UTC, tm.Location())
	})

	t.Run("ZuluDateTime", func(t *testing.T) {
		v, err := ToNative(Literal{Lexical: "2022-06-01T08:46:53Z", Datatype: XSDDateTime})
		require.NoError(t, err)
		tm := v.(time.Time)
		assert.Equal(t, 2022, tm.Year())
		assert.Equal(t, time.UTC, tm.Location())
	})

	t.Run("UnknownDatatype", func(t *testing.T) {
		_, err := ToNative(Literal{Lexical: "x", Datatype: "https://example.org/custom"})
		require.Error(t, err)
		var typeErr *TypeError
		assert.ErrorAs(t, err, &typeErr)
	})
}

func TestCastHierarchy(t *testing.T) {
	widest, ok := WidestNumeric(XSDInteger, XSDDouble)
	require.True(t, ok)
	assert.Equal(t, XSDDouble, widest)

	v, err := Cast(int64(5), XSDDouble)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(int64(1), int64(2)))
	assert.Equal(t, 0, Compare(2.0, int64(2)))
	assert.Equal(t, 1, Compare("b", "a"))
}

func TestEqual(t *testing.T) {
	a := Literal{Lexical: "1", Datatype: XSDInteger}
	b := Literal{Lexical: "1", Datatype: XSDInteger}
	c := Literal{Lexical: "1", Datatype: XSDDouble}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}
