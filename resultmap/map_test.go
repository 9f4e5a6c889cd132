package resultmap

import (
	"testing"
	"time"

	"github.com/chrontext/chrontext/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNativeColumnsRetypesAndNormalizesUTC(t *testing.T) {
	base := time.Date(2022, 6, 1, 8, 46, 0, 0, time.FixedZone("local", 3600))
	types := []ColumnType{
		{Variable: "s", IsIRI: true},
		{Variable: "t", XSDDatatype: rdf.XSDDateTime},
		{Variable: "v", XSDDatatype: rdf.XSDDouble},
	}
	columns := map[string][]interface{}{
		"s": {"https://example.org/ts1"},
		"t": {base},
		"v": {101.5},
	}
	sm, err := FromNativeColumns(types, columns, 1)
	require.NoError(t, err)
	require.Len(t, sm.Rows, 1)

	idTerm := sm.Rows[0][0]
	assert.Equal(t, rdf.NamedNode{IRI: "https://example.org/ts1"}, idTerm)

	tsTerm, ok := sm.Rows[0][1].(rdf.Literal)
	require.True(t, ok)
	assert.Equal(t, rdf.XSDDateTime, tsTerm.Datatype)
	parsed, err := time.Parse(time.RFC3339Nano, tsTerm.Lexical)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, parsed.Location())
	assert.Equal(t, base.UTC(), parsed.UTC())
}

func TestFromNativeColumnsLeavesUnboundNil(t *testing.T) {
	types := []ColumnType{{Variable: "v", XSDDatatype: rdf.XSDInteger}}
	columns := map[string][]interface{}{"v": {nil}}
	sm, err := FromNativeColumns(types, columns, 1)
	require.NoError(t, err)
	assert.Nil(t, sm.Rows[0][0])
}
