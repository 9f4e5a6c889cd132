package pushdown

import (
	"testing"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	events []string
}

func (f *fakeRecorder) Record(vqID int, tag Tag) {
	f.events = append(f.events, string(tag))
}

func basicVQ() algebra.Basic {
	return algebra.Basic{
		Resource:       "ts",
		IdentifierName: "s",
		ColumnMapping: []algebra.ColumnMapping{
			{Column: "timestamp", Variable: "t"},
			{Column: "value", Variable: "v"},
		},
	}
}

func TestRewritePushesFilterIntoVirtualJoin(t *testing.T) {
	vqs := map[int]algebra.VQNode{0: basicVQ()}
	tree := algebra.Filter{
		Input: algebra.VirtualJoin{VQID: 0, SharedVars: []string{"s"}},
		Expr: algebra.Compare{
			Op:    algebra.OpGreater,
			Left:  algebra.Var{Name: "v"},
			Right: algebra.Lit{Value: rdf.Literal{Lexical: "100", Datatype: rdf.XSDInteger}},
		},
	}
	rec := &fakeRecorder{}
	result, vqsOut, _ := Rewrite(tree, vqs, rec)

	_, isVJ := result.(algebra.VirtualJoin)
	assert.True(t, isVJ, "fully-pushed Filter collapses back to the VirtualJoin placeholder")
	assert.Contains(t, rec.events, string(TagFilterInner))

	filtered, ok := vqsOut[0].(algebra.Filtered)
	require.True(t, ok)
	assert.NotNil(t, filtered.Expr)
}

func TestRewriteFallsBackWhenFilterUsesUnboundVar(t *testing.T) {
	vqs := map[int]algebra.VQNode{0: basicVQ()}
	tree := algebra.Filter{
		Input: algebra.VirtualJoin{VQID: 0, SharedVars: []string{"s"}},
		Expr:  algebra.Bound{Var: "unknown_var"},
	}
	rec := &fakeRecorder{}
	result, _, residual := Rewrite(tree, vqs, rec)

	_, isFilter := result.(algebra.Filter)
	assert.True(t, isFilter, "unpushable-but-static Filter stays above the coordinator join")
	assert.Empty(t, rec.events)
	assert.Empty(t, residual, "a Filter over variables the VQ never binds is not a residual op")
}

func TestRewriteTagsUnionSides(t *testing.T) {
	vqs := map[int]algebra.VQNode{0: basicVQ(), 1: basicVQ()}
	tree := algebra.Union{
		Left:  algebra.VirtualJoin{VQID: 0},
		Right: algebra.VirtualJoin{VQID: 1},
	}
	rec := &fakeRecorder{}
	Rewrite(tree, vqs, rec)
	assert.Contains(t, rec.events, string(TagUnionLeftSide))
	assert.Contains(t, rec.events, string(TagUnionRightSide))
}

func TestRewriteNeverPushesOffset(t *testing.T) {
	vqs := map[int]algebra.VQNode{0: basicVQ()}
	limit := int64(10)
	tree := algebra.Slice{
		Input:  algebra.VirtualJoin{VQID: 0},
		Offset: 5,
		Limit:  &limit,
	}
	rec := &fakeRecorder{}
	result, vqsOut, residual := Rewrite(tree, vqs, rec)

	// Slice always defers to the coordinator's residual slice, regardless
	// of whether LIMIT could also be pushed into the VQ as an optimization.
	_, isVJ := result.(algebra.VirtualJoin)
	assert.True(t, isVJ, "Slice collapses back to the VirtualJoin; enforcement moves to residual")
	assert.Contains(t, rec.events, string(TagSliceInner), "LIMIT is still pushed into the VQ as an optimization")

	limited, ok := vqsOut[0].(algebra.Limited)
	require.True(t, ok, "VQ absorbs LIMIT as Limited for its own table")
	assert.Equal(t, int64(10), limited.Limit)

	require.Len(t, residual, 1)
	slice, ok := residual[0].(ResidualSlice)
	require.True(t, ok)
	assert.Equal(t, int64(5), slice.Offset, "Offset is never pushed down (Open Question #1)")
	require.NotNil(t, slice.Limit)
	assert.Equal(t, int64(10), *slice.Limit, "Limit is re-applied residually even though the VQ also absorbed it")
}

func TestRewriteDefersCrossVQFilterToResidual(t *testing.T) {
	vqs := map[int]algebra.VQNode{
		0: algebra.Basic{
			Resource:       "ts-a",
			IdentifierName: "sa",
			ColumnMapping:  []algebra.ColumnMapping{{Column: "value", Variable: "va"}},
		},
		1: algebra.Basic{
			Resource:       "ts-b",
			IdentifierName: "sb",
			ColumnMapping:  []algebra.ColumnMapping{{Column: "value", Variable: "vb"}},
		},
	}
	tree := algebra.Filter{
		Input: algebra.Join{
			Left:  algebra.VirtualJoin{VQID: 0, SharedVars: []string{"sa"}},
			Right: algebra.VirtualJoin{VQID: 1, SharedVars: []string{"sb"}},
		},
		Expr: algebra.Compare{
			Op:    algebra.OpGreater,
			Left:  algebra.Var{Name: "va"},
			Right: algebra.Var{Name: "vb"},
		},
	}
	rec := &fakeRecorder{}
	result, _, residual := Rewrite(tree, vqs, rec)

	_, isJoin := result.(algebra.Join)
	assert.True(t, isJoin, "a Filter spanning two disjoint VQs cannot collapse into either one")
	assert.Empty(t, rec.events, "neither VQ accepts a predicate it can't alone satisfy")

	require.Len(t, residual, 1)
	filter, ok := residual[0].(ResidualFilter)
	require.True(t, ok)
	assert.Equal(t, []string{"va", "vb"}, algebra.Vars(filter.Expr))
}
