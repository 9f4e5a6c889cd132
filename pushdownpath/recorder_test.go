package pushdownpath

import (
	"testing"

	"github.com/chrontext/chrontext/pushdown"
	"github.com/stretchr/testify/assert"
)

func TestCollectorDrainOrdersByVQID(t *testing.T) {
	c := NewCollector()
	c.Record(1, pushdown.TagFilterInner)
	c.Record(0, pushdown.TagProjectInner)
	c.Record(0, pushdown.TagFilterInner)

	drained := c.Drain()
	assert.Equal(t, [][]pushdown.Tag{
		{pushdown.TagProjectInner, pushdown.TagFilterInner},
		{pushdown.TagFilterInner},
	}, drained)
}

func TestCollectorPathReturnsIndependentCopy(t *testing.T) {
	c := NewCollector()
	c.Record(0, pushdown.TagFilterInner)
	path := c.Path(0)
	path[0] = pushdown.TagGroupInner
	assert.Equal(t, pushdown.TagFilterInner, c.Path(0)[0])
}
