// Package pushdownpath implements the Pushdown-Path Recorder (spec
// component C9): it collects, during the pushdown rewriter's (C5)
// traversal, the ordered tag list for each independently-planned VQ, later
// exposed by the engine as `pushdown_paths` for observability and test
// assertions (spec §4.8). Grounded directly on the teacher's annotations
// package (datalog/annotations: Collector, Event, hierarchical name
// constants), renamed from "annotation events" to "pushdown path tags"
// but keeping the same collect-then-drain shape, including the
// mutex-guarded slice.
package pushdownpath

import (
	"sort"
	"sync"

	"github.com/chrontext/chrontext/pushdown"
)

// Collector records pushdown.Tag events per VQ candidate ID as the
// rewriter descends the algebra tree, and implements pushdown.Recorder so
// it can be handed straight to pushdown.Rewrite.
type Collector struct {
	mu    sync.Mutex
	paths map[int][]pushdown.Tag
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{paths: make(map[int][]pushdown.Tag)}
}

// Record appends one tag to a VQ's ordered path. Safe for concurrent use
// so independently-rewritten branches (e.g. the two sides of a Union) can
// record through the same Collector without racing.
func (c *Collector) Record(vqID int, tag pushdown.Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[vqID] = append(c.paths[vqID], tag)
}

// Path returns the ordered tag list recorded for one VQ.
func (c *Collector) Path(vqID int) []pushdown.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]pushdown.Tag, len(c.paths[vqID]))
	copy(out, c.paths[vqID])
	return out
}

// Drain returns every recorded VQ's path, keyed by VQ ID in ascending
// order — the shape the engine facade exposes as `pushdown_paths` (spec
// §4.8: "pushdown_paths: list<list<tag>>").
func (c *Collector) Drain() [][]pushdown.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, 0, len(c.paths))
	for id := range c.paths {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([][]pushdown.Tag, len(ids))
	for i, id := range ids {
		path := make([]pushdown.Tag, len(c.paths[id]))
		copy(path, c.paths[id])
		out[i] = path
	}
	return out
}
