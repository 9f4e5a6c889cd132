package backend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/rdf"
)

// MemorySeries is one logical time-series held by MemoryBackend: a
// sequence of (timestamp, value) observations for one identifier.
type MemorySeries struct {
	ID         string
	Timestamps []time.Time
	Values     []float64
}

// MemoryBackend is an in-memory VirtualizedBackend reference
// implementation, used only by this module's own tests (the real
// relational executor is an external collaborator per spec §1). Grounded
// on a simple column-store table scan: every Execute call filters,
// groups, and aggregates Series row-by-row rather than emitting SQL.
type MemoryBackend struct {
	Series map[string]MemorySeries
}

// NewMemoryBackend builds a MemoryBackend over a fixed set of series.
func NewMemoryBackend(series map[string]MemorySeries) *MemoryBackend {
	return &MemoryBackend{Series: series}
}

type observation struct {
	id  string
	ts  time.Time
	val float64
}

// Execute implements VirtualizedBackend (spec §6.2) by scanning the
// requested ids' observations, applying any Filtered/Distincted/Limited
// wrapping to them in VQ-tree order, then any Grouped wrapping. An
// ExpressionAs wrapper is passed through: its variable is not computed and
// the returned table has no column for it.
func (m *MemoryBackend) Execute(ctx context.Context, vq algebra.VQNode) (Table, error) {
	if err := ctx.Err(); err != nil {
		return Table{}, err
	}
	basic, obs, err := m.scan(vq)
	if err != nil {
		return Table{}, err
	}

	grouped, group, isGrouped := unwrapGrouped(vq)
	if isGrouped {
		return m.executeGrouped(basic, group, grouped)
	}
	return m.buildTable(basic, obs), nil
}

// scan walks down to the leaf Basic, collecting matching observations and
// applying any Filtered wrapper found along the way.
func (m *MemoryBackend) scan(vq algebra.VQNode) (algebra.Basic, []observation, error) {
	switch x := vq.(type) {
	case algebra.Basic:
		var obs []observation
		for _, id := range x.IDs {
			series, ok := m.Series[id]
			if !ok {
				continue
			}
			for i, ts := range series.Timestamps {
				obs = append(obs, observation{id: id, ts: ts, val: series.Values[i]})
			}
		}
		return x, obs, nil
	case algebra.Filtered:
		basic, obs, err := m.scan(x.Input)
		if err != nil {
			return basic, nil, err
		}
		var out []observation
		for _, o := range obs {
			keep, err := evalObsFilter(x.Expr, basic, o)
			if err != nil {
				return basic, nil, err
			}
			if keep {
				out = append(out, o)
			}
		}
		return basic, out, nil
	case algebra.ExpressionAs:
		return m.scan(x.Input)
	case algebra.Grouped:
		return m.scan(x.Input)
	case algebra.Distincted:
		basic, obs, err := m.scan(x.Input)
		if err != nil {
			return basic, nil, err
		}
		return basic, dedupeObservations(obs), nil
	case algebra.Limited:
		basic, obs, err := m.scan(x.Input)
		if err != nil {
			return basic, nil, err
		}
		if int64(len(obs)) > x.Limit {
			obs = obs[:x.Limit]
		}
		return basic, obs, nil
	case algebra.InnerJoin:
		return algebra.Basic{}, nil, fmt.Errorf("backend: MemoryBackend does not support InnerJoin VQ nodes")
	default:
		return algebra.Basic{}, nil, fmt.Errorf("backend: unsupported VQ node %T", vq)
	}
}

func unwrapGrouped(vq algebra.VQNode) (algebra.VQNode, algebra.Grouped, bool) {
	switch x := vq.(type) {
	case algebra.Grouped:
		return x.Input, x, true
	case algebra.Filtered:
		inner, g, ok := unwrapGrouped(x.Input)
		return inner, g, ok
	case algebra.ExpressionAs:
		inner, g, ok := unwrapGrouped(x.Input)
		return inner, g, ok
	case algebra.Distincted:
		inner, g, ok := unwrapGrouped(x.Input)
		return inner, g, ok
	case algebra.Limited:
		inner, g, ok := unwrapGrouped(x.Input)
		return inner, g, ok
	default:
		return vq, algebra.Grouped{}, false
	}
}

// dedupeObservations removes duplicate (id, timestamp, value) observations,
// the VQ-level optimization half of a pushed-down DISTINCT (see
// algebra.Distincted); observation is a plain comparable struct, so it
// doubles as its own deduplication key.
func dedupeObservations(obs []observation) []observation {
	seen := make(map[observation]bool, len(obs))
	var out []observation
	for _, o := range obs {
		if !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	return out
}

// evalObsFilter evaluates a pushed-down filter expression against one
// observation, resolving the VQ's own identifier/timestamp/value column
// variables from the observation rather than a generic binding.
func evalObsFilter(e algebra.Expression, basic algebra.Basic, o observation) (bool, error) {
	env := obsEnv(basic, o)
	ok, err := evalBool(e, env)
	return ok, err
}

func obsEnv(basic algebra.Basic, o observation) binding {
	env := make(binding)
	env[basic.IdentifierName] = rdf.Literal{Lexical: o.id, Datatype: rdf.XSDString}
	for _, cm := range basic.ColumnMapping {
		switch cm.Column {
		case "timestamp":
			env[cm.Variable] = rdf.Literal{Lexical: rdf.FormatDateTimeUTC(o.ts), Datatype: rdf.XSDDateTime}
		case "value":
			env[cm.Variable] = rdf.Literal{Lexical: fmt.Sprintf("%g", o.val), Datatype: rdf.XSDDouble}
		}
	}
	return env
}

func (m *MemoryBackend) buildTable(basic algebra.Basic, obs []observation) Table {
	ids := make([]interface{}, len(obs))
	cols := make(map[string][]interface{}, len(basic.ColumnMapping))
	for _, cm := range basic.ColumnMapping {
		cols[cm.Column] = make([]interface{}, len(obs))
	}
	for i, o := range obs {
		ids[i] = o.id
		for _, cm := range basic.ColumnMapping {
			switch cm.Column {
			case "timestamp":
				cols[cm.Column][i] = o.ts
			case "value":
				cols[cm.Column][i] = o.val
			}
		}
	}

	table := Table{Len: len(obs)}
	table.Columns = append(table.Columns, Column{Name: basic.IdentifierName, Rows: ids})
	for _, cm := range basic.ColumnMapping {
		table.Columns = append(table.Columns, Column{Name: cm.Variable, Rows: cols[cm.Column]})
	}
	return table
}

func (m *MemoryBackend) executeGrouped(basic algebra.Basic, group algebra.Grouped, input algebra.VQNode) (Table, error) {
	_, obs, err := m.scan(input)
	if err != nil {
		return Table{}, err
	}

	buckets := make(map[string][]observation)
	var order []string
	for _, o := range obs {
		env := obsEnv(basic, o)
		key := ""
		for _, by := range group.By {
			v, ok := env[by]
			if !ok {
				return Table{}, fmt.Errorf("backend: group-by variable %q not bound", by)
			}
			key += v.String() + "|"
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], o)
	}
	sort.Strings(order)

	table := Table{Len: len(order)}
	// The group-by columns (always including the identifier, so the
	// coordinator's residual join can still match each aggregated row
	// back to the entity it belongs to) come first, then the aggregates.
	for _, by := range group.By {
		table.Columns = append(table.Columns, Column{Name: by})
	}
	for _, agg := range group.Aggregations {
		table.Columns = append(table.Columns, Column{Name: agg.Var})
	}
	byOffset := len(group.By)
	for _, key := range order {
		rows := buckets[key]
		env := obsEnv(basic, rows[0])
		for i, by := range group.By {
			table.Columns[i].Rows = append(table.Columns[i].Rows, groupKeyNative(by, basic, env, rows[0]))
		}
		for i, agg := range group.Aggregations {
			v := aggregate(agg.Expr.Name, rows)
			table.Columns[byOffset+i].Rows = append(table.Columns[byOffset+i].Rows, v)
		}
	}
	return table, nil
}

// groupKeyNative returns the native Go value a group-by variable's bucket
// key should carry in the output Table: the raw instance ID string for
// the identifier variable (matching buildTable's convention, so
// coordinator.residualJoin can match on it), or the literal's native value
// for any other grouped column.
func groupKeyNative(by string, basic algebra.Basic, env binding, o observation) interface{} {
	if by == basic.IdentifierName {
		return o.id
	}
	term, ok := env[by]
	if !ok {
		return nil
	}
	lit, ok := term.(rdf.Literal)
	if !ok {
		return nil
	}
	native, err := rdf.ToNative(lit)
	if err != nil {
		return nil
	}
	return native
}

func aggregate(name algebra.AggregateName, rows []observation) float64 {
	if len(rows) == 0 {
		return 0
	}
	switch name {
	case algebra.AggSum:
		var sum float64
		for _, r := range rows {
			sum += r.val
		}
		return sum
	case algebra.AggAvg:
		var sum float64
		for _, r := range rows {
			sum += r.val
		}
		return sum / float64(len(rows))
	case algebra.AggMin:
		min := rows[0].val
		for _, r := range rows[1:] {
			if r.val < min {
				min = r.val
			}
		}
		return min
	case algebra.AggMax:
		max := rows[0].val
		for _, r := range rows[1:] {
			if r.val > max {
				max = r.val
			}
		}
		return max
	case algebra.AggCount:
		return float64(len(rows))
	default:
		return rows[0].val // SAMPLE
	}
}
