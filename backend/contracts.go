// Package backend declares the narrow external-collaborator interfaces
// the coordinator (C7) drives — the RDF store (spec §6.3) and the
// virtualized relational backend (spec §6.2) — plus in-memory reference
// implementations used only by this module's own tests. Grounded on the
// teacher's Store/Iterator/StoreTx narrow-interface-over-an-external-
// engine shape (datalog/storage/store.go).
package backend

import (
	"context"

	"github.com/chrontext/chrontext/algebra"
)

// Row is one solution-mapping row from the RDF store: variable name ->
// bound RDF term. An absent key means unbound in that row.
type Row map[string]interface{}

// RDFStore is a read-only SPARQL 1.1 endpoint over an immutable snapshot
// (spec §6.3), reached either embedded or remote — the engine never cares
// which. SelectVars restricts the result columns (used by the coordinator
// for identifier discovery, spec §4.7 step 1).
type RDFStore interface {
	// Select executes a SPARQL SELECT-shaped algebra tree and returns its
	// rows. ctx carries cooperative cancellation (spec §5).
	Select(ctx context.Context, query algebra.Node, selectVars []string) ([]Row, error)
}

// Column is one output column of a Table: its declared name and the
// native Go type backend.Execute populates it with (string, int64,
// float64, bool, time.Time — spec §6.2: "Identifier columns carry
// string-typed values; timestamps are UTC instants; aggregate outputs
// carry the declared numeric type").
type Column struct {
	Name string
	Rows []interface{}
}

// Table is the columnar frame returned by a VirtualizedBackend (spec
// §6.2). All Columns share the same row count.
type Table struct {
	Columns []Column
	Len     int
}

// ColumnByName returns a Table column, or nil if absent.
func (t Table) ColumnByName(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Dialect names a recognized relational dialect a backend may target
// (spec §6.2); dialect selection is a property of the backend, not the VQ.
type Dialect string

const (
	DialectPostgres   Dialect = "postgres"
	DialectBigQuery   Dialect = "bigquery"
	DialectDatabricks Dialect = "databricks"
	DialectDuckDB     Dialect = "duckdb"
)

// VirtualizedBackend executes one materialized VQ against a relational
// time-series store (spec §6.2: "a single operation execute(vq) -> Table").
type VirtualizedBackend interface {
	Execute(ctx context.Context, vq algebra.VQNode) (Table, error)
}

// RelationalShape describes the logical relation backing a virtualized
// resource (spec §6.4): a table or view with timestamp/value/id columns
// plus any extra columns a template's parameters reference. The engine
// stores this only as metadata — it never parses SQL itself.
type RelationalShape struct {
	Table           string
	TimestampColumn string
	ValueColumn     string
	IDColumn        string
	ExtraColumns    []string
}
