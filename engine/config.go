package engine

import (
	"time"

	"github.com/chrontext/chrontext/backend"
	"github.com/chrontext/chrontext/split"
)

// Config wires an Engine's external collaborators and per-resource
// splitter configuration at startup (spec §5: "the engine holds... a
// shared handle to the RDF store, and per-backend connection pools").
// Grounded on the teacher's root-level construction sequence in
// cmd/datalog/main.go (open storage, build executor, run).
type Config struct {
	// Resources maps a virtualized resource name (spec §6.4) to the
	// splitter Config built from that resource's registered template.
	// A query names which resource it targets; Query looks up its Config
	// here before handing the root off to the coordinator.
	Resources map[string]split.Config

	// Store is the read-only RDF store (spec §6.3). Required.
	Store backend.RDFStore
	// Backend is the virtualized relational backend (spec §6.2). Required.
	Backend backend.VirtualizedBackend

	// MaxConcurrency bounds parallel VQ dispatch (spec §5); 0 uses the
	// coordinator's own default.
	MaxConcurrency int

	// PlanCacheSize/PlanCacheTTL bound the in-memory plan cache (spec
	// §6.7); both default (0) to the teacher's PlanCache defaults (1000
	// entries, 5 minutes).
	PlanCacheSize int
	PlanCacheTTL  time.Duration

	// PlanCacheDir, if non-empty, enables badger-backed persistence of
	// pushdown-path observations across restarts (spec §6.7). Empty means
	// in-memory-only, the default.
	PlanCacheDir string
}
