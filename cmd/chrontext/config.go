package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chrontext/chrontext/split"
)

// resourceFile is the on-disk shape of a resource-registry config file
// (spec §6.6): one entry per virtualized resource, naming the predicate
// that carries its identifier and the column each data predicate maps to.
// Grounded on the teacher's flag-driven cmd/datalog/main.go, generalized
// from flags alone into a small declarative file since chrontext needs a
// registry of N resources, not just one database path.
type resourceFile struct {
	Resources map[string]resourceEntry `yaml:"resources"`
}

type resourceEntry struct {
	IdentifierPredicate string            `yaml:"identifier_predicate"`
	ColumnPredicates    map[string]string `yaml:"column_predicates"`
}

// loadResources reads a YAML resource-registry file into the
// engine.Config.Resources shape the engine expects.
func loadResources(path string) (map[string]split.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	var parsed resourceFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if len(parsed.Resources) == 0 {
		return nil, fmt.Errorf("config %q declares no resources", path)
	}

	resources := make(map[string]split.Config, len(parsed.Resources))
	for name, entry := range parsed.Resources {
		if entry.IdentifierPredicate == "" {
			return nil, fmt.Errorf("resource %q: identifier_predicate is required", name)
		}
		resources[name] = split.Config{
			Resource:            name,
			IdentifierPredicate: entry.IdentifierPredicate,
			ColumnPredicates:    entry.ColumnPredicates,
		}
	}
	return resources, nil
}
