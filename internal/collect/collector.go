// Package collect provides synthetic activity collectors for the six activity
// domains. Each collector produces plausible records from its own weighted
// vocabulary tables, and can engineer records that match or avoid a given
// query text. Matching records carry deterministic identifiers derived from
// the matched vocabulary, which keeps generated data and ground truth in
// lockstep across runs.
package collect

import (
	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/registry"
)

// Collector is the shared contract across the six activity domains.
type Collector interface {
	// Kind returns the activity domain this collector generates for.
	Kind() activity.Kind

	// Collect produces one plausible record.
	Collect() collections.Document

	// GenerateBatch produces n plausible records.
	GenerateBatch(n int) []collections.Document

	// GenerateMatching produces records engineered to match the query text.
	// Record identifiers are deterministic in (query vocabulary, index).
	GenerateMatching(query string, n int) []collections.Document

	// GenerateNonMatching produces records engineered to avoid every
	// vocabulary term found in the query, backdated outside any recent
	// window used by matching data.
	GenerateNonMatching(query string, n int) []collections.Document

	// GenerateTruth returns the identifier set that should match the query,
	// equal by construction to GenerateMatching's identifiers.
	GenerateTruth(query string) []string

	// Seed reseeds the collector's random source.
	Seed(v int64)
}

// Table maps activity kinds to their collectors. Built once at startup;
// dispatch goes through the table rather than type names.
type Table map[activity.Kind]Collector

// NewTable builds collectors for all six kinds against one entity registry.
// Each collector gets a distinct stream derived from the base seed.
func NewTable(reg *registry.Registry, seed int64) Table {
	return NewTableWithMatchCount(reg, seed, DefaultMatchCount)
}

// NewTableWithMatchCount builds the table with a configured truth-set size.
func NewTableWithMatchCount(reg *registry.Registry, seed int64, matchCount int) Table {
	t := make(Table, 6)
	for i, k := range activity.All() {
		c := newCollector(k, reg, seed+int64(i))
		if s, ok := c.(matchCountSetter); ok {
			s.setMatchCount(matchCount)
		}
		t[k] = c
	}
	return t
}

// For returns the collector for a kind.
func (t Table) For(kind activity.Kind) (Collector, bool) {
	c, ok := t[kind]
	return c, ok
}

// Kinds returns the kinds present in the table, in canonical order.
func (t Table) Kinds() []activity.Kind {
	kinds := make([]activity.Kind, 0, len(t))
	for _, k := range activity.All() {
		if _, ok := t[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func newCollector(kind activity.Kind, reg *registry.Registry, seed int64) Collector {
	switch kind {
	case activity.Location:
		return NewLocationCollector(reg, seed)
	case activity.Music:
		return NewMusicCollector(reg, seed)
	case activity.Task:
		return NewTaskCollector(reg, seed)
	case activity.Media:
		return NewMediaCollector(reg, seed)
	case activity.Storage:
		return NewStorageCollector(reg, seed)
	case activity.Collaboration:
		return NewCollaborationCollector(reg, seed)
	default:
		panic("unknown activity kind: " + string(kind))
	}
}
