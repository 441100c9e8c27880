package collect

import (
	"fmt"
	"time"

	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/registry"
)

// LocationCollector generates visit records for known places.
type LocationCollector struct {
	base
	locations []string
	weights   []int
	coords    map[string][2]float64
}

// NewLocationCollector creates a location collector seeded for reproducibility.
func NewLocationCollector(reg *registry.Registry, seed int64) *LocationCollector {
	c := &LocationCollector{
		base:      newBase(activity.Location, reg, seed),
		locations: []string{"Home", "Office", "Gym", "Coffee Shop", "Library", "Airport", "Park"},
		weights:   []int{30, 25, 10, 15, 10, 5, 5},
		coords: map[string][2]float64{
			"Home":        {37.7749, -122.4194},
			"Office":      {37.7897, -122.4011},
			"Gym":         {37.7812, -122.4103},
			"Coffee Shop": {37.7765, -122.4241},
			"Library":     {37.7785, -122.4156},
			"Airport":     {37.6213, -122.3790},
			"Park":        {37.7694, -122.4862},
		},
	}

	for _, name := range c.locations {
		reg.Register(registry.KindLocation, name)
	}
	return c
}

// Collect produces one plausible visit record.
func (c *LocationCollector) Collect() collections.Document {
	name := c.pickWeighted(c.locations, c.weights)
	id := c.recordID(fmt.Sprintf("batch:%d", c.rng.Int63()), 0)
	return c.record(id, name, c.recentTime())
}

// GenerateBatch produces n plausible visit records.
func (c *LocationCollector) GenerateBatch(n int) []collections.Document {
	docs := make([]collections.Document, n)
	for i := range docs {
		docs[i] = c.Collect()
	}
	return docs
}

// GenerateMatching produces records whose location name is taken from the
// query vocabulary, with identifiers deterministic in (matched value, index).
func (c *LocationCollector) GenerateMatching(query string, n int) []collections.Document {
	value, matched := firstMatch(query, c.locations)
	seed := value
	if !matched {
		seed = genericSeed
	}

	docs := make([]collections.Document, n)
	for i := range docs {
		name := value
		if !matched {
			name = c.pickWeighted(c.locations, c.weights)
		}
		docs[i] = c.record(c.recordID(seed, i), name, c.recentTime())
	}
	return docs
}

// GenerateNonMatching produces backdated records avoiding every location
// named in the query.
func (c *LocationCollector) GenerateNonMatching(query string, n int) []collections.Document {
	avoid := matchTerms(query, c.locations)

	docs := make([]collections.Document, n)
	for i := range docs {
		name := c.pickAvoiding(c.locations, avoid)
		id := c.recordID(fmt.Sprintf("nonmatch:%d", c.rng.Int63()), i)
		docs[i] = c.record(id, name, c.backdatedTime())
	}
	return docs
}

// GenerateTruth returns the identifiers GenerateMatching assigns for this
// query.
func (c *LocationCollector) GenerateTruth(query string) []string {
	if value, ok := firstMatch(query, c.locations); ok {
		return c.truthIDs(value, c.matchCount)
	}
	return c.truthIDs(genericSeed, c.matchCount)
}

func (c *LocationCollector) record(id, name string, arrival time.Time) collections.Document {
	stay := 20 + c.rng.Intn(160)
	base := c.coords[name]
	return collections.Document{
		collections.KeyField: id,
		"type":               c.kind.Token(),
		"location_name":      name,
		"entity_id":          c.reg.Register(registry.KindLocation, name),
		"latitude":           base[0] + (c.rng.Float64()-0.5)*0.002,
		"longitude":          base[1] + (c.rng.Float64()-0.5)*0.002,
		"timestamp":          arrival.Format(time.RFC3339),
		"departure_time":     arrival.Add(time.Duration(stay) * time.Minute).Format(time.RFC3339),
		"duration_minutes":   stay,
	}
}
