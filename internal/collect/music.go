package collect

import (
	"fmt"
	"time"

	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/registry"
)

// MusicCollector generates listening-history records.
type MusicCollector struct {
	base
	artists []string
	weights []int
	tracks  map[string][]string
	apps    []string
}

// NewMusicCollector creates a music collector seeded for reproducibility.
func NewMusicCollector(reg *registry.Registry, seed int64) *MusicCollector {
	c := &MusicCollector{
		base:    newBase(activity.Music, reg, seed),
		artists: []string{"Radiohead", "Miles Davis", "Daft Punk", "Nina Simone", "Aphex Twin"},
		weights: []int{25, 20, 25, 15, 15},
		tracks: map[string][]string{
			"Radiohead":   {"Paranoid Android", "Karma Police", "Weird Fishes"},
			"Miles Davis": {"So What", "Blue in Green", "Freddie Freeloader"},
			"Daft Punk":   {"Harder Better Faster Stronger", "Around the World", "Veridis Quo"},
			"Nina Simone": {"Feeling Good", "Sinnerman", "I Put a Spell on You"},
			"Aphex Twin":  {"Avril 14th", "Windowlicker", "Xtal"},
		},
		apps: []string{"Spotify", "Apple Music", "YouTube Music"},
	}

	for _, name := range c.artists {
		reg.Register(registry.KindArtist, name)
	}
	return c
}

// Collect produces one plausible listening record.
func (c *MusicCollector) Collect() collections.Document {
	artist := c.pickWeighted(c.artists, c.weights)
	id := c.recordID(fmt.Sprintf("batch:%d", c.rng.Int63()), 0)
	return c.record(id, artist, c.pick(c.apps), c.recentTime())
}

// GenerateBatch produces n plausible listening records.
func (c *MusicCollector) GenerateBatch(n int) []collections.Document {
	docs := make([]collections.Document, n)
	for i := range docs {
		docs[i] = c.Collect()
	}
	return docs
}

// GenerateMatching substitutes the matched artist (and player app, when the
// query names one) into generated records. The artist is the more specific
// category and keys the identifiers.
func (c *MusicCollector) GenerateMatching(query string, n int) []collections.Document {
	artist, artistMatched := firstMatch(query, c.artists)
	app, appMatched := firstMatch(query, c.apps)

	seed := genericSeed
	switch {
	case artistMatched:
		seed = artist
	case appMatched:
		seed = app
	}

	docs := make([]collections.Document, n)
	for i := range docs {
		a := artist
		if !artistMatched {
			a = c.pickWeighted(c.artists, c.weights)
		}
		player := app
		if !appMatched {
			player = c.pick(c.apps)
		}
		docs[i] = c.record(c.recordID(seed, i), a, player, c.recentTime())
	}
	return docs
}

// GenerateNonMatching produces backdated records avoiding every artist and
// app named in the query.
func (c *MusicCollector) GenerateNonMatching(query string, n int) []collections.Document {
	avoidArtists := matchTerms(query, c.artists)
	avoidApps := matchTerms(query, c.apps)

	docs := make([]collections.Document, n)
	for i := range docs {
		artist := c.pickAvoiding(c.artists, avoidArtists)
		app := c.pickAvoiding(c.apps, avoidApps)
		id := c.recordID(fmt.Sprintf("nonmatch:%d", c.rng.Int63()), i)
		docs[i] = c.record(id, artist, app, c.backdatedTime())
	}
	return docs
}

// GenerateTruth returns the identifiers GenerateMatching assigns, most
// specific matched category first.
func (c *MusicCollector) GenerateTruth(query string) []string {
	if artist, ok := firstMatch(query, c.artists); ok {
		return c.truthIDs(artist, c.matchCount)
	}
	if app, ok := firstMatch(query, c.apps); ok {
		return c.truthIDs(app, c.matchCount)
	}
	return c.truthIDs(genericSeed, c.matchCount)
}

func (c *MusicCollector) record(id, artist, app string, played time.Time) collections.Document {
	tracks := c.tracks[artist]
	track := "Untitled"
	if len(tracks) > 0 {
		track = c.pick(tracks)
	}
	return collections.Document{
		collections.KeyField: id,
		"type":               c.kind.Token(),
		"artist":             artist,
		"entity_id":          c.reg.Register(registry.KindArtist, artist),
		"track":              track,
		"app":                app,
		"timestamp":          played.Format(time.RFC3339),
		"duration_seconds":   120 + c.rng.Intn(300),
	}
}
