package collect

import (
	"fmt"
	"time"

	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/registry"
)

// CollaborationCollector generates messaging and meeting records.
type CollaborationCollector struct {
	base
	platforms    []string
	weights      []int
	channels     []string
	actions      []string
	participants []string
}

// NewCollaborationCollector creates a collaboration collector seeded for
// reproducibility.
func NewCollaborationCollector(reg *registry.Registry, seed int64) *CollaborationCollector {
	c := &CollaborationCollector{
		base:         newBase(activity.Collaboration, reg, seed),
		platforms:    []string{"Slack", "Zoom", "Teams", "Email"},
		weights:      []int{35, 25, 20, 20},
		channels:     []string{"#general", "#eng", "#design", "#standup"},
		actions:      []string{"message", "meeting", "call", "thread"},
		participants: []string{"Alex", "Sam", "Jordan", "Priya", "Chen", "Maria"},
	}

	for _, name := range c.platforms {
		reg.Register(registry.KindPlatform, name)
	}
	return c
}

// Collect produces one plausible collaboration record.
func (c *CollaborationCollector) Collect() collections.Document {
	platform := c.pickWeighted(c.platforms, c.weights)
	id := c.recordID(fmt.Sprintf("batch:%d", c.rng.Int63()), 0)
	return c.record(id, platform, c.pick(c.channels), c.recentTime())
}

// GenerateBatch produces n plausible collaboration records.
func (c *CollaborationCollector) GenerateBatch(n int) []collections.Document {
	docs := make([]collections.Document, n)
	for i := range docs {
		docs[i] = c.Collect()
	}
	return docs
}

// GenerateMatching substitutes the matched channel and platform into
// generated records; the channel, being more specific, keys the identifiers.
func (c *CollaborationCollector) GenerateMatching(query string, n int) []collections.Document {
	channel, channelMatched := firstMatch(query, c.channels)
	platform, platformMatched := firstMatch(query, c.platforms)

	seed := genericSeed
	switch {
	case channelMatched:
		seed = channel
	case platformMatched:
		seed = platform
	}

	docs := make([]collections.Document, n)
	for i := range docs {
		ch := channel
		if !channelMatched {
			ch = c.pick(c.channels)
		}
		p := platform
		if !platformMatched {
			p = c.pickWeighted(c.platforms, c.weights)
		}
		docs[i] = c.record(c.recordID(seed, i), p, ch, c.recentTime())
	}
	return docs
}

// GenerateNonMatching produces backdated records avoiding every platform and
// channel named in the query.
func (c *CollaborationCollector) GenerateNonMatching(query string, n int) []collections.Document {
	avoidPlatforms := matchTerms(query, c.platforms)
	avoidChannels := matchTerms(query, c.channels)

	docs := make([]collections.Document, n)
	for i := range docs {
		platform := c.pickAvoiding(c.platforms, avoidPlatforms)
		channel := c.pickAvoiding(c.channels, avoidChannels)
		id := c.recordID(fmt.Sprintf("nonmatch:%d", c.rng.Int63()), i)
		docs[i] = c.record(id, platform, channel, c.backdatedTime())
	}
	return docs
}

// GenerateTruth returns the identifiers GenerateMatching assigns, most
// specific matched category first.
func (c *CollaborationCollector) GenerateTruth(query string) []string {
	if channel, ok := firstMatch(query, c.channels); ok {
		return c.truthIDs(channel, c.matchCount)
	}
	if platform, ok := firstMatch(query, c.platforms); ok {
		return c.truthIDs(platform, c.matchCount)
	}
	return c.truthIDs(genericSeed, c.matchCount)
}

func (c *CollaborationCollector) record(id, platform, channel string, at time.Time) collections.Document {
	count := 1 + c.rng.Intn(4)
	people := make([]string, 0, count)
	for len(people) < count {
		p := c.pick(c.participants)
		if !containsFold(people, p) {
			people = append(people, p)
		}
	}
	return collections.Document{
		collections.KeyField: id,
		"type":               c.kind.Token(),
		"platform":           platform,
		"entity_id":          c.reg.Register(registry.KindPlatform, platform),
		"channel":            channel,
		"action":             c.pick(c.actions),
		"participants":       people,
		"timestamp":          at.Format(time.RFC3339),
		"message_count":      1 + c.rng.Intn(40),
	}
}
