package collect

import (
	"fmt"
	"time"

	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/registry"
)

// MediaCollector generates photo and video capture records.
type MediaCollector struct {
	base
	devices    []string
	weights    []int
	mediaTypes []string
	albums     []string
}

// NewMediaCollector creates a media collector seeded for reproducibility.
func NewMediaCollector(reg *registry.Registry, seed int64) *MediaCollector {
	c := &MediaCollector{
		base:       newBase(activity.Media, reg, seed),
		devices:    []string{"iPhone", "Pixel", "iPad", "MacBook Pro"},
		weights:    []int{40, 25, 20, 15},
		mediaTypes: []string{"photo", "video", "screenshot"},
		albums:     []string{"Camera Roll", "Trips", "Family", "Work"},
	}

	for _, name := range c.devices {
		reg.Register(registry.KindDevice, name)
	}
	return c
}

// Collect produces one plausible capture record.
func (c *MediaCollector) Collect() collections.Document {
	device := c.pickWeighted(c.devices, c.weights)
	id := c.recordID(fmt.Sprintf("batch:%d", c.rng.Int63()), 0)
	return c.record(id, device, c.pick(c.mediaTypes), c.recentTime())
}

// GenerateBatch produces n plausible capture records.
func (c *MediaCollector) GenerateBatch(n int) []collections.Document {
	docs := make([]collections.Document, n)
	for i := range docs {
		docs[i] = c.Collect()
	}
	return docs
}

// GenerateMatching substitutes the matched device and media type into
// generated records; when both are present they land in the same record and
// the device, being more specific, keys the identifiers.
func (c *MediaCollector) GenerateMatching(query string, n int) []collections.Document {
	device, deviceMatched := firstMatch(query, c.devices)
	mediaType, typeMatched := firstMatch(query, c.mediaTypes)

	seed := genericSeed
	switch {
	case deviceMatched:
		seed = device
	case typeMatched:
		seed = mediaType
	}

	docs := make([]collections.Document, n)
	for i := range docs {
		d := device
		if !deviceMatched {
			d = c.pickWeighted(c.devices, c.weights)
		}
		mt := mediaType
		if !typeMatched {
			mt = c.pick(c.mediaTypes)
		}
		docs[i] = c.record(c.recordID(seed, i), d, mt, c.recentTime())
	}
	return docs
}

// GenerateNonMatching produces backdated records avoiding every device and
// media type named in the query.
func (c *MediaCollector) GenerateNonMatching(query string, n int) []collections.Document {
	avoidDevices := matchTerms(query, c.devices)
	avoidTypes := matchTerms(query, c.mediaTypes)

	docs := make([]collections.Document, n)
	for i := range docs {
		device := c.pickAvoiding(c.devices, avoidDevices)
		mediaType := c.pickAvoiding(c.mediaTypes, avoidTypes)
		id := c.recordID(fmt.Sprintf("nonmatch:%d", c.rng.Int63()), i)
		docs[i] = c.record(id, device, mediaType, c.backdatedTime())
	}
	return docs
}

// GenerateTruth returns the identifiers GenerateMatching assigns, most
// specific matched category first.
func (c *MediaCollector) GenerateTruth(query string) []string {
	if device, ok := firstMatch(query, c.devices); ok {
		return c.truthIDs(device, c.matchCount)
	}
	if mediaType, ok := firstMatch(query, c.mediaTypes); ok {
		return c.truthIDs(mediaType, c.matchCount)
	}
	return c.truthIDs(genericSeed, c.matchCount)
}

func (c *MediaCollector) record(id, device, mediaType string, taken time.Time) collections.Document {
	ext := "jpg"
	if mediaType == "video" {
		ext = "mov"
	} else if mediaType == "screenshot" {
		ext = "png"
	}
	return collections.Document{
		collections.KeyField: id,
		"type":               c.kind.Token(),
		"media_type":         mediaType,
		"device":             device,
		"entity_id":          c.reg.Register(registry.KindDevice, device),
		"file_name":          fmt.Sprintf("IMG_%04d.%s", c.rng.Intn(10000), ext),
		"album":              c.pick(c.albums),
		"timestamp":          taken.Format(time.RFC3339),
		"width":              1920 + c.rng.Intn(2)*1920,
		"height":             1080 + c.rng.Intn(2)*1080,
	}
}
