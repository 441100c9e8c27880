package collect

import (
	"fmt"
	"time"

	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/registry"
)

// StorageCollector generates file-operation records.
type StorageCollector struct {
	base
	fileTypes  []string
	weights    []int
	operations []string
	folders    []string
	names      []string
}

// NewStorageCollector creates a storage collector seeded for reproducibility.
func NewStorageCollector(reg *registry.Registry, seed int64) *StorageCollector {
	c := &StorageCollector{
		base:       newBase(activity.Storage, reg, seed),
		fileTypes:  []string{"pdf", "docx", "xlsx", "png", "md", "csv"},
		weights:    []int{25, 20, 15, 15, 15, 10},
		operations: []string{"created", "modified", "deleted", "renamed", "downloaded"},
		folders:    []string{"~/Documents", "~/Downloads", "~/Desktop", "~/work/reports"},
		names:      []string{"report", "invoice", "notes", "draft", "summary", "plan"},
	}

	for _, ft := range c.fileTypes {
		reg.Register(registry.KindFileType, ft)
	}
	return c
}

// Collect produces one plausible file-operation record.
func (c *StorageCollector) Collect() collections.Document {
	ft := c.pickWeighted(c.fileTypes, c.weights)
	id := c.recordID(fmt.Sprintf("batch:%d", c.rng.Int63()), 0)
	return c.record(id, ft, c.pick(c.operations), c.recentTime())
}

// GenerateBatch produces n plausible file-operation records.
func (c *StorageCollector) GenerateBatch(n int) []collections.Document {
	docs := make([]collections.Document, n)
	for i := range docs {
		docs[i] = c.Collect()
	}
	return docs
}

// GenerateMatching substitutes the matched file type and operation verb into
// generated records; the file type, being more specific, keys the
// identifiers.
func (c *StorageCollector) GenerateMatching(query string, n int) []collections.Document {
	fileType, typeMatched := firstMatch(query, c.fileTypes)
	operation, opMatched := firstMatch(query, c.operations)

	seed := genericSeed
	switch {
	case typeMatched:
		seed = fileType
	case opMatched:
		seed = operation
	}

	docs := make([]collections.Document, n)
	for i := range docs {
		ft := fileType
		if !typeMatched {
			ft = c.pickWeighted(c.fileTypes, c.weights)
		}
		op := operation
		if !opMatched {
			op = c.pick(c.operations)
		}
		docs[i] = c.record(c.recordID(seed, i), ft, op, c.recentTime())
	}
	return docs
}

// GenerateNonMatching produces backdated records avoiding every file type and
// operation verb named in the query.
func (c *StorageCollector) GenerateNonMatching(query string, n int) []collections.Document {
	avoidTypes := matchTerms(query, c.fileTypes)
	avoidOps := matchTerms(query, c.operations)

	docs := make([]collections.Document, n)
	for i := range docs {
		ft := c.pickAvoiding(c.fileTypes, avoidTypes)
		op := c.pickAvoiding(c.operations, avoidOps)
		id := c.recordID(fmt.Sprintf("nonmatch:%d", c.rng.Int63()), i)
		docs[i] = c.record(id, ft, op, c.backdatedTime())
	}
	return docs
}

// GenerateTruth returns the identifiers GenerateMatching assigns, most
// specific matched category first.
func (c *StorageCollector) GenerateTruth(query string) []string {
	if fileType, ok := firstMatch(query, c.fileTypes); ok {
		return c.truthIDs(fileType, c.matchCount)
	}
	if operation, ok := firstMatch(query, c.operations); ok {
		return c.truthIDs(operation, c.matchCount)
	}
	return c.truthIDs(genericSeed, c.matchCount)
}

func (c *StorageCollector) record(id, fileType, operation string, at time.Time) collections.Document {
	name := fmt.Sprintf("%s_%03d.%s", c.pick(c.names), c.rng.Intn(1000), fileType)
	return collections.Document{
		collections.KeyField: id,
		"type":               c.kind.Token(),
		"file_name":          name,
		"file_type":          fileType,
		"entity_id":          c.reg.Register(registry.KindFileType, fileType),
		"operation":          operation,
		"path":               c.pick(c.folders) + "/" + name,
		"timestamp":          at.Format(time.RFC3339),
		"size_bytes":         1024 + c.rng.Intn(10*1024*1024),
	}
}
