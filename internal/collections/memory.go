package collections

import (
	"context"
	"time"

	"github.com/tracesearch/trace-ablate/internal/pkg/errors"
)

// MemoryStore is an in-process collection store. It is the default backend
// and the one used by tests. Documents are kept in insertion order so scans
// are deterministic.
type MemoryStore struct {
	collections map[string]*memCollection
	seq         int64
	closed      bool
}

type memCollection struct {
	docs  map[string]Document
	order []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
	}
}

// EnsureCollection creates the collection if missing.
func (s *MemoryStore) EnsureCollection(_ context.Context, collection string) error {
	if s.closed {
		return errors.New(errors.CodeUnavailable, "store is closed")
	}
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = &memCollection{docs: make(map[string]Document)}
	}
	return nil
}

// Exists reports whether the collection exists.
func (s *MemoryStore) Exists(_ context.Context, collection string) (bool, error) {
	if s.closed {
		return false, errors.New(errors.CodeUnavailable, "store is closed")
	}
	_, ok := s.collections[collection]
	return ok, nil
}

// ReadAll returns every document in insertion order.
func (s *MemoryStore) ReadAll(_ context.Context, collection string) ([]Document, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(col.order))
	for _, key := range col.order {
		docs = append(docs, col.docs[key].Clone())
	}
	return docs, nil
}

// RemoveAll empties the collection but keeps it in place.
func (s *MemoryStore) RemoveAll(_ context.Context, collection string) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	col.docs = make(map[string]Document)
	col.order = nil
	return nil
}

// ReadByKeys returns documents for the given keys, skipping misses.
func (s *MemoryStore) ReadByKeys(_ context.Context, collection string, keys []string) ([]Document, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(keys))
	for _, key := range keys {
		if doc, ok := col.docs[key]; ok {
			docs = append(docs, doc.Clone())
		}
	}
	return docs, nil
}

// BulkInsert inserts documents, stamping system fields on each.
func (s *MemoryStore) BulkInsert(_ context.Context, collection string, docs []Document) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		key := doc.Key()
		if key == "" {
			return errors.ValidationError("document has no id field")
		}
		s.insert(col, key, doc)
	}
	return nil
}

// Get returns the document stored under key.
func (s *MemoryStore) Get(_ context.Context, collection, key string) (Document, bool, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, false, err
	}

	doc, ok := col.docs[key]
	if !ok {
		return nil, false, nil
	}
	return doc.Clone(), true, nil
}

// Put inserts or updates one document by its key.
func (s *MemoryStore) Put(_ context.Context, collection string, doc Document) error {
	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	key := doc.Key()
	if key == "" {
		return errors.ValidationError("document has no id field")
	}
	s.insert(col, key, doc)
	return nil
}

// Close marks the store closed; further operations fail.
func (s *MemoryStore) Close() error {
	s.closed = true
	s.collections = nil
	return nil
}

// Count implements Counter.
func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	col, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return len(col.order), nil
}

func (s *MemoryStore) collection(name string) (*memCollection, error) {
	if s.closed {
		return nil, errors.New(errors.CodeUnavailable, "store is closed")
	}
	col, ok := s.collections[name]
	if !ok {
		return nil, errors.NotFoundError("collection " + name)
	}
	return col, nil
}

func (s *MemoryStore) insert(col *memCollection, key string, doc Document) {
	stored := doc.Clone()
	s.seq++
	stored["_seq"] = s.seq
	stored["_stored_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	if _, exists := col.docs[key]; !exists {
		col.order = append(col.order, key)
	}
	col.docs[key] = stored
}
