// Package collections defines the collection store boundary consumed by the
// ablation engine: named collections of keyed documents supporting existence
// checks, full scans, key-filtered reads, bulk inserts, and point operations.
// The engine is agnostic to how a backend implements these.
package collections

import "context"

// Store is the collection store boundary. Implementations are not required to
// be safe for concurrent use; the harness runs a single cycle at a time.
type Store interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string) error

	// Exists reports whether the collection exists.
	Exists(ctx context.Context, collection string) (bool, error)

	// ReadAll returns every document in the collection.
	ReadAll(ctx context.Context, collection string) ([]Document, error)

	// RemoveAll removes every document from the collection, leaving the
	// collection itself in place.
	RemoveAll(ctx context.Context, collection string) error

	// ReadByKeys returns the documents whose key is in keys, preserving key
	// order and skipping misses.
	ReadByKeys(ctx context.Context, collection string, keys []string) ([]Document, error)

	// BulkInsert inserts documents in one request.
	BulkInsert(ctx context.Context, collection string, docs []Document) error

	// Get returns the document stored under key, if any.
	Get(ctx context.Context, collection, key string) (Document, bool, error)

	// Put inserts or updates a single document by its key.
	Put(ctx context.Context, collection string, doc Document) error

	// Close releases backend resources.
	Close() error
}

// Count returns the number of documents in a collection. It is derived from
// ReadAll; backends with a cheaper count are free to satisfy Counter.
func Count(ctx context.Context, s Store, collection string) (int, error) {
	if c, ok := s.(Counter); ok {
		return c.Count(ctx, collection)
	}
	docs, err := s.ReadAll(ctx, collection)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Counter is an optional Store extension for backends with a native count.
type Counter interface {
	Count(ctx context.Context, collection string) (int, error)
}
