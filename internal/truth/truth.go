// Package truth persists and retrieves per-query expected result sets. Records
// are keyed by a composite of query identifier and collection token, so one
// query carries an independent expectation per activity collection.
package truth

import (
	"context"
	"time"

	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/pkg/errors"
	"github.com/tracesearch/trace-ablate/internal/pkg/logger"
)

// DefaultCollection is the collection truth records live in.
const DefaultCollection = "AblationGroundTruth"

// Record is one query's expectation against one activity collection.
type Record struct {
	QueryID     string
	QueryText   string
	Collection  string // activity collection token, e.g. "location_activity"
	ExpectedIDs []string
	EntityIDs   []string
}

// Key returns the record's composite storage key.
func (r Record) Key() string {
	return CompositeKey(r.QueryID, r.Collection)
}

// CompositeKey builds the storage key for a query/collection pair.
func CompositeKey(queryID, token string) string {
	return queryID + "_" + token
}

// Store reads and writes truth records in a backing document store.
type Store struct {
	store      collections.Store
	collection string
	log        *logger.Logger
}

// NewStore creates a truth store over the given backend. An empty collection
// name selects DefaultCollection.
func NewStore(store collections.Store, collection string, log *logger.Logger) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	if log == nil {
		log = logger.Default()
	}
	return &Store{store: store, collection: collection, log: log}
}

// Collection returns the backing collection name.
func (s *Store) Collection() string {
	return s.collection
}

// Ensure creates the backing collection if it does not exist.
func (s *Store) Ensure(ctx context.Context) error {
	return s.store.EnsureCollection(ctx, s.collection)
}

// Put upserts one truth record and reports whether it was stored. Failures are
// logged rather than propagated so a bad truth write cannot abort a run;
// callers that need hard guarantees check the return value.
func (s *Store) Put(ctx context.Context, rec Record) bool {
	if len(rec.ExpectedIDs) == 0 {
		s.log.WithQuery(rec.QueryID).Warn("storing empty truth set",
			"collection", rec.Collection)
	}

	doc := collections.Document{
		collections.KeyField: rec.Key(),
		"query_id":           rec.QueryID,
		"query_text":         rec.QueryText,
		"collection":         rec.Collection,
		"expected_ids":       rec.ExpectedIDs,
		"entity_ids":         rec.EntityIDs,
		"created_at":         time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.store.Put(ctx, s.collection, doc); err != nil {
		s.log.WithQuery(rec.QueryID).WithError(err).Error("truth write failed",
			"collection", rec.Collection)
		return false
	}
	return true
}

// PutAll upserts a batch of records and returns how many were stored.
func (s *Store) PutAll(ctx context.Context, recs []Record) int {
	stored := 0
	for _, rec := range recs {
		if s.Put(ctx, rec) {
			stored++
		}
	}
	return stored
}

// Fetch returns the expected identifiers for a query against one activity
// collection. It tries the composite key as a point read first and falls back
// to scanning on the query_id and collection fields, which tolerates records
// written before composite keys were in use. A missing record yields an empty
// set, not an error.
func (s *Store) Fetch(ctx context.Context, queryID string, collection string) ([]string, error) {
	token := activity.TokenForCollection(collection)

	doc, found, err := s.store.Get(ctx, s.collection, CompositeKey(queryID, token))
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	if found {
		return stringSlice(doc["expected_ids"]), nil
	}

	docs, err := s.store.ReadAll(ctx, s.collection)
	if err != nil {
		if errors.IsNotFound(err) {
			return []string{}, nil
		}
		return nil, err
	}
	for _, doc := range docs {
		if doc["query_id"] == queryID && doc["collection"] == token {
			return stringSlice(doc["expected_ids"]), nil
		}
	}
	return []string{}, nil
}

// FetchRecord returns the full truth record for a query/collection pair.
func (s *Store) FetchRecord(ctx context.Context, queryID string, collection string) (Record, bool, error) {
	token := activity.TokenForCollection(collection)

	doc, found, err := s.store.Get(ctx, s.collection, CompositeKey(queryID, token))
	if err != nil && !errors.IsNotFound(err) {
		return Record{}, false, err
	}
	if !found {
		return Record{}, false, nil
	}
	return recordFromDocument(doc), true, nil
}

// All returns every truth record in the store.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	docs, err := s.store.ReadAll(ctx, s.collection)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	recs := make([]Record, 0, len(docs))
	for _, doc := range docs {
		recs = append(recs, recordFromDocument(doc))
	}
	return recs, nil
}

// Clear removes every truth record.
func (s *Store) Clear(ctx context.Context) error {
	err := s.store.RemoveAll(ctx, s.collection)
	if errors.IsNotFound(err) {
		return nil
	}
	return err
}

func recordFromDocument(doc collections.Document) Record {
	rec := Record{
		ExpectedIDs: stringSlice(doc["expected_ids"]),
		EntityIDs:   stringSlice(doc["entity_ids"]),
	}
	rec.QueryID, _ = doc["query_id"].(string)
	rec.QueryText, _ = doc["query_text"].(string)
	rec.Collection, _ = doc["collection"].(string)
	return rec
}

// stringSlice tolerates both []string and the []any shape document stores
// round-trip list values through.
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
