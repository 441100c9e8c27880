package collections

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/tracesearch/trace-ablate/internal/pkg/identity"
)

const (
	// DefaultQdrantHost is the default Qdrant host.
	DefaultQdrantHost = "localhost"

	// DefaultQdrantPort is the default Qdrant gRPC port.
	DefaultQdrantPort = 6334

	// DefaultQdrantTimeout is the default operation timeout.
	DefaultQdrantTimeout = 30 * time.Second

	// scrollLimit bounds a full-scan read. Ablation collections are synthetic
	// and stay well under this.
	scrollLimit = 100_000

	// placeholderVectorSize is the size of the dummy vector attached to each
	// point. The harness only does key-restricted payload reads; the search
	// system under test owns the real vectors.
	placeholderVectorSize = 1
)

// QdrantConfig holds configuration for the Qdrant-backed store.
type QdrantConfig struct {
	Host string

	// Port is the Qdrant gRPC port.
	Port int

	// APIKey for authentication (optional).
	APIKey string

	// UseTLS enables TLS connection.
	UseTLS bool

	// Prefix is prepended to all collection names.
	Prefix string

	// Timeout for operations.
	Timeout time.Duration
}

// DefaultQdrantConfig returns sensible defaults for local development.
func DefaultQdrantConfig() QdrantConfig {
	return QdrantConfig{
		Host:    DefaultQdrantHost,
		Port:    DefaultQdrantPort,
		Prefix:  "ablate_",
		Timeout: DefaultQdrantTimeout,
	}
}

// QdrantStore implements Store against a Qdrant instance. Document payloads
// are stored as point payloads; point IDs are derived from document keys so
// non-UUID keys (composite truth keys) remain addressable.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
	closed bool
}

// NewQdrantStore creates a Qdrant-backed collection store.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultQdrantHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultQdrantPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultQdrantTimeout
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	return &QdrantStore{client: client, config: cfg}, nil
}

// EnsureCollection creates the collection if it does not exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	name := s.name(collection)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     placeholderVectorSize,
			Distance: qdrant.Distance_Dot,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", collection, err)
	}
	return nil
}

// Exists reports whether the collection exists.
func (s *QdrantStore) Exists(ctx context.Context, collection string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	exists, err := s.client.CollectionExists(ctx, s.name(collection))
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", collection, err)
	}
	return exists, nil
}

// ReadAll scrolls every point in the collection.
func (s *QdrantStore) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.name(collection),
		Limit:          qdrant.PtrOf(uint32(scrollLimit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("scanning collection %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, payloadToDocument(p.Payload))
	}
	return docs, nil
}

// RemoveAll deletes every point, leaving the collection in place.
func (s *QdrantStore) RemoveAll(ctx context.Context, collection string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.name(collection),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{},
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("emptying collection %s: %w", collection, err)
	}
	return nil
}

// ReadByKeys fetches the points for the given document keys, preserving key
// order and skipping misses.
func (s *QdrantStore) ReadByKeys(ctx context.Context, collection string, keys []string) ([]Document, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ids := make([]*qdrant.PointId, len(keys))
	for i, key := range keys {
		ids[i] = qdrant.NewIDUUID(pointID(key))
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.name(collection),
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("reading keys from collection %s: %w", collection, err)
	}

	byKey := make(map[string]Document, len(points))
	for _, p := range points {
		doc := payloadToDocument(p.Payload)
		byKey[doc.Key()] = doc
	}

	docs := make([]Document, 0, len(points))
	for _, key := range keys {
		if doc, ok := byKey[key]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// BulkInsert upserts documents as payload-only points.
func (s *QdrantStore) BulkInsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		p, err := documentToPoint(doc)
		if err != nil {
			return err
		}
		points = append(points, p)
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.name(collection),
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("inserting into collection %s: %w", collection, err)
	}
	return nil
}

// Get returns the document stored under key.
func (s *QdrantStore) Get(ctx context.Context, collection, key string) (Document, bool, error) {
	docs, err := s.ReadByKeys(ctx, collection, []string{key})
	if err != nil {
		return nil, false, err
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return docs[0], true, nil
}

// Put upserts a single document.
func (s *QdrantStore) Put(ctx context.Context, collection string, doc Document) error {
	return s.BulkInsert(ctx, collection, []Document{doc})
}

// Count implements Counter with an exact point count.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.name(collection),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting collection %s: %w", collection, err)
	}
	return int(count), nil
}

// Close closes the client connection.
func (s *QdrantStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

func (s *QdrantStore) name(collection string) string {
	return s.config.Prefix + collection
}

func (s *QdrantStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.Timeout)
}

// pointID maps a document key to a Qdrant-compatible UUID point ID. Composite
// truth keys are not UUIDs, so every key goes through the same derivation.
func pointID(key string) string {
	return identity.Derive("point:" + key)
}

func documentToPoint(doc Document) (*qdrant.PointStruct, error) {
	key := doc.Key()
	if key == "" {
		return nil, fmt.Errorf("document has no %s field", KeyField)
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(pointID(key)),
		Vectors: qdrant.NewVectors(make([]float32, placeholderVectorSize)...),
		Payload: qdrant.NewValueMap(map[string]any(StripSystemFields(doc))),
	}, nil
}

func payloadToDocument(payload map[string]*qdrant.Value) Document {
	doc := make(Document, len(payload))
	for k, v := range payload {
		doc[k] = valueToAny(v)
	}
	return doc
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, len(values))
		for i, item := range values {
			list[i] = valueToAny(item)
		}
		return list
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		m := make(map[string]any, len(fields))
		for k, item := range fields {
			m[k] = valueToAny(item)
		}
		return m
	default:
		return nil
	}
}
