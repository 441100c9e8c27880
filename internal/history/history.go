// Package history keeps a rolling record of completed runs in Redis so
// successive runs can be compared. The harness degrades gracefully when Redis
// is unreachable; history is a convenience, not a dependency.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const runsKey = "trace-ablate:runs"

// RunSummary is the persisted digest of one completed run.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	GroupPairs   int       `json:"group_pairs"`
	ResultKeys   int       `json:"result_keys"`
	Measurements int       `json:"measurements"`
	MeanImpact   float64   `json:"mean_impact"`
}

// Store is a Redis-backed run history.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection. A zero or negative TTL
// keeps one week of history.
func New(url string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Store{client: client, ttl: ttl}, nil
}

// Save records one run summary, scored by completion time, and trims entries
// older than the TTL window in the same pipeline.
func (s *Store) Save(ctx context.Context, summary RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, runsKey, redis.Z{
		Score:  float64(summary.CompletedAt.Unix()),
		Member: string(data),
	})
	minScore := time.Now().Add(-s.ttl).Unix()
	pipe.ZRemRangeByScore(ctx, runsKey, "-inf", fmt.Sprintf("%d", minScore))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving run summary: %w", err)
	}
	return nil
}

// Recent returns up to n run summaries, newest first. Malformed entries are
// skipped.
func (s *Store) Recent(ctx context.Context, n int) ([]RunSummary, error) {
	if n <= 0 {
		n = 10
	}
	members, err := s.client.ZRevRange(ctx, runsKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading run history: %w", err)
	}

	summaries := make([]RunSummary, 0, len(members))
	for _, member := range members {
		var summary RunSummary
		if err := json.Unmarshal([]byte(member), &summary); err != nil {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Clear drops all recorded history.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, runsKey).Err(); err != nil {
		return fmt.Errorf("clearing run history: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
