// Package bus streams run lifecycle events to interested listeners. The
// in-memory bus serves single-process runs; the Kafka bus mirrors the same
// events onto broker topics for external dashboards.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe registers a handler for events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type, equal to the topic it is published on.
	Type string `json:"type"`

	// RunID identifies the ablation run the event belongs to.
	RunID string `json:"run_id,omitempty"`

	// Timestamp is when the event was created, in unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// NewEvent builds an event for a topic with a generated identifier.
func NewEvent(topic, runID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      topic,
		RunID:     runID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// Topics for run lifecycle events.
const (
	TopicRunStarted         = "ablation.run.started"
	TopicRunCompleted       = "ablation.run.completed"
	TopicCollectionAblated  = "ablation.collection.ablated"
	TopicCollectionRestored = "ablation.collection.restored"
	TopicResultRecorded     = "ablation.result.recorded"
	TopicSanityViolation    = "ablation.sanity.violation"
)
