package bus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tracesearch/trace-ablate/internal/config"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	received := 0
	err := bus.Subscribe(context.Background(), TopicResultRecorded, func(ctx context.Context, event Event) error {
		received++
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		err := bus.Publish(context.Background(), TopicResultRecorded, NewEvent(TopicResultRecorded, "run-1", nil))
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	// Dispatch is synchronous, so all handlers have run by now.
	if received != 3 {
		t.Errorf("received %d events, want 3", received)
	}
}

func TestMemoryBus_MultipleSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	var count1, count2 int
	bus.Subscribe(context.Background(), TopicCollectionAblated, func(ctx context.Context, event Event) error {
		count1++
		return nil
	})
	bus.Subscribe(context.Background(), TopicCollectionAblated, func(ctx context.Context, event Event) error {
		count2++
		return nil
	})

	bus.Publish(context.Background(), TopicCollectionAblated, NewEvent(TopicCollectionAblated, "run-1", nil))

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both subscribers to receive 1 event, got %d and %d", count1, count2)
	}
}

func TestMemoryBus_NoSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	err := bus.Publish(context.Background(), "empty.topic", NewEvent("empty.topic", "", nil))
	if err != nil {
		t.Errorf("Publish() to empty topic error = %v", err)
	}
}

func TestMemoryBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	bus.Subscribe(context.Background(), TopicSanityViolation, func(ctx context.Context, event Event) error {
		return context.DeadlineExceeded
	})

	err := bus.Publish(context.Background(), TopicSanityViolation, NewEvent(TopicSanityViolation, "run-1", nil))
	if err != nil {
		t.Errorf("Publish() error = %v, handler errors should be swallowed", err)
	}
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus()

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := bus.Publish(context.Background(), "test", Event{}); err == nil {
		t.Error("Publish() after Close() should error")
	}
	err := bus.Subscribe(context.Background(), "test", func(ctx context.Context, event Event) error {
		return nil
	})
	if err == nil {
		t.Error("Subscribe() after Close() should error")
	}
}

func TestNewEventFields(t *testing.T) {
	before := time.Now().UnixMilli()
	event := NewEvent(TopicRunStarted, "run-9", map[string]any{"collections": 6})

	if event.ID == "" {
		t.Error("event ID is empty")
	}
	if event.Type != TopicRunStarted {
		t.Errorf("event type = %s", event.Type)
	}
	if event.RunID != "run-9" {
		t.Errorf("event run id = %s", event.RunID)
	}
	if event.Timestamp < before {
		t.Errorf("event timestamp %d predates creation", event.Timestamp)
	}
}

func TestJournalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	journal, err := NewJournal(path, true)
	if err != nil {
		t.Fatalf("NewJournal() error = %v", err)
	}

	since := time.Now().Add(-time.Minute)
	journal.Log(TopicRunStarted, NewEvent(TopicRunStarted, "run-1", nil))
	journal.Log(TopicRunCompleted, NewEvent(TopicRunCompleted, "run-1", nil))
	if err := journal.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, err := journal.Events(since, 0)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Topic != TopicRunStarted || entries[1].Topic != TopicRunCompleted {
		t.Errorf("entries out of order: %s, %s", entries[0].Topic, entries[1].Topic)
	}
}

func TestJournalDisabledIsNoop(t *testing.T) {
	journal, err := NewJournal(filepath.Join(t.TempDir(), "unused.jsonl"), false)
	if err != nil {
		t.Fatalf("NewJournal() error = %v", err)
	}
	if journal.IsEnabled() {
		t.Error("disabled journal reports enabled")
	}
	if err := journal.Log("topic", Event{}); err != nil {
		t.Errorf("Log() on disabled journal error = %v", err)
	}
	if _, err := journal.Events(time.Time{}, 0); err == nil {
		t.Error("Events() on disabled journal should error")
	}
}

func TestJournaledBusRecordsAndDelivers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	journal, err := NewJournal(path, true)
	if err != nil {
		t.Fatalf("NewJournal() error = %v", err)
	}

	inner := NewMemoryBus()
	bus := NewJournaledBus(inner, journal, nil)

	delivered := 0
	bus.Subscribe(context.Background(), TopicResultRecorded, func(ctx context.Context, event Event) error {
		delivered++
		return nil
	})
	bus.Publish(context.Background(), TopicResultRecorded, NewEvent(TopicResultRecorded, "run-1", nil))

	if delivered != 1 {
		t.Errorf("delivered %d events, want 1", delivered)
	}

	entries, err := journal.Events(time.Now().Add(-time.Minute), 0)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("journal holds %d entries, want 1", len(entries))
	}
	bus.Close()
}

func TestKafkaBusRejectsEmptyBrokers(t *testing.T) {
	if _, err := NewKafkaBus(KafkaConfig{}); err == nil {
		t.Error("NewKafkaBus() with no brokers should error")
	}
}

func TestNewBusFactory(t *testing.T) {
	b, err := NewBus(config.BusConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("NewBus(memory) error = %v", err)
	}
	b.Close()

	if _, err := NewBus(config.BusConfig{Type: "carrier-pigeon"}); err == nil {
		t.Error("NewBus() with unknown type should error")
	}
	if _, err := NewBus(config.BusConfig{Type: "kafka"}); err == nil {
		t.Error("NewBus(kafka) without brokers should error")
	}
}

func TestParseKafkaBrokers(t *testing.T) {
	brokers := ParseKafkaBrokers("localhost:9092, broker2:9092")
	if len(brokers) != 2 || brokers[1] != "broker2:9092" {
		t.Errorf("brokers = %v", brokers)
	}
	if got := ParseKafkaBrokers(""); got != nil {
		t.Errorf("empty input = %v, want nil", got)
	}
}
