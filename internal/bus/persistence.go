package bus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tracesearch/trace-ablate/internal/pkg/errors"
)

// JournaledEvent is one event as written to the run journal.
type JournaledEvent struct {
	Event     Event     `json:"event"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// Journal appends run events to a JSON-lines file so a run can be inspected
// after the fact without a broker. When disabled it is a no-op sink.
type Journal struct {
	path    string
	mu      sync.Mutex
	file    *os.File
	enabled bool
	encoder *json.Encoder
}

// NewJournal opens a journal at path. A disabled journal is still usable,
// it just discards events.
func NewJournal(path string, enabled bool) (*Journal, error) {
	j := &Journal{path: path, enabled: enabled}
	if !enabled {
		return j, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}

	j.file = file
	j.encoder = json.NewEncoder(file)
	return j, nil
}

// Log appends one event to the journal.
func (j *Journal) Log(topic string, event Event) error {
	if !j.enabled {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return errors.New(errors.CodeInternal, "journal not initialized")
	}

	entry := JournaledEvent{
		Event:     event,
		Topic:     topic,
		Timestamp: time.Now().UTC(),
	}
	if err := j.encoder.Encode(entry); err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	// Flushed per entry so a crashed run still leaves a usable journal.
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("sync journal file: %w", err)
	}
	return nil
}

// Events reads journal entries written after since. A limit of zero means no
// limit. Malformed lines are skipped.
func (j *Journal) Events(since time.Time, limit int) ([]JournaledEvent, error) {
	if !j.enabled {
		return nil, errors.New(errors.CodeUnavailable, "journal is disabled")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []JournaledEvent{}, nil
		}
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	defer file.Close()

	var entries []JournaledEvent
	scanner := bufio.NewScanner(file)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, len(buf))

	for scanner.Scan() {
		var entry JournaledEvent
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry.Timestamp.After(since) {
			entries = append(entries, entry)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal file: %w", err)
	}
	return entries, nil
}

// Close closes the journal file.
func (j *Journal) Close() error {
	if !j.enabled {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("close journal file: %w", err)
		}
		j.file = nil
		j.encoder = nil
	}
	return nil
}

// IsEnabled reports whether the journal writes events.
func (j *Journal) IsEnabled() bool {
	return j.enabled
}
