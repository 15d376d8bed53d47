package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
)

// FileEventStore implements events.EventStore using a JSON Lines file.
type FileEventStore struct {
	mu   sync.RWMutex
	path string
}

var _ events.EventStore = (*FileEventStore)(nil)

// NewFileEventStore creates a store appending to path. The parent directory
// is created on first write.
func NewFileEventStore(path string) *FileEventStore {
	return &FileEventStore{path: path}
}

// Path returns the log file location.
func (s *FileEventStore) Path() string {
	return s.path
}

// Append adds a delta to the end of the log.
func (s *FileEventStore) Append(d events.Delta) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open delta log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close delta log: %w", cerr)
		}
	}()

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delta: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write delta: %w", err)
	}
	return nil
}

// LoadAll returns all deltas in append order.
func (s *FileEventStore) LoadAll() ([]events.Delta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadDeltas()
}

// LoadByAggregate returns deltas for one draft or plan.
func (s *FileEventStore) LoadByAggregate(aggregateID string) ([]events.Delta, error) {
	return s.filter(func(d events.Delta) bool { return d.AggregateID == aggregateID })
}

// LoadByType returns deltas of a specific type.
func (s *FileEventStore) LoadByType(eventType string) ([]events.Delta, error) {
	return s.filter(func(d events.Delta) bool { return d.Type == eventType })
}

// LoadSince returns deltas that occurred after the given timestamp.
func (s *FileEventStore) LoadSince(since time.Time) ([]events.Delta, error) {
	return s.filter(func(d events.Delta) bool { return d.Timestamp.After(since) })
}

// Count returns the total number of deltas.
func (s *FileEventStore) Count() (int, error) {
	all, err := s.LoadAll()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *FileEventStore) filter(keep func(events.Delta) bool) ([]events.Delta, error) {
	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	var result []events.Delta
	for _, d := range all {
		if keep(d) {
			result = append(result, d)
		}
	}
	return result, nil
}

func (s *FileEventStore) loadDeltas() ([]events.Delta, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open delta log: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	var result []events.Delta
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var d events.Delta
		if err := json.Unmarshal(line, &d); err != nil {
			return nil, fmt.Errorf("unmarshal delta: %w", err)
		}
		result = append(result, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan delta log: %w", err)
	}
	return result, nil
}
