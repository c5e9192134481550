package journal

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory journal.
// Entries are lost when the process exits, so it only helps within one process
// image; use SQLiteStore to carry entries across a snapshot and restore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
	closed  bool
}

// NewMemoryStore creates a new in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]Entry),
	}
}

// Append implements Store.
func (m *MemoryStore) Append(attemptID, phase string, stage Stage, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	existing := m.entries[attemptID]
	m.entries[attemptID] = append(existing, Entry{
		AttemptID: attemptID,
		Phase:     phase,
		Stage:     stage,
		Sequence:  len(existing) + 1,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	})
	return nil
}

// List implements Store.
func (m *MemoryStore) List(attemptID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	entries, ok := m.entries[attemptID]
	if !ok {
		return nil, ErrNotFound
	}

	result := make([]Entry, len(entries))
	copy(result, entries)
	return result, nil
}

// Attempts implements Store.
func (m *MemoryStore) Attempts() ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	summaries := make([]Summary, 0, len(m.entries))
	for id, entries := range m.entries {
		first, last := entries[0], entries[len(entries)-1]
		summaries = append(summaries, Summary{
			AttemptID: id,
			Phase:     last.Phase,
			Stage:     last.Stage,
			Entries:   len(entries),
			StartedAt: first.Timestamp,
			UpdatedAt: last.Timestamp,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].StartedAt.Equal(summaries[j].StartedAt) {
			return summaries[i].AttemptID < summaries[j].AttemptID
		}
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})

	return summaries, nil
}

// DeleteAttempt implements Store.
func (m *MemoryStore) DeleteAttempt(attemptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.entries, attemptID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.entries = nil
	return nil
}

// Len returns the total number of entries across all attempts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, entries := range m.entries {
		count += len(entries)
	}
	return count
}
