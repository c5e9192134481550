// Package journal records the stages of checkpoint attempts.
//
// A SQLite journal lives on disk, so the entries written before the snapshot
// are still visible to the restored process and to the crphase CLI.
package journal

import (
	"errors"
	"time"
)

// Store persists checkpoint attempt entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append records that attemptID reached stage. Sequence numbers are
	// assigned per attempt, starting at 1.
	Append(attemptID, phase string, stage Stage, detail string) error

	// List returns the entries of one attempt ordered by sequence.
	// Returns ErrNotFound if the attempt has no entries.
	List(attemptID string) ([]Entry, error)

	// Attempts summarizes every attempt, most recent first.
	// Returns an empty slice (not error) if the journal is empty.
	Attempts() ([]Summary, error)

	// DeleteAttempt removes all entries for an attempt.
	// Returns nil if the attempt does not exist.
	DeleteAttempt(attemptID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Summary describes an attempt by its latest entry.
type Summary struct {
	AttemptID string    `json:"attempt_id"`
	Phase     string    `json:"phase"`
	Stage     Stage     `json:"stage"`
	Entries   int       `json:"entries"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sentinel errors for journal operations.
var (
	// ErrNotFound indicates an attempt has no entries.
	ErrNotFound = errors.New("attempt not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")
)

// Open returns a SQLite store at path, or a memory store when path is empty.
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(path)
}
