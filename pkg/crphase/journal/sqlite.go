package journal

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Fixed-width so timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists journal entries to SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite journal.
// The path should be a file path (e.g., "./crphase.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A second pooled connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS attempts (
			attempt_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			phase TEXT NOT NULL,
			stage TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (attempt_id, sequence)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_attempts_timestamp
		ON attempts(timestamp)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(attemptID, phase string, stage Stage, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO attempts (attempt_id, sequence, phase, stage, timestamp, detail)
		VALUES (
			?,
			COALESCE((SELECT MAX(sequence) FROM attempts WHERE attempt_id = ?), 0) + 1,
			?, ?, ?, ?
		)
	`, attemptID, attemptID, phase, string(stage), time.Now().UTC().Format(timestampLayout), detail)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(attemptID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT sequence, phase, stage, timestamp, detail
		FROM attempts
		WHERE attempt_id = ?
		ORDER BY sequence
	`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var stage, timestamp string
		if err := rows.Scan(&e.Sequence, &e.Phase, &stage, &timestamp, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.AttemptID = attemptID
		e.Stage = Stage(stage)
		e.Timestamp, _ = time.Parse(timestampLayout, timestamp)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

// Attempts implements Store.
func (s *SQLiteStore) Attempts() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT a.attempt_id, a.phase, a.stage, c.n, c.started, a.timestamp
		FROM attempts a
		JOIN (
			SELECT attempt_id, COUNT(*) AS n, MIN(timestamp) AS started, MAX(sequence) AS last_seq
			FROM attempts
			GROUP BY attempt_id
		) c ON a.attempt_id = c.attempt_id AND a.sequence = c.last_seq
		ORDER BY c.started DESC, a.attempt_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var sum Summary
		var stage, started, updated string
		if err := rows.Scan(&sum.AttemptID, &sum.Phase, &stage, &sum.Entries, &started, &updated); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		sum.Stage = Stage(stage)
		sum.StartedAt, _ = time.Parse(timestampLayout, started)
		sum.UpdatedAt, _ = time.Parse(timestampLayout, updated)
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return summaries, nil
}

// DeleteAttempt implements Store.
func (s *SQLiteStore) DeleteAttempt(attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.Exec(`DELETE FROM attempts WHERE attempt_id = ?`, attemptID); err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
