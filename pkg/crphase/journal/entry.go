package journal

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Stage is a point in a checkpoint attempt.
type Stage string

// Attempt stages, in the order a successful attempt reaches them.
const (
	StagePrepareStarted   Stage = "prepare_started"
	StagePrepared         Stage = "prepared"
	StageSnapshotFailed   Stage = "snapshot_failed"
	StageCheckpointFailed Stage = "checkpoint_failed"
	StageRestoreStarted   Stage = "restore_started"
	StageRestored         Stage = "restored"
	StageRestoreFailed    Stage = "restore_failed"
)

// Terminal reports whether no further stages follow s.
func (s Stage) Terminal() bool {
	switch s {
	case StageCheckpointFailed, StageRestored, StageRestoreFailed:
		return true
	default:
		return false
	}
}

// Entry is one journal record.
type Entry struct {
	AttemptID string    `json:"attempt_id"`
	Phase     string    `json:"phase"`
	Stage     Stage     `json:"stage"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// Marshal serializes an entry to a single line of JSON.
func (e *Entry) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// NewAttemptID returns a random attempt identifier: "cp-" followed by a
// full UUID.
func NewAttemptID() string {
	return "cp-" + uuid.NewString()
}
