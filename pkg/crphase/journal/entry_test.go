package journal

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_Terminal(t *testing.T) {
	tests := []struct {
		stage Stage
		want  bool
	}{
		{StagePrepareStarted, false},
		{StagePrepared, false},
		{StageSnapshotFailed, false},
		{StageRestoreStarted, false},
		{StageCheckpointFailed, true},
		{StageRestored, true},
		{StageRestoreFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stage.Terminal())
		})
	}
}

func TestEntry_JSON(t *testing.T) {
	e := &Entry{
		AttemptID: "cp-1",
		Phase:     "BEFORE_APP_START",
		Stage:     StageRestoreFailed,
		Sequence:  4,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Detail:    "hook at rank 3 failed",
	}

	data, err := e.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stage":"restore_failed"`)

	assert.NotContains(t, string(data), "\n")

	var got Entry
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *e, got)
}

func TestNewAttemptID(t *testing.T) {
	a, b := NewAttemptID(), NewAttemptID()
	assert.True(t, strings.HasPrefix(a, "cp-"))
	assert.Len(t, a, len("cp-")+36)
	assert.NotEqual(t, a, b)

	_, err := uuid.Parse(strings.TrimPrefix(a, "cp-"))
	assert.NoError(t, err, "the whole UUID is kept")
}
