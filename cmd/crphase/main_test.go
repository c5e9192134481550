package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/randalmurphal/crphase/pkg/crphase/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPhasesCmd(t *testing.T) {
	out, err := run(t, "phases")
	require.NoError(t, err)
	assert.Contains(t, out, "BEFORE_APP_START")
	assert.Contains(t, out, "DEPLOYMENT")
	assert.Contains(t, out, "AFTER_APP_START")

	tests := []struct {
		name string
		want string
	}{
		{"applications", "AFTER_APP_START\n"},
		{"before_app_start", "BEFORE_APP_START\n"},
		{"whenever", "INACTIVE\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "phases", tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestConfigCheckCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crphase.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phase: deployment\nmetrics: true\n"), 0o600))

	t.Run("file values", func(t *testing.T) {
		out, err := run(t, "config", "check", "--file", path)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.Equal(t, "deployment", got["phase"])
		assert.Equal(t, "BEFORE_APP_START", got["phase_kind"])
		assert.Equal(t, true, got["metrics"])
		assert.Equal(t, "info", got["log_level"])
	})

	t.Run("flags override file", func(t *testing.T) {
		out, err := run(t, "config", "check", "-f", path, "--phase", "AFTER_APP_START", "--log-format", "json")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		assert.Equal(t, "AFTER_APP_START", got["phase_kind"])
		assert.Equal(t, "json", got["log_format"])
		assert.Equal(t, true, got["metrics"], "unset flags keep file values")
	})

	t.Run("invalid flag value", func(t *testing.T) {
		_, err := run(t, "config", "check", "--log-level", "chatty")
		assert.ErrorContains(t, err, "config validate error")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, "config", "check", "--file", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestJournalCmd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.NewSQLiteStore(db)
	require.NoError(t, err)
	for _, stage := range []journal.Stage{journal.StagePrepareStarted, journal.StagePrepared, journal.StageRestored} {
		require.NoError(t, store.Append("cp-aaaa1111", "BEFORE_APP_START", stage, ""))
	}
	require.NoError(t, store.Append("cp-bbbb2222", "AFTER_APP_START", journal.StageCheckpointFailed, "snapshot failed"))
	require.NoError(t, store.Close())

	t.Run("list", func(t *testing.T) {
		out, err := run(t, "journal", "list", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "cp-aaaa1111")
		assert.Contains(t, out, "restored")
		assert.Contains(t, out, "cp-bbbb2222")
	})

	t.Run("list json", func(t *testing.T) {
		out, err := run(t, "journal", "list", "--db", db, "--json")
		require.NoError(t, err)
		var got []journal.Summary
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Len(t, got, 2)
	})

	t.Run("show", func(t *testing.T) {
		out, err := run(t, "journal", "show", "cp-bbbb2222", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "checkpoint_failed")
		assert.Contains(t, out, "snapshot failed")
	})

	t.Run("show json lines", func(t *testing.T) {
		out, err := run(t, "journal", "show", "cp-aaaa1111", "--db", db, "--json")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		for i, line := range lines {
			var e journal.Entry
			require.NoError(t, json.Unmarshal([]byte(line), &e))
			assert.Equal(t, "cp-aaaa1111", e.AttemptID)
			assert.Equal(t, i+1, e.Sequence)
		}
	})

	t.Run("show unknown", func(t *testing.T) {
		_, err := run(t, "journal", "show", "cp-missing", "--db", db)
		assert.ErrorIs(t, err, journal.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		out, err := run(t, "journal", "delete", "cp-aaaa1111", "--db", db)
		require.NoError(t, err)
		assert.Equal(t, "deleted cp-aaaa1111\n", out)

		_, err = run(t, "journal", "show", "cp-aaaa1111", "--db", db)
		assert.ErrorIs(t, err, journal.ErrNotFound)
	})

	t.Run("no db", func(t *testing.T) {
		t.Setenv("CRPHASE_JOURNAL_PATH", "")
		_, err := run(t, "journal", "list")
		assert.ErrorContains(t, err, "no journal")
	})

	t.Run("db does not exist", func(t *testing.T) {
		_, err := run(t, "journal", "list", "--db", filepath.Join(t.TempDir(), "absent.db"))
		assert.Error(t, err)
	})
}
