// Package observability provides logging, metrics, and tracing for crphase.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper accepts a nil logger and does nothing in that case,
// which is how the coordinator stays silent unless debugging is enabled.
package observability

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// DebugEnv is the environment variable that turns on diagnostic logging
// of every hook addition, prepare, restore, and group removal.
const DebugEnv = "CRPHASE_DEBUG"

// DebugEnabled reports whether DebugEnv is present in the environment.
// Any value, including the empty string, enables debugging.
func DebugEnabled() bool {
	_, ok := os.LookupEnv(DebugEnv)
	return ok
}

// NewDebugLogger returns a text logger writing debug-level records to w.
// A nil writer means os.Stderr.
func NewDebugLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// NewLogger returns a logger writing to w at the given level ("debug",
// "info", "warn", "error") in the given format ("text" or "json").
// Unknown levels mean info and unknown formats mean text. A nil writer
// means os.Stderr.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DefaultLogger returns a debug logger on stderr when DebugEnv is set,
// or nil otherwise.
func DefaultLogger() *slog.Logger {
	if !DebugEnabled() {
		return nil
	}
	return NewDebugLogger(nil)
}

// EnrichLogger adds phase context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "BEFORE_APP_START", "cp-1a2b3c4d")
//	enriched.Info("checkpoint starting") // includes phase and attempt_id
func EnrichLogger(logger *slog.Logger, phase, attemptID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("phase", phase),
		slog.String("attempt_id", attemptID),
	)
}

// LogPhaseSet logs the one-time selection of the current phase.
func LogPhaseSet(logger *slog.Logger, phase string) {
	if logger == nil {
		return
	}
	logger.Debug("phase set",
		slog.String("phase", phase),
	)
}

// LogPhaseIgnored logs a SetPhase call made after the phase was fixed.
func LogPhaseIgnored(logger *slog.Logger, requested, current string) {
	if logger == nil {
		return
	}
	logger.Debug("phase already set, ignoring",
		slog.String("requested", requested),
		slog.String("phase", current),
	)
}

// LogHookAdded logs the outcome of a hook registration.
func LogHookAdded(logger *slog.Logger, phase, mode string, rank int, accepted bool) {
	if logger == nil {
		return
	}
	logger.Debug("hook added",
		slog.String("phase", phase),
		slog.String("mode", mode),
		slog.Int("rank", rank),
		slog.Bool("accepted", accepted),
	)
}

// LogGroupCreated logs lazy creation of a hook group.
func LogGroupCreated(logger *slog.Logger, phase, mode string, rank int) {
	if logger == nil {
		return
	}
	logger.Debug("hook group created",
		slog.String("phase", phase),
		slog.String("mode", mode),
		slog.Int("rank", rank),
	)
}

// LogGroupRemoved logs removal of a prepared group from its phase.
func LogGroupRemoved(logger *slog.Logger, phase, mode string, rank int) {
	if logger == nil {
		return
	}
	logger.Debug("hook group removed",
		slog.String("phase", phase),
		slog.String("mode", mode),
		slog.Int("rank", rank),
	)
}

// LogGroupDispatch logs a completed prepare, restore, or checkpoint_failed
// dispatch on a group.
func LogGroupDispatch(logger *slog.Logger, op, mode string, rank, hooks int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("hook group dispatched",
		slog.String("operation", op),
		slog.String("mode", mode),
		slog.Int("rank", rank),
		slog.Int("hooks", hooks),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogGroupError logs a prepare or restore failure that aborts the attempt.
func LogGroupError(logger *slog.Logger, op, mode string, rank int, err error) {
	if logger == nil {
		return
	}
	logger.Error("hook group failed",
		slog.String("operation", op),
		slog.String("mode", mode),
		slog.Int("rank", rank),
		slog.String("error", err.Error()),
	)
}

// LogCleanupError logs a swallowed checkpoint_failed error (non-fatal).
func LogCleanupError(logger *slog.Logger, mode string, rank int, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed hook errored",
		slog.String("mode", mode),
		slog.Int("rank", rank),
		slog.String("error", err.Error()),
	)
}

// LogHooksBlocked logs that no further hooks will be accepted.
func LogHooksBlocked(logger *slog.Logger, phase string) {
	if logger == nil {
		return
	}
	logger.Debug("hook additions blocked",
		slog.String("phase", phase),
	)
}

// LogAttemptStart logs the start of a checkpoint attempt.
func LogAttemptStart(logger *slog.Logger, attemptID string) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint attempt starting",
		slog.String("attempt_id", attemptID),
	)
}

// LogAttemptComplete logs a restore that finished successfully.
func LogAttemptComplete(logger *slog.Logger, attemptID string, durationMs float64, groups int) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint attempt restored",
		slog.String("attempt_id", attemptID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("groups", groups),
	)
}

// LogAttemptError logs a failed checkpoint or restore.
func LogAttemptError(logger *slog.Logger, attemptID, stage string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("checkpoint attempt failed",
		slog.String("attempt_id", attemptID),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogJournalError logs a journal write failure (non-fatal).
func LogJournalError(logger *slog.Logger, attemptID, stage string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("journal append failed",
		slog.String("attempt_id", attemptID),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
