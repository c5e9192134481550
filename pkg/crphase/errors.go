package crphase

import (
	"errors"
	"fmt"
)

// Sentinel errors for hook registration and dispatch.
var (
	// ErrNotCurrentPhase indicates a mutation of a phase other than the
	// coordinator's current phase. Hook additions panic with an error
	// wrapping it; Driver.Prepare returns it.
	ErrNotCurrentPhase = errors.New("phase is not the current phase")

	// ErrAlreadyRestored indicates a checkpoint was requested on a phase that
	// has already been restored, which includes INACTIVE.
	ErrAlreadyRestored = errors.New("phase already restored")

	// ErrGroupState indicates a group operation out of Open, Prepared,
	// Restored order, such as preparing a group twice.
	ErrGroupState = errors.New("hook group in wrong state")

	// ErrNotPrepared indicates Driver.Restore was called before a successful
	// Driver.Prepare.
	ErrNotPrepared = errors.New("checkpoint not prepared")

	// ErrSnapshotFailed indicates the snapshot function given to Driver.Run
	// failed between prepare and restore.
	ErrSnapshotFailed = errors.New("snapshot failed")
)

// HookError wraps an error returned by a hook's Prepare or Restore.
type HookError struct {
	// Op is "prepare" or "restore".
	Op string
	// Rank is the rank of the group the hook belongs to.
	Rank int
	// Mode is the threading mode of that group.
	Mode Mode
	// Err is the hook's error, or a *PanicError.
	Err error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook in %s group at rank %d: %v", e.Op, e.Mode, e.Rank, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HookError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by a hook.
type PanicError struct {
	// Op is the hook operation that panicked.
	Op string
	// Value is the value passed to panic().
	Value any
	// Stack is the goroutine stack trace at the time of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s hook: %v", e.Op, e.Value)
}

// AttemptError reports the stage at which a Driver.Run attempt failed.
type AttemptError struct {
	// AttemptID identifies the attempt in the journal.
	AttemptID string
	// Stage is "prepare", "snapshot", or "restore".
	Stage string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *AttemptError) Error() string {
	return fmt.Sprintf("checkpoint attempt %s failed at %s: %v", e.AttemptID, e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AttemptError) Unwrap() error {
	return e.Err
}
