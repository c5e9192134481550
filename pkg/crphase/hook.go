package crphase

import (
	"context"
	"runtime/debug"
)

// Hook participates in a checkpoint and the restore that follows it.
//
// Prepare runs before the snapshot is taken and may abort the checkpoint by
// returning an error. Restore runs after the process resumes from the
// snapshot and may abort the restore the same way. CheckpointFailed runs on
// every added hook, prepared or not, when an attempt fails.
//
// Embed NopHook to implement only the methods you need.
type Hook interface {
	Prepare(ctx context.Context) error
	Restore(ctx context.Context) error
	CheckpointFailed(ctx context.Context)
}

// NopHook implements Hook with no-op methods.
//
// Example:
//
//	type cacheHook struct {
//	    crphase.NopHook
//	    cache *Cache
//	}
//
//	func (h cacheHook) Restore(ctx context.Context) error {
//	    return h.cache.Reload(ctx)
//	}
type NopHook struct{}

// Prepare does nothing.
func (NopHook) Prepare(context.Context) error { return nil }

// Restore does nothing.
func (NopHook) Restore(context.Context) error { return nil }

// CheckpointFailed does nothing.
func (NopHook) CheckpointFailed(context.Context) {}

// HookFuncs adapts up to three callbacks to Hook. Nil callbacks are no-ops.
type HookFuncs struct {
	PrepareFunc          func(ctx context.Context) error
	RestoreFunc          func(ctx context.Context) error
	CheckpointFailedFunc func(ctx context.Context)
}

// Prepare calls PrepareFunc if set.
func (f HookFuncs) Prepare(ctx context.Context) error {
	if f.PrepareFunc == nil {
		return nil
	}
	return f.PrepareFunc(ctx)
}

// Restore calls RestoreFunc if set.
func (f HookFuncs) Restore(ctx context.Context) error {
	if f.RestoreFunc == nil {
		return nil
	}
	return f.RestoreFunc(ctx)
}

// CheckpointFailed calls CheckpointFailedFunc if set.
func (f HookFuncs) CheckpointFailed(ctx context.Context) {
	if f.CheckpointFailedFunc != nil {
		f.CheckpointFailedFunc(ctx)
	}
}

// restoreAction is the one-shot hook scheduled by OnRestore.
type restoreAction func() error

func (restoreAction) Prepare(context.Context) error { return nil }

func (a restoreAction) Restore(context.Context) error { return a() }

func (restoreAction) CheckpointFailed(context.Context) {}

// invoke runs fn, converting a panic into a *PanicError.
func invoke(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Op:    op,
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()
	return fn()
}
