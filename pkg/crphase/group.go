package crphase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/crphase/pkg/crphase/observability"
)

// Mode is the threading context a group's hooks expect when they run.
//
// Single-threaded hooks run when no other goroutines of the application are
// runnable. Multi-threaded hooks run while the application is still live.
// The coordinator does not schedule anything itself; the mode tells the
// driver which groups it may run before the process goes quiet.
type Mode int

const (
	// SingleThreaded groups run after the application has been quiesced.
	SingleThreaded Mode = iota
	// MultiThreaded groups run while the application is still live.
	MultiThreaded
)

// String returns "single" or "multi".
func (m Mode) String() string {
	switch m {
	case SingleThreaded:
		return "single"
	case MultiThreaded:
		return "multi"
	default:
		return "unknown"
	}
}

// GroupState is the lifecycle state of a HookGroup.
type GroupState int

const (
	// GroupOpen accepts new hooks.
	GroupOpen GroupState = iota
	// GroupPrepared is locked and holds the hooks that were prepared.
	GroupPrepared
	// GroupRestored has restored its hooks and is inert.
	GroupRestored
	// GroupFailed has delivered CheckpointFailed and is inert.
	GroupFailed
)

// String returns the lower-case state name.
func (s GroupState) String() string {
	switch s {
	case GroupOpen:
		return "open"
	case GroupPrepared:
		return "prepared"
	case GroupRestored:
		return "restored"
	case GroupFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HookGroup holds the hooks added at one rank in one mode.
//
// A group accepts hooks until Prepare locks it. Prepare runs hooks in the
// order they were added; Restore runs them in the reverse order.
type HookGroup struct {
	phase *Phase
	rank  int
	mode  Mode

	mu       sync.Mutex
	state    GroupState
	pending  []Hook
	snapshot []Hook
	pub      Publisher
}

func newHookGroup(p *Phase, rank int, mode Mode) *HookGroup {
	return &HookGroup{phase: p, rank: rank, mode: mode}
}

// Rank returns the group's rank.
func (g *HookGroup) Rank() int { return g.rank }

// Mode returns the group's threading mode.
func (g *HookGroup) Mode() Mode { return g.mode }

// Key returns the group's publishing key.
func (g *HookGroup) Key() GroupKey { return GroupKey{Mode: g.mode, Rank: g.rank} }

// State returns the group's current state.
func (g *HookGroup) State() GroupState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Len returns the number of hooks waiting to be prepared, or the number
// prepared once the group is locked.
func (g *HookGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == GroupOpen {
		return len(g.pending)
	}
	return len(g.snapshot)
}

// add appends h and reports whether the group was still open.
func (g *HookGroup) add(h Hook) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GroupOpen {
		return false
	}
	g.pending = append(g.pending, h)
	return true
}

// setPublisher moves an open group from its current publisher to pub.
// A nil pub only unpublishes.
func (g *HookGroup) setPublisher(pub Publisher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GroupOpen || g.pub == pub {
		return
	}
	if g.pub != nil {
		g.pub.Unpublish(g)
	}
	g.pub = pub
	if pub != nil {
		pub.Publish(g)
	}
}

// Prepare locks the group and calls Prepare on each hook, oldest first.
//
// Locking, unpublishing, and removal from the phase happen before any hook
// runs, so hooks added concurrently either make it into this prepare or are
// refused. The first hook error stops the loop and is returned as a
// *HookError; the driver is then expected to call CheckpointFailed.
func (g *HookGroup) Prepare(ctx context.Context) error {
	g.mu.Lock()
	if g.state != GroupOpen {
		state := g.state
		g.mu.Unlock()
		return &HookError{Op: "prepare", Rank: g.rank, Mode: g.mode, Err: stateError(state)}
	}
	hooks := g.pending
	g.pending = nil
	g.snapshot = hooks
	g.state = GroupPrepared
	pub := g.pub
	g.pub = nil
	g.mu.Unlock()

	if pub != nil {
		pub.Unpublish(g)
	}
	g.phase.detach(g, true)

	return g.dispatch(ctx, "prepare", hooks, false)
}

// Restore calls Restore on each prepared hook, newest first, and discards
// them. The first hook error stops the loop and is returned as a *HookError.
// When the last prepared group of the phase restores cleanly, the phase is
// marked restored.
func (g *HookGroup) Restore(ctx context.Context) error {
	g.mu.Lock()
	if g.state != GroupPrepared {
		state := g.state
		g.mu.Unlock()
		return &HookError{Op: "restore", Rank: g.rank, Mode: g.mode, Err: stateError(state)}
	}
	hooks := g.snapshot
	g.snapshot = nil
	g.state = GroupRestored
	g.mu.Unlock()

	if err := g.dispatch(ctx, "restore", hooks, true); err != nil {
		return err
	}
	g.phase.groupRestored()
	return nil
}

// CheckpointFailed calls CheckpointFailed on every hook of the group in
// prepare order. An open group is locked first, so hooks that were never
// prepared are reached too. Panics are logged and swallowed so that every
// hook gets to clean up.
func (g *HookGroup) CheckpointFailed(ctx context.Context) {
	g.mu.Lock()
	var hooks []Hook
	var pub Publisher
	wasOpen := false
	switch g.state {
	case GroupOpen:
		hooks = g.pending
		g.pending = nil
		pub = g.pub
		g.pub = nil
		wasOpen = true
	case GroupPrepared:
		hooks = g.snapshot
		g.snapshot = nil
	default:
		g.mu.Unlock()
		return
	}
	g.state = GroupFailed
	g.mu.Unlock()

	if wasOpen {
		if pub != nil {
			pub.Unpublish(g)
		}
		g.phase.detach(g, false)
	} else {
		g.phase.groupFailed()
	}

	start := time.Now()
	logger := g.phase.logger
	for _, h := range hooks {
		err := invoke("checkpoint_failed", func() error {
			h.CheckpointFailed(ctx)
			return nil
		})
		if err != nil {
			observability.LogCleanupError(logger, g.mode.String(), g.rank, err)
		}
	}
	elapsed := time.Since(start)
	g.phase.metrics.RecordGroupDispatch(ctx, "checkpoint_failed", g.mode.String(), g.rank, elapsed, nil)
	observability.LogGroupDispatch(logger, "checkpoint_failed", g.mode.String(), g.rank, len(hooks), float64(elapsed.Milliseconds()))
}

// dispatch calls op on hooks, forwards or backwards, stopping at the first
// error.
func (g *HookGroup) dispatch(ctx context.Context, op string, hooks []Hook, reverse bool) error {
	start := time.Now()

	var err error
	for i := range hooks {
		h := hooks[i]
		if reverse {
			h = hooks[len(hooks)-1-i]
		}
		err = invoke(op, func() error {
			if op == "prepare" {
				return h.Prepare(ctx)
			}
			return h.Restore(ctx)
		})
		if err != nil {
			err = &HookError{Op: op, Rank: g.rank, Mode: g.mode, Err: err}
			break
		}
	}

	elapsed := time.Since(start)
	g.phase.metrics.RecordGroupDispatch(ctx, op, g.mode.String(), g.rank, elapsed, err)
	if err != nil {
		observability.LogGroupError(g.phase.logger, op, g.mode.String(), g.rank, err)
		return err
	}
	observability.LogGroupDispatch(g.phase.logger, op, g.mode.String(), g.rank, len(hooks), float64(elapsed.Milliseconds()))
	return nil
}

func stateError(s GroupState) error {
	return fmt.Errorf("%w: %s", ErrGroupState, s)
}
