/*
Package crphase coordinates components around a process checkpoint and the
restore that follows it.

# Overview

A process that can be snapshotted and later resumed needs its components to
let go of things the snapshot cannot carry (open sockets, timers, cached
host details) and to pick them back up afterwards. crphase gives those
components a single join point. Each one adds a Hook to the current Phase;
a Driver then prepares every hook before the snapshot and restores them
after it.

# Phases

The phase is chosen once per process, usually from CRPHASE_PHASE:

	coord := crphase.New()
	coord.SetPhase("BEFORE_APP_START")

Later calls to SetPhase are ignored. An unrecognized name selects INACTIVE,
which never checkpoints and is always restored. DEPLOYMENT and APPLICATIONS
are accepted as older names for BEFORE_APP_START and AFTER_APP_START.

# Hooks

Hooks are added at a rank and in a threading mode:

	phase := coord.Phase()
	ok := phase.AddMultiThreadedHookRank(10, crphase.HookFuncs{
	    PrepareFunc: func(ctx context.Context) error { return pool.Drain(ctx) },
	    RestoreFunc: func(ctx context.Context) error { return pool.Refill(ctx) },
	})
	if !ok {
	    // The hook will never run. Do the work now instead.
	}

Higher ranks prepare first and restore last, so low-rank infrastructure is
the last to suspend and the first to resume. Within a rank, hooks prepare in
the order they were added and restore in reverse.

Adding a hook returns false when the phase is INACTIVE or restored, when
additions are blocked, or when the sweep has already prepared that rank.
Adding to a phase that is not current panics with ErrNotCurrentPhase.

OnRestore is a shortcut for work that must happen after restore:

	err := phase.OnRestore(func() error { return refreshHostname() })

It runs the action right away when the phase is restored or the action
cannot be scheduled.

# Driving a checkpoint

	d := crphase.NewDriver(coord.Phase(), crphase.WithJournal(store))
	err := d.Run(ctx, takeSnapshot)

Run prepares multi-threaded groups, then single-threaded groups, each from
the highest rank down. It calls takeSnapshot, then restores every group in
the reverse order. When prepare or the snapshot fails, every added hook gets
CheckpointFailed and the phase stops accepting hooks.

An external driver may instead enumerate groups itself with Phase.Groups or
through a Publisher such as RegistryPublisher, and call HookGroup.Prepare,
Restore and CheckpointFailed directly.

# Errors

Hook errors and panics from Prepare and Restore are returned as *HookError;
panics are wrapped in *PanicError. Run returns *AttemptError naming the
failed stage. Panics from CheckpointFailed are logged and swallowed.
*/
package crphase
