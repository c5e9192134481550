package crphase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/crphase/pkg/crphase/journal"
	"github.com/randalmurphal/crphase/pkg/crphase/observability"
	"go.opentelemetry.io/otel/attribute"
)

// SnapshotFunc takes the process snapshot between prepare and restore.
type SnapshotFunc func(ctx context.Context) error

// prepareModes is the order modes are swept in during prepare. Restore
// walks the prepared groups backwards, so it runs single-threaded groups
// first.
var prepareModes = [...]Mode{MultiThreaded, SingleThreaded}

type driverState int

const (
	driverIdle driverState = iota
	driverPrepared
	driverRestored
	driverFailed
)

// Driver runs one checkpoint attempt over a phase.
//
// Prepare sweeps multi-threaded groups from the highest rank down, then
// single-threaded groups the same way. Groups created at lower ranks while
// the sweep is running are picked up; ranks the sweep has passed refuse new
// hooks. Restore runs the prepared groups in exactly the reverse order.
//
// A Driver is single-use.
type Driver struct {
	phase   *Phase
	store   journal.Store
	owned   bool
	spans   observability.SpanManager
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	mu       sync.Mutex
	state    driverState
	prepared []*HookGroup
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithJournal records attempt stages in store. Run writes to it; the caller
// keeps ownership.
func WithJournal(store journal.Store) DriverOption {
	return func(d *Driver) {
		d.store = store
	}
}

// WithSpanManager sets the tracer used for attempt and group spans.
// Default: observability.NoopSpanManager.
func WithSpanManager(sm observability.SpanManager) DriverOption {
	return func(d *Driver) {
		if sm != nil {
			d.spans = sm
		}
	}
}

// WithDriverLogger sets the logger for attempt events.
// Default: the phase's logger.
func WithDriverLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithDriverMetrics sets the recorder for attempt outcomes.
// Default: the phase's recorder.
func WithDriverMetrics(m observability.MetricsRecorder) DriverOption {
	return func(d *Driver) {
		if m != nil {
			d.metrics = m
		}
	}
}

// NewDriver creates a driver for p.
func NewDriver(p *Phase, opts ...DriverOption) *Driver {
	d := &Driver{
		phase:   p,
		spans:   observability.NoopSpanManager{},
		logger:  p.logger,
		metrics: p.metrics,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Prepared returns the groups prepared so far, in prepare order.
func (d *Driver) Prepared() []*HookGroup {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*HookGroup(nil), d.prepared...)
}

// Prepare prepares every group of the phase. It stops at the first hook
// error, leaving the driver failed; call CheckpointFailed to let every hook
// clean up.
func (d *Driver) Prepare(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != driverIdle {
		return fmt.Errorf("%w: prepare called twice", ErrGroupState)
	}
	if cur := d.phase.coord.Phase(); cur != d.phase {
		d.state = driverFailed
		return fmt.Errorf("%w: %s (current is %s)", ErrNotCurrentPhase, d.phase, cur)
	}
	if d.phase.Restored() {
		d.state = driverFailed
		return fmt.Errorf("%w: %s", ErrAlreadyRestored, d.phase)
	}

	for _, mode := range prepareModes {
		for {
			g := d.phase.claimNext(mode)
			if g == nil {
				break
			}
			d.prepared = append(d.prepared, g)
			if err := d.runGroup(ctx, "prepare", g, g.Prepare); err != nil {
				d.state = driverFailed
				return err
			}
		}
	}
	d.state = driverPrepared
	return nil
}

// Restore restores the prepared groups in reverse prepare order and then
// marks the phase restored. It stops at the first hook error.
func (d *Driver) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != driverPrepared {
		return ErrNotPrepared
	}
	for i := len(d.prepared) - 1; i >= 0; i-- {
		g := d.prepared[i]
		if err := d.runGroup(ctx, "restore", g, g.Restore); err != nil {
			d.state = driverFailed
			return err
		}
	}
	d.state = driverRestored
	d.phase.markRestored()
	return nil
}

// CheckpointFailed blocks further additions and calls CheckpointFailed on
// every prepared group in prepare order, then on every group still open.
// It is safe to call after a failed Prepare or after a snapshot failure.
func (d *Driver) CheckpointFailed(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == driverRestored {
		return
	}
	d.state = driverFailed
	d.phase.block()

	for _, g := range d.prepared {
		d.failGroup(ctx, g)
	}
	for _, mode := range prepareModes {
		for _, g := range d.phase.Groups(mode) {
			d.failGroup(ctx, g)
		}
	}
}

func (d *Driver) failGroup(ctx context.Context, g *HookGroup) {
	ctx, span := d.spans.StartGroupSpan(ctx, "checkpoint_failed", g.mode.String(), g.rank)
	g.CheckpointFailed(ctx)
	d.spans.EndSpanWithError(span, nil)
}

func (d *Driver) runGroup(ctx context.Context, op string, g *HookGroup, fn func(context.Context) error) error {
	ctx, span := d.spans.StartGroupSpan(ctx, op, g.mode.String(), g.rank)
	err := fn(ctx)
	d.spans.EndSpanWithError(span, err)
	return err
}

// Run performs a full attempt: prepare, snapshot, restore. If prepare or
// the snapshot fails, every hook gets CheckpointFailed and the phase stops
// accepting hooks. Failures are returned as *AttemptError.
//
// A nil snapshot goes straight from prepare to restore.
func (d *Driver) Run(ctx context.Context, snapshot SnapshotFunc) error {
	attemptID := journal.NewAttemptID()
	phase := d.phase.String()
	logger := observability.EnrichLogger(d.logger, phase, attemptID)
	start := time.Now()

	ctx, span := d.spans.StartAttemptSpan(ctx, phase, attemptID)
	observability.LogAttemptStart(logger, attemptID)

	fail := func(stage string, err error) error {
		elapsed := time.Since(start)
		d.spans.EndSpanWithError(span, err)
		d.metrics.RecordAttempt(ctx, phase, stage+"_failed", elapsed)
		observability.LogAttemptError(logger, attemptID, stage, err, float64(elapsed.Milliseconds()))
		return &AttemptError{AttemptID: attemptID, Stage: stage, Err: err}
	}
	abort := func(stage string, err error) error {
		d.CheckpointFailed(ctx)
		d.record(logger, attemptID, journal.StageCheckpointFailed, err.Error())
		return fail(stage, err)
	}

	d.record(logger, attemptID, journal.StagePrepareStarted, "")
	if err := d.Prepare(ctx); err != nil {
		return abort("prepare", err)
	}
	groups := len(d.Prepared())
	d.record(logger, attemptID, journal.StagePrepared, fmt.Sprintf("%d groups", groups))

	if snapshot != nil {
		done := observability.TimedOperation()
		err := invoke("snapshot", func() error { return snapshot(ctx) })
		d.spans.AddSpanEvent(ctx, "snapshot",
			attribute.Float64("duration_ms", done()),
			attribute.Bool("ok", err == nil),
		)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrSnapshotFailed, err)
			d.record(logger, attemptID, journal.StageSnapshotFailed, err.Error())
			return abort("snapshot", err)
		}
	}

	d.record(logger, attemptID, journal.StageRestoreStarted, "")
	if err := d.Restore(ctx); err != nil {
		d.record(logger, attemptID, journal.StageRestoreFailed, err.Error())
		return fail("restore", err)
	}
	d.record(logger, attemptID, journal.StageRestored, "")

	elapsed := time.Since(start)
	d.spans.EndSpanWithError(span, nil)
	d.metrics.RecordAttempt(ctx, phase, "restored", elapsed)
	observability.LogAttemptComplete(logger, attemptID, float64(elapsed.Milliseconds()), groups)
	return nil
}

// record appends to the journal, if any. Journal errors are logged and
// never fail the attempt.
func (d *Driver) record(logger *slog.Logger, attemptID string, stage journal.Stage, detail string) {
	if d.store == nil {
		return
	}
	if err := d.store.Append(attemptID, d.phase.String(), stage, detail); err != nil {
		observability.LogJournalError(logger, attemptID, string(stage), err)
	}
}

// Close closes a journal opened by NewDriverFromSettings. Journals passed in
// with WithJournal are left open.
func (d *Driver) Close() error {
	if d.owned && d.store != nil {
		return d.store.Close()
	}
	return nil
}
