package crphase

import (
	"log/slog"
	"sync/atomic"

	"github.com/randalmurphal/crphase/pkg/crphase/observability"
)

// Coordinator owns one Phase per Kind and decides, once, which of them is
// current.
//
// Components join a checkpoint by adding hooks to Phase(). The phase is set
// once early in process startup; until then Phase() is INACTIVE and every
// addition is refused.
type Coordinator struct {
	phases  [kindCount]*Phase
	current atomic.Pointer[Phase]

	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	publisher Publisher
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for hook and group events.
// Default: nil (silent), or a stderr debug logger when CRPHASE_DEBUG is set.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithPublisher registers pub on every phase at construction, as if
// Register(pub) were called on each.
func WithPublisher(pub Publisher) Option {
	return func(c *Coordinator) {
		c.publisher = pub
	}
}

// New creates a coordinator with no current phase.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:  observability.DefaultLogger(),
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, k := range Kinds() {
		c.phases[k] = newPhase(k, c)
	}
	return c
}

// SetPhase makes the phase named by name current. Only the first call has
// any effect; later calls are logged and ignored. An unrecognized name
// selects INACTIVE and still counts as that first call.
//
// It reports whether this call set the phase.
func (c *Coordinator) SetPhase(name string) bool {
	p := c.phases[ParseKind(name)]
	if !c.current.CompareAndSwap(nil, p) {
		observability.LogPhaseIgnored(c.logger, name, c.Phase().String())
		return false
	}
	observability.LogPhaseSet(c.logger, p.String())
	return true
}

// Phase returns the current phase, or INACTIVE if none has been set.
func (c *Coordinator) Phase() *Phase {
	if p := c.current.Load(); p != nil {
		return p
	}
	return c.phases[Inactive]
}

// Lookup returns the phase for k whether or not it is current.
// It returns nil for an unknown kind.
func (c *Coordinator) Lookup(k Kind) *Phase {
	if k < 0 || k >= kindCount {
		return nil
	}
	return c.phases[k]
}
