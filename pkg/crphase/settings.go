package crphase

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/crphase/pkg/crphase/config"
	"github.com/randalmurphal/crphase/pkg/crphase/journal"
	"github.com/randalmurphal/crphase/pkg/crphase/observability"
)

// LoggerFromSettings returns the logger described by s: a debug text logger
// when Debug is set, otherwise a logger at LogLevel in LogFormat on stderr.
func LoggerFromSettings(s config.Settings) *slog.Logger {
	if s.Debug {
		return observability.NewDebugLogger(nil)
	}
	return observability.NewLogger(nil, s.LogLevel, s.LogFormat)
}

// NewFromSettings creates a coordinator configured by s. When s.Phase is
// set, it becomes the current phase.
func NewFromSettings(s config.Settings, opts ...Option) *Coordinator {
	base := []Option{WithLogger(LoggerFromSettings(s))}
	if s.Metrics {
		base = append(base, WithMetrics(observability.NewMetricsRecorder()))
	}
	c := New(append(base, opts...)...)
	if s.Phase != "" {
		c.SetPhase(s.Phase)
	}
	return c
}

// NewDriverFromSettings creates a driver for p with the journal and tracing
// described by s. The driver owns the journal; call Close when done.
func NewDriverFromSettings(p *Phase, s config.Settings, opts ...DriverOption) (*Driver, error) {
	store, err := journal.Open(s.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	base := []DriverOption{WithJournal(store)}
	if s.Tracing {
		base = append(base, WithSpanManager(observability.NewSpanManager()))
	}
	d := NewDriver(p, append(base, opts...)...)
	d.owned = true
	return d, nil
}

var (
	defaultOnce  sync.Once
	defaultCoord *Coordinator
)

// Default returns the process-wide coordinator, built on first use from
// CRPHASE_* environment variables. CRPHASE_PHASE, when set, becomes the
// current phase. Invalid settings fall back to defaults and are logged.
func Default() *Coordinator {
	defaultOnce.Do(func() {
		s, err := config.Load("")
		if err != nil {
			logger := observability.DefaultLogger()
			if logger == nil {
				logger = observability.NewLogger(nil, "warn", "text")
			}
			logger.Warn("invalid crphase environment, using defaults", slog.String("error", err.Error()))
			s = config.Defaults()
			s.Debug = observability.DebugEnabled()
		}
		defaultCoord = NewFromSettings(s)
	})
	return defaultCoord
}

// SetPhase sets the current phase of the Default coordinator.
func SetPhase(name string) bool {
	return Default().SetPhase(name)
}

// GetPhase returns the current phase of the Default coordinator.
func GetPhase() *Phase {
	return Default().Phase()
}
