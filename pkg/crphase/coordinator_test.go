package crphase

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/randalmurphal/crphase/pkg/crphase/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCoordinator_PhaseDefaultsToInactive(t *testing.T) {
	c := New()
	assert.Equal(t, Inactive, c.Phase().Kind())
	assert.Same(t, c.Lookup(Inactive), c.Phase())
	assert.Nil(t, c.Lookup(Kind(42)))
}

func TestCoordinator_SetPhase(t *testing.T) {
	tests := []struct {
		name   string
		first  string
		second string
		want   Kind
	}{
		{"first wins", "BEFORE_APP_START", "AFTER_APP_START", BeforeAppStart},
		{"same twice", "AFTER_APP_START", "AFTER_APP_START", AfterAppStart},
		{"unknown name counts as the set", "BOGUS", "BEFORE_APP_START", Inactive},
		{"legacy alias", "applications", "INACTIVE", AfterAppStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			assert.True(t, c.SetPhase(tt.first))
			assert.False(t, c.SetPhase(tt.second))
			assert.Equal(t, tt.want, c.Phase().Kind())
		})
	}
}

func TestCoordinator_SetPhaseConcurrent(t *testing.T) {
	c := New()
	names := []string{"BEFORE_APP_START", "AFTER_APP_START", "INACTIVE"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if c.SetPhase(names[i%len(names)]) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	first := c.Phase()
	c.SetPhase("BEFORE_APP_START")
	assert.Same(t, first, c.Phase())
}

func TestCoordinator_Logging(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithLogger(observability.NewDebugLogger(&buf)))
	c.SetPhase("BEFORE_APP_START")
	c.SetPhase("AFTER_APP_START")
	c.Phase().AddSingleThreadedHookRank(2, NopHook{})

	out := buf.String()
	assert.Contains(t, out, "phase set")
	assert.Contains(t, out, "phase already set, ignoring")
	assert.Contains(t, out, "hook group created")
	assert.Contains(t, out, "hook added")
}

func TestCoordinator_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rec, err := observability.NewMetricsRecorderWithProvider(provider)
	require.NoError(t, err)

	_, p := newCurrent("BEFORE_APP_START", WithMetrics(rec))
	p.AddSingleThreadedHook(NopHook{})
	p.AddMultiThreadedHook(NopHook{})
	p.BlockAddHooks()
	p.AddMultiThreadedHook(NopHook{})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					counts[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), counts["crphase.hooks.added"])
	assert.Equal(t, int64(1), counts["crphase.hooks.rejected"])
}
