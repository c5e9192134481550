package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/crphase/pkg/crphase"
	"github.com/randalmurphal/crphase/pkg/crphase/journal"
)

func buildPhase(b *testing.B, groups, hooksPerGroup int) *crphase.Phase {
	b.Helper()
	phase := newPhase(b)
	for rank := 0; rank < groups; rank++ {
		for h := 0; h < hooksPerGroup; h++ {
			if rank%2 == 0 {
				phase.AddMultiThreadedHookRank(rank, crphase.NopHook{})
			} else {
				phase.AddSingleThreadedHookRank(rank, crphase.NopHook{})
			}
		}
	}
	return phase
}

func benchmarkRun(b *testing.B, groups, hooksPerGroup int) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		phase := buildPhase(b, groups, hooksPerGroup)
		driver := crphase.NewDriver(phase, crphase.WithDriverLogger(quiet))
		b.StartTimer()

		if err := driver.Run(ctx, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRun_1Group measures a full attempt with a single hook.
func BenchmarkRun_1Group(b *testing.B) { benchmarkRun(b, 1, 1) }

// BenchmarkRun_10Groups measures a full attempt across ten ranks.
func BenchmarkRun_10Groups(b *testing.B) { benchmarkRun(b, 10, 1) }

// BenchmarkRun_100Groups measures a full attempt across a hundred ranks.
func BenchmarkRun_100Groups(b *testing.B) { benchmarkRun(b, 100, 1) }

// BenchmarkRun_10Groups_100Hooks measures dispatch within large groups.
func BenchmarkRun_10Groups_100Hooks(b *testing.B) { benchmarkRun(b, 10, 100) }

// BenchmarkRun_WithJournal measures the cost of journaling each stage.
func BenchmarkRun_WithJournal(b *testing.B) {
	ctx := context.Background()
	store := journal.NewMemoryStore()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		phase := buildPhase(b, 10, 1)
		driver := crphase.NewDriver(phase,
			crphase.WithDriverLogger(quiet),
			crphase.WithJournal(store),
		)
		b.StartTimer()

		if err := driver.Run(ctx, nil); err != nil {
			b.Fatal(err)
		}
	}
}
