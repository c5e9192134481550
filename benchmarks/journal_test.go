package benchmarks

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/crphase/pkg/crphase/journal"
)

func attemptID(n int) string {
	return fmt.Sprintf("cp-%08d", n)
}

func createSQLiteStore(b *testing.B) *journal.SQLiteStore {
	b.Helper()
	store, err := journal.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { store.Close() })
	return store
}

func fill(b *testing.B, store journal.Store, attempts int) {
	b.Helper()
	for i := 0; i < attempts; i++ {
		for _, stage := range []journal.Stage{journal.StagePrepareStarted, journal.StagePrepared, journal.StageRestored} {
			if err := store.Append(attemptID(i), "BEFORE_APP_START", stage, ""); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkMemoryStore_Append measures in-memory journal writes.
func BenchmarkMemoryStore_Append(b *testing.B) {
	store := journal.NewMemoryStore()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Append(attemptID(i%100), "BEFORE_APP_START", journal.StagePrepared, "1 groups")
	}
}

// BenchmarkMemoryStore_List measures reading one attempt back.
func BenchmarkMemoryStore_List(b *testing.B) {
	store := journal.NewMemoryStore()
	fill(b, store, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.List(attemptID(i % 100))
	}
}

// BenchmarkSQLiteStore_Append measures SQLite journal writes.
func BenchmarkSQLiteStore_Append(b *testing.B) {
	store := createSQLiteStore(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Append(attemptID(i%100), "BEFORE_APP_START", journal.StagePrepared, "1 groups")
	}
}

// BenchmarkSQLiteStore_List measures SQLite reads of one attempt.
func BenchmarkSQLiteStore_List(b *testing.B) {
	store := createSQLiteStore(b)
	fill(b, store, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.List(attemptID(i % 100))
	}
}

// BenchmarkSQLiteStore_Attempts measures the summary query.
func BenchmarkSQLiteStore_Attempts(b *testing.B) {
	store := createSQLiteStore(b)
	fill(b, store, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Attempts()
	}
}
