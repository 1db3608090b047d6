package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"testing"

	"github.com/japaniel/jiten/pkg/db"
)

func setupBenchmarkDB(b *testing.B) *sql.DB {
	conn := setupDB(b)
	// Keep the benchmark about the pipeline rather than fsync.
	_, _ = conn.Exec("PRAGMA synchronous = OFF")
	_, _ = conn.Exec("PRAGMA journal_mode = MEMORY")
	return conn
}

func benchmarkEntries(n int) iter.Seq2[Task, error] {
	return func(yield func(Task, error) bool) {
		for i := 0; i < n; i++ {
			e := db.Entry{
				Seq:      int64(1000000 + i),
				Kanji:    []db.KanjiForm{{Elem: fmt.Sprintf("試験%d", i), Chars: "試験"}},
				Readings: []db.ReadingForm{{Elem: "しけん"}},
				Senses: []db.Sense{
					{Lang: "eng", POS: []string{"n", "vs"}, Gloss: []string{"examination", "test"}},
					{Lang: "dut", POS: []string{"n"}, Gloss: []string{"examen"}},
				},
				Prio:   i % 5,
				IsNoun: true,
			}
			task := func() (WriteFunc, error) {
				return func(ctx context.Context, tx db.DBExecutor) error {
					return db.PutEntry(ctx, tx, e)
				}, nil
			}
			if !yield(task, nil) {
				return
			}
		}
	}
}

func BenchmarkIngest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		conn := setupBenchmarkDB(b)
		ingester := NewIngester(conn)
		ingester.BatchSize = 100
		b.StartTimer()

		_, err := ingester.Ingest(context.Background(), benchmarkEntries(1000))
		b.StopTimer()
		conn.Close()
		if err != nil {
			b.Fatalf("Ingest failed: %v", err)
		}
	}
}

func BenchmarkIngestConcurrencyScaling(b *testing.B) {
	// Writes dominate for small records, so extra workers mostly measure overhead.
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("Workers_%d", workers), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				conn := setupBenchmarkDB(b)
				ingester := NewIngester(conn)
				ingester.Workers = workers
				ingester.BatchSize = 100
				b.StartTimer()

				_, err := ingester.Ingest(context.Background(), benchmarkEntries(1000))
				b.StopTimer()
				conn.Close()
				if err != nil {
					b.Fatalf("Ingest failed: %v", err)
				}
			}
		})
	}
}
