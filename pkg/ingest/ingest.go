// Package ingest populates a jiten database from the dictionary sources.
// Records are converted on a worker pool and written in source order by
// a single batching writer.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/japaniel/jiten/pkg/db"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Task prepares one record and returns the write that stores it. A nil
// WriteFunc skips the record.
type Task func() (WriteFunc, error)

// Ingester writes a stream of tasks to the database.
type Ingester struct {
	DB        *sql.DB
	BatchSize int
	// FlushInterval bounds how long a partial batch waits. 0 disables it.
	FlushInterval time.Duration
	// Logger is used for informational messages. nil means no logging.
	Logger *slog.Logger
	// OnProgress is called every BatchSize records with the number handed to the writer.
	OnProgress func(done int)

	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewIngester creates a new Ingester.
func NewIngester(conn *sql.DB) *Ingester {
	return &Ingester{
		DB:            conn,
		BatchSize:     500,
		FlushInterval: time.Second,
		Workers:       4,
	}
}

func (ig *Ingester) log() *slog.Logger {
	if ig.Logger != nil {
		return ig.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (ig *Ingester) pool() WorkerPoolInterface {
	if ig.PoolFactory != nil {
		return ig.PoolFactory(ig.Workers, ig.Workers*2)
	}
	return NewWorkerPool(ig.Workers, ig.Workers*2)
}

// prepared is the outcome of one task, tagged with its position.
type prepared struct {
	index int
	write WriteFunc
	err   error
}

// Ingest runs every task and writes the results in task order. It
// returns the number of records written. The first conversion, write
// or iteration error stops the run.
func (ig *Ingester) Ingest(ctx context.Context, tasks iter.Seq2[Task, error]) (int, error) {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp := ig.pool()
	resultCh := make(chan prepared, ig.Workers*2)
	doneCh := make(chan error, 1)
	var written atomic.Int64

	bw := NewBatchWriter(ig.DB, ig.BatchSize, ig.FlushInterval)
	bw.OnError = func(err error) {
		ig.log().Error("batch write failed", "error", err)
		cancel()
	}
	defer bw.Close()

	wp.Start(ctx)
	go ig.consume(ctx, cancel, resultCh, bw, &written, doneCh)

	var produceErr error
	n := 0
	for task, err := range tasks {
		if err != nil {
			produceErr = err
			break
		}
		if ctx.Err() != nil {
			break
		}
		idx := n
		n++
		job := func(ctx context.Context) error {
			w, err := task()
			select {
			case resultCh <- prepared{index: idx, write: w, err: err}:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if ctx.Err() == nil && !errors.Is(err, ErrPoolClosed) {
				produceErr = err
			}
			break
		}
	}

	// No worker can send once Close returns.
	wp.Close()
	close(resultCh)
	consumerErr := <-doneCh
	closeErr := bw.Close()

	if err := parent.Err(); err != nil {
		return int(written.Load()), err
	}
	for _, err := range []error{produceErr, closeErr, consumerErr} {
		if err != nil {
			return int(written.Load()), err
		}
	}
	batches, items := bw.Stats()
	ig.log().Debug("ingest finished", "tasks", n, "written", items, "batches", batches)
	return int(written.Load()), nil
}

// consume restores task order with a reorder buffer and hands each
// write to bw.
func (ig *Ingester) consume(ctx context.Context, cancel context.CancelFunc, resultCh <-chan prepared, bw *BatchWriter, written *atomic.Int64, doneCh chan<- error) {
	buffer := make(map[int]prepared)
	next := 0
	for {
		var res prepared
		var ok bool
		select {
		case <-ctx.Done():
			doneCh <- ctx.Err()
			return
		case res, ok = <-resultCh:
		}
		if !ok {
			if len(buffer) > 0 {
				ig.log().Warn("ingest stopped with unwritten records", "pending", len(buffer))
			}
			doneCh <- nil
			return
		}
		if res.err != nil {
			cancel()
			doneCh <- res.err
			return
		}
		buffer[res.index] = res

		for {
			item, ok := buffer[next]
			if !ok {
				break
			}
			delete(buffer, next)
			next++
			if item.write == nil {
				continue
			}
			w := item.write
			err := bw.Submit(func(ctx context.Context, tx db.DBExecutor) error {
				if err := w(ctx, tx); err != nil {
					return err
				}
				written.Add(1)
				return nil
			})
			if err != nil {
				cancel()
				doneCh <- err
				return
			}
			if ig.OnProgress != nil && ig.BatchSize > 0 && next%ig.BatchSize == 0 {
				ig.OnProgress(next)
			}
		}
	}
}
