package ingest

import (
	"context"
	"errors"
	"io"
	"iter"
	"maps"
	"slices"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/dictionary"
)

var errStopped = errors.New("stopped")

// stream adapts a callback style reader to a task sequence. A read
// error is yielded as the last element.
func stream(run func(emit func(Task) error) error) iter.Seq2[Task, error] {
	return func(yield func(Task, error) bool) {
		err := run(func(t Task) error {
			if !yield(t, nil) {
				return errStopped
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(nil, err)
		}
	}
}

// EntryTasks converts a jmdict-simplified document into entry writes.
func EntryTasks(r io.Reader) iter.Seq2[Task, error] {
	return stream(func(emit func(Task) error) error {
		return dictionary.StreamJMdict(r, func(e dictionary.JMdictEntry) error {
			return emit(func() (WriteFunc, error) {
				entry, err := e.Entry()
				if err != nil {
					return nil, err
				}
				return func(ctx context.Context, tx db.DBExecutor) error {
					return db.PutEntry(ctx, tx, entry)
				}, nil
			})
		})
	})
}

// KanjiTasks converts a kanjidic2-simplified document into kanji writes,
// attaching the components listed in krad.
func KanjiTasks(r io.Reader, krad map[string][]string) iter.Seq2[Task, error] {
	return stream(func(emit func(Task) error) error {
		return dictionary.StreamKanjidic(r, func(c dictionary.KanjidicCharacter) error {
			return emit(func() (WriteFunc, error) {
				k, err := c.Kanji(krad[c.Literal])
				if err != nil {
					return nil, err
				}
				return func(ctx context.Context, tx db.DBExecutor) error {
					return db.PutKanji(ctx, tx, k)
				}, nil
			})
		})
	})
}

// SentenceTasks turns a sentence list into sentence writes.
func SentenceTasks(r io.Reader) iter.Seq2[Task, error] {
	return stream(func(emit func(Task) error) error {
		return dictionary.ParseSentences(r, func(st db.Sentence) error {
			return emit(func() (WriteFunc, error) {
				return func(ctx context.Context, tx db.DBExecutor) error {
					return db.PutSentence(ctx, tx, st)
				}, nil
			})
		})
	})
}

// WordTasks writes one word table row per word in sorted order.
func WordTasks(values map[string]int, put func(context.Context, db.DBExecutor, string, int) error) iter.Seq2[Task, error] {
	return func(yield func(Task, error) bool) {
		for _, w := range slices.Sorted(maps.Keys(values)) {
			n := values[w]
			task := func() (WriteFunc, error) {
				return func(ctx context.Context, tx db.DBExecutor) error {
					return put(ctx, tx, w, n)
				}, nil
			}
			if !yield(task, nil) {
				return
			}
		}
	}
}
