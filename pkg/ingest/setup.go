package ingest

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/dictionary"
	"github.com/japaniel/jiten/pkg/freq"
)

// FreqFile is a word frequency list. Files with WordFirst false list the
// count before the word.
type FreqFile struct {
	Path      string
	WordFirst bool
}

// Sources names the input files of a database build. Empty paths are
// skipped. Files ending in .gz are decompressed.
type Sources struct {
	JMdict    string
	Kanjidic  string
	Kradfile  string
	Sentences string
	Freq      []FreqFile
	JLPT      string
}

// Summary counts the rows written by Setup.
type Summary struct {
	Entries   int
	Kanji     int
	Sentences int
	Ranks     int
	Levels    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d entries, %d kanji, %d sentences, %d ranked words, %d leveled words",
		s.Entries, s.Kanji, s.Sentences, s.Ranks, s.Levels)
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for i := len(rc.closers) - 1; i >= 0; i-- {
		if err := rc.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openSource(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &readCloser{Reader: gz, closers: []io.Closer{f, gz}}, nil
}

func (ig *Ingester) ingestFile(ctx context.Context, what, path string, tasks func(io.Reader) iter.Seq2[Task, error]) (int, error) {
	if path == "" {
		ig.log().Info("skipping source", "source", what)
		return 0, nil
	}
	r, err := openSource(path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	defer r.Close()
	ig.log().Info("importing", "source", what, "path", path)
	n, err := ig.Ingest(ctx, tasks(r))
	if err != nil {
		return n, fmt.Errorf("%s: %w", what, err)
	}
	ig.log().Info("imported", "source", what, "rows", n)
	return n, nil
}

func (ig *Ingester) loadKradfile(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}
	r, err := openSource(path)
	if err != nil {
		return nil, fmt.Errorf("kradfile: %w", err)
	}
	defer r.Close()
	return dictionary.LoadKradfile(r)
}

// Ranks merges the frequency lists and ranks their Japanese words.
func Ranks(files []FreqFile) (map[string]int, error) {
	merged := make(freq.Counts)
	for _, ff := range files {
		r, err := openSource(ff.Path)
		if err != nil {
			return nil, err
		}
		c, err := freq.ParseCounts(r, ff.WordFirst, dictionary.KeepWord)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ff.Path, err)
		}
		merged.Merge(c)
	}
	return merged.Ranks(), nil
}

func readLevels(path string) (map[string]int, error) {
	r, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return dictionary.ParseLevels(r)
}

// Setup imports every source in src into the database. Word tables are
// rebuilt when frequency or JLPT files are given.
func (ig *Ingester) Setup(ctx context.Context, src Sources) (Summary, error) {
	var sum Summary
	var err error

	if sum.Entries, err = ig.ingestFile(ctx, "jmdict", src.JMdict, EntryTasks); err != nil {
		return sum, err
	}

	krad, err := ig.loadKradfile(src.Kradfile)
	if err != nil {
		return sum, err
	}
	kanjiTasks := func(r io.Reader) iter.Seq2[Task, error] { return KanjiTasks(r, krad) }
	if sum.Kanji, err = ig.ingestFile(ctx, "kanjidic", src.Kanjidic, kanjiTasks); err != nil {
		return sum, err
	}

	if sum.Sentences, err = ig.ingestFile(ctx, "sentences", src.Sentences, SentenceTasks); err != nil {
		return sum, err
	}

	if len(src.Freq) == 0 && src.JLPT == "" {
		return sum, nil
	}
	if err := db.ClearWordTables(ctx, ig.DB); err != nil {
		return sum, err
	}
	if len(src.Freq) > 0 {
		ranks, err := Ranks(src.Freq)
		if err != nil {
			return sum, fmt.Errorf("frequency: %w", err)
		}
		if sum.Ranks, err = ig.Ingest(ctx, WordTasks(ranks, db.PutWordRank)); err != nil {
			return sum, fmt.Errorf("frequency: %w", err)
		}
	}
	if src.JLPT != "" {
		levels, err := readLevels(src.JLPT)
		if err != nil {
			return sum, fmt.Errorf("jlpt: %w", err)
		}
		if sum.Levels, err = ig.Ingest(ctx, WordTasks(levels, db.PutWordLevel)); err != nil {
			return sum, fmt.Errorf("jlpt: %w", err)
		}
	}
	ig.log().Info("setup finished", "summary", sum.String())
	return sum, nil
}
