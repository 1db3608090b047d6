// Package search finds, verifies and ranks dictionary records.
//
// A word query runs as one synchronous pipeline: the raw string is parsed,
// candidates are located with a cheap storage level pre-filter, every
// candidate is re-tested against the exact regular expression, and the
// survivors are ranked and truncated before their full records are loaded.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math/rand/v2"
	"regexp"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/freq"
	"github.com/japaniel/jiten/pkg/query"
	"github.com/japaniel/jiten/pkg/rx"
)

// Storage is the read-only dictionary the engine searches. *db.Store
// implements it.
type Storage interface {
	LikeIDs(ctx context.Context, f db.Facet, langs []string, pattern string) ([]int64, error)
	ContainsIDs(ctx context.Context, f db.Facet, langs []string, sub string) ([]int64, error)
	FacetTexts(ctx context.Context, ids []int64, facets []db.Facet, langs []string) ([]db.FacetRow, error)
	ScanFacets(ctx context.Context, facets []db.Facet, langs []string) iter.Seq2[db.FacetRow, error]
	Heads(ctx context.Context, ids []int64) (map[int64]db.Head, error)
	ScanHeads(ctx context.Context, f db.EntryFilter) iter.Seq2[db.Head, error]
	RandomEntryID(ctx context.Context, f db.EntryFilter) (int64, error)
	Entries(ctx context.Context, ids []int64) ([]db.Entry, error)
	Entry(ctx context.Context, seq int64) (db.Entry, error)

	KanjiByCodes(ctx context.Context, codes []int64) ([]db.Kanji, error)
	KanjiWithComponents(ctx context.Context, comps []string) ([]int64, error)
	KanjiBySkip(ctx context.Context, skip string) ([]int64, error)
	KanjiMatching(ctx context.Context, re string) ([]int64, error)
	RandomKanji(ctx context.Context) (db.Kanji, error)

	Sentence(ctx context.Context, id int64) (db.Sentence, error)
	RandomSentences(ctx context.Context, f db.SentenceFilter) ([]db.Sentence, error)
	SentencesContaining(ctx context.Context, text string, translations bool, f db.SentenceFilter) ([]db.Sentence, error)
}

// Result is one ranked word.
type Result struct {
	Entry db.Entry
	Rank  freq.Rank
	Level freq.Level
}

// Engine answers word, kanji and sentence queries. It holds no mutable
// state and may be shared by concurrent callers.
type Engine struct {
	store  Storage
	tables *freq.Tables

	// Logger receives debug traces; nil discards them.
	Logger *slog.Logger
	// DisablePrefilter verifies every stored row instead of the rows the
	// glob pre-filter selects. Results are the same, only slower.
	DisablePrefilter bool

	// Regexps compiles verification patterns; nil uses rx.Compile.
	Regexps *rx.Cache
}

// New returns an engine over store ranking with tables. A nil tables
// ranks nothing.
func New(store Storage, tables *freq.Tables) *Engine {
	if tables == nil {
		tables = freq.Empty
	}
	return &Engine{store: store, tables: tables}
}

func (e *Engine) compile(pattern string) (*regexp.Regexp, error) {
	if e.Regexps == nil {
		return rx.Compile(pattern)
	}
	return e.Regexps.Compile(pattern)
}

func (e *Engine) log() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

// Words parses raw with opts and returns the matching entries in rank
// order.
func (e *Engine) Words(ctx context.Context, raw string, opts query.Options) ([]Result, error) {
	q, err := query.Parse(raw, opts)
	if err != nil {
		return nil, err
	}
	return e.WordsQuery(ctx, q)
}

// WordsQuery returns the entries matching an already parsed query.
func (e *Engine) WordsQuery(ctx context.Context, q query.Query) ([]Result, error) {
	switch q.Mode {
	case query.ModeNone:
		return nil, nil
	case query.ModeID:
		return e.entryByID(ctx, q.ID)
	case query.ModeRandom:
		return e.randomEntry(ctx, q.Filters)
	case query.ModeRadicals, query.ModeSkip:
		return nil, fmt.Errorf("%w: %s applies to kanji only", query.ErrInvalidQuery, q.Mode)
	}

	cands, err := e.locate(ctx, q)
	if err != nil {
		return nil, err
	}
	heads, err := e.store.Heads(ctx, cands)
	if err != nil {
		return nil, err
	}
	filter := entryFilter(q.Filters)
	signals := make([]Signals, 0, len(heads))
	for _, h := range heads {
		if !filter.Match(h) {
			continue
		}
		s := e.signals(h)
		if !s.Level.Within(q.Filters.MinLevel, q.Filters.MaxLevel) {
			continue
		}
		signals = append(signals, s)
	}
	Sort(signals)
	signals = truncate(signals, q.Max)
	e.log().Debug("ranked words", "query", q.String(), "candidates", len(cands), "results", len(signals))

	entries, err := e.store.Entries(ctx, ids(signals))
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Signals, len(signals))
	for _, s := range signals {
		byID[s.ID] = s
	}
	out := make([]Result, len(entries))
	for i, en := range entries {
		s := byID[en.Seq]
		out[i] = Result{Entry: en, Rank: s.Freq, Level: s.Level}
	}
	return out, nil
}

func (e *Engine) signals(h db.Head) Signals {
	def := h.Definition()
	return Signals{
		Prio:  h.Prio,
		Freq:  e.tables.BestRank(def),
		Level: e.tables.HighestLevel(def),
		ID:    h.Seq,
	}
}

func (e *Engine) result(en db.Entry) Result {
	def := en.Definition()
	return Result{Entry: en, Rank: e.tables.BestRank(def), Level: e.tables.HighestLevel(def)}
}

func entryFilter(f query.Filters) db.EntryFilter {
	out := db.EntryFilter{Noun: f.Noun, Verb: f.Verb}
	if f.Common {
		out.MinPrio = CurationThreshold
	}
	return out
}

// entryByID ignores filters.
func (e *Engine) entryByID(ctx context.Context, id int64) ([]Result, error) {
	en, err := e.store.Entry(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []Result{e.result(en)}, nil
}

// randomEntry lets storage pick when every filter is a column filter and
// falls back to reservoir sampling over a filtered scan when the level
// range, which only the tables know, is active.
func (e *Engine) randomEntry(ctx context.Context, f query.Filters) ([]Result, error) {
	filter := entryFilter(f)
	var id int64
	if !f.Level() {
		var err error
		id, err = e.store.RandomEntryID(ctx, filter)
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
	} else {
		seen := 0
		for h, err := range e.store.ScanHeads(ctx, filter) {
			if err != nil {
				return nil, err
			}
			if !e.tables.HighestLevel(h.Definition()).Within(f.MinLevel, f.MaxLevel) {
				continue
			}
			seen++
			if rand.IntN(seen) == 0 {
				id = h.Seq
			}
		}
		if seen == 0 {
			return nil, nil
		}
	}
	return e.entryByID(ctx, id)
}
