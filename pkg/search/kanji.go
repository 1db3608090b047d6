package search

import (
	"context"
	"errors"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/kana"
	"github.com/japaniel/jiten/pkg/query"
)

// Kanji parses raw with opts and returns the matching kanji.
//
// Ideographs in the query are looked up directly and returned in query
// order. Component and SKIP lookups and reading or meaning patterns are
// ranked by frequency, then level, then code point.
func (e *Engine) Kanji(ctx context.Context, raw string, opts query.Options) ([]db.Kanji, error) {
	q, err := query.Parse(raw, opts)
	if err != nil {
		return nil, err
	}
	return e.KanjiQuery(ctx, q)
}

// KanjiQuery returns the kanji matching an already parsed query.
func (e *Engine) KanjiQuery(ctx context.Context, q query.Query) ([]db.Kanji, error) {
	var codes []int64
	var err error
	switch q.Mode {
	case query.ModeNone:
		return nil, nil
	case query.ModeID:
		return e.store.KanjiByCodes(ctx, []int64{q.ID})
	case query.ModeRandom:
		k, err := e.store.RandomKanji(ctx)
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []db.Kanji{k}, nil
	case query.ModeRadicals:
		codes, err = e.store.KanjiWithComponents(ctx, components(q.Pattern))
	case query.ModeSkip:
		codes, err = e.store.KanjiBySkip(ctx, q.Pattern)
	default:
		if ideo := kana.Ideographs(q.Pattern); len(ideo) > 0 {
			codes = make([]int64, len(ideo))
			for i, r := range ideo {
				codes[i] = int64(r)
			}
			return e.store.KanjiByCodes(ctx, codes)
		}
		codes, err = e.store.KanjiMatching(ctx, q.Regex())
	}
	if err != nil {
		return nil, err
	}

	ks, err := e.store.KanjiByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	byCode := make(map[int64]db.Kanji, len(ks))
	signals := make([]Signals, len(ks))
	for i, k := range ks {
		byCode[k.Code] = k
		signals[i] = Signals{Freq: k.Freq, Level: k.JLPT, ID: k.Code}
	}
	Sort(signals)
	signals = truncate(signals, q.Max)
	out := make([]db.Kanji, len(signals))
	for i, s := range signals {
		out[i] = byCode[s.ID]
	}
	return out, nil
}

// components splits a radical query into distinct characters.
func components(p string) []string {
	var out []string
	seen := make(map[rune]bool)
	for _, r := range p {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, string(r))
	}
	return out
}
