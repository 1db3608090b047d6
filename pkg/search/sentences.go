package search

import (
	"context"
	"errors"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/kana"
	"github.com/japaniel/jiten/pkg/query"
)

// Sentences parses raw with opts as a text query and returns matching
// example sentences ordered by id. The pattern is matched as plain text;
// translations are searched unless it is Japanese. Each selected language
// must have a translation.
func (e *Engine) Sentences(ctx context.Context, raw string, opts query.Options) ([]db.Sentence, error) {
	q, err := query.ParseText(raw, opts)
	if err != nil {
		return nil, err
	}
	f := db.SentenceFilter{Langs: q.Langs, Audio: q.Filters.Audio, Limit: q.Max}
	switch q.Mode {
	case query.ModeNone:
		return nil, nil
	case query.ModeID:
		st, err := e.store.Sentence(ctx, q.ID)
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []db.Sentence{st}, nil
	case query.ModeRandom:
		if f.Limit == 0 {
			f.Limit = 1
		}
		return e.store.RandomSentences(ctx, f)
	}
	return e.store.SentencesContaining(ctx, q.Pattern, !kana.AllJapanese(q.Pattern), f)
}
