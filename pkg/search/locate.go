package search

import (
	"context"
	"regexp"
	"slices"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/glob"
	"github.com/japaniel/jiten/pkg/query"
)

// candidates is the set of entry ids still in the running.
type candidates map[int64]struct{}

func (c candidates) add(ids []int64) {
	for _, id := range ids {
		c[id] = struct{}{}
	}
}

func (c candidates) sorted() []int64 {
	out := make([]int64, 0, len(c))
	for id := range c {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// facets returns the surfaces q is tested against. Japanese text never
// occurs in a foreign gloss.
func facets(q query.Query) []db.Facet {
	if q.Japanese() {
		return []db.Facet{db.FacetKanji, db.FacetReading}
	}
	return []db.Facet{db.FacetKanji, db.FacetReading, db.FacetGloss}
}

// locate returns the ids of the entries with a facet matching q.
func (e *Engine) locate(ctx context.Context, q query.Query) ([]int64, error) {
	fs := facets(q)
	if q.Japanese() && q.Anchor == query.AnchorNone && !e.DisablePrefilter {
		return e.containing(ctx, q.Pattern, fs)
	}

	re, err := e.compile(q.Regex())
	if err != nil {
		return nil, err
	}
	if e.DisablePrefilter {
		return e.scan(ctx, re, fs, q.Langs)
	}
	pattern, err := glob.Compile(q.Bare())
	if err != nil {
		e.log().Debug("glob pre-filter skipped", "pattern", q.Bare(), "err", err)
		return e.scan(ctx, re, fs, q.Langs)
	}
	return e.prefiltered(ctx, re, pattern, fs, q.Langs)
}

// containing matches plain Japanese text by substring. Kana and kanji have
// no case, so containment is exactly what the regex would match.
func (e *Engine) containing(ctx context.Context, sub string, fs []db.Facet) ([]int64, error) {
	c := make(candidates)
	for _, f := range fs {
		found, err := e.store.ContainsIDs(ctx, f, nil, sub)
		if err != nil {
			return nil, err
		}
		c.add(found)
	}
	return c.sorted(), nil
}

// prefiltered selects the rows matching the glob, then keeps the entries
// whose text really matches re.
func (e *Engine) prefiltered(ctx context.Context, re *regexp.Regexp, pattern string, fs []db.Facet, langs []string) ([]int64, error) {
	c := make(candidates)
	for _, f := range fs {
		found, err := e.store.LikeIDs(ctx, f, langs, pattern)
		if err != nil {
			return nil, err
		}
		c.add(found)
	}
	if len(c) == 0 {
		return nil, nil
	}
	rows, err := e.store.FacetTexts(ctx, c.sorted(), fs, langs)
	if err != nil {
		return nil, err
	}
	matched := make(candidates)
	for _, r := range rows {
		if _, ok := matched[r.Entry]; !ok && re.MatchString(r.Text) {
			matched[r.Entry] = struct{}{}
		}
	}
	e.log().Debug("verified candidates", "glob", pattern, "candidates", len(c), "matched", len(matched))
	return matched.sorted(), nil
}

// scan tests every stored facet row against re.
func (e *Engine) scan(ctx context.Context, re *regexp.Regexp, fs []db.Facet, langs []string) ([]int64, error) {
	matched := make(candidates)
	for r, err := range e.store.ScanFacets(ctx, fs, langs) {
		if err != nil {
			return nil, err
		}
		if _, ok := matched[r.Entry]; !ok && re.MatchString(r.Text) {
			matched[r.Entry] = struct{}{}
		}
	}
	return matched.sorted(), nil
}
