package search

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/freq"
	"github.com/japaniel/jiten/pkg/glob"
	"github.com/japaniel/jiten/pkg/query"
	"github.com/japaniel/jiten/pkg/rx"
)

const (
	seqNeko    = 1467640
	seqNekoka  = 1467650
	seqChirasu = 1589310
	seqInu     = 1501720
	seqBaka    = 1601260
	seqCat     = 1035020
)

var fixture = []db.Entry{
	{
		Seq:      seqNeko,
		Kanji:    []db.KanjiForm{{Elem: "猫", Chars: "猫"}},
		Readings: []db.ReadingForm{{Elem: "ねこ"}},
		Senses: []db.Sense{
			{Lang: "eng", Gloss: []string{"cat (esp. the domestic cat)"}},
			{Lang: "dut", Gloss: []string{"kat"}},
		},
		Prio:   4,
		IsNoun: true,
	},
	{
		Seq:      seqNekoka,
		Kanji:    []db.KanjiForm{{Elem: "猫科", Chars: "猫科"}},
		Readings: []db.ReadingForm{{Elem: "ねこか"}},
		Senses:   []db.Sense{{Lang: "eng", Gloss: []string{"Felidae", "cat family"}}},
		IsNoun:   true,
	},
	{
		Seq:      seqChirasu,
		Kanji:    []db.KanjiForm{{Elem: "散らす", Chars: "散"}},
		Readings: []db.ReadingForm{{Elem: "ちらす"}},
		Senses:   []db.Sense{{Lang: "eng", Gloss: []string{"to scatter", "to disperse"}}},
		IsVerb:   true,
	},
	{
		Seq:      seqInu,
		Kanji:    []db.KanjiForm{{Elem: "犬", Chars: "犬"}},
		Readings: []db.ReadingForm{{Elem: "いぬ"}},
		Senses:   []db.Sense{{Lang: "eng", Gloss: []string{"dog (Canis familiaris)"}}},
		Prio:     4,
		IsNoun:   true,
	},
	{
		Seq:      seqBaka,
		Kanji:    []db.KanjiForm{{Elem: "馬鹿", Chars: "馬鹿"}},
		Readings: []db.ReadingForm{{Elem: "ばか"}},
		Senses:   []db.Sense{{Lang: "eng", Gloss: []string{"idiot", "fool"}, UsuallyKana: true}},
		Prio:     2,
	},
	{
		Seq:      seqCat,
		Readings: []db.ReadingForm{{Elem: "キャット"}},
		Senses:   []db.Sense{{Lang: "eng", Gloss: []string{"cat"}}},
		IsNoun:   true,
	},
}

var fixtureTables = freq.NewTables(
	map[string]int{"猫": 2201, "犬": 1500, "ばか": 5000},
	map[string]int{"猫": 5, "犬": 4, "散らす": 2},
)

func openFixture(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open(db.DriverName, ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.InitDB(conn))
	ctx := context.Background()
	for _, e := range fixture {
		require.NoError(t, db.PutEntry(ctx, conn, e))
	}
	for _, k := range kanjiFixture {
		require.NoError(t, db.PutKanji(ctx, conn, k))
	}
	for _, st := range sentenceFixture {
		require.NoError(t, db.PutSentence(ctx, conn, st))
	}
	return conn
}

func newTestEngine(t *testing.T) *Engine {
	return New(db.NewStore(openFixture(t)), fixtureTables)
}

// spyStore records which facets were filtered and how.
type spyStore struct {
	*db.Store
	like, contains []db.Facet
	scans          int
}

func (s *spyStore) LikeIDs(ctx context.Context, f db.Facet, langs []string, pattern string) ([]int64, error) {
	s.like = append(s.like, f)
	return s.Store.LikeIDs(ctx, f, langs, pattern)
}

func (s *spyStore) ContainsIDs(ctx context.Context, f db.Facet, langs []string, sub string) ([]int64, error) {
	s.contains = append(s.contains, f)
	return s.Store.ContainsIDs(ctx, f, langs, sub)
}

func (s *spyStore) ScanFacets(ctx context.Context, facets []db.Facet, langs []string) iter.Seq2[db.FacetRow, error] {
	s.scans++
	return s.Store.ScanFacets(ctx, facets, langs)
}

func seqs(rs []Result) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.Entry.Seq
	}
	return out
}

func TestWordsWholeWord(t *testing.T) {
	pattern, err := glob.Compile("cat")
	require.NoError(t, err)
	assert.Equal(t, "%cat%", pattern)

	e := newTestEngine(t)
	rs, err := e.Words(context.Background(), "+w cat", query.Options{})
	require.NoError(t, err)
	// "to scatter" passes the glob but not the word boundary check
	assert.Equal(t, []int64{seqNeko, seqCat, seqNekoka}, seqs(rs))
	assert.Equal(t, freq.NewRank(2201), rs[0].Rank)
	assert.Equal(t, freq.NewLevel(5), rs[0].Level)
	assert.False(t, rs[1].Rank.Ranked())
}

func TestWordsJapaneseSubstring(t *testing.T) {
	spy := &spyStore{Store: db.NewStore(openFixture(t))}
	e := New(spy, fixtureTables)

	rs, err := e.Words(context.Background(), "猫", query.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{seqNeko, seqNekoka}, seqs(rs))
	assert.Equal(t, []db.Facet{db.FacetKanji, db.FacetReading}, spy.contains)
	assert.Empty(t, spy.like)
	assert.Zero(t, spy.scans)

	rs, err = e.Words(context.Background(), "+hneko", query.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{seqNeko, seqNekoka}, seqs(rs))
}

func TestWordsGlobDeclined(t *testing.T) {
	spy := &spyStore{Store: db.NewStore(openFixture(t))}
	e := New(spy, fixtureTables)

	rs, err := e.Words(context.Background(), "cat|dog", query.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{seqInu, seqNeko, seqChirasu, seqCat, seqNekoka}, seqs(rs))
	assert.Empty(t, spy.like)
	assert.Equal(t, 1, spy.scans)
}

func TestWordsRanking(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	rs, err := e.Words(ctx, "cat", query.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{seqNeko, seqChirasu, seqCat, seqNekoka}, seqs(rs))

	rs, err = e.Words(ctx, "cat", query.Options{Exact: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{seqCat}, seqs(rs))

	rs, err = e.Words(ctx, "kat", query.Options{Langs: []string{"dut"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{seqNeko}, seqs(rs))

	rs, err = e.Words(ctx, "ばか", query.Options{})
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, freq.NewRank(5000), rs[0].Rank)
}

func TestWordsFilters(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	tests := []struct {
		name    string
		filters query.Filters
		want    []int64
	}{
		{"noun", query.Filters{Noun: true}, []int64{seqNeko, seqCat, seqNekoka}},
		{"verb", query.Filters{Verb: true}, []int64{seqChirasu}},
		{"common", query.Filters{Common: true}, []int64{seqNeko}},
		{"min level", query.Filters{MinLevel: 5}, []int64{seqNeko}},
		{"max level", query.Filters{MaxLevel: 3}, []int64{seqChirasu}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := e.Words(ctx, "cat", query.Options{Filters: tt.filters})
			require.NoError(t, err)
			assert.Equal(t, tt.want, seqs(rs))
		})
	}
}

func TestWordsTruncationIsPrefix(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	all, err := e.Words(ctx, "cat|dog", query.Options{})
	require.NoError(t, err)
	for n := 1; n <= len(all); n++ {
		rs, err := e.Words(ctx, "cat|dog", query.Options{Max: n})
		require.NoError(t, err)
		assert.Equal(t, seqs(all)[:n], seqs(rs), "max %d", n)
	}
}

func TestWordsPrefilterDisabledSameResults(t *testing.T) {
	conn := openFixture(t)
	fast := New(db.NewStore(conn), fixtureTables)
	slow := New(db.NewStore(conn), fixtureTables)
	slow.DisablePrefilter = true
	ctx := context.Background()

	for _, raw := range []string{
		"cat", "+w cat", "+= cat", "+1 cat", "CAT", "猫", "ねこ", "+=猫", "cat|dog", "+~cat (",
		`^c`, `\pK+`, `s.a`, "a{2,}", "dog$", "idiot|fool", "kat", "f[eo]l", "+w to",
	} {
		for _, opts := range []query.Options{{}, {Langs: []string{"eng", "dut"}}, {Filters: query.Filters{Noun: true}}} {
			want, err := fast.Words(ctx, raw, opts)
			require.NoError(t, err, raw)
			got, err := slow.Words(ctx, raw, opts)
			require.NoError(t, err, raw)
			assert.Equal(t, seqs(want), seqs(got), "query %q", raw)
		}
	}
}

func TestWordsCompileThroughEngineCache(t *testing.T) {
	cache, err := rx.NewCache(8)
	require.NoError(t, err)
	e := newTestEngine(t)
	e.Regexps = cache

	rs, err := e.Words(context.Background(), "cat|dog", query.Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, rs)
	assert.Equal(t, 1, cache.Len())
}

func TestWordsDeterministic(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	first, err := e.Words(ctx, "cat|dog|idiot", query.Options{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Words(ctx, "cat|dog|idiot", query.Options{})
		require.NoError(t, err)
		assert.Equal(t, seqs(first), seqs(again))
	}
}

func TestWordsByID(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	rs, err := e.Words(ctx, "+#"+strconv.Itoa(seqNeko), query.Options{Filters: query.Filters{Verb: true, MinLevel: 1, MaxLevel: 2}})
	require.NoError(t, err)
	assert.Equal(t, []int64{seqNeko}, seqs(rs))

	rs, err = e.Words(ctx, "+#42", query.Options{})
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestWordsRandom(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		rs, err := e.Words(ctx, "+random", query.Options{Filters: query.Filters{Verb: true}})
		require.NoError(t, err)
		assert.Equal(t, []int64{seqChirasu}, seqs(rs))

		rs, err = e.Words(ctx, "+random", query.Options{Filters: query.Filters{MinLevel: 5}})
		require.NoError(t, err)
		assert.Equal(t, []int64{seqNeko}, seqs(rs))
	}

	rs, err := e.Words(ctx, "+random", query.Options{Filters: query.Filters{Verb: true, MinLevel: 5}})
	require.NoError(t, err)
	assert.Empty(t, rs)

	rs, err = e.Words(ctx, "+random", query.Options{})
	require.NoError(t, err)
	assert.Len(t, rs, 1)
}

func TestWordsErrors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Words(ctx, "+r犭", query.Options{})
	assert.True(t, errors.Is(err, query.ErrInvalidQuery))
	_, err = e.Words(ctx, "+#cat", query.Options{})
	assert.True(t, errors.Is(err, query.ErrInvalidQuery))
	_, err = e.Words(ctx, "cat(", query.Options{})
	assert.True(t, errors.Is(err, rx.ErrSyntax))

	rs, err := e.Words(ctx, "  ", query.Options{})
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestWordsStorageUnavailable(t *testing.T) {
	conn := openFixture(t)
	e := New(db.NewStore(conn), fixtureTables)
	require.NoError(t, conn.Close())
	_, err := e.Words(context.Background(), "cat", query.Options{})
	assert.True(t, errors.Is(err, db.ErrUnavailable), "got %v", err)
}
