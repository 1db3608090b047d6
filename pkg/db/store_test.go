package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/japaniel/jiten/pkg/freq"
	"github.com/japaniel/jiten/pkg/rx"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open(DriverName, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var (
	neko = Entry{
		Seq:      1467640,
		Kanji:    []KanjiForm{{Elem: "猫", Chars: "猫"}},
		Readings: []ReadingForm{{Elem: "ねこ"}},
		Senses: []Sense{
			{Lang: "eng", POS: []string{"noun (common) (futsuumeishi)"}, Gloss: []string{"cat (esp. the domestic cat, Felis catus)"}},
			{Lang: "dut", Gloss: []string{"kat", "poes"}},
		},
		Prio:   4,
		IsNoun: true,
	}
	baka = Entry{
		Seq:      1601260,
		Kanji:    []KanjiForm{{Elem: "馬鹿", Chars: "馬鹿"}, {Elem: "莫迦", Chars: "莫迦"}},
		Readings: []ReadingForm{{Elem: "ばか"}, {Elem: "バカ", Restr: []string{"馬鹿"}}},
		Senses: []Sense{
			{Lang: "eng", Gloss: []string{"idiot", "fool"}, Info: []string{"derogatory"}, UsuallyKana: true},
		},
		Prio: 2,
	}
	scatter = Entry{
		Seq:      1589310,
		Kanji:    []KanjiForm{{Elem: "散らす", Chars: "散"}},
		Readings: []ReadingForm{{Elem: "ちらす"}},
		Senses:   []Sense{{Lang: "eng", Gloss: []string{"to scatter", "to disperse"}}},
		IsVerb:   true,
	}
)

func seedEntries(t *testing.T, db DBExecutor) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []Entry{neko, baka, scatter} {
		if err := PutEntry(ctx, db, e); err != nil {
			t.Fatalf("put entry %d: %v", e.Seq, err)
		}
	}
}

func TestPutEntryAndLoad(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedEntries(t, db)
	s := NewStore(db)

	got, err := s.Entries(context.Background(), []int64{baka.Seq, 42, neko.Seq})
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if diff := cmp.Diff([]Entry{baka, neko}, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Entry(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutEntryReplaces(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedEntries(t, db)

	updated := neko
	updated.Readings = nil
	updated.Senses = updated.Senses[:1]
	updated.Prio = 0
	if err := PutEntry(context.Background(), db, updated); err != nil {
		t.Fatalf("put entry: %v", err)
	}
	got, err := NewStore(db).Entry(context.Background(), neko.Seq)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if diff := cmp.Diff(updated, got); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestDefinition(t *testing.T) {
	if got := neko.Definition(); !slices.Equal(got, []string{"猫"}) {
		t.Fatalf("neko definition = %v", got)
	}
	if got := baka.Definition(); !slices.Equal(got, []string{"ばか", "バカ", "馬鹿", "莫迦"}) {
		t.Fatalf("baka definition = %v", got)
	}
	kanaOnly := Entry{Readings: []ReadingForm{{Elem: "する"}, {Elem: "する"}}}
	if got := kanaOnly.Definition(); !slices.Equal(got, []string{"する"}) {
		t.Fatalf("kana only definition = %v", got)
	}
}

func sorted(ids []int64) []int64 {
	slices.Sort(ids)
	return ids
}

func TestLikeIDs(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedEntries(t, db)
	s := NewStore(db)
	ctx := context.Background()

	ids, err := s.LikeIDs(ctx, FacetGloss, []string{"eng"}, "%cat%")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if want := []int64{neko.Seq, scatter.Seq}; !slices.Equal(sorted(ids), want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}

	// LIKE folds ASCII case and glosses of other languages stay hidden.
	ids, err = s.LikeIDs(ctx, FacetGloss, []string{"eng"}, "%KAT%")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no eng match for kat, got %v", ids)
	}
	ids, err = s.LikeIDs(ctx, FacetGloss, []string{"dut"}, "%KAT%")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !slices.Equal(ids, []int64{neko.Seq}) {
		t.Fatalf("expected neko for dut kat, got %v", ids)
	}

	ids, err = s.LikeIDs(ctx, FacetReading, nil, "%_か%")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !slices.Equal(ids, []int64{baka.Seq}) {
		t.Fatalf("expected baka, got %v", ids)
	}
}

func TestContainsIDs(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedEntries(t, db)
	s := NewStore(db)

	ids, err := s.ContainsIDs(context.Background(), FacetKanji, nil, "鹿")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !slices.Equal(ids, []int64{baka.Seq}) {
		t.Fatalf("expected baka, got %v", ids)
	}
	ids, err = s.ContainsIDs(context.Background(), FacetReading, nil, "%")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("instr must not treat %% as a wildcard, got %v", ids)
	}
}

func TestFacetTextsAndScan(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedEntries(t, db)
	s := NewStore(db)
	ctx := context.Background()

	rows, err := s.FacetTexts(ctx, []int64{baka.Seq}, []Facet{FacetKanji, FacetGloss}, []string{"eng"})
	if err != nil {
		t.Fatalf("facet texts: %v", err)
	}
	var texts []string
	for _, r := range rows {
		if r.Entry != baka.Seq {
			t.Fatalf("unexpected entry %d", r.Entry)
		}
		texts = append(texts, r.Facet.String()+":"+r.Text)
	}
	slices.Sort(texts)
	want := []string{"gloss:idiot\nfool", "kanji:莫迦", "kanji:馬鹿"}
	if !slices.Equal(texts, want) {
		t.Fatalf("expected %q, got %q", want, texts)
	}

	n := 0
	for _, err := range s.ScanFacets(ctx, []Facet{FacetKanji, FacetReading, FacetGloss}, []string{"eng"}) {
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		n++
	}
	// 4 kanji, 4 readings, 3 english senses
	if n != 11 {
		t.Fatalf("expected 11 facet rows, got %d", n)
	}

	// stopping early releases the connection for the next query
	for _, err := range s.ScanFacets(ctx, []Facet{FacetKanji}, nil) {
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		break
	}
	if _, err := s.Entry(ctx, neko.Seq); err != nil {
		t.Fatalf("entry after early stop: %v", err)
	}
}

func TestHeads(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedEntries(t, db)
	s := NewStore(db)
	ctx := context.Background()

	heads, err := s.Heads(ctx, []int64{baka.Seq, scatter.Seq})
	if err != nil {
		t.Fatalf("heads: %v", err)
	}
	want := map[int64]Head{
		baka.Seq:    {Seq: baka.Seq, Prio: 2, UsuallyKana: true, Kanji: []string{"馬鹿", "莫迦"}, Readings: []string{"ばか", "バカ"}},
		scatter.Seq: {Seq: scatter.Seq, IsVerb: true, Kanji: []string{"散らす"}, Readings: []string{"ちらす"}},
	}
	if diff := cmp.Diff(want, heads); diff != "" {
		t.Fatalf("heads mismatch (-want +got):\n%s", diff)
	}

	var seqs []int64
	for h, err := range s.ScanHeads(ctx, EntryFilter{MinPrio: 2}) {
		if err != nil {
			t.Fatalf("scan heads: %v", err)
		}
		seqs = append(seqs, h.Seq)
	}
	if want := []int64{neko.Seq, baka.Seq}; !slices.Equal(sorted(seqs), want) {
		t.Fatalf("expected %v, got %v", want, seqs)
	}
}

func TestRandomEntryID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedEntries(t, db)
	s := NewStore(db)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		id, err := s.RandomEntryID(ctx, EntryFilter{Verb: true})
		if err != nil {
			t.Fatalf("random: %v", err)
		}
		if id != scatter.Seq {
			t.Fatalf("expected the only verb, got %d", id)
		}
	}
	if _, err := s.RandomEntryID(ctx, EntryFilter{Noun: true, Verb: true}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWordTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	if err := PutWordRank(ctx, db, "猫", 2201); err != nil {
		t.Fatalf("put rank: %v", err)
	}
	if err := PutWordRank(ctx, db, "猫", 2000); err != nil {
		t.Fatalf("update rank: %v", err)
	}
	if err := PutWordLevel(ctx, db, "猫", 5); err != nil {
		t.Fatalf("put level: %v", err)
	}
	if err := PutWordRank(ctx, db, "  ", 1); err == nil {
		t.Fatalf("expected error for empty word")
	}

	tables, err := freq.Load(ctx, NewStore(db))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := tables.Rank("猫"); got != freq.NewRank(2000) {
		t.Fatalf("expected rank 2000, got %v", got)
	}
	if got := tables.Level("猫"); got != freq.NewLevel(5) {
		t.Fatalf("expected N5, got %v", got)
	}

	if err := ClearWordTables(ctx, db); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ranks, err := NewStore(db).WordRanks(ctx)
	if err != nil {
		t.Fatalf("ranks: %v", err)
	}
	if len(ranks) != 0 {
		t.Fatalf("expected empty ranks, got %v", ranks)
	}
}

func TestRegexpFunction(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	tests := []struct {
		text, pattern string
		want          bool
	}{
		{"Cat", "^cat$", true},
		{"to scatter", `\bcat\b`, false},
		{"one\ntwo", "^two$", true},
		{"ネコ", `^\pK+$`, true},
		{"ねこ", `^\pK+$`, false},
	}
	for _, tt := range tests {
		var got bool
		if err := db.QueryRow("SELECT ? REGEXP ?", tt.text, tt.pattern).Scan(&got); err != nil {
			t.Fatalf("regexp %q: %v", tt.pattern, err)
		}
		if got != tt.want {
			t.Fatalf("%q REGEXP %q = %v, want %v", tt.text, tt.pattern, got, tt.want)
		}
	}
	if err := db.QueryRow("SELECT 'x' REGEXP '('").Scan(new(bool)); err == nil {
		t.Fatalf("expected error for bad pattern")
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.db"), nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestOpenReadOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jiten.db")
	w, err := Create(ctx, path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	seedEntries(t, w)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	if _, err := NewStore(r).Entry(ctx, neko.Seq); err != nil {
		t.Fatalf("entry: %v", err)
	}
	if err := PutWordRank(ctx, r, "猫", 1); err == nil {
		t.Fatalf("expected write to a read-only db to fail")
	}
}

func TestOpenRegexpCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jiten.db")
	w, err := Create(ctx, path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	seedEntries(t, w)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	cache, err := rx.NewCache(8)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	r, err := Open(ctx, path, cache)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	var got bool
	if err := r.QueryRowContext(ctx, "SELECT 'neko' REGEXP '^ne'").Scan(&got); err != nil {
		t.Fatalf("regexp: %v", err)
	}
	if !got {
		t.Fatalf("expected 'neko' to match ^ne")
	}
	if n := cache.Len(); n != 1 {
		t.Fatalf("cache holds %d expressions, want 1", n)
	}
	if err := r.QueryRowContext(ctx, "SELECT 'x' REGEXP '('").Scan(new(bool)); err == nil {
		t.Fatalf("expected error for bad pattern")
	}
}
