package db

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/japaniel/jiten/pkg/freq"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// chunkSize bounds the number of ids bound into one IN clause.
const chunkSize = 500

// Store reads the dictionary. It never writes, so one Store may serve any
// number of concurrent searches.
type Store struct {
	db DBExecutor
}

// NewStore returns a Store reading through db.
func NewStore(db DBExecutor) *Store {
	return &Store{db: db}
}

func (s *Store) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query", err)
	}
	return rows, nil
}

func (s *Store) ids(ctx context.Context, b sq.Sqlizer) ([]int64, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scan", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("scan", err)
	}
	return out, nil
}

// facetSelect selects cols from the table holding facet f, limiting
// glosses to langs.
func facetSelect(f Facet, langs []string, cols ...string) sq.SelectBuilder {
	switch f {
	case FacetKanji:
		return sq.Select(cols...).From("kanji")
	case FacetReading:
		return sq.Select(cols...).From("reading")
	}
	return sq.Select(cols...).From("sense").Where(sq.Eq{"lang": langs})
}

// textColumn names the column holding the text of facet f.
func textColumn(f Facet) string {
	if f == FacetGloss {
		return "gloss"
	}
	return "elem"
}

func facetRows(f Facet, langs []string) sq.SelectBuilder {
	return facetSelect(f, langs, "entry", textColumn(f))
}

// LikeIDs returns the entries whose facet text matches the LIKE pattern.
func (s *Store) LikeIDs(ctx context.Context, f Facet, langs []string, pattern string) ([]int64, error) {
	b := facetSelect(f, langs, "entry").Distinct().Where(sq.Like{textColumn(f): pattern})
	return s.ids(ctx, b)
}

// ContainsIDs returns the entries whose facet text contains sub verbatim.
func (s *Store) ContainsIDs(ctx context.Context, f Facet, langs []string, sub string) ([]int64, error) {
	b := facetSelect(f, langs, "entry").Distinct().Where(sq.Expr("instr("+textColumn(f)+", ?) > 0", sub))
	return s.ids(ctx, b)
}

// FacetTexts returns the texts of the given facets for the entries ids.
func (s *Store) FacetTexts(ctx context.Context, ids []int64, facets []Facet, langs []string) ([]FacetRow, error) {
	var out []FacetRow
	for _, chunk := range chunks(ids) {
		for _, f := range facets {
			rows, err := s.query(ctx, facetRows(f, langs).Where(sq.Eq{"entry": chunk}))
			if err != nil {
				return nil, err
			}
			for rows.Next() {
				r := FacetRow{Facet: f}
				if err := rows.Scan(&r.Entry, &r.Text); err != nil {
					rows.Close()
					return nil, unavailable("scan", err)
				}
				out = append(out, r)
			}
			err = rows.Err()
			rows.Close()
			if err != nil {
				return nil, unavailable("scan", err)
			}
		}
	}
	return out, nil
}

// ScanFacets streams the texts of the given facets for every entry. The
// underlying query stops as soon as the consumer stops.
func (s *Store) ScanFacets(ctx context.Context, facets []Facet, langs []string) iter.Seq2[FacetRow, error] {
	return func(yield func(FacetRow, error) bool) {
		for _, f := range facets {
			rows, err := s.query(ctx, facetRows(f, langs))
			if err != nil {
				yield(FacetRow{}, err)
				return
			}
			for rows.Next() {
				r := FacetRow{Facet: f}
				if err := rows.Scan(&r.Entry, &r.Text); err != nil {
					rows.Close()
					yield(FacetRow{}, unavailable("scan", err))
					return
				}
				if !yield(r, nil) {
					rows.Close()
					return
				}
			}
			err = rows.Err()
			rows.Close()
			if err != nil {
				yield(FacetRow{}, unavailable("scan", err))
				return
			}
		}
	}
}

var headColumns = []string{
	"seq", "prio", "is_noun", "is_verb", "usually_kana",
	"IFNULL((SELECT group_concat(k.elem, char(10) ORDER BY k.ord) FROM kanji k WHERE k.entry = entry.seq), '')",
	"IFNULL((SELECT group_concat(r.elem, char(10) ORDER BY r.ord) FROM reading r WHERE r.entry = entry.seq), '')",
}

func scanHead(rows *sql.Rows) (Head, error) {
	var h Head
	var kanji, readings string
	if err := rows.Scan(&h.Seq, &h.Prio, &h.IsNoun, &h.IsVerb, &h.UsuallyKana, &kanji, &readings); err != nil {
		return Head{}, err
	}
	h.Kanji = splitLines(kanji)
	h.Readings = splitLines(readings)
	return h, nil
}

func filterWhere(b sq.SelectBuilder, f EntryFilter) sq.SelectBuilder {
	if f.Noun {
		b = b.Where(sq.Eq{"is_noun": true})
	}
	if f.Verb {
		b = b.Where(sq.Eq{"is_verb": true})
	}
	if f.MinPrio > 0 {
		b = b.Where(sq.GtOrEq{"prio": f.MinPrio})
	}
	return b
}

// Heads loads the ranking fields of the entries ids, keyed by seq.
func (s *Store) Heads(ctx context.Context, ids []int64) (map[int64]Head, error) {
	out := make(map[int64]Head, len(ids))
	for _, chunk := range chunks(ids) {
		rows, err := s.query(ctx, sq.Select(headColumns...).From("entry").Where(sq.Eq{"seq": chunk}))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			h, err := scanHead(rows)
			if err != nil {
				rows.Close()
				return nil, unavailable("scan", err)
			}
			out[h.Seq] = h
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, unavailable("scan", err)
		}
	}
	return out, nil
}

// ScanHeads streams the ranking fields of every entry passing f.
func (s *Store) ScanHeads(ctx context.Context, f EntryFilter) iter.Seq2[Head, error] {
	return func(yield func(Head, error) bool) {
		rows, err := s.query(ctx, filterWhere(sq.Select(headColumns...).From("entry"), f))
		if err != nil {
			yield(Head{}, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			h, err := scanHead(rows)
			if err != nil {
				yield(Head{}, unavailable("scan", err))
				return
			}
			if !yield(h, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Head{}, unavailable("scan", err))
		}
	}
}

// RandomEntryID picks one entry passing f at random.
func (s *Store) RandomEntryID(ctx context.Context, f EntryFilter) (int64, error) {
	ids, err := s.ids(ctx, filterWhere(sq.Select("seq").From("entry"), f).OrderBy("RANDOM()").Limit(1))
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrNotFound
	}
	return ids[0], nil
}

// Entry loads one entry.
func (s *Store) Entry(ctx context.Context, seq int64) (Entry, error) {
	es, err := s.Entries(ctx, []int64{seq})
	if err != nil {
		return Entry{}, err
	}
	if len(es) == 0 {
		return Entry{}, fmt.Errorf("entry %d: %w", seq, ErrNotFound)
	}
	return es[0], nil
}

// Entries loads the full records of ids in the given order. Unknown ids
// are skipped.
func (s *Store) Entries(ctx context.Context, ids []int64) ([]Entry, error) {
	byID := make(map[int64]*Entry, len(ids))
	for _, chunk := range chunks(ids) {
		if err := s.loadEntries(ctx, chunk, byID); err != nil {
			return nil, err
		}
	}
	out := make([]Entry, 0, len(byID))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, *e)
			delete(byID, id)
		}
	}
	return out, nil
}

func (s *Store) loadEntries(ctx context.Context, ids []int64, byID map[int64]*Entry) error {
	err := s.each(ctx, sq.Select("seq", "prio", "is_noun", "is_verb").From("entry").Where(sq.Eq{"seq": ids}),
		func(rows *sql.Rows) error {
			e := &Entry{}
			if err := rows.Scan(&e.Seq, &e.Prio, &e.IsNoun, &e.IsVerb); err != nil {
				return err
			}
			byID[e.Seq] = e
			return nil
		})
	if err != nil {
		return err
	}
	err = s.each(ctx, sq.Select("entry", "elem", "chars").From("kanji").Where(sq.Eq{"entry": ids}).OrderBy("entry", "ord"),
		func(rows *sql.Rows) error {
			var id int64
			var k KanjiForm
			if err := rows.Scan(&id, &k.Elem, &k.Chars); err != nil {
				return err
			}
			if e := byID[id]; e != nil {
				e.Kanji = append(e.Kanji, k)
			}
			return nil
		})
	if err != nil {
		return err
	}
	err = s.each(ctx, sq.Select("entry", "elem", "restr").From("reading").Where(sq.Eq{"entry": ids}).OrderBy("entry", "ord"),
		func(rows *sql.Rows) error {
			var id int64
			var r ReadingForm
			var restr string
			if err := rows.Scan(&id, &r.Elem, &restr); err != nil {
				return err
			}
			r.Restr = splitLines(restr)
			if e := byID[id]; e != nil {
				e.Readings = append(e.Readings, r)
			}
			return nil
		})
	if err != nil {
		return err
	}
	return s.each(ctx, sq.Select("entry", "lang", "pos", "gloss", "info", "xref", "usually_kana").From("sense").
		Where(sq.Eq{"entry": ids}).OrderBy("entry", "ord"),
		func(rows *sql.Rows) error {
			var id int64
			var sn Sense
			var pos, gloss, info, xref string
			if err := rows.Scan(&id, &sn.Lang, &pos, &gloss, &info, &xref, &sn.UsuallyKana); err != nil {
				return err
			}
			sn.POS, sn.Gloss, sn.Info, sn.XRef = splitLines(pos), splitLines(gloss), splitLines(info), splitLines(xref)
			if e := byID[id]; e != nil {
				e.Senses = append(e.Senses, sn)
			}
			return nil
		})
}

// each runs b and calls fn for every row.
func (s *Store) each(ctx context.Context, b sq.Sqlizer, fn func(*sql.Rows) error) error {
	rows, err := s.query(ctx, b)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return unavailable("scan", err)
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable("scan", err)
	}
	return nil
}

// WordRanks returns the stored frequency rank of every word.
func (s *Store) WordRanks(ctx context.Context) (map[string]int, error) {
	return s.wordTable(ctx, "word_freq", "rank")
}

// WordLevels returns the stored JLPT level of every word.
func (s *Store) WordLevels(ctx context.Context) (map[string]int, error) {
	return s.wordTable(ctx, "word_jlpt", "level")
}

func (s *Store) wordTable(ctx context.Context, table, col string) (map[string]int, error) {
	out := make(map[string]int)
	err := s.each(ctx, sq.Select("word", col).From(table), func(rows *sql.Rows) error {
		var w string
		var n int
		if err := rows.Scan(&w, &n); err != nil {
			return err
		}
		out[w] = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var kanjiColumns = []string{
	"code", "char", "cat", "level", "strokes", "freq", "jlpt", "skip", "on_", "kun", "nanori", "meaning",
	"IFNULL((SELECT group_concat(c.component, char(10) ORDER BY c.component) FROM kanji_component c WHERE c.code = kanjidic.code), '')",
}

func scanKanji(rows *sql.Rows) (Kanji, error) {
	var k Kanji
	var fr, jlpt sql.NullInt64
	var on, kun, nanori, meaning, comps string
	if err := rows.Scan(&k.Code, &k.Char, &k.Category, &k.Level, &k.Strokes, &fr, &jlpt, &k.Skip,
		&on, &kun, &nanori, &meaning, &comps); err != nil {
		return Kanji{}, err
	}
	if fr.Valid {
		k.Freq = freq.NewRank(int(fr.Int64))
	}
	if jlpt.Valid {
		k.JLPT = freq.NewLevel(int(jlpt.Int64))
	}
	k.On, k.Kun, k.Nanori, k.Meaning = splitLines(on), splitLines(kun), splitLines(nanori), splitLines(meaning)
	k.Components = splitLines(comps)
	return k, nil
}

// KanjiByCodes loads the kanji with the given code points in the given
// order. Unknown codes are skipped.
func (s *Store) KanjiByCodes(ctx context.Context, codes []int64) ([]Kanji, error) {
	byCode := make(map[int64]Kanji, len(codes))
	for _, chunk := range chunks(codes) {
		err := s.each(ctx, sq.Select(kanjiColumns...).From("kanjidic").Where(sq.Eq{"code": chunk}),
			func(rows *sql.Rows) error {
				k, err := scanKanji(rows)
				if err != nil {
					return err
				}
				byCode[k.Code] = k
				return nil
			})
		if err != nil {
			return nil, err
		}
	}
	out := make([]Kanji, 0, len(byCode))
	for _, c := range codes {
		if k, ok := byCode[c]; ok {
			out = append(out, k)
			delete(byCode, c)
		}
	}
	return out, nil
}

// KanjiWithComponents returns the kanji whose components include every
// one of comps.
func (s *Store) KanjiWithComponents(ctx context.Context, comps []string) ([]int64, error) {
	if len(comps) == 0 {
		return nil, nil
	}
	return s.ids(ctx, sq.Select("code").From("kanji_component").
		Where(sq.Eq{"component": comps}).
		GroupBy("code").
		Having("COUNT(DISTINCT component) = ?", len(comps)))
}

// KanjiBySkip returns the kanji with the SKIP code skip.
func (s *Store) KanjiBySkip(ctx context.Context, skip string) ([]int64, error) {
	return s.ids(ctx, sq.Select("code").From("kanjidic").Where(sq.Eq{"skip": skip}))
}

// KanjiMatching returns the kanji whose readings or meanings match the
// regular expression re. Readings are also tried without the okurigana
// and affix markers "." and "-".
func (s *Store) KanjiMatching(ctx context.Context, re string) ([]int64, error) {
	cond := sq.Or{}
	for _, col := range []string{"on_", "kun", "nanori"} {
		cond = append(cond,
			sq.Expr(col+" REGEXP ?", re),
			sq.Expr("replace(replace("+col+", '.', ''), '-', '') REGEXP ?", re))
	}
	cond = append(cond, sq.Expr("meaning REGEXP ?", re))
	return s.ids(ctx, sq.Select("code").From("kanjidic").Where(cond))
}

// RandomKanji picks one kanji at random.
func (s *Store) RandomKanji(ctx context.Context) (Kanji, error) {
	ids, err := s.ids(ctx, sq.Select("code").From("kanjidic").OrderBy("RANDOM()").Limit(1))
	if err != nil {
		return Kanji{}, err
	}
	if len(ids) == 0 {
		return Kanji{}, ErrNotFound
	}
	ks, err := s.KanjiByCodes(ctx, ids)
	if err != nil {
		return Kanji{}, err
	}
	if len(ks) == 0 {
		return Kanji{}, ErrNotFound
	}
	return ks[0], nil
}

// SentenceFilter restricts sentences.
type SentenceFilter struct {
	// Langs requires a translation in each listed language. Unknown
	// languages are ignored.
	Langs []string
	Audio bool
	Limit int
}

func (f SentenceFilter) apply(b sq.SelectBuilder) sq.SelectBuilder {
	for _, l := range f.Langs {
		if isSentenceLang(l) {
			b = b.Where(sq.NotEq{l: nil})
		}
	}
	if f.Audio {
		b = b.Where(sq.NotEq{"audio": nil})
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	return b
}

func isSentenceLang(l string) bool {
	for _, s := range SentenceLangs {
		if s == l {
			return true
		}
	}
	return false
}

func sentenceSelect() sq.SelectBuilder {
	cols := []string{"id", "jap"}
	cols = append(cols, SentenceLangs...)
	return sq.Select(append(cols, "audio")...).From("sentence")
}

func (s *Store) sentences(ctx context.Context, b sq.Sqlizer) ([]Sentence, error) {
	var out []Sentence
	err := s.each(ctx, b, func(rows *sql.Rows) error {
		var st Sentence
		tr := make([]sql.NullString, len(SentenceLangs))
		var audio sql.NullString
		dest := []any{&st.ID, &st.Jap}
		for i := range tr {
			dest = append(dest, &tr[i])
		}
		dest = append(dest, &audio)
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		st.Translations = make(map[string]string)
		for i, l := range SentenceLangs {
			if tr[i].Valid {
				st.Translations[l] = tr[i].String
			}
		}
		if audio.Valid {
			st.Audio = audio.String
		}
		out = append(out, st)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Sentence loads one sentence.
func (s *Store) Sentence(ctx context.Context, id int64) (Sentence, error) {
	out, err := s.sentences(ctx, sentenceSelect().Where(sq.Eq{"id": id}))
	if err != nil {
		return Sentence{}, err
	}
	if len(out) == 0 {
		return Sentence{}, fmt.Errorf("sentence %d: %w", id, ErrNotFound)
	}
	return out[0], nil
}

// RandomSentences picks sentences passing f at random.
func (s *Store) RandomSentences(ctx context.Context, f SentenceFilter) ([]Sentence, error) {
	return s.sentences(ctx, f.apply(sentenceSelect()).OrderBy("RANDOM()"))
}

// SentencesContaining returns the sentences whose Japanese text, or with
// translations set any translation, contains text. Results are ordered by
// id.
func (s *Store) SentencesContaining(ctx context.Context, text string, translations bool, f SentenceFilter) ([]Sentence, error) {
	pat := "%" + escapeLike(text) + "%"
	cols := []string{"jap"}
	if translations {
		cols = append(cols, SentenceLangs...)
	}
	cond := sq.Or{}
	for _, c := range cols {
		cond = append(cond, sq.Expr(c+` LIKE ? ESCAPE '\'`, pat))
	}
	return s.sentences(ctx, f.apply(sentenceSelect().Where(cond)).OrderBy("id"))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func chunks(ids []int64) [][]int64 {
	var out [][]int64
	for len(ids) > chunkSize {
		out = append(out, ids[:chunkSize])
		ids = ids[chunkSize:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
