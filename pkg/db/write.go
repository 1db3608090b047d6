package db

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

func exec(ctx context.Context, db DBExecutor, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

// PutEntry inserts e, replacing any stored entry with the same seq.
func PutEntry(ctx context.Context, db DBExecutor, e Entry) error {
	if e.Seq <= 0 {
		return fmt.Errorf("entry seq must be positive, got %d", e.Seq)
	}
	for _, table := range []string{"kanji", "reading", "sense"} {
		if err := exec(ctx, db, sq.Delete(table).Where(sq.Eq{"entry": e.Seq})); err != nil {
			return fmt.Errorf("clear %s of %d: %w", table, e.Seq, err)
		}
	}
	err := exec(ctx, db, sq.Insert("entry").
		Columns("seq", "prio", "is_noun", "is_verb", "usually_kana").
		Values(e.Seq, e.Prio, e.IsNoun, e.IsVerb, e.UsuallyKana()).
		Suffix(`ON CONFLICT(seq) DO UPDATE SET
		  prio = excluded.prio,
		  is_noun = excluded.is_noun,
		  is_verb = excluded.is_verb,
		  usually_kana = excluded.usually_kana`))
	if err != nil {
		return fmt.Errorf("upsert entry %d: %w", e.Seq, err)
	}
	if len(e.Kanji) > 0 {
		ins := sq.Insert("kanji").Columns("entry", "ord", "elem", "chars")
		for i, k := range e.Kanji {
			ins = ins.Values(e.Seq, i, k.Elem, k.Chars)
		}
		if err := exec(ctx, db, ins); err != nil {
			return fmt.Errorf("insert kanji of %d: %w", e.Seq, err)
		}
	}
	if len(e.Readings) > 0 {
		ins := sq.Insert("reading").Columns("entry", "ord", "elem", "restr")
		for i, r := range e.Readings {
			ins = ins.Values(e.Seq, i, r.Elem, joinLines(r.Restr))
		}
		if err := exec(ctx, db, ins); err != nil {
			return fmt.Errorf("insert readings of %d: %w", e.Seq, err)
		}
	}
	if len(e.Senses) > 0 {
		ins := sq.Insert("sense").Columns("entry", "ord", "lang", "pos", "gloss", "info", "xref", "usually_kana")
		for i, s := range e.Senses {
			ins = ins.Values(e.Seq, i, s.Lang, joinLines(s.POS), joinLines(s.Gloss), joinLines(s.Info), joinLines(s.XRef), s.UsuallyKana)
		}
		if err := exec(ctx, db, ins); err != nil {
			return fmt.Errorf("insert senses of %d: %w", e.Seq, err)
		}
	}
	return nil
}

// PutKanji inserts k, replacing any stored kanji with the same code.
func PutKanji(ctx context.Context, db DBExecutor, k Kanji) error {
	if k.Code <= 0 {
		return fmt.Errorf("kanji code must be positive, got %d", k.Code)
	}
	if err := exec(ctx, db, sq.Delete("kanji_component").Where(sq.Eq{"code": k.Code})); err != nil {
		return fmt.Errorf("clear components of %s: %w", k.Char, err)
	}
	var fr, jlpt any
	if n, ok := k.Freq.Value(); ok {
		fr = n
	}
	if n, ok := k.JLPT.Value(); ok {
		jlpt = n
	}
	err := exec(ctx, db, sq.Insert("kanjidic").
		Options("OR REPLACE").
		Columns("code", "char", "cat", "level", "strokes", "freq", "jlpt", "skip", "on_", "kun", "nanori", "meaning").
		Values(k.Code, k.Char, k.Category, k.Level, k.Strokes, fr, jlpt, k.Skip,
			joinLines(k.On), joinLines(k.Kun), joinLines(k.Nanori), joinLines(k.Meaning)))
	if err != nil {
		return fmt.Errorf("insert kanji %s: %w", k.Char, err)
	}
	if len(k.Components) == 0 {
		return nil
	}
	ins := sq.Insert("kanji_component").Options("OR IGNORE").Columns("code", "component")
	for _, c := range k.Components {
		ins = ins.Values(k.Code, c)
	}
	if err := exec(ctx, db, ins); err != nil {
		return fmt.Errorf("insert components of %s: %w", k.Char, err)
	}
	return nil
}

// PutSentence inserts st, replacing any stored sentence with the same id.
func PutSentence(ctx context.Context, db DBExecutor, st Sentence) error {
	if st.ID <= 0 {
		return fmt.Errorf("sentence id must be positive, got %d", st.ID)
	}
	vals := []any{st.ID, st.Jap}
	for _, l := range SentenceLangs {
		vals = append(vals, nullable(st.Translations[l]))
	}
	vals = append(vals, nullable(st.Audio))
	cols := []string{"id", "jap"}
	cols = append(cols, SentenceLangs...)
	err := exec(ctx, db, sq.Insert("sentence").Options("OR REPLACE").Columns(append(cols, "audio")...).Values(vals...))
	if err != nil {
		return fmt.Errorf("insert sentence %d: %w", st.ID, err)
	}
	return nil
}

// PutWordRank stores the frequency rank of word.
func PutWordRank(ctx context.Context, db DBExecutor, word string, rank int) error {
	return putWord(ctx, db, "word_freq", "rank", word, rank)
}

// PutWordLevel stores the JLPT level of word.
func PutWordLevel(ctx context.Context, db DBExecutor, word string, level int) error {
	return putWord(ctx, db, "word_jlpt", "level", word, level)
}

func putWord(ctx context.Context, db DBExecutor, table, col, word string, n int) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return fmt.Errorf("word must be non-empty")
	}
	err := exec(ctx, db, sq.Insert(table).Columns("word", col).Values(word, n).
		Suffix(fmt.Sprintf("ON CONFLICT(word) DO UPDATE SET %s = excluded.%s", col, col)))
	if err != nil {
		return fmt.Errorf("upsert %s %q: %w", table, word, err)
	}
	return nil
}

// ClearWordTables empties the frequency and JLPT tables before a reimport.
func ClearWordTables(ctx context.Context, db DBExecutor) error {
	for _, table := range []string{"word_freq", "word_jlpt"} {
		if err := exec(ctx, db, sq.Delete(table)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// nullable returns nil for an empty string so the column stays NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func joinLines(xs []string) string { return strings.Join(xs, "\n") }
