package db

import "github.com/japaniel/jiten/pkg/freq"

// KanjiForm is a written form of an entry.
type KanjiForm struct {
	Elem string
	// Chars holds the ideographs of Elem in order.
	Chars string
}

// ReadingForm is a kana reading of an entry.
type ReadingForm struct {
	Elem string
	// Restr lists the kanji forms the reading applies to; empty means all.
	Restr []string
}

// Sense is one group of glosses in a single language.
type Sense struct {
	Lang        string
	POS         []string
	Gloss       []string
	Info        []string
	XRef        []string
	UsuallyKana bool
}

// Entry is one dictionary record.
type Entry struct {
	Seq      int64
	Kanji    []KanjiForm
	Readings []ReadingForm
	Senses   []Sense
	// Prio is the curated priority tier from 0 to 10.
	Prio   int
	IsNoun bool
	IsVerb bool
}

// UsuallyKana reports whether any sense is usually written in kana.
func (e Entry) UsuallyKana() bool {
	for _, s := range e.Senses {
		if s.UsuallyKana {
			return true
		}
	}
	return false
}

// Definition returns the headwords used for frequency lookup.
func (e Entry) Definition() []string {
	return definition(e.kanjiElems(), e.readingElems(), e.UsuallyKana())
}

// Glosses returns the glosses of the senses in lang.
func (e Entry) Glosses(lang string) [][]string {
	var out [][]string
	for _, s := range e.Senses {
		if s.Lang == lang {
			out = append(out, s.Gloss)
		}
	}
	return out
}

func (e Entry) kanjiElems() []string {
	out := make([]string, len(e.Kanji))
	for i, k := range e.Kanji {
		out[i] = k.Elem
	}
	return out
}

func (e Entry) readingElems() []string {
	out := make([]string, len(e.Readings))
	for i, r := range e.Readings {
		out[i] = r.Elem
	}
	return out
}

// Head is the part of an entry needed to filter and rank it.
type Head struct {
	Seq         int64
	Prio        int
	IsNoun      bool
	IsVerb      bool
	UsuallyKana bool
	Kanji       []string
	Readings    []string
}

// Definition returns the headwords used for frequency lookup.
func (h Head) Definition() []string {
	return definition(h.Kanji, h.Readings, h.UsuallyKana)
}

// definition is readings then kanji when usually kana, else kanji, else
// readings, without duplicates.
func definition(kanji, readings []string, usuallyKana bool) []string {
	var xs []string
	switch {
	case usuallyKana:
		xs = append(append(xs, readings...), kanji...)
	case len(kanji) > 0:
		xs = kanji
	default:
		xs = readings
	}
	seen := make(map[string]bool, len(xs))
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

// Kanji is one kanji character record.
type Kanji struct {
	Code       int64
	Char       string
	Category   string
	Level      string
	Strokes    int
	Freq       freq.Rank
	JLPT       freq.Level
	Skip       string
	On         []string
	Kun        []string
	Nanori     []string
	Meaning    []string
	Components []string
}

// Sentence is an example sentence with its translations.
type Sentence struct {
	ID           int64
	Jap          string
	Translations map[string]string
	Audio        string
}

// SentenceLangs are the translation columns of the sentence table.
var SentenceLangs = []string{"eng", "dut", "ger"}

// Facet is a searchable text surface of an entry.
type Facet int

const (
	FacetKanji Facet = iota
	FacetReading
	FacetGloss
)

func (f Facet) String() string {
	switch f {
	case FacetKanji:
		return "kanji"
	case FacetReading:
		return "reading"
	case FacetGloss:
		return "gloss"
	}
	return "facet?"
}

// FacetRow is the text of one facet of an entry.
type FacetRow struct {
	Entry int64
	Facet Facet
	Text  string
}

// EntryFilter restricts entries by their stored columns.
type EntryFilter struct {
	Noun bool
	Verb bool
	// MinPrio excludes entries below this priority tier when positive.
	MinPrio int
}

// Active reports whether any restriction is set.
func (f EntryFilter) Active() bool { return f.Noun || f.Verb || f.MinPrio > 0 }

// Match reports whether h passes the filter.
func (f EntryFilter) Match(h Head) bool {
	return (!f.Noun || h.IsNoun) && (!f.Verb || h.IsVerb) && h.Prio >= f.MinPrio
}
