package dictionary

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/kana"
)

// MaxPriority caps the priority tier of an entry.
const MaxPriority = 10

// DefaultLang is assumed for glosses without a language.
const DefaultLang = "eng"

// PriorityTier scores JMdict priority codes. news1, ichi1, spec1, spec2
// and gai1 count 2, their second tier counterparts count 1, and nfXX
// counts 2 for the first twelve bands and 1 up to band 24.
func PriorityTier(codes []string) int {
	tier := 0
	for _, c := range codes {
		switch c {
		case "news1", "ichi1", "spec1", "spec2", "gai1":
			tier += 2
		case "news2", "ichi2", "gai2":
			tier++
		default:
			if !strings.HasPrefix(c, "nf") {
				continue
			}
			n, err := strconv.Atoi(c[2:])
			if err != nil {
				continue
			}
			if n <= 12 {
				tier += 2
			} else if n <= 24 {
				tier++
			}
		}
	}
	return min(tier, MaxPriority)
}

// elementTier falls back to the common flag when no raw codes exist;
// common marks the codes that score 2.
func elementTier(el JMdictElement) int {
	if len(el.Priority) > 0 {
		return PriorityTier(el.Priority)
	}
	if el.Common {
		return 2
	}
	return 0
}

func isNounTag(pos string) bool { return pos == "n" || strings.HasPrefix(pos, "n-") }

func isVerbTag(pos string) bool { return strings.HasPrefix(pos, "v") }

// Entry converts e to its stored form. Senses are split per gloss
// language; a sense without part of speech inherits the previous one.
func (e JMdictEntry) Entry() (db.Entry, error) {
	seq, err := strconv.ParseInt(e.Id, 10, 64)
	if err != nil {
		return db.Entry{}, fmt.Errorf("entry id %q: %w", e.Id, err)
	}
	if len(e.Kana) == 0 {
		return db.Entry{}, fmt.Errorf("entry %d has no readings", seq)
	}
	out := db.Entry{Seq: seq}
	for _, k := range e.Kanji {
		out.Kanji = append(out.Kanji, db.KanjiForm{Elem: k.Text, Chars: string(kana.Ideographs(k.Text))})
		out.Prio = max(out.Prio, elementTier(k))
	}
	for _, r := range e.Kana {
		rf := db.ReadingForm{Elem: r.Text}
		if !slices.Contains(r.AppliesToKanji, "*") {
			rf.Restr = orNil(r.AppliesToKanji)
		}
		out.Readings = append(out.Readings, rf)
		out.Prio = max(out.Prio, elementTier(r))
	}
	var pos []string
	for _, s := range e.Sense {
		if len(s.PartOfSpeech) > 0 {
			pos = s.PartOfSpeech
		}
		for _, p := range pos {
			out.IsNoun = out.IsNoun || isNounTag(p)
			out.IsVerb = out.IsVerb || isVerbTag(p)
		}
		xref := related(s.Related)
		uk := slices.Contains(s.Misc, "uk")
		for _, lang := range glossLangs(s.Gloss) {
			sense := db.Sense{
				Lang:        lang,
				POS:         pos,
				Info:        orNil(s.Info),
				XRef:        xref,
				UsuallyKana: uk,
			}
			for _, g := range s.Gloss {
				if glossLang(g) == lang && g.Text != "" {
					sense.Gloss = append(sense.Gloss, g.Text)
				}
			}
			out.Senses = append(out.Senses, sense)
		}
	}
	return out, nil
}

// orNil maps empty JSON arrays to nil.
func orNil(xs []string) []string {
	if len(xs) == 0 {
		return nil
	}
	return xs
}

func glossLang(g JMdictGloss) string {
	if g.Lang == "" {
		return DefaultLang
	}
	return g.Lang
}

// glossLangs lists the languages of gs in order of first appearance.
func glossLangs(gs []JMdictGloss) []string {
	var langs []string
	for _, g := range gs {
		if g.Text == "" {
			continue
		}
		if l := glossLang(g); !slices.Contains(langs, l) {
			langs = append(langs, l)
		}
	}
	return langs
}

// related renders cross references such as ["丸","まる",1] as 丸・まる・1.
func related(refs []json.RawMessage) []string {
	var out []string
	for _, raw := range refs {
		var parts []any
		if err := json.Unmarshal(raw, &parts); err != nil {
			continue
		}
		strs := make([]string, 0, len(parts))
		for _, p := range parts {
			switch v := p.(type) {
			case string:
				strs = append(strs, v)
			case float64:
				strs = append(strs, strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		if len(strs) > 0 {
			out = append(out, strings.Join(strs, "・"))
		}
	}
	return out
}
