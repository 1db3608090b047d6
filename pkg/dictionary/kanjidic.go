package dictionary

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/freq"
	"github.com/japaniel/jiten/pkg/kana"
)

// KanjidicCharacter matches a kanjidic2-simplified character.
type KanjidicCharacter struct {
	Literal string `json:"literal"`
	Misc    struct {
		Grade        *int  `json:"grade"`
		StrokeCounts []int `json:"strokeCounts"`
		Frequency    *int  `json:"frequency"`
		JLPTLevel    *int  `json:"jlptLevel"`
	} `json:"misc"`
	QueryCodes []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"queryCodes"`
	ReadingMeaning *struct {
		Groups []struct {
			Readings []struct {
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"readings"`
			Meanings []struct {
				Lang  string `json:"lang"`
				Value string `json:"value"`
			} `json:"meanings"`
		} `json:"groups"`
		Nanori []string `json:"nanori"`
	} `json:"readingMeaning"`
}

// StreamKanjidic decodes the characters of a kanjidic2-simplified
// document one at a time.
func StreamKanjidic(r io.Reader, fn func(KanjidicCharacter) error) error {
	dec := json.NewDecoder(r)
	if err := seekArray(dec, "characters"); err != nil {
		return fmt.Errorf("kanjidic: %w", err)
	}
	for dec.More() {
		var c KanjidicCharacter
		if err := dec.Decode(&c); err != nil {
			return fmt.Errorf("kanjidic: %w", err)
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// GradeLevel names a kanjidic school grade: 常用1 to 常用6 for the
// elementary grades, 常用 for the rest of the jōyō set, 人名 and
// 人名(常用) for name kanji.
func GradeLevel(grade int) (string, error) {
	switch {
	case grade >= 1 && grade <= 6:
		return "常用" + strconv.Itoa(grade), nil
	case grade == 8:
		return "常用", nil
	case grade == 9:
		return "人名", nil
	case grade == 10:
		return "人名(常用)", nil
	}
	return "", fmt.Errorf("unexpected grade %d", grade)
}

// Category classifies the block of an ideograph.
func Category(r rune) (string, error) {
	switch {
	case kana.IsKanji(r):
		return "KANJI", nil
	case kana.IsCompat(r):
		return "CJK COMPATIBILITY IDEOGRAPH", nil
	case kana.IsExtension(r):
		return "CJK UNIFIED IDEOGRAPH", nil
	}
	return "", fmt.Errorf("unexpected category for %q", r)
}

// Kanji converts c to its stored form with the given components.
// Only English meanings are kept.
func (c KanjidicCharacter) Kanji(components []string) (db.Kanji, error) {
	runes := []rune(c.Literal)
	if len(runes) != 1 {
		return db.Kanji{}, fmt.Errorf("literal %q is not one character", c.Literal)
	}
	cat, err := Category(runes[0])
	if err != nil {
		return db.Kanji{}, err
	}
	k := db.Kanji{
		Code:       int64(runes[0]),
		Char:       c.Literal,
		Category:   cat,
		Components: slices.Sorted(slices.Values(components)),
	}
	if c.Misc.Grade != nil {
		if k.Level, err = GradeLevel(*c.Misc.Grade); err != nil {
			return db.Kanji{}, fmt.Errorf("%s: %w", c.Literal, err)
		}
	}
	if len(c.Misc.StrokeCounts) > 0 {
		k.Strokes = c.Misc.StrokeCounts[0]
	}
	if c.Misc.Frequency != nil {
		k.Freq = freq.NewRank(*c.Misc.Frequency)
	}
	if c.Misc.JLPTLevel != nil {
		k.JLPT = freq.NewLevel(*c.Misc.JLPTLevel)
	}
	for _, q := range c.QueryCodes {
		if q.Type == "skip" {
			k.Skip = q.Value
			break
		}
	}
	if rm := c.ReadingMeaning; rm != nil {
		k.Nanori = orNil(rm.Nanori)
		for _, g := range rm.Groups {
			for _, r := range g.Readings {
				switch r.Type {
				case "ja_on":
					k.On = append(k.On, r.Value)
				case "ja_kun":
					k.Kun = append(k.Kun, r.Value)
				}
			}
			for _, m := range g.Meanings {
				if m.Lang == "" || m.Lang == "en" {
					k.Meaning = append(k.Meaning, m.Value)
				}
			}
		}
	}
	return k, nil
}

// LoadKradfile reads a kradfile-simplified document mapping each kanji
// to its components.
func LoadKradfile(r io.Reader) (map[string][]string, error) {
	var doc struct {
		Kanji map[string][]string `json:"kanji"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("kradfile: %w", err)
	}
	if doc.Kanji == nil {
		return nil, fmt.Errorf("kradfile: %w: kanji", ErrMissingArray)
	}
	return doc.Kanji, nil
}
