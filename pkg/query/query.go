// Package query turns raw search strings into normalized queries.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/japaniel/jiten/pkg/kana"
	"github.com/japaniel/jiten/pkg/rx"
)

// ErrInvalidQuery is returned for a malformed directive argument.
var ErrInvalidQuery = errors.New("invalid query")

// DefaultLang is used when no gloss language is selected.
const DefaultLang = "eng"

// Mode selects how a query is resolved.
type Mode int

const (
	// ModeNone is an empty query; it matches nothing.
	ModeNone Mode = iota
	// ModeRegex matches Pattern as a regular expression.
	ModeRegex
	// ModeLiteral matches Pattern as plain text.
	ModeLiteral
	// ModeID looks up a single record by ID.
	ModeID
	// ModeRandom picks one record at random.
	ModeRandom
	// ModeRadicals finds kanji containing every component in Pattern.
	ModeRadicals
	// ModeSkip finds kanji with the SKIP code in Pattern.
	ModeSkip
)

var modeNames = [...]string{"none", "regex", "literal", "id", "random", "radicals", "skip"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// Anchor restricts where a regex pattern may match.
type Anchor int

const (
	AnchorNone Anchor = iota
	// AnchorWord requires word boundaries on both sides.
	AnchorWord
	// AnchorFirstWord requires the match to start the text and end on a
	// word boundary.
	AnchorFirstWord
	// AnchorExact requires the match to span the whole text.
	AnchorExact
)

// Filters are hard constraints applied before ranking.
type Filters struct {
	Noun   bool
	Verb   bool
	Common bool
	// MinLevel and MaxLevel bound the JLPT level; 0 leaves a side open.
	MinLevel int
	MaxLevel int
	// Audio restricts sentences to those with a recording.
	Audio bool
}

// Level reports whether a level range is active.
func (f Filters) Level() bool { return f.MinLevel > 0 || f.MaxLevel > 0 }

// Options carries the caller supplied flags that accompany a raw query.
type Options struct {
	Word      bool
	Exact     bool
	FirstWord bool
	Langs     []string
	Filters   Filters
	Max       int
}

// Query is a normalized search request.
type Query struct {
	Mode    Mode
	Pattern string
	Anchor  Anchor
	ID      int64
	Langs   []string
	Filters Filters
	Max     int
}

var skipCode = regexp.MustCompile(`^[0-9]+-[0-9]+-[0-9]+$`)

// Parse normalizes raw. A leading directive overrides the boolean options;
// otherwise the booleans select the anchor (exact before first word before
// word). Regex patterns are compiled eagerly so syntax errors surface here.
func Parse(raw string, opts Options) (Query, error) {
	q, err := newQuery(opts)
	if err != nil {
		return Query{}, err
	}

	s := strings.TrimSpace(raw)
	directive, arg := split(s)
	arg = strings.TrimSpace(arg)

	switch directive {
	case "":
		q.Mode, q.Pattern = ModeRegex, s
		switch {
		case opts.Exact:
			q.Anchor = AnchorExact
		case opts.FirstWord:
			q.Anchor = AnchorFirstWord
		case opts.Word:
			q.Anchor = AnchorWord
		}
	case "+=":
		q.Mode, q.Pattern, q.Anchor = ModeRegex, arg, AnchorExact
	case "+1":
		q.Mode, q.Pattern, q.Anchor = ModeRegex, arg, AnchorFirstWord
	case "+w":
		q.Mode, q.Pattern, q.Anchor = ModeRegex, arg, AnchorWord
	case "+~":
		q.Mode, q.Pattern = ModeLiteral, arg
	case "+h":
		q.Mode, q.Pattern = ModeRegex, convertScript(arg, kana.ToHiragana)
	case "+k":
		q.Mode, q.Pattern = ModeRegex, convertScript(arg, kana.ToKatakana)
	case "+random":
		return q.with(ModeRandom), nil
	case "+#":
		return q.withID(arg)
	case "+s":
		if !skipCode.MatchString(arg) {
			return Query{}, fmt.Errorf("%w: +s expects a SKIP code like 1-2-3, got %q", ErrInvalidQuery, arg)
		}
		q.Mode, q.Pattern = ModeSkip, arg
		return q, nil
	case "+r":
		q.Mode, q.Pattern = ModeRadicals, strings.Join(strings.Fields(arg), "")
	}

	if q.Pattern == "" {
		return q.with(ModeNone), nil
	}
	if q.Mode == ModeRegex {
		if _, err := rx.Compile(q.Regex()); err != nil {
			return Query{}, err
		}
	}
	return q, nil
}

// ParseText normalizes raw for a plain substring search. Only the +#,
// +random, +~, +h and +k directives apply and the pattern is never
// compiled, so text such as "C++" is searched as written. Anchors cannot
// be honoured by a substring search and are rejected.
func ParseText(raw string, opts Options) (Query, error) {
	q, err := newQuery(opts)
	if err != nil {
		return Query{}, err
	}
	if opts.Exact || opts.FirstWord || opts.Word {
		return Query{}, fmt.Errorf("%w: text search cannot anchor matches", ErrInvalidQuery)
	}

	s := strings.TrimSpace(raw)
	directive, arg := split(s)
	arg = strings.TrimSpace(arg)

	q.Mode = ModeLiteral
	switch directive {
	case "":
		q.Pattern = s
	case "+~":
		q.Pattern = arg
	case "+h":
		q.Pattern = kana.ToHiragana(arg)
	case "+k":
		q.Pattern = kana.ToKatakana(arg)
	case "+random":
		return q.with(ModeRandom), nil
	case "+#":
		return q.withID(arg)
	default:
		return Query{}, fmt.Errorf("%w: %s does not apply to text search", ErrInvalidQuery, directive)
	}
	if q.Pattern == "" {
		return q.with(ModeNone), nil
	}
	return q, nil
}

// newQuery starts a query from the non-directive options.
func newQuery(opts Options) (Query, error) {
	q := Query{
		Langs:   normalizeLangs(opts.Langs),
		Filters: opts.Filters,
		Max:     max(opts.Max, 0),
	}
	if err := validateFilters(q.Filters); err != nil {
		return Query{}, err
	}
	return q, nil
}

// with returns a query of mode m carrying only the options of q.
func (q Query) with(m Mode) Query {
	return Query{Mode: m, Langs: q.Langs, Filters: q.Filters, Max: q.Max}
}

func (q Query) withID(arg string) (Query, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return Query{}, fmt.Errorf("%w: +# expects a positive number, got %q", ErrInvalidQuery, arg)
	}
	q = q.with(ModeID)
	q.ID = id
	return q, nil
}

// split separates a leading directive from its argument.
func split(s string) (string, string) {
	if len(s) < 2 || s[0] != '+' {
		return "", s
	}
	if len(s) >= 7 && strings.EqualFold(s[:7], "+random") {
		return "+random", s[7:]
	}
	switch d := s[:2]; d {
	case "+=", "+1", "+w", "+~", "+#", "+r", "+s", "+h", "+k":
		return d, s[2:]
	}
	return "", s
}

func validateFilters(f Filters) error {
	for _, l := range []int{f.MinLevel, f.MaxLevel} {
		if l < 0 || l > 5 {
			return fmt.Errorf("%w: level %d out of range 1-5", ErrInvalidQuery, l)
		}
	}
	if f.MinLevel > 0 && f.MaxLevel > 0 && f.MinLevel > f.MaxLevel {
		return fmt.Errorf("%w: level range %d-%d is empty", ErrInvalidQuery, f.MinLevel, f.MaxLevel)
	}
	return nil
}

func normalizeLangs(langs []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	if len(out) == 0 {
		return []string{DefaultLang}
	}
	return out
}

// convertScript applies conv to the plain text of a pattern, leaving
// escapes, bracket classes and repetition counts untouched.
func convertScript(p string, conv func(string) string) string {
	var b, run strings.Builder
	flush := func() {
		b.WriteString(conv(run.String()))
		run.Reset()
	}
	rs := []rune(p)
	for i := 0; i < len(rs); i++ {
		switch rs[i] {
		case '\\':
			flush()
			j := i + 2
			if j < len(rs) && unicode.IsLetter(rs[i+1]) && rs[j] == '{' {
				for j < len(rs) && rs[j] != '}' {
					j++
				}
				j++
			}
			j = min(j, len(rs))
			b.WriteString(string(rs[i:j]))
			i = j - 1
		case '[', '{':
			flush()
			closer := map[rune]rune{'[': ']', '{': '}'}[rs[i]]
			j := i + 1
			for j < len(rs) && rs[j] != closer {
				if rs[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j+1, len(rs))
			b.WriteString(string(rs[i:j]))
			i = j - 1
		default:
			if strings.ContainsRune(".*+?^$|()", rs[i]) {
				flush()
				b.WriteRune(rs[i])
				continue
			}
			run.WriteRune(rs[i])
		}
	}
	flush()
	return b.String()
}
