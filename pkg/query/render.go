package query

import (
	"regexp"
	"strconv"

	"github.com/japaniel/jiten/pkg/kana"
)

// String renders q in canonical raw form. Parsing the result with
// q.Options() yields q again.
func (q Query) String() string {
	switch q.Mode {
	case ModeRegex:
		switch q.Anchor {
		case AnchorExact:
			return "+= " + q.Pattern
		case AnchorFirstWord:
			return "+1 " + q.Pattern
		case AnchorWord:
			return "+w " + q.Pattern
		}
		return q.Pattern
	case ModeLiteral:
		return "+~ " + q.Pattern
	case ModeID:
		return "+#" + strconv.FormatInt(q.ID, 10)
	case ModeRandom:
		return "+random"
	case ModeRadicals:
		return "+r" + q.Pattern
	case ModeSkip:
		return "+s" + q.Pattern
	}
	return ""
}

// Options returns the non-directive options q was parsed with.
func (q Query) Options() Options {
	return Options{
		Langs:   append([]string(nil), q.Langs...),
		Filters: q.Filters,
		Max:     q.Max,
	}
}

// Bare returns the expression without anchors, for deriving pre-filters.
func (q Query) Bare() string {
	if q.Mode == ModeLiteral {
		return regexp.QuoteMeta(q.Pattern)
	}
	return q.Pattern
}

// Regex returns the expression that decides a match.
func (q Query) Regex() string {
	switch q.Mode {
	case ModeLiteral:
		return regexp.QuoteMeta(q.Pattern)
	case ModeRegex:
		switch q.Anchor {
		case AnchorExact:
			return "^(?:" + q.Pattern + ")$"
		case AnchorFirstWord:
			return `^(?:` + q.Pattern + `)\b`
		case AnchorWord:
			return `\b(?:` + q.Pattern + `)\b`
		}
		return q.Pattern
	}
	return ""
}

// Japanese reports whether the pattern is plain Japanese text with no
// regex syntax. Such a pattern cannot match a non-Japanese gloss and
// needs no pattern interpretation.
func (q Query) Japanese() bool {
	if q.Mode != ModeRegex && q.Mode != ModeLiteral {
		return false
	}
	return kana.AllJapanese(q.Pattern)
}
