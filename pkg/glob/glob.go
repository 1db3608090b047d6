// Package glob derives SQL LIKE patterns from regular expressions.
//
// A derived pattern over-approximates its expression: every string the
// expression matches (case-insensitively, anywhere in the text) is also
// matched by the LIKE pattern. The pattern is only a pre-filter; callers
// re-check candidates with the real expression.
package glob

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnsupported is returned for expressions that have no safe pattern.
// Callers must fall back to testing every row.
var ErrUnsupported = errors.New("glob: unsupported construct")

const (
	anyRun  = "%"
	anyChar = "_"
)

// Compile returns a LIKE pattern matching at least every string that
// contains a match of expr.
//
// The pattern assumes SQLite's default LIKE: ASCII case-insensitive, no
// ESCAPE clause. It must not be used with case_sensitive_like enabled.
func Compile(expr string) (string, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return "", err
	}
	return emit(toks)
}

func emit(toks []token) (string, error) {
	var pieces []string
	last := -1
	for _, t := range toks {
		switch t.kind {
		case tokLiteral:
			pieces = append(pieces, literal(t.r))
			last = len(pieces) - 1
		case tokClass:
			pieces = append(pieces, anyChar)
			last = len(pieces) - 1
		case tokQuantifier:
			if last < 0 {
				return "", ErrUnsupported
			}
			pieces[last] = anyRun
			last = -1
		case tokAssertion:
			last = -1
		}
	}

	var b strings.Builder
	b.WriteString(anyRun)
	for _, p := range pieces {
		if p == anyRun && strings.HasSuffix(b.String(), anyRun) {
			continue
		}
		b.WriteString(p)
	}
	if !strings.HasSuffix(b.String(), anyRun) {
		b.WriteString(anyRun)
	}
	return b.String(), nil
}

// literal renders r for LIKE. LIKE folds ASCII letters only, so a rune
// whose case orbit leaves ASCII is widened to a single wildcard, as are
// the LIKE metacharacters themselves.
func literal(r rune) string {
	if r == '%' || r == '_' {
		return anyChar
	}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f >= utf8.RuneSelf || r >= utf8.RuneSelf {
			return anyChar
		}
	}
	return string(r)
}
