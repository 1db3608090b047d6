package glob

import (
	"strings"
	"unicode/utf8"
)

type kind int

const (
	// tokLiteral matches exactly its rune, modulo case.
	tokLiteral kind = iota
	// tokClass matches exactly one rune from some set.
	tokClass
	// tokQuantifier repeats the preceding atom.
	tokQuantifier
	// tokAssertion matches the empty string at some position.
	tokAssertion
)

type token struct {
	kind kind
	r    rune
}

// tokenize splits expr into tokens, longest match first. Any construct
// outside the four token kinds yields ErrUnsupported.
func tokenize(expr string) ([]token, error) {
	var toks []token
	for i := 0; i < len(expr); {
		r, size := utf8.DecodeRuneInString(expr[i:])
		switch r {
		case '.':
			toks = append(toks, token{kind: tokClass})
			i += size
		case '[':
			end, err := classEnd(expr, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokClass})
			i = end
		case '*', '+', '?':
			toks = append(toks, token{kind: tokQuantifier})
			i = skipLazy(expr, i+1)
		case '{':
			if n, ok := repeatLen(expr[i:]); ok {
				toks = append(toks, token{kind: tokQuantifier})
				i = skipLazy(expr, i+n)
				continue
			}
			toks = append(toks, token{kind: tokLiteral, r: r})
			i += size
		case '^', '$':
			toks = append(toks, token{kind: tokAssertion})
			i += size
		case '|', '(', ')':
			return nil, ErrUnsupported
		case '\\':
			t, n, err := escape(expr[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, t)
			i += n
		default:
			toks = append(toks, token{kind: tokLiteral, r: r})
			i += size
		}
	}
	return toks, nil
}

func skipLazy(expr string, i int) int {
	if i < len(expr) && expr[i] == '?' {
		return i + 1
	}
	return i
}

// repeatLen returns the length of a {n}, {n,} or {n,m} counted repetition
// at the start of s. Anything else starting with '{' is a literal brace.
func repeatLen(s string) (int, bool) {
	i := 1
	digits := func() int {
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		return i - start
	}
	if digits() == 0 {
		return 0, false
	}
	if i < len(s) && s[i] == ',' {
		i++
		digits()
	}
	if i < len(s) && s[i] == '}' {
		return i + 1, true
	}
	return 0, false
}

var controlEscapes = map[byte]rune{
	'a': '\a', 'f': '\f', 't': '\t', 'n': '\n', 'r': '\r', 'v': '\v',
}

// escape classifies the backslash sequence at the start of s and returns
// its token and byte length.
func escape(s string) (token, int, error) {
	if len(s) < 2 {
		return token{}, 0, ErrUnsupported
	}
	c := s[1]
	switch {
	case strings.IndexByte("dDsSwW", c) >= 0:
		return token{kind: tokClass}, 2, nil
	case c == 'b' || c == 'B' || c == 'A' || c == 'z':
		return token{kind: tokAssertion}, 2, nil
	case c == 'p' || c == 'P':
		n, ok := braced(s, 2)
		if !ok {
			return token{}, 0, ErrUnsupported
		}
		return token{kind: tokClass}, n, nil
	case c == 'x':
		if len(s) > 2 && s[2] == '{' {
			n, ok := braced(s, 2)
			if !ok {
				return token{}, 0, ErrUnsupported
			}
			return token{kind: tokClass}, n, nil
		}
		if len(s) < 4 || !isHex(s[2]) || !isHex(s[3]) {
			return token{}, 0, ErrUnsupported
		}
		return token{kind: tokClass}, 4, nil
	case c >= '1' && c <= '7' && (len(s) < 3 || !isOctal(s[2])):
		// backreference
		return token{}, 0, ErrUnsupported
	case c >= '0' && c <= '7':
		n := 2
		for n < 4 && n < len(s) && isOctal(s[n]) {
			n++
		}
		return token{kind: tokClass}, n, nil
	}
	if r, ok := controlEscapes[c]; ok {
		return token{kind: tokLiteral, r: r}, 2, nil
	}
	if c < utf8.RuneSelf && isPunct(c) {
		return token{kind: tokLiteral, r: rune(c)}, 2, nil
	}
	return token{}, 0, ErrUnsupported
}

// braced returns the length of s up to and including a {...} group or a
// single rune starting at i.
func braced(s string, i int) (int, bool) {
	if i >= len(s) {
		return 0, false
	}
	if s[i] == '{' {
		end := strings.IndexByte(s[i:], '}')
		if end < 0 {
			return 0, false
		}
		return i + end + 1, true
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return i + size, true
}

// classEnd returns the index just past the bracket class starting at i.
func classEnd(expr string, i int) (int, error) {
	j := i + 1
	if j < len(expr) && expr[j] == '^' {
		j++
	}
	if j < len(expr) && expr[j] == ']' {
		j++
	}
	for j < len(expr) {
		switch {
		case posixLen(expr[j:]) > 0:
			j += posixLen(expr[j:])
		case expr[j] == '\\':
			if j+1 >= len(expr) {
				return 0, ErrUnsupported
			}
			_, size := utf8.DecodeRuneInString(expr[j+1:])
			j += 1 + size
		case expr[j] == ']':
			return j + 1, nil
		default:
			_, size := utf8.DecodeRuneInString(expr[j:])
			j += size
		}
	}
	return 0, ErrUnsupported
}

var posixNames = map[string]bool{
	"alnum": true, "alpha": true, "ascii": true, "blank": true,
	"cntrl": true, "digit": true, "graph": true, "lower": true,
	"print": true, "punct": true, "space": true, "upper": true,
	"word": true, "xdigit": true,
}

// posixLen returns the length of a [:name:] or [:^name:] class at the
// start of s, or 0.
func posixLen(s string) int {
	if !strings.HasPrefix(s, "[:") {
		return 0
	}
	end := strings.Index(s[2:], ":]")
	if end < 0 || !posixNames[strings.TrimPrefix(s[2:2+end], "^")] {
		return 0
	}
	return 2 + end + 2
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

// isPunct reports whether an escaped ASCII byte stands for itself.
func isPunct(c byte) bool {
	return !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z')
}
