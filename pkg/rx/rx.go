// Package rx compiles user supplied search patterns into case-insensitive,
// multi-line regular expressions and memoises the results.
package rx

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of compiled expressions kept by Compile.
const DefaultCacheSize = 64

// ErrSyntax is matched by every *SyntaxError.
var ErrSyntax = errors.New("invalid regular expression")

// SyntaxError is returned when a pattern is rejected by the regex engine.
type SyntaxError struct {
	Pattern string
	Err     error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %v", ErrSyntax, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Is reports ErrSyntax as a match so callers need not know the concrete type.
func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// script shorthands accepted in patterns in addition to Go's own syntax.
var shorthands = map[byte]string{
	'H': "Hiragana",
	'K': "Katakana",
	'C': "Han",
}

// Expand rewrites the \pH, \pK and \pC shorthands (and their \P
// negations) to named Unicode script classes. Escaped backslashes are
// left untouched.
func Expand(pattern string) string {
	if !strings.Contains(pattern, `\p`) && !strings.Contains(pattern, `\P`) {
		return pattern
	}
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '\\' || i+1 >= len(pattern) {
			b.WriteByte(c)
			continue
		}
		next := pattern[i+1]
		if (next == 'p' || next == 'P') && i+2 < len(pattern) {
			if name, ok := shorthands[pattern[i+2]]; ok {
				b.WriteByte('\\')
				b.WriteByte(next)
				b.WriteString("{" + name + "}")
				i += 2
				continue
			}
		}
		b.WriteByte(c)
		b.WriteByte(next)
		i++
	}
	return b.String()
}

// Cache holds compiled expressions keyed by their source pattern.
type Cache struct {
	lru *lru.Cache[string, *regexp.Regexp]
}

// NewCache returns a cache holding up to size expressions.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, fmt.Errorf("regex cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Compile returns the case-insensitive, multi-line expression for
// pattern. A rejected pattern yields a *SyntaxError.
func (c *Cache) Compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := c.lru.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile("(?im)" + Expand(pattern))
	if err != nil {
		return nil, &SyntaxError{Pattern: pattern, Err: err}
	}
	c.lru.Add(pattern, re)
	return re, nil
}

// Len reports the number of cached expressions.
func (c *Cache) Len() int { return c.lru.Len() }

// shared serves callers that are not given a cache of their own.
var shared = mustCache(DefaultCacheSize)

func mustCache(size int) *Cache {
	c, err := NewCache(size)
	if err != nil {
		panic(err)
	}
	return c
}

// Compile compiles pattern through a package level cache of
// DefaultCacheSize expressions.
func Compile(pattern string) (*regexp.Regexp, error) {
	return shared.Compile(pattern)
}
