// Package freq holds word frequency ranks and JLPT levels. Tables are
// built once and are safe for concurrent use because they never change.
package freq

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Rank is a frequency rank; 1 is the most frequent word. The zero value
// means the word is unranked.
type Rank struct {
	n int
}

// NewRank returns rank n, or an unranked value when n is not positive.
func NewRank(n int) Rank {
	if n <= 0 {
		return Rank{}
	}
	return Rank{n: n}
}

// Value returns the rank and whether there is one.
func (r Rank) Value() (int, bool) { return r.n, r.n > 0 }

// Ranked reports whether r carries a rank.
func (r Rank) Ranked() bool { return r.n > 0 }

func (r Rank) String() string {
	if r.n <= 0 {
		return "-"
	}
	return strconv.Itoa(r.n)
}

// Equal reports whether r and o carry the same rank.
func (r Rank) Equal(o Rank) bool { return r.n == o.n }

// Better returns the smaller of two ranks, treating unranked as worse
// than any rank.
func (r Rank) Better(o Rank) Rank {
	switch {
	case !r.Ranked():
		return o
	case !o.Ranked():
		return r
	case o.n < r.n:
		return o
	}
	return r
}

// Level is a JLPT level from 1 to 5. The zero value means no level.
type Level struct {
	n int
}

// NewLevel returns level n, or no level when n is outside 1 to 5.
func NewLevel(n int) Level {
	if n < 1 || n > 5 {
		return Level{}
	}
	return Level{n: n}
}

// Value returns the level and whether there is one.
func (l Level) Value() (int, bool) { return l.n, l.n > 0 }

func (l Level) String() string {
	if l.n <= 0 {
		return "-"
	}
	return "N" + strconv.Itoa(l.n)
}

// Equal reports whether l and o are the same level.
func (l Level) Equal(o Level) bool { return l.n == o.n }

// Higher returns the higher of two levels; absent loses.
func (l Level) Higher(o Level) Level {
	if o.n > l.n {
		return o
	}
	return l
}

// Within reports whether l lies in [lo, hi]; 0 leaves a bound open.
// An absent level is never within an active range.
func (l Level) Within(lo, hi int) bool {
	if lo <= 0 && hi <= 0 {
		return true
	}
	if l.n <= 0 {
		return false
	}
	return (lo <= 0 || l.n >= lo) && (hi <= 0 || l.n <= hi)
}

// Tables maps words to their frequency rank and JLPT level.
type Tables struct {
	ranks  map[string]int
	levels map[string]int
}

// Empty has no ranks and no levels.
var Empty = &Tables{}

// NewTables copies ranks and levels into an immutable table set.
func NewTables(ranks, levels map[string]int) *Tables {
	t := &Tables{
		ranks:  make(map[string]int, len(ranks)),
		levels: make(map[string]int, len(levels)),
	}
	for w, r := range ranks {
		t.ranks[w] = r
	}
	for w, l := range levels {
		t.levels[w] = l
	}
	return t
}

// Source supplies the stored ranks and levels.
type Source interface {
	WordRanks(ctx context.Context) (map[string]int, error)
	WordLevels(ctx context.Context) (map[string]int, error)
}

// Load builds tables from src.
func Load(ctx context.Context, src Source) (*Tables, error) {
	ranks, err := src.WordRanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load word ranks: %w", err)
	}
	levels, err := src.WordLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load word levels: %w", err)
	}
	return &Tables{ranks: ranks, levels: levels}, nil
}

// Rank returns the rank of word.
func (t *Tables) Rank(word string) Rank { return NewRank(t.ranks[word]) }

// Level returns the JLPT level of word.
func (t *Tables) Level(word string) Level { return NewLevel(t.levels[word]) }

// BestRank returns the best rank over words.
func (t *Tables) BestRank(words []string) Rank {
	var r Rank
	for _, w := range words {
		r = r.Better(t.Rank(w))
	}
	return r
}

// HighestLevel returns the highest level over words.
func (t *Tables) HighestLevel(words []string) Level {
	var l Level
	for _, w := range words {
		l = l.Higher(t.Level(w))
	}
	return l
}

// Len reports the number of ranked words.
func (t *Tables) Len() int { return len(t.ranks) }

// Counts accumulates relative word frequencies from several corpora.
type Counts map[string]float64

// ParseCounts reads tab separated word/count lines. Blank lines and lines
// starting with # are skipped. With wordFirst false the columns are
// count/word. Counts are normalized so each corpus sums to one.
func ParseCounts(r io.Reader, wordFirst bool, keep func(string) bool) (Counts, error) {
	raw := make(map[string]int)
	total := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.HasPrefix(text, "#") || strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected two tab separated fields", line)
		}
		word, count := fields[0], fields[1]
		if !wordFirst {
			word, count = fields[1], fields[0]
		}
		word = strings.TrimSpace(word)
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad count %q: %w", line, count, err)
		}
		if word == "" || (keep != nil && !keep(word)) {
			continue
		}
		raw[word] = n
		total += n
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	c := make(Counts, len(raw))
	if total == 0 {
		return c, nil
	}
	for w, n := range raw {
		c[w] = float64(n) / float64(total)
	}
	return c, nil
}

// Merge adds the relative frequencies of o into c.
func (c Counts) Merge(o Counts) {
	for w, f := range o {
		c[w] += f
	}
}

// Ranks orders words by descending frequency, then descending word, and
// numbers them from 1.
func (c Counts) Ranks() map[string]int {
	words := make([]string, 0, len(c))
	for w := range c {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if c[words[i]] != c[words[j]] {
			return c[words[i]] > c[words[j]]
		}
		return words[i] > words[j]
	})
	ranks := make(map[string]int, len(words))
	for i, w := range words {
		ranks[w] = i + 1
	}
	return ranks
}
