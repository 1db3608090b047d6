package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/kana"
)

// Null marks an absent column in the sentence list.
const Null = "-"

// freqExceptions are kept in frequency lists despite mixing scripts.
var freqExceptions = map[string]bool{"Tシャツ": true}

// KeepWord reports whether a frequency list word should be ranked.
func KeepWord(w string) bool { return freqExceptions[w] || kana.AllJapanese(w) }

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return sc
}

// ParseSentences reads id, Japanese text, one column per entry of
// db.SentenceLangs and the audio credit, tab separated.
func ParseSentences(r io.Reader, fn func(db.Sentence) error) error {
	sc := newScanner(r)
	want := 3 + len(db.SentenceLangs)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != want {
			return fmt.Errorf("sentences line %d: expected %d fields, got %d", line, want, len(fields))
		}
		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return fmt.Errorf("sentences line %d: bad id: %w", line, err)
		}
		st := db.Sentence{ID: id, Jap: fields[1], Translations: make(map[string]string)}
		for i, lang := range db.SentenceLangs {
			if v := fields[2+i]; v != Null {
				st.Translations[lang] = v
			}
		}
		if v := fields[want-1]; v != Null {
			st.Audio = v
		}
		if err := fn(st); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ParseLevels reads tab separated word/level lines of a JLPT list.
// Blank lines and lines starting with # are skipped; a word listed
// twice keeps its highest level.
func ParseLevels(r io.Reader) (map[string]int, error) {
	levels := make(map[string]int)
	sc := newScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.HasPrefix(text, "#") || strings.TrimSpace(text) == "" {
			continue
		}
		word, lvl, ok := strings.Cut(text, "\t")
		if !ok {
			return nil, fmt.Errorf("jlpt line %d: expected two tab separated fields", line)
		}
		n, err := strconv.Atoi(strings.TrimSpace(lvl))
		if err != nil || n < 1 || n > 5 {
			return nil, fmt.Errorf("jlpt line %d: bad level %q", line, lvl)
		}
		word = strings.TrimSpace(word)
		levels[word] = max(levels[word], n)
	}
	return levels, sc.Err()
}
