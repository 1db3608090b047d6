// Package dictionary reads the source files the jiten database is built
// from: jmdict-simplified and kanjidic2 JSON, kradfile JSON, Tatoeba
// sentence TSV and the word frequency and JLPT lists.
package dictionary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictElement `json:"kana"`
	Sense []JMdictSense   `json:"sense"`
}

type JMdictElement struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
	// Priority holds raw JMdict priority codes (news1, ichi2, nf12, ...)
	// when the export carries them.
	Priority       []string `json:"priority,omitempty"`
	AppliesToKanji []string `json:"appliesToKanji,omitempty"`
}

type JMdictSense struct {
	PartOfSpeech []string          `json:"partOfSpeech"`
	Related      []json.RawMessage `json:"related,omitempty"`
	Misc         []string          `json:"misc,omitempty"`
	Info         []string          `json:"info,omitempty"`
	Gloss        []JMdictGloss     `json:"gloss"`
}

type JMdictGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// ErrMissingArray is returned when a document lacks the expected array.
var ErrMissingArray = errors.New("missing array")

// StreamJMdict decodes entries one at a time and passes them to fn.
// r holds either a jmdict-simplified document ({"words": [...]}) or a
// bare array of entries. Returning an error from fn stops the stream.
func StreamJMdict(r io.Reader, fn func(JMdictEntry) error) error {
	dec := json.NewDecoder(r)
	if err := seekArray(dec, "words"); err != nil {
		return fmt.Errorf("jmdict: %w", err)
	}
	for dec.More() {
		var e JMdictEntry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("jmdict: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// LoadJMdictSimplified reads every entry of the file at path.
func LoadJMdictSimplified(path string) ([]JMdictEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []JMdictEntry
	err = StreamJMdict(f, func(e JMdictEntry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return entries, nil
}

// seekArray positions dec inside the array stored under key, or inside
// the top level array when the document is one. Other top level keys
// are skipped.
func seekArray(dec *json.Decoder, key string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case json.Delim('['):
		return nil
	case json.Delim('{'):
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if name, _ := tok.(string); name != key {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
			continue
		}
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		if tok != json.Delim('[') {
			return fmt.Errorf("%s is not an array", key)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingArray, key)
}
