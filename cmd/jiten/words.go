package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/jiten/pkg/kana"
	"github.com/japaniel/jiten/pkg/query"
	"github.com/japaniel/jiten/pkg/search"
)

func wordsCommand(e *env) *cli.Command {
	flags := append(queryFlags(),
		langFlag(),
		&cli.BoolFlag{
			Name:  "noun",
			Usage: "only nouns",
		},
		&cli.BoolFlag{
			Name:  "verb",
			Usage: "only verbs",
		},
		&cli.BoolFlag{
			Name:  "common",
			Usage: "only common words",
		},
		&cli.IntFlag{
			Name:  "jlpt-min",
			Usage: "only words of JLPT level `N` or higher",
		},
		&cli.IntFlag{
			Name:  "jlpt-max",
			Usage: "only words of JLPT level `N` or lower",
		},
		&cli.BoolFlag{
			Name:    "romaji",
			Usage:   "show readings in romaji",
			Aliases: []string{"r"},
		},
		&cli.BoolFlag{
			Name:  "macron",
			Usage: "write long vowels in romaji with macrons",
		},
	)
	return &cli.Command{
		Name:      "words",
		Aliases:   []string{"jmdict", "w"},
		Usage:     "Search JMdict.",
		ArgsUsage: "[QUERY]",
		Flags:     flags,
		Action:    e.words,
	}
}

// wordFormat selects the optional parts of printed entries.
type wordFormat struct {
	langs   []string
	verbose bool
	romaji  bool
	style   kana.LongVowelStyle
}

func (e *env) words(c *cli.Context) error {
	engine, closeDB, err := e.openEngine(c.Context)
	if err != nil {
		return err
	}
	defer closeDB()

	opts := e.queryOptions(c)
	f := wordFormat{
		verbose: c.Bool("verbose"),
		romaji:  c.Bool("romaji") || c.Bool("macron"),
	}
	if c.Bool("macron") {
		f.style = kana.LongVowelMacron
	}
	return e.eachQuery(c, func(raw string) error {
		q, err := query.Parse(raw, opts)
		if err != nil {
			return err
		}
		results, err := engine.WordsQuery(c.Context, q)
		if err != nil {
			return err
		}
		f.langs = q.Langs
		if f.verbose {
			fmt.Fprintf(c.App.Writer, "query: %s\n\n", q)
		}
		for _, r := range results {
			printWord(c.App.Writer, r, f)
		}
		return nil
	})
}

func printWord(w io.Writer, r search.Result, f wordFormat) {
	en := r.Entry
	kanji := make([]string, len(en.Kanji))
	for i, k := range en.Kanji {
		kanji[i] = k.Elem
	}
	readings := make([]string, len(en.Readings))
	for i, rd := range en.Readings {
		readings[i] = rd.Elem
	}
	fmt.Fprintln(w, joinOr(kanji, "[no kanji]"))
	fmt.Fprintln(w, joinOr(readings, "[no readings]"))
	if f.romaji && len(readings) > 0 {
		romaji := make([]string, len(readings))
		for i, rd := range readings {
			romaji[i] = kana.ToRomaji(rd, f.style)
		}
		fmt.Fprintln(w, strings.Join(romaji, " | "))
	}
	for _, lang := range f.langs {
		fmt.Fprintf(w, "[%s]\n", lang)
		for _, g := range en.Glosses(lang) {
			fmt.Fprintf(w, "* %s\n", strings.Join(g, " | "))
		}
	}
	if info := entryInfo(r, f.langs); len(info) > 0 {
		fmt.Fprintf(w, ">> %s\n", strings.Join(info, " | "))
	}
	if f.verbose {
		fmt.Fprintf(w, "seq# %d", en.Seq)
		if r.Rank.Ranked() {
			fmt.Fprintf(w, ", freq# %s", r.Rank)
		}
		if _, ok := r.Level.Value(); ok {
			fmt.Fprintf(w, ", jlpt %s", r.Level)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// entryInfo lists the distinct parts of speech, notes and cross
// references of the senses in langs, in order of appearance.
func entryInfo(r search.Result, langs []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(xs ...string) {
		for _, x := range xs {
			if x != "" && !seen[x] {
				seen[x] = true
				out = append(out, x)
			}
		}
	}
	for _, s := range r.Entry.Senses {
		if !slices.Contains(langs, s.Lang) {
			continue
		}
		add(s.POS...)
		add(s.Info...)
		for _, x := range s.XRef {
			add("see " + x)
		}
	}
	return out
}

func joinOr(xs []string, empty string) string {
	if len(xs) == 0 {
		return empty
	}
	return strings.Join(xs, " | ")
}
