package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/jiten/pkg/db"
)

func sentencesCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "sentences",
		Aliases:   []string{"s"},
		Usage:     "Search example sentences.",
		ArgsUsage: "[QUERY]",
		Description: "Japanese text is found in the sentences, anything else in their translations.\n" +
			"+random picks sentences at random and +#ID shows one sentence.",
		Flags: []cli.Flag{
			langFlag(),
			&cli.IntFlag{
				Name:    "max",
				Usage:   "show at most `N` sentences; 0 means all",
				Aliases: []string{"m"},
			},
			&cli.BoolFlag{
				Name:    "audio",
				Usage:   "only sentences with a recording",
				Aliases: []string{"a"},
			},
		},
		Action: e.sentences,
	}
}

func (e *env) sentences(c *cli.Context) error {
	engine, closeDB, err := e.openEngine(c.Context)
	if err != nil {
		return err
	}
	defer closeDB()

	opts := e.queryOptions(c)
	verbose := c.Bool("verbose")
	return e.eachQuery(c, func(raw string) error {
		sts, err := engine.Sentences(c.Context, raw, opts)
		if err != nil {
			return err
		}
		for _, st := range sts {
			printSentence(c.App.Writer, st, opts.Langs, verbose)
		}
		return nil
	})
}

// printSentence shows st with its translations in langs, or in every
// stored language when langs names none of them.
func printSentence(w io.Writer, st db.Sentence, langs []string, verbose bool) {
	fmt.Fprintln(w, st.Jap)
	shown := 0
	for _, lang := range db.SentenceLangs {
		if slices.Contains(langs, lang) {
			shown += printTranslation(w, st, lang)
		}
	}
	if shown == 0 {
		for _, lang := range db.SentenceLangs {
			printTranslation(w, st, lang)
		}
	}
	if verbose {
		fmt.Fprintf(w, "id# %d", st.ID)
		if st.Audio != "" {
			fmt.Fprintf(w, ", audio %s", st.Audio)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

func printTranslation(w io.Writer, st db.Sentence, lang string) int {
	t, ok := st.Translations[lang]
	if !ok || t == "" {
		return 0
	}
	fmt.Fprintf(w, "[%s] %s\n", lang, t)
	return 1
}
