package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"
	"golang.org/x/text/width"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/query"
)

func kanjiCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "kanji",
		Aliases:   []string{"k"},
		Usage:     "Search KANJIDIC.",
		ArgsUsage: "[QUERY]",
		Description: strings.Join([]string{
			"A query of kanji looks the characters up; +r lists components, +s a SKIP code.",
			"Anything else is a regular expression over the readings and meanings.",
		}, "\n"),
		Flags: append(queryFlags(),
			&cli.BoolFlag{
				Name:    "table",
				Usage:   "print one row per kanji",
				Aliases: []string{"t"},
			},
		),
		Action: e.kanji,
	}
}

func (e *env) kanji(c *cli.Context) error {
	engine, closeDB, err := e.openEngine(c.Context)
	if err != nil {
		return err
	}
	defer closeDB()

	opts := e.queryOptions(c)
	verbose := c.Bool("verbose")
	return e.eachQuery(c, func(raw string) error {
		q, err := query.Parse(raw, opts)
		if err != nil {
			return err
		}
		ks, err := engine.KanjiQuery(c.Context, q)
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(c.App.Writer, "query: %s\n\n", q)
		}
		if c.Bool("table") {
			printKanjiTable(c.App.Writer, ks)
			return nil
		}
		for _, k := range ks {
			printKanji(c.App.Writer, k, verbose)
		}
		return nil
	})
}

func printKanji(w io.Writer, k db.Kanji, verbose bool) {
	fmt.Fprintln(w, k.Char)
	fmt.Fprintln(w, joinOr(k.On, "[no on readings]"))
	fmt.Fprintln(w, joinOr(k.Kun, "[no kun readings]"))
	fmt.Fprintln(w, joinOr(k.Nanori, "[no name readings]"))
	for _, m := range k.Meaning {
		fmt.Fprintf(w, "* %s\n", m)
	}
	if verbose {
		fmt.Fprintf(w, "%#x, %d strokes", k.Code, k.Strokes)
		if k.Level != "" {
			fmt.Fprintf(w, ", grade %s", k.Level)
		}
		if k.Freq.Ranked() {
			fmt.Fprintf(w, ", freq# %s", k.Freq)
		}
		if n, ok := k.JLPT.Value(); ok {
			fmt.Fprintf(w, ", old jlpt %d", n)
		}
		if k.Skip != "" {
			fmt.Fprintf(w, ", skip %s", k.Skip)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

func printKanjiTable(w io.Writer, ks []db.Kanji) {
	tbl := table.New("Kanji", "On", "Kun", "Strokes", "Grade", "Freq", "SKIP", "Meaning").
		WithWriter(w).
		WithWidthFunc(displayWidth)
	for _, k := range ks {
		tbl.AddRow(
			k.Char,
			strings.Join(k.On, "、"),
			strings.Join(k.Kun, "、"),
			strconv.Itoa(k.Strokes),
			k.Level,
			k.Freq.String(),
			k.Skip,
			strings.Join(k.Meaning, ", "),
		)
	}
	tbl.Print()
}

// displayWidth counts East Asian wide and fullwidth runes as two columns.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
