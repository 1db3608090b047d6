package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/dictionary"
	"github.com/japaniel/jiten/pkg/ingest"
)

var assets = []string{
	dictionary.AssetJMdict,
	dictionary.AssetKanjidic,
	dictionary.AssetKradfile,
}

func assetPath(dir, asset string) string {
	return filepath.Join(dir, asset+".json")
}

func fetchCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download the jmdict-simplified dictionaries into the data directory.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "store the dictionaries in `DIR`",
			},
		},
		Action: func(c *cli.Context) error {
			dir := e.dataDir(c)
			return e.fetch(c.Context, dir)
		},
	}
}

func (e *env) dataDir(c *cli.Context) string {
	if d := c.String("data-dir"); d != "" {
		return d
	}
	return e.cfg.Import.DataDir
}

// fetch downloads the dictionary assets missing from dir.
func (e *env) fetch(ctx context.Context, dir string) error {
	d := &dictionary.Downloader{
		ReleaseURL: e.cfg.Import.DictURL,
		Logger:     e.log,
	}
	for _, asset := range assets {
		path := assetPath(dir, asset)
		if err := d.Ensure(ctx, path, asset); err != nil {
			return fmt.Errorf("fetch %s: %w", asset, err)
		}
		fmt.Fprintf(e.stdout, "%s: %s\n", asset, path)
	}
	return nil
}

func setupCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Build the dictionary database from source files.",
		Description: "Sources not given on the command line are taken from the data directory\n" +
			"when present. Word frequency and JLPT tables are rebuilt when any list is given.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "look for downloaded dictionaries in `DIR`",
			},
			&cli.BoolFlag{
				Name:  "fetch",
				Usage: "download missing dictionaries first",
			},
			&cli.StringFlag{
				Name:  "jmdict",
				Usage: "import words from the jmdict-simplified `FILE`",
			},
			&cli.StringFlag{
				Name:  "kanjidic",
				Usage: "import kanji from the kanjidic2-simplified `FILE`",
			},
			&cli.StringFlag{
				Name:  "kradfile",
				Usage: "read kanji components from `FILE`",
			},
			&cli.StringFlag{
				Name:  "sentences",
				Usage: "import example sentences from the tab separated `FILE`",
			},
			&cli.StringSliceFlag{
				Name:  "freq",
				Usage: "count words from the word<TAB>count list `FILE`",
			},
			&cli.StringSliceFlag{
				Name:  "freq-count-first",
				Usage: "count words from the count<TAB>word list `FILE`",
			},
			&cli.StringFlag{
				Name:  "jlpt",
				Usage: "read JLPT levels from the word<TAB>level list `FILE`",
			},
		},
		Action: e.setup,
	}
}

func (e *env) setup(c *cli.Context) error {
	ctx := c.Context
	dir := e.dataDir(c)
	if c.Bool("fetch") {
		if err := e.fetch(ctx, dir); err != nil {
			return err
		}
	}
	src := ingest.Sources{
		JMdict:    e.source(c, "jmdict", dir, dictionary.AssetJMdict),
		Kanjidic:  e.source(c, "kanjidic", dir, dictionary.AssetKanjidic),
		Kradfile:  e.source(c, "kradfile", dir, dictionary.AssetKradfile),
		Sentences: c.String("sentences"),
		JLPT:      c.String("jlpt"),
	}
	for _, p := range c.StringSlice("freq") {
		src.Freq = append(src.Freq, ingest.FreqFile{Path: p, WordFirst: true})
	}
	for _, p := range c.StringSlice("freq-count-first") {
		src.Freq = append(src.Freq, ingest.FreqFile{Path: p})
	}

	conn, err := db.Create(ctx, e.cfg.DB.Path)
	if err != nil {
		return err
	}
	defer conn.Close()

	ig := ingest.NewIngester(conn)
	ig.Logger = e.log
	ig.Workers = e.cfg.Import.Workers
	ig.BatchSize = e.cfg.Import.BatchSize
	ig.OnProgress = func(done int) {
		e.log.Debug("import progress", "records", done)
	}
	sum, err := ig.Setup(ctx, src)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s: %s\n", e.cfg.DB.Path, sum)
	return nil
}

// source returns the path given by flag, or the downloaded asset in dir
// when it exists.
func (e *env) source(c *cli.Context, flag, dir, asset string) string {
	if p := c.String(flag); p != "" {
		return p
	}
	p := assetPath(dir, asset)
	if _, err := os.Stat(p); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.log.Warn("cannot use downloaded source", "path", p, "error", err)
		}
		return ""
	}
	return p
}
