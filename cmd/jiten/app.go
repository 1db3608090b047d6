package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/jiten/pkg/config"
	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/freq"
	"github.com/japaniel/jiten/pkg/logging"
	"github.com/japaniel/jiten/pkg/query"
	"github.com/japaniel/jiten/pkg/rx"
	"github.com/japaniel/jiten/pkg/search"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeInvalidQuery is the exit code for a query that cannot be parsed.
	ExitCodeInvalidQuery

	// ExitCodeUnavailable is the exit code when the database cannot be used.
	ExitCodeUnavailable

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError
)

// ErrJiten is a parent error for all command errors.
var ErrJiten = errors.New("jiten")

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = fmt.Errorf("%w: parsing flags", ErrJiten)

const unavailableMessage = "the dictionary database is unavailable; run `jiten setup` to build it"

// env is the state shared by the commands of one invocation.
type env struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	log    *slog.Logger

	// regexps is shared by the engine and the REGEXP function of its database.
	regexps *rx.Cache
}

// run executes the jiten app with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	e := &env{
		stdout: stdout,
		stderr: stderr,
		log:    logging.New(stderr, config.LogConfig{Level: "info", Format: "text"}),
	}
	return e.exitCode(newApp(e).RunContext(ctx, args))
}

func newApp(e *env) *cli.App {
	app := &cli.App{
		Name:  "jiten",
		Usage: "Search a Japanese dictionary.",
		Description: strings.Join([]string{
			"Words, kanji and example sentences from JMdict, KANJIDIC2 and Tatoeba.",
			"Queries are regular expressions unless they start with a + directive.",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "read settings from `FILE`",
				Aliases: []string{"c"},
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "use the dictionary database at `PATH`",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "show the parsed query and entry details",
				Aliases: []string{"v"},
			},
		},
		Reader:          os.Stdin,
		Writer:          e.stdout,
		ErrWriter:       e.stderr,
		HideHelpCommand: true,
		Before:          e.before,
		// Errors are turned into exit codes by run.
		ExitErrHandler: func(*cli.Context, error) {},
		OnUsageError:   usageError,
		Commands: []*cli.Command{
			wordsCommand(e),
			kanjiCommand(e),
			sentencesCommand(e),
			setupCommand(e),
			fetchCommand(e),
		},
	}
	for _, c := range app.Commands {
		c.OnUsageError = usageError
	}
	return app
}

func usageError(_ *cli.Context, err error, _ bool) error {
	return fmt.Errorf("%w: %w", ErrFlagParse, err)
}

// before loads the configuration and applies the global flags.
func (e *env) before(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if p := c.String("db"); p != "" {
		cfg.DB.Path = p
	}
	cache, err := rx.NewCache(cfg.Search.RegexCache)
	if err != nil {
		return err
	}
	e.regexps = cache
	e.cfg = cfg
	e.log = logging.New(e.stderr, cfg.Log)
	return nil
}

func (e *env) exitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, ErrFlagParse):
		fmt.Fprintf(e.stderr, "%v\n", err)
		return ExitCodeFlagParseError
	case isQueryError(err):
		fmt.Fprintf(e.stderr, "jiten: %v\n", err)
		return ExitCodeInvalidQuery
	case errors.Is(err, db.ErrUnavailable):
		e.log.Error("storage unavailable", "error", err)
		fmt.Fprintf(e.stderr, "jiten: %s\n", unavailableMessage)
		return ExitCodeUnavailable
	}
	fmt.Fprintf(e.stderr, "jiten: %v\n", err)
	return ExitCodeUnknownError
}

func isQueryError(err error) bool {
	return errors.Is(err, query.ErrInvalidQuery) || errors.Is(err, rx.ErrSyntax)
}

// openEngine opens the dictionary read-only and loads its word tables.
// The returned func closes the database.
func (e *env) openEngine(ctx context.Context) (*search.Engine, func() error, error) {
	conn, err := db.Open(ctx, e.cfg.DB.Path, e.regexps)
	if err != nil {
		return nil, nil, err
	}
	store := db.NewStore(conn)
	tables, err := freq.Load(ctx, store)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	e.log.Debug("dictionary opened", "path", e.cfg.DB.Path, "ranked_words", tables.Len())

	engine := search.New(store, tables)
	engine.Logger = e.log
	engine.Regexps = e.regexps
	engine.DisablePrefilter = e.cfg.Search.NoPrefilter
	return engine, conn.Close, nil
}

// eachQuery calls fn with the query given as arguments or, without
// arguments, with each line read from the app's input until an empty
// line. Query errors on input lines are reported and skipped.
func (e *env) eachQuery(c *cli.Context, fn func(raw string) error) error {
	if c.NArg() > 0 {
		return fn(strings.Join(c.Args().Slice(), " "))
	}
	sc := bufio.NewScanner(c.App.Reader)
	for {
		fmt.Fprint(c.App.Writer, "query: ")
		if !sc.Scan() {
			fmt.Fprintln(c.App.Writer)
			return sc.Err()
		}
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			return nil
		}
		if err := fn(raw); err != nil {
			if !isQueryError(err) {
				return err
			}
			fmt.Fprintf(e.stderr, "jiten: %v\n", err)
		}
	}
}

// queryFlags are the match flags shared by the search commands.
func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "word",
			Usage:   `match whole words (same as +w or \b...\b)`,
			Aliases: []string{"w"},
		},
		&cli.BoolFlag{
			Name:    "exact",
			Usage:   "match exactly (same as += or ^...$)",
			Aliases: []string{"e"},
		},
		&cli.BoolFlag{
			Name:    "first-word",
			Usage:   "match the first word only (same as +1)",
			Aliases: []string{"1"},
		},
		&cli.IntFlag{
			Name:    "max",
			Usage:   "show at most `N` results; 0 means all",
			Aliases: []string{"m"},
		},
	}
}

func langFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "lang",
		Usage:   "search and show glosses in `LANG` (eng, dut, ger, ...)",
		Aliases: []string{"l"},
	}
}

// queryOptions collects the flags of c, falling back to the configured
// languages and result limit.
func (e *env) queryOptions(c *cli.Context) query.Options {
	opts := query.Options{
		Word:      c.Bool("word"),
		Exact:     c.Bool("exact"),
		FirstWord: c.Bool("first-word"),
		Langs:     e.cfg.Search.Langs,
		Max:       e.cfg.Search.MaxResults,
		Filters: query.Filters{
			Noun:     c.Bool("noun"),
			Verb:     c.Bool("verb"),
			Common:   c.Bool("common"),
			MinLevel: c.Int("jlpt-min"),
			MaxLevel: c.Int("jlpt-max"),
			Audio:    c.Bool("audio"),
		},
	}
	if c.IsSet("lang") {
		opts.Langs = c.StringSlice("lang")
	}
	if c.IsSet("max") {
		opts.Max = c.Int("max")
	}
	return opts
}
