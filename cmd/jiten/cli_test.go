package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/freq"
)

// isolate runs the test in an empty directory without config files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("JITEN_CONFIG", "")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

// seedDB writes a small dictionary to dir and returns its path.
func seedDB(t *testing.T, dir string) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(dir, "jiten.sqlite3")
	conn, err := db.Create(ctx, path)
	require.NoError(t, err)
	defer conn.Close()

	entries := []db.Entry{
		{
			Seq:      1467640,
			Kanji:    []db.KanjiForm{{Elem: "猫", Chars: "猫"}},
			Readings: []db.ReadingForm{{Elem: "ねこ"}},
			Senses: []db.Sense{
				{Lang: "eng", POS: []string{"n"}, Gloss: []string{"cat"}},
				{Lang: "dut", POS: []string{"n"}, Gloss: []string{"kat", "poes"}},
			},
			Prio:   2,
			IsNoun: true,
		},
		{
			Seq:      1601260,
			Kanji:    []db.KanjiForm{{Elem: "馬鹿", Chars: "馬鹿"}},
			Readings: []db.ReadingForm{{Elem: "ばか"}},
			Senses: []db.Sense{
				{Lang: "eng", Gloss: []string{"idiot", "fool"}, Info: []string{"derogatory"}, UsuallyKana: true},
			},
			Prio: 2,
		},
	}
	for _, e := range entries {
		require.NoError(t, db.PutEntry(ctx, conn, e))
	}
	require.NoError(t, db.PutKanji(ctx, conn, db.Kanji{
		Code:     0x732b,
		Char:     "猫",
		Category: "KANJI",
		Level:    "常用",
		Strokes:  11,
		Freq:     freq.NewRank(1702),
		JLPT:     freq.NewLevel(2),
		Skip:     "1-3-8",
		On:       []string{"ビョウ"},
		Kun:      []string{"ねこ"},
		Meaning:  []string{"cat"},
	}))
	require.NoError(t, db.PutSentence(ctx, conn, db.Sentence{
		ID:           74031,
		Jap:          "猫が好きです。",
		Translations: map[string]string{"eng": "I like cats."},
	}))
	require.NoError(t, db.PutWordRank(ctx, conn, "猫", 1))
	require.NoError(t, db.PutWordLevel(ctx, conn, "猫", 5))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"jiten"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestWords(t *testing.T) {
	path := seedDB(t, isolate(t))

	code, out, errOut := runCLI(t, "--db", path, "words", "猫")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	assert.Equal(t, "猫\nねこ\n[eng]\n* cat\n>> n\n\n", out)
}

func TestWordsVerbose(t *testing.T) {
	path := seedDB(t, isolate(t))

	code, out, errOut := runCLI(t, "--db", path, "-v", "words", "-l", "eng", "-l", "dut", "--romaji", "ねこ")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	want := strings.Join([]string{
		"query: ねこ",
		"",
		"猫",
		"ねこ",
		"neko",
		"[eng]",
		"* cat",
		"[dut]",
		"* kat | poes",
		">> n",
		"seq# 1467640, freq# 1, jlpt N5",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestWordsGlossAndInfo(t *testing.T) {
	path := seedDB(t, isolate(t))

	code, out, errOut := runCLI(t, "--db", path, "words", "-w", "fool")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	assert.Equal(t, "馬鹿\nばか\n[eng]\n* idiot | fool\n>> derogatory\n\n", out)
}

func TestWordsFilters(t *testing.T) {
	path := seedDB(t, isolate(t))

	code, out, errOut := runCLI(t, "--db", path, "words", "--noun", "+random")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	assert.True(t, strings.HasPrefix(out, "猫\n"), out)

	code, out, errOut = runCLI(t, "--db", path, "words", "--jlpt-min", "5", ".")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	assert.Contains(t, out, "猫\n")
	assert.NotContains(t, out, "馬鹿")
}

func TestWordsInteractive(t *testing.T) {
	path := seedDB(t, isolate(t))

	var stdout, stderr bytes.Buffer
	e := &env{stdout: &stdout, stderr: &stderr}
	app := newApp(e)
	app.Reader = strings.NewReader("(\nねこ\n\nばか\n")
	err := app.RunContext(context.Background(), []string{"jiten", "--db", path, "words"})
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "猫\nねこ\n")
	assert.NotContains(t, out, "馬鹿", "input after the empty line is not read")
	assert.Contains(t, stderr.String(), "jiten: ")
}

func TestKanji(t *testing.T) {
	path := seedDB(t, isolate(t))

	code, out, errOut := runCLI(t, "--db", path, "-v", "kanji", "猫")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	want := strings.Join([]string{
		"query: 猫",
		"",
		"猫",
		"ビョウ",
		"ねこ",
		"[no name readings]",
		"* cat",
		"0x732b, 11 strokes, grade 常用, freq# 1702, old jlpt 2, skip 1-3-8",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestKanjiTable(t *testing.T) {
	path := seedDB(t, isolate(t))

	code, out, errOut := runCLI(t, "--db", path, "kanji", "--table", "+s1-3-8")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Kanji"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "猫"), lines[1])
	assert.Contains(t, lines[1], "ビョウ")
	assert.Contains(t, lines[1], "1702")
}

func TestDisplayWidth(t *testing.T) {
	assert.Equal(t, 3, displayWidth("cat"))
	assert.Equal(t, 4, displayWidth("ねこ"))
	assert.Equal(t, 3, displayWidth("ｶﾀｶ"))
}

func TestSentences(t *testing.T) {
	path := seedDB(t, isolate(t))

	code, out, errOut := runCLI(t, "--db", path, "-v", "sentences", "cats")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	assert.Equal(t, "猫が好きです。\n[eng] I like cats.\nid# 74031\n\n", out)

	code, out, errOut = runCLI(t, "--db", path, "sentences", "--audio", "猫")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	assert.Empty(t, out)

	code, out, errOut = runCLI(t, "--db", path, "sentences", "C++")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	assert.Empty(t, out)

	code, _, errOut = runCLI(t, "--db", path, "sentences", "+w", "cats")
	assert.Equal(t, ExitCodeInvalidQuery, code)
	assert.Contains(t, errOut, "does not apply to text search")
}

func TestInvalidQuery(t *testing.T) {
	path := seedDB(t, isolate(t))

	code, _, errOut := runCLI(t, "--db", path, "words", "(")
	assert.Equal(t, ExitCodeInvalidQuery, code)
	assert.True(t, strings.HasPrefix(errOut, "jiten: "), errOut)

	code, _, _ = runCLI(t, "--db", path, "words", "+r口")
	assert.Equal(t, ExitCodeInvalidQuery, code)
}

func TestUnavailable(t *testing.T) {
	dir := isolate(t)

	code, out, errOut := runCLI(t, "--db", filepath.Join(dir, "missing.sqlite3"), "words", "猫")
	assert.Equal(t, ExitCodeUnavailable, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, unavailableMessage)
}

func TestFlagParseError(t *testing.T) {
	path := seedDB(t, isolate(t))

	code, _, errOut := runCLI(t, "--db", path, "words", "--bogus", "猫")
	assert.Equal(t, ExitCodeFlagParseError, code)
	assert.Contains(t, errOut, "parsing flags")
}

func TestInvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("JITEN_WORKERS", "0")

	code, _, errOut := runCLI(t, "words", "猫")
	assert.Equal(t, ExitCodeUnknownError, code)
	assert.Contains(t, errOut, "workers")
}

func TestSetup(t *testing.T) {
	dir := isolate(t)
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	jmdict := write("jmdict.json", `{"words": [
	  {"id": "1467640", "kanji": [{"common": true, "text": "猫"}], "kana": [{"common": true, "text": "ねこ", "appliesToKanji": ["*"]}],
	   "sense": [{"partOfSpeech": ["n"], "gloss": [{"lang": "eng", "text": "cat"}]}]}
	]}`)
	sentences := write("sentences.tsv", "74031\t猫が好きです。\tI like cats.\t-\t-\t-\n")
	ranks := write("freq.tsv", "猫\t12\n")
	path := filepath.Join(dir, "built.sqlite3")

	code, out, errOut := runCLI(t, "--db", path, "setup",
		"--data-dir", filepath.Join(dir, "nothing-here"),
		"--jmdict", jmdict, "--sentences", sentences, "--freq", ranks)
	require.Equal(t, ExitCodeSuccess, code, errOut)
	assert.Equal(t, path+": 1 entries, 0 kanji, 1 sentences, 1 ranked words, 0 leveled words\n", out)

	code, out, errOut = runCLI(t, "--db", path, "-v", "words", "+= cat")
	require.Equal(t, ExitCodeSuccess, code, errOut)
	assert.Contains(t, out, "seq# 1467640, freq# 1\n")
}
