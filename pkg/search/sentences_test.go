package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/jiten/pkg/db"
	"github.com/japaniel/jiten/pkg/query"
)

var sentenceFixture = []db.Sentence{
	{ID: 74031, Jap: "猫が好きです。", Translations: map[string]string{"eng": "I like cats.", "ger": "Ich mag Katzen."}, Audio: "74031.mp3"},
	{ID: 74032, Jap: "犬が好きです。", Translations: map[string]string{"eng": "I like dogs."}},
	{ID: 80110, Jap: "猫を飼っている。", Translations: map[string]string{"dut": "Ik heb een kat."}},
}

func sentenceIDs(ss []db.Sentence) []int64 {
	out := make([]int64, len(ss))
	for i, s := range ss {
		out[i] = s.ID
	}
	return out
}

func TestSentences(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	tests := []struct {
		raw  string
		opts query.Options
		want []int64
	}{
		{"猫", query.Options{Langs: []string{"dut"}}, []int64{80110}},
		{"好き", query.Options{}, []int64{74031, 74032}},
		{"好き", query.Options{Max: 1}, []int64{74031}},
		{"LIKE", query.Options{}, []int64{74031, 74032}},
		{"katzen", query.Options{Langs: []string{"ger"}}, []int64{74031}},
		{"好き", query.Options{Filters: query.Filters{Audio: true}}, []int64{74031}},
		{"+#80110", query.Options{}, []int64{80110}},
		{"+#1", query.Options{}, []int64{}},
		{"+random", query.Options{Filters: query.Filters{Audio: true}}, []int64{74031}},
		{"", query.Options{}, []int64{}},
		{"C++", query.Options{}, []int64{}},
		{"?", query.Options{}, []int64{}},
		{"cats.", query.Options{}, []int64{74031}},
		{"like c", query.Options{}, []int64{74031}},
		{"+~ like", query.Options{}, []int64{74031, 74032}},
		{"100%", query.Options{}, []int64{}},
	}
	for _, tt := range tests {
		ss, err := e.Sentences(ctx, tt.raw, tt.opts)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, sentenceIDs(ss), "query %q", tt.raw)
	}

	_, err := e.Sentences(ctx, "+s1-2-3", query.Options{})
	assert.True(t, errors.Is(err, query.ErrInvalidQuery))
}

func TestSentencesRejectAnchors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for _, raw := range []string{"+w lik", "+= like", "+1 like"} {
		_, err := e.Sentences(ctx, raw, query.Options{})
		assert.True(t, errors.Is(err, query.ErrInvalidQuery), "query %q: %v", raw, err)
	}
	for _, opts := range []query.Options{{Word: true}, {Exact: true}, {FirstWord: true}} {
		_, err := e.Sentences(ctx, "lik", opts)
		assert.True(t, errors.Is(err, query.ErrInvalidQuery), "options %+v: %v", opts, err)
	}
}
