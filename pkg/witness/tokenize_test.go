package witness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/scriptorium/pkg/stream"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

func lineItem(id, elementID int64, it *transcription.Item) *transcription.StreamItem {
	it.ID = id
	it.ElementID = elementID
	return &transcription.StreamItem{Item: *it, ElementType: transcription.ElementLine}
}

func TestTokenize(t *testing.T) {
	s := &stream.Stream{Items: []*transcription.StreamItem{
		lineItem(1, 10, transcription.NewText("the ver")),
		lineItem(2, 10, transcription.NewNoWordBreak()),
		lineItem(3, 11, transcription.NewText(" bum est,")),
		lineItem(4, 12, transcription.NewText("pax")),
		lineItem(5, 12, transcription.NewIllegible(2, transcription.ReasonIllegible)),
	}}

	tok, err := NewTokenizer("en", "?")
	require.NoError(t, err)
	w := tok.Tokenize(s)

	assert.Equal(t, "the ver bum est,\npax??", w.Text)

	var texts []string
	var kinds []Kind
	for _, tk := range w.Tokens {
		texts = append(texts, tk.Text)
		kinds = append(kinds, tk.Kind)
	}
	assert.Equal(t, []string{"the", " ", "verbum", " ", "est", ",", "\n", "pax", "??"}, texts)
	assert.Equal(t, []Kind{
		KindWord, KindWhitespace, KindWord, KindWhitespace, KindWord,
		KindPunctuation, KindWhitespace, KindWord, KindIllegible,
	}, kinds)

	assert.True(t, w.Tokens[0].Stopword)
	assert.False(t, w.Tokens[2].Stopword)
	assert.Equal(t, []int64{1, 2, 3}, w.Tokens[2].ItemIDs)
	assert.Equal(t, 4, w.Tokens[2].Start)
	assert.Equal(t, 11, w.Tokens[2].End)
	assert.Equal(t, []int64{5}, w.Tokens[8].ItemIDs)

	words := w.Words()
	require.Len(t, words, 5)
	assert.Equal(t, "??", words[4].Text)
}

func TestTokenizeSkipsSupersededAnchors(t *testing.T) {
	del := lineItem(1, 10, transcription.NewDeletion("olim", "strikeout"))
	del.Superseded = true
	add := lineItem(2, 10, transcription.NewAddition("nunc", "above", 1))
	add.Spliced = true

	tok, err := NewTokenizer("", "")
	require.NoError(t, err)
	w := tok.Tokenize(&stream.Stream{Items: []*transcription.StreamItem{del, add}})

	require.Len(t, w.Tokens, 1)
	assert.Equal(t, "nunc", w.Tokens[0].Text)
	assert.Equal(t, []int64{2}, w.Tokens[0].ItemIDs)
	assert.False(t, w.Tokens[0].Stopword)
}

func TestTokenizeEmpty(t *testing.T) {
	tok, err := NewTokenizer("", "")
	require.NoError(t, err)
	w := tok.Tokenize(nil)
	assert.Empty(t, w.Text)
	assert.Empty(t, w.Tokens)
}

func TestNewTokenizerUnknownLanguage(t *testing.T) {
	for _, lang := range []string{"zz", "x", "english", "EN"} {
		_, err := NewTokenizer(lang, "")
		assert.Error(t, err, lang)
	}
}
