package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/scriptorium/pkg/docstore"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  In Principio,  ERAT verbum. ", "in principio erat verbum."},
		{"sub–diaconus", "sub-diaconus"},
		{"ne’er", "ne'er"},
		{"!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonicalize(tt.in), tt.in)
	}
}

func TestCompileDropsStopwordsAndShortTerms(t *testing.T) {
	d, err := Compile([]string{"the", "x", "Verbum", "verbum", "sancti spiritus"}, Options{StopwordLanguage: "en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"verbum", "sancti spiritus"}, d.Terms())
	assert.Equal(t, []string{"the", "x"}, d.Dropped)

	for _, lang := range []string{"no-such-language", "zz", "x"} {
		_, err = Compile([]string{"verbum"}, Options{StopwordLanguage: lang})
		assert.Error(t, err, lang)
	}
}

func TestScan(t *testing.T) {
	d, err := Compile([]string{"spiritus", "sancti spiritus", "in"}, Options{})
	require.NoError(t, err)

	text := "Et in Sancti  Spiritus; inter"
	matches := d.Scan(text)
	require.Len(t, matches, 2)

	assert.Equal(t, "in", matches[0].Term)
	assert.Equal(t, "in", text[matches[0].Start:matches[0].End])

	assert.Equal(t, "sancti spiritus", matches[1].Term)
	assert.Equal(t, "Sancti  Spiritus", matches[1].MatchedText)
}

func TestScanEmptyDictionary(t *testing.T) {
	d, err := Compile(nil, Options{StopwordLanguage: "en"})
	require.NoError(t, err)
	assert.Nil(t, d.Scan("anything"))
}

func TestSearch(t *testing.T) {
	store := docstore.New()
	store.Upsert(&docstore.Document{ID: docstore.Key(1, 2, 1), DocID: 1, PageSeq: 2, Column: 1, Text: "gloria patri"})
	store.Upsert(&docstore.Document{ID: docstore.Key(1, 1, 1), DocID: 1, PageSeq: 1, Column: 1, Text: "Gloria in excelsis"})

	d, err := Compile([]string{"gloria"}, Options{StopwordLanguage: "en", MinTermLength: 3})
	require.NoError(t, err)

	hits := Search(store, d)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].PageSeq)
	assert.Equal(t, "Gloria", hits[0].MatchedText)
	assert.Equal(t, "1:2:1", hits[1].DocumentID)
}
