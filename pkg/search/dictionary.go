// Package search finds query terms in rendered column text with a single
// Aho-Corasick automaton.
package search

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/scriptorium/pkg/docstore"
)

// DefaultMinTermLength is the shortest term, in runes, a dictionary keeps
// unless told otherwise.
const DefaultMinTermLength = 2

// Options controls which query terms a dictionary keeps.
type Options struct {
	// StopwordLanguage selects the stopword list. Empty disables filtering.
	StopwordLanguage string
	MinTermLength    int
}

// isJoiner reports punctuation kept inside words, as in "ne'er" or "sub-diaconus".
func isJoiner(r rune) bool {
	switch r {
	case '\'', '’', '‘', '-', '–', '—', '·', '.':
		return true
	default:
		return false
	}
}

// fold lowercases r and maps apostrophe and dash variants to ASCII.
func fold(r rune) rune {
	c := unicode.ToLower(r)
	switch c {
	case '’', '‘':
		return '\''
	case '–', '—':
		return '-'
	}
	return c
}

func keep(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c)
}

// Canonicalize folds text for matching. Letters, digits and joiners are
// kept lowercased; every run of anything else becomes one space. The same
// function is applied to terms and to scanned text.
func Canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true
	for _, ch := range s {
		c := fold(ch)
		if keep(c) {
			out.WriteRune(c)
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteByte(' ')
			lastWasSpace = true
		}
	}

	result := out.String()
	return strings.TrimSuffix(result, " ")
}

// offsetMap maps each byte of Canonicalize(original) to the byte offset
// it came from, plus one final entry for the end of the string.
func offsetMap(original string) []int {
	mapping := make([]int, 0, len(original)+1)

	lastWasSpace := true
	origPos := 0
	for _, ch := range original {
		c := fold(ch)
		if keep(c) {
			for range utf8.RuneLen(c) {
				mapping = append(mapping, origPos)
			}
			lastWasSpace = false
		} else if !lastWasSpace {
			mapping = append(mapping, origPos)
			lastWasSpace = true
		}
		origPos += utf8.RuneLen(ch)
	}
	mapping = append(mapping, origPos)
	return mapping
}

func mapOffset(canonOffset int, mapping []int, originalLen int) int {
	if canonOffset >= len(mapping) {
		return originalLen
	}
	if canonOffset < 0 {
		return 0
	}
	return mapping[canonOffset]
}

// Dictionary is a compiled set of search terms.
type Dictionary struct {
	ac    *ahocorasick.Automaton
	terms []string

	// Dropped lists the terms left out as stopwords or as too short.
	Dropped []string
}

// Compile builds a dictionary from query terms. Terms that canonicalize
// to a stopword, or to fewer than opts.MinTermLength runes, are dropped.
func Compile(terms []string, opts Options) (*Dictionary, error) {
	var sw *stopwords.Stopwords
	if opts.StopwordLanguage != "" {
		var err error
		if sw, err = Stopwords(opts.StopwordLanguage); err != nil {
			return nil, err
		}
	}
	minLen := opts.MinTermLength
	if minLen <= 0 {
		minLen = DefaultMinTermLength
	}

	d := &Dictionary{}
	seen := make(map[string]bool)
	for _, term := range terms {
		key := Canonicalize(term)
		switch {
		case utf8.RuneCountInString(key) < minLen, sw != nil && sw.Contains(key):
			d.Dropped = append(d.Dropped, term)
			continue
		case seen[key]:
			continue
		}
		seen[key] = true
		d.terms = append(d.terms, key)
	}
	if len(d.terms) == 0 {
		return d, nil
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(d.terms).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build automaton: %w", err)
	}
	d.ac = automaton
	return d, nil
}

// Stopwords returns the stopword list of a two-letter language code.
func Stopwords(lang string) (*stopwords.Stopwords, error) {
	if len(lang) != 2 || lang != strings.ToLower(lang) {
		return nil, fmt.Errorf("stopwords %q: not a two-letter language code", lang)
	}
	sw := stopwords.Get(lang)
	if sw == nil {
		return nil, fmt.Errorf("stopwords %q: unknown language", lang)
	}
	return sw, nil
}

// Terms returns the canonical terms the dictionary matches.
func (d *Dictionary) Terms() []string {
	return slices.Clone(d.terms)
}

// Match is a term occurrence in scanned text.
type Match struct {
	Start       int    `json:"start"` // byte offset in the original text
	End         int    `json:"end"`   // exclusive
	Term        string `json:"term"`
	MatchedText string `json:"matchedText"`
}

// Scan finds whole-word occurrences of the dictionary's terms in text.
// Overlapping occurrences are settled leftmost first, then longest.
func (d *Dictionary) Scan(text string) []Match {
	if d.ac == nil {
		return nil
	}

	canonical := Canonicalize(text)
	haystack := []byte(canonical)
	mapping := offsetMap(text)

	var found []span
	for _, m := range d.ac.FindAllOverlapping(haystack) {
		found = append(found, span{start: m.Start, end: m.End, pattern: m.PatternID})
	}
	slices.SortFunc(found, func(a, b span) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return (b.end - b.start) - (a.end - a.start)
	})

	result := make([]Match, 0, len(found))
	covered := 0
	for _, m := range found {
		if m.start < covered || !wordBounded(haystack, m.start, m.end) {
			continue
		}
		start := mapOffset(m.start, mapping, len(text))
		end := mapOffset(m.end, mapping, len(text))
		if start >= len(text) || end > len(text) || start >= end {
			continue
		}
		covered = m.end
		result = append(result, Match{
			Start:       start,
			End:         end,
			Term:        d.terms[m.pattern],
			MatchedText: text[start:end],
		})
	}
	return result
}

// span is an automaton match in canonical byte offsets.
type span struct {
	start, end, pattern int
}

func wordBounded(haystack []byte, start, end int) bool {
	return (start == 0 || haystack[start-1] == ' ') && (end == len(haystack) || haystack[end] == ' ')
}

// Hit is a match inside a cached column.
type Hit struct {
	Match
	DocumentID string `json:"documentId"`
	DocID      int64  `json:"docId"`
	PageSeq    int    `json:"pageSeq"`
	Column     int    `json:"column"`
}

// Search scans every cached column in document order.
func Search(store *docstore.Store, dict *Dictionary) []Hit {
	var hits []Hit
	for _, doc := range store.All() {
		for _, m := range dict.Scan(doc.Text) {
			hits = append(hits, Hit{
				Match:      m,
				DocumentID: doc.ID,
				DocID:      doc.DocID,
				PageSeq:    doc.PageSeq,
				Column:     doc.Column,
			})
		}
	}
	return hits
}
