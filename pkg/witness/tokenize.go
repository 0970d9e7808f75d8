// Package witness splits resolved transcription text into tokens for
// collation.
package witness

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/scriptorium/pkg/search"
	"github.com/kittclouds/scriptorium/pkg/stream"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// Kind classifies a token.
type Kind string

const (
	KindWord        Kind = "word"
	KindWhitespace  Kind = "whitespace"
	KindPunctuation Kind = "punctuation"
	KindIllegible   Kind = "illegible"
)

// Token is a run of rendered text with the items it came from.
// Start and End are byte offsets into Witness.Text.
type Token struct {
	Text     string  `json:"t"`
	Kind     Kind    `json:"kind"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	ItemIDs  []int64 `json:"itemIds"`
	Stopword bool    `json:"stopword,omitempty"`
}

// Witness is the tokenized text of a stream.
type Witness struct {
	Text   string  `json:"text"`
	Tokens []Token `json:"tokens"`
}

// Words returns only the word and illegible tokens.
func (w *Witness) Words() []Token {
	out := make([]Token, 0, len(w.Tokens))
	for _, t := range w.Tokens {
		if t.Kind == KindWord || t.Kind == KindIllegible {
			out = append(out, t)
		}
	}
	return out
}

// Tokenizer turns streams into witnesses.
type Tokenizer struct {
	glyph     string
	stopwords *stopwords.Stopwords
}

// NewTokenizer creates a tokenizer. An empty stopword language disables
// stopword flagging; an empty glyph selects the default.
func NewTokenizer(stopwordLang, glyph string) (*Tokenizer, error) {
	t := &Tokenizer{glyph: glyph}
	if t.glyph == "" {
		t.glyph = transcription.DefaultIllegibleGlyph
	}
	if stopwordLang != "" {
		sw, err := search.Stopwords(stopwordLang)
		if err != nil {
			return nil, err
		}
		t.stopwords = sw
	}
	return t, nil
}

// Tokenize renders s and splits the text into tokens. Each illegible span
// becomes one token. Words on either side of a no-word-break mark are
// joined into one token; whitespace between them is dropped from its text.
func (t *Tokenizer) Tokenize(s *stream.Stream) *Witness {
	text, spans := stream.Render(s, t.glyph)
	w := &Witness{Text: text, Tokens: []Token{}}

	illegible := make(map[int]int) // start -> end
	var joins []int
	for _, sp := range spans {
		switch sp.Type {
		case transcription.ItemIllegible:
			if sp.End > sp.Start {
				illegible[sp.Start] = sp.End
			}
		case transcription.ItemNoWordBreak:
			joins = append(joins, sp.Start)
		}
	}

	var tokens []Token
	for i := 0; i < len(text); {
		if end, ok := illegible[i]; ok {
			tokens = append(tokens, Token{Kind: KindIllegible, Start: i, End: end})
			i = end
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		kind := classify(r)
		j := i + size
		for j < len(text) {
			if _, ok := illegible[j]; ok {
				break
			}
			next, n := utf8.DecodeRuneInString(text[j:])
			if classify(next) != kind || kind == KindPunctuation {
				break
			}
			j += n
		}
		tokens = append(tokens, Token{Kind: kind, Start: i, End: j})
		i = j
	}

	tokens = join(tokens, joins)
	for i := range tokens {
		tok := &tokens[i]
		tok.Text = text[tok.Start:tok.End]
		if tok.Kind == KindWord {
			tok.Text = strings.Join(strings.Fields(tok.Text), "")
		}
		tok.ItemIDs = itemsIn(spans, tok.Start, tok.End)
		if tok.Kind == KindWord && t.stopwords != nil {
			tok.Stopword = t.stopwords.Contains(strings.ToLower(tok.Text))
		}
	}
	w.Tokens = append(w.Tokens, tokens...)
	return w
}

func classify(r rune) Kind {
	switch {
	case unicode.IsSpace(r):
		return KindWhitespace
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
		return KindWord
	default:
		return KindPunctuation
	}
}

// join merges the word before each join offset with the word after it,
// swallowing whitespace in between.
func join(tokens []Token, offsets []int) []Token {
	for _, off := range offsets {
		left := -1
		for i, tok := range tokens {
			if tok.End <= off && tok.Kind == KindWord {
				left = i
			}
			if tok.Start >= off {
				break
			}
		}
		if left < 0 {
			continue
		}
		right := left + 1
		for right < len(tokens) && tokens[right].Kind == KindWhitespace {
			right++
		}
		if right >= len(tokens) || tokens[right].Kind != KindWord || tokens[right].Start < off {
			continue
		}
		merged := tokens[left]
		merged.End = tokens[right].End
		tokens = append(tokens[:left], append([]Token{merged}, tokens[right+1:]...)...)
	}
	return tokens
}

// itemsIn returns the items whose spans overlap [start, end). Empty spans
// count when they fall inside the range.
func itemsIn(spans []stream.Span, start, end int) []int64 {
	var ids []int64
	for _, sp := range spans {
		overlaps := sp.Start < end && sp.End > start
		inside := sp.Start == sp.End && sp.Start > start && sp.Start < end
		if overlaps || inside {
			ids = append(ids, sp.ItemID)
		}
	}
	return ids
}
