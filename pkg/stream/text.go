package stream

import (
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kittclouds/scriptorium/pkg/pool"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// PlainText renders the stream with the resolver's illegible glyph.
func (r *Resolver) PlainText(s *Stream) string {
	return PlainText(s, r.glyph)
}

// PlainText renders a stream as plain text.
//
// Superseded anchors contribute nothing; the material spliced after them
// is rendered instead. A spliced element is separated from preceding text
// by one space unless whitespace is already there. Main text lines are
// separated by newlines, except after a line ending in a no-word-break
// mark.
func PlainText(s *Stream, glyph string) string {
	text, _ := Render(s, glyph)
	return text
}

// Span is the byte range of the rendered text an item produced. Items that
// render nothing, such as no-word-break marks, get an empty span at their
// position. Superseded items get no span.
type Span struct {
	ItemID int64
	Type   transcription.ItemType
	Start  int
	End    int
}

// Render renders a stream like PlainText and also reports where each
// item's text landed.
func Render(s *Stream, glyph string) (string, []Span) {
	if s == nil {
		return "", nil
	}
	b := pool.GetBuilder()
	defer pool.PutBuilder(b)

	spans := make([]Span, 0, len(s.Items))
	var line int64
	var noBreak bool
	for _, si := range s.Items {
		if !si.Spliced && si.ElementType == transcription.ElementLine {
			if line != 0 && si.ElementID != line && !noBreak {
				b.WriteByte('\n')
			}
			line = si.ElementID
			noBreak = si.Type == transcription.ItemNoWordBreak
		}
		if si.Superseded {
			continue
		}

		text := si.PlainText(glyph)
		if si.SpliceStart && b.Len() > 0 && !endsInSpace(b.String()) && !startsWithSpace(text) {
			b.WriteByte(' ')
		}
		start := b.Len()
		b.WriteString(text)
		spans = append(spans, Span{ItemID: si.ID, Type: si.Type, Start: start, End: b.Len()})
	}
	return b.String(), spans
}

func endsInSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

func startsWithSpace(s string) bool {
	if s == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}

// ColumnText resolves and renders one page column.
func (r *Resolver) ColumnText(docID int64, pageSeq, column int, at time.Time) (string, error) {
	s, err := r.ResolveStream(docID, columnStart(pageSeq, column), columnStart(pageSeq, column+1), at)
	if err != nil {
		return "", err
	}
	return r.PlainText(s), nil
}

// columnStart is the exclusive lower bound of a column, which is also the
// exclusive upper bound of the column before it.
func columnStart(pageSeq, column int) transcription.Location {
	return transcription.Location{PageSeq: pageSeq, ColumnNumber: column, ElementSeq: -1, ItemSeq: -1}
}
