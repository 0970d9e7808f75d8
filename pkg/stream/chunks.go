package stream

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// Segment is one paired segment of a chunk. A segment is valid when it has
// exactly one start, exactly one end, and the start comes first.
type Segment struct {
	Number   int                              `json:"segment"`
	Valid    bool                             `json:"valid"`
	Start    *transcription.ChunkMark         `json:"start,omitempty"`
	End      *transcription.ChunkMark         `json:"end,omitempty"`
	Warnings []transcription.IntegrityWarning `json:"warnings"`

	// Columns lists the page columns a valid segment spans. Only
	// ChunkLocations fills it in.
	Columns []ColumnSpan `json:"columns,omitempty"`
}

// ColumnSpan is one page column covered by a chunk segment.
type ColumnSpan struct {
	PageID    int64  `json:"pageId"`
	Foliation string `json:"foliation"`
	Column    int    `json:"column"`
}

func (s *Segment) fail(reason transcription.IntegrityReason, format string, args ...any) {
	s.Valid = false
	s.Warnings = append(s.Warnings, transcription.IntegrityWarning{
		Segment: s.Number,
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	})
}

// PairChunkMarks groups raw chunk marks by segment and checks each group.
// Marks are taken in document order, so of two marks of the same kind the
// earlier one is kept. Every check runs, so an invalid segment may carry
// several warnings. Segments are returned by ascending number.
func PairChunkMarks(marks []*transcription.ChunkMark) []*Segment {
	sorted := make([]*transcription.ChunkMark, 0, len(marks))
	for _, m := range marks {
		c := *m
		if c.Segment <= 0 {
			c.Segment = 1
		}
		if c.Foliation == "" {
			c.Foliation = strconv.Itoa(c.PageSeq)
		}
		sorted = append(sorted, &c)
	}
	slices.SortStableFunc(sorted, func(a, b *transcription.ChunkMark) int {
		return a.Location().Compare(b.Location())
	})

	bySegment := make(map[int]*Segment)
	for _, m := range sorted {
		seg, ok := bySegment[m.Segment]
		if !ok {
			seg = &Segment{Number: m.Segment, Valid: true, Warnings: []transcription.IntegrityWarning{}}
			bySegment[m.Segment] = seg
		}
		switch m.Kind {
		case transcription.ChunkStart:
			if seg.Start != nil {
				seg.fail(transcription.ReasonDuplicateStart, "Duplicate start location found")
				continue
			}
			seg.Start = m
		case transcription.ChunkEnd:
			if seg.End != nil {
				seg.fail(transcription.ReasonDuplicateEnd, "Duplicate end location found")
				continue
			}
			seg.End = m
		}
	}

	segments := make([]*Segment, 0, len(bySegment))
	for _, seg := range bySegment {
		if seg.Start == nil {
			seg.fail(transcription.ReasonMissingStart, "No chunk segment start found for segment %d", seg.Number)
		}
		if seg.End == nil {
			seg.fail(transcription.ReasonMissingEnd, "No chunk segment end found for segment %d", seg.Number)
		}
		if seg.Start != nil && seg.End != nil && seg.Start.Location().After(seg.End.Location()) {
			seg.fail(transcription.ReasonStartAfterEnd, "Chunk segment start is after chunk end in segment %d", seg.Number)
		}
		segments = append(segments, seg)
	}
	slices.SortFunc(segments, func(a, b *Segment) int { return a.Number - b.Number })
	return segments
}

// ChunkLocations pairs the chunk marks of a work chunk in a document and
// lists the page columns each valid segment covers.
func (r *Resolver) ChunkLocations(docID int64, workID string, chunk int, localWitnessID string, at time.Time) ([]*Segment, error) {
	instant := transcription.Instant(at)
	marks, err := r.store.ListChunkMarks(docID, workID, chunk, localWitnessID, instant)
	if err != nil {
		return nil, transcription.Storage("list chunk marks", err)
	}

	segments := PairChunkMarks(marks)
	for _, seg := range segments {
		for _, w := range seg.Warnings {
			r.log.Warn().
				Int64("doc_id", docID).
				Str("work_id", workID).
				Int("chunk", chunk).
				Int("segment", w.Segment).
				Str("reason", string(w.Reason)).
				Msg(w.Message)
		}
		if !seg.Valid {
			continue
		}
		cols, err := r.segmentColumns(docID, seg, instant)
		if err != nil {
			return nil, err
		}
		seg.Columns = cols
	}
	return segments, nil
}

// segmentColumns walks the pages from a segment's start to its end.
func (r *Resolver) segmentColumns(docID int64, seg *Segment, at int64) ([]ColumnSpan, error) {
	startSeq, endSeq := seg.Start.PageSeq, seg.End.PageSeq
	startCol, endCol := seg.Start.ColumnNumber, seg.End.ColumnNumber

	var cols []ColumnSpan
	for seq := startSeq; seq <= endSeq; seq++ {
		page, err := r.store.GetPageBySeq(docID, seq, at)
		if err != nil {
			return nil, transcription.Storage("get page", err)
		}
		if page == nil {
			r.log.Warn().Int64("doc_id", docID).Int("page_seq", seq).Msg("page missing inside chunk segment")
			continue
		}
		foliation := page.Foliation
		if foliation == "" {
			foliation = strconv.Itoa(page.Seq)
		}

		first, last := 1, page.NumColumns
		if seq == startSeq {
			first = startCol
		}
		if seq == endSeq {
			last = endCol
		}
		for c := first; c <= last; c++ {
			cols = append(cols, ColumnSpan{PageID: page.ID, Foliation: foliation, Column: c})
		}
	}
	return cols, nil
}
