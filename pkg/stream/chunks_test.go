package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

func mark(kind string, segment, pageSeq, itemSeq int) *transcription.ChunkMark {
	return &transcription.ChunkMark{
		PageSeq: pageSeq, ColumnNumber: 1, ItemSeq: itemSeq,
		Kind: kind, WorkID: "AW47", Chunk: 3, LocalWitnessID: "A", Segment: segment,
	}
}

func reasons(s *Segment) []transcription.IntegrityReason {
	out := make([]transcription.IntegrityReason, len(s.Warnings))
	for i, w := range s.Warnings {
		out[i] = w.Reason
	}
	return out
}

func TestPairChunkMarks(t *testing.T) {
	tests := []struct {
		name    string
		marks   []*transcription.ChunkMark
		valid   []bool
		reasons [][]transcription.IntegrityReason
	}{
		{
			name:    "valid pair",
			marks:   []*transcription.ChunkMark{mark(transcription.ChunkStart, 1, 1, 10), mark(transcription.ChunkEnd, 1, 1, 20)},
			valid:   []bool{true},
			reasons: [][]transcription.IntegrityReason{{}},
		},
		{
			name: "early end",
			marks: []*transcription.ChunkMark{
				mark(transcription.ChunkStart, 1, 1, 10),
				mark(transcription.ChunkEnd, 1, 1, 20),
				mark(transcription.ChunkEnd, 1, 1, 5),
			},
			valid: []bool{false},
			reasons: [][]transcription.IntegrityReason{{
				transcription.ReasonDuplicateEnd, transcription.ReasonStartAfterEnd,
			}},
		},
		{
			name: "two segments",
			marks: []*transcription.ChunkMark{
				mark(transcription.ChunkStart, 2, 2, 0),
				mark(transcription.ChunkStart, 1, 1, 0),
				mark(transcription.ChunkEnd, 1, 1, 4),
			},
			valid: []bool{true, false},
			reasons: [][]transcription.IntegrityReason{
				{},
				{transcription.ReasonMissingEnd},
			},
		},
		{
			name: "duplicate start and missing end",
			marks: []*transcription.ChunkMark{
				mark(transcription.ChunkStart, 1, 1, 1),
				mark(transcription.ChunkStart, 1, 1, 2),
			},
			valid: []bool{false},
			reasons: [][]transcription.IntegrityReason{{
				transcription.ReasonDuplicateStart, transcription.ReasonMissingEnd,
			}},
		},
		{
			name:    "lone end",
			marks:   []*transcription.ChunkMark{mark(transcription.ChunkEnd, 1, 1, 1)},
			valid:   []bool{false},
			reasons: [][]transcription.IntegrityReason{{transcription.ReasonMissingStart}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := PairChunkMarks(tt.marks)
			require.Len(t, segments, len(tt.valid))
			for i, seg := range segments {
				assert.Equal(t, i+1, seg.Number)
				assert.Equal(t, tt.valid[i], seg.Valid)
				assert.Equal(t, tt.reasons[i], reasons(seg))
			}
		})
	}
}

func TestPairChunkMarksKeepsEarliest(t *testing.T) {
	late := mark(transcription.ChunkStart, 0, 2, 0)
	early := mark(transcription.ChunkStart, 0, 1, 3)
	end := mark(transcription.ChunkEnd, 0, 3, 0)

	segments := PairChunkMarks([]*transcription.ChunkMark{late, end, early})
	require.Len(t, segments, 1)
	seg := segments[0]
	assert.Equal(t, 1, seg.Number)
	assert.Equal(t, 1, seg.Start.PageSeq)
	assert.Equal(t, "1", seg.Start.Foliation)
	assert.Equal(t, "Duplicate start location found", seg.Warnings[0].Message)

	assert.Equal(t, 0, late.Segment, "input marks are not modified")
}

func TestChunkLocations(t *testing.T) {
	f := newFixture(t)
	p1 := f.page(t, 1, 2, "1r")
	p2 := f.page(t, 2, 2, "")
	p3 := f.page(t, 3, 1, "2r")

	f.save(t, p1, 1, f.line(transcription.NewText("before")))
	f.save(t, p1, 2, f.line(
		transcription.NewText("x"),
		transcription.NewChunkMark("AW47", 3, transcription.ChunkStart, "A", 0),
	))
	f.save(t, p2, 1, f.line(transcription.NewText("middle")))
	f.save(t, p3, 1, f.line(
		transcription.NewChunkMark("AW47", 3, transcription.ChunkEnd, "A", 0),
		transcription.NewChunkMark("AW47", 3, transcription.ChunkStart, "A", 2),
		transcription.NewChunkMark("AW47", 4, transcription.ChunkEnd, "A", 1),
	))

	segments, err := f.resolver.ChunkLocations(f.docID, "AW47", 3, "A", t2)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	one := segments[0]
	assert.True(t, one.Valid)
	assert.Equal(t, []ColumnSpan{
		{PageID: p1, Foliation: "1r", Column: 2},
		{PageID: p2, Foliation: "2", Column: 1},
		{PageID: p2, Foliation: "2", Column: 2},
		{PageID: p3, Foliation: "2r", Column: 1},
	}, one.Columns)

	two := segments[1]
	assert.False(t, two.Valid)
	assert.Equal(t, []transcription.IntegrityReason{transcription.ReasonMissingEnd}, reasons(two))
	assert.Empty(t, two.Columns)

	loneEnd, err := f.resolver.ChunkLocations(f.docID, "AW47", 4, "A", t2)
	require.NoError(t, err)
	require.Len(t, loneEnd, 1)
	assert.False(t, loneEnd[0].Valid)

	none, err := f.resolver.ChunkLocations(f.docID, "other", 1, "A", t2)
	require.NoError(t, err)
	assert.Empty(t, none)
}
