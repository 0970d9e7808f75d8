package ednotes

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/scriptorium/internal/store"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

var (
	t1 = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Minute)
)

func newService(t *testing.T) (*Service, int64) {
	t.Helper()
	st, err := store.NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	editorID, err := st.CreateEditor(&store.Editor{Username: "ed"})
	require.NoError(t, err)
	return NewService(st, nil, zerolog.Nop()), editorID
}

func note(typ transcription.NoteType, target, author int64, text string) *transcription.EditorialNote {
	return &transcription.EditorialNote{Type: typ, Target: target, AuthorID: author, Lang: "la", Text: text}
}

func TestUpdateNotes(t *testing.T) {
	s, ed := newService(t)

	res, err := s.UpdateNotes([]*transcription.EditorialNote{
		note(transcription.NoteInline, 10, ed, "dubious reading"),
		note(transcription.NoteInline, 10, ed, "dubious reading"),
		note(transcription.NoteOffline, 5, ed, "later hand"),
	}, t1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, res.IDs[0], res.IDs[1])

	again, err := s.UpdateNotes([]*transcription.EditorialNote{
		note(transcription.NoteInline, 10, ed, "dubious reading"),
	}, t2)
	require.NoError(t, err)
	assert.Zero(t, again.Inserted)
	assert.Equal(t, 1, again.Skipped)

	edited := note(transcription.NoteInline, 10, ed, "certain reading")
	edited.ID = res.IDs[0]
	upd, err := s.UpdateNotes([]*transcription.EditorialNote{edited}, t2)
	require.NoError(t, err)
	assert.Equal(t, 1, upd.Updated)

	inline, err := s.NotesForTarget(transcription.NoteInline, 10)
	require.NoError(t, err)
	require.Len(t, inline, 1)
	assert.Equal(t, "certain reading", inline[0].Text)
	assert.Equal(t, transcription.Instant(t2), inline[0].Time)

	unknown := note(transcription.NoteInline, 11, ed, "fresh")
	unknown.ID = 9999
	ins, err := s.UpdateNotes([]*transcription.EditorialNote{unknown}, t2)
	require.NoError(t, err)
	assert.Equal(t, 1, ins.Inserted)
	assert.NotEqual(t, int64(9999), ins.IDs[0])
}

func TestUpdateNotesValidation(t *testing.T) {
	s, ed := newService(t)

	tests := []struct {
		name string
		note *transcription.EditorialNote
	}{
		{"bad type", note(transcription.NoteType(7), 1, ed, "x")},
		{"no target", note(transcription.NoteInline, 0, ed, "x")},
		{"no text", note(transcription.NoteInline, 1, ed, "")},
		{"unknown author", note(transcription.NoteInline, 1, ed+100, "x")},
		{"bad language", &transcription.EditorialNote{Type: transcription.NoteInline, Target: 1, AuthorID: ed, Lang: "xx", Text: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpdateNotes([]*transcription.EditorialNote{
				note(transcription.NoteInline, 1, ed, "valid but never written"),
				tt.note,
			}, t1)
			assert.True(t, errors.Is(err, transcription.ErrInvalidInput), "got %v", err)
		})
	}

	notes, err := s.NotesForTarget(transcription.NoteInline, 1)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestNotesForElements(t *testing.T) {
	s, ed := newService(t)
	_, err := s.UpdateNotes([]*transcription.EditorialNote{
		note(transcription.NoteOffline, 1, ed, "a"),
		note(transcription.NoteOffline, 1, ed, "b"),
		note(transcription.NoteOffline, 2, ed, "c"),
		note(transcription.NoteInline, 1, ed, "item note"),
	}, t1)
	require.NoError(t, err)

	byElement, err := s.NotesForElements([]int64{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, byElement[1], 2)
	assert.Len(t, byElement[2], 1)
	assert.NotContains(t, byElement, int64(3))

	empty, err := s.NotesForElements(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
