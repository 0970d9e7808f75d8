// Package ednotes maintains editorial notes on items and elements.
// Notes are plain mutable rows with no history.
package ednotes

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// Store is the note persistence the service works through.
type Store interface {
	EditorExists(id int64) (bool, error)
	CreateNote(note *transcription.EditorialNote) (int64, error)
	UpdateNote(note *transcription.EditorialNote) error
	GetNote(id int64) (*transcription.EditorialNote, error)
	ListNotesForTarget(noteType transcription.NoteType, target int64) ([]*transcription.EditorialNote, error)
	ListNotesForTargets(noteType transcription.NoteType, targets []int64) ([]*transcription.EditorialNote, error)
}

// Service updates and reads editorial notes.
type Service struct {
	store     Store
	log       zerolog.Logger
	validator *transcription.Validator
}

// NewService creates a note service. A nil validator accepts the default
// languages.
func NewService(st Store, v *transcription.Validator, log zerolog.Logger) *Service {
	if v == nil {
		v = transcription.NewValidator(nil)
	}
	return &Service{store: st, log: log, validator: v}
}

// Result reports what UpdateNotes wrote. IDs holds the stored id of each
// input note by position, including notes skipped as duplicates.
type Result struct {
	Inserted int     `json:"inserted"`
	Updated  int     `json:"updated"`
	Skipped  int     `json:"skipped"`
	IDs      []int64 `json:"ids"`
}

type groupKey struct {
	typ    transcription.NoteType
	target int64
}

// UpdateNotes saves a batch of notes stamped with at. A note whose id
// exists is overwritten in place. Any other note is inserted unless an
// equal note already exists for its target. The batch is validated in full
// before anything is written.
func (s *Service) UpdateNotes(notes []*transcription.EditorialNote, at time.Time) (*Result, error) {
	authors := make(map[int64]bool)
	for i, n := range notes {
		if n == nil {
			return nil, transcription.Invalid("notes", i, "note %d is nil", i)
		}
		if err := s.validator.Struct(n); err != nil {
			return nil, err
		}
		if authors[n.AuthorID] {
			continue
		}
		ok, err := s.store.EditorExists(n.AuthorID)
		if err != nil {
			return nil, transcription.Storage("lookup editor", err)
		}
		if !ok {
			return nil, transcription.Invalid("authorId", n.AuthorID, "editor %d not found", n.AuthorID)
		}
		authors[n.AuthorID] = true
	}

	instant := transcription.Instant(at)
	res := &Result{IDs: make([]int64, len(notes))}
	existing := make(map[groupKey][]*transcription.EditorialNote)

	for i, in := range notes {
		n := *in
		n.Time = instant
		key := groupKey{n.Type, n.Target}

		group, loaded := existing[key]
		if !loaded {
			var err error
			group, err = s.store.ListNotesForTarget(n.Type, n.Target)
			if err != nil {
				return nil, transcription.Storage("list notes", err)
			}
			existing[key] = group
		}

		if n.ID != 0 {
			cur, err := s.store.GetNote(n.ID)
			if err != nil {
				return nil, transcription.Storage("get note", err)
			}
			if cur != nil {
				if err := s.store.UpdateNote(&n); err != nil {
					return nil, transcription.Storage("update note", err)
				}
				res.IDs[i] = n.ID
				res.Updated++
				continue
			}
			s.log.Debug().Int64("note_id", n.ID).Msg("unknown note id, inserting")
			n.ID = 0
		}

		if dup := findEqual(group, &n); dup != nil {
			res.IDs[i] = dup.ID
			res.Skipped++
			continue
		}
		if _, err := s.store.CreateNote(&n); err != nil {
			return nil, transcription.Storage("create note", err)
		}
		existing[key] = append(group, &n)
		res.IDs[i] = n.ID
		res.Inserted++
	}

	s.log.Info().
		Int("inserted", res.Inserted).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Msg("notes updated")
	return res, nil
}

func findEqual(group []*transcription.EditorialNote, n *transcription.EditorialNote) *transcription.EditorialNote {
	for _, g := range group {
		if g.SameContent(n) {
			return g
		}
	}
	return nil
}

// NotesForTarget returns the notes of one item (INLINE) or element (OFFLINE).
func (s *Service) NotesForTarget(noteType transcription.NoteType, target int64) ([]*transcription.EditorialNote, error) {
	notes, err := s.store.ListNotesForTarget(noteType, target)
	if err != nil {
		return nil, transcription.Storage("list notes", err)
	}
	return notes, nil
}

// NotesForElements returns the OFFLINE notes of the given elements keyed by
// element id. Elements without notes are absent from the map.
func (s *Service) NotesForElements(ids []int64) (map[int64][]*transcription.EditorialNote, error) {
	notes, err := s.store.ListNotesForTargets(transcription.NoteOffline, ids)
	if err != nil {
		return nil, transcription.Storage("list notes", err)
	}
	out := make(map[int64][]*transcription.EditorialNote)
	for _, n := range notes {
		out[n.Target] = append(out[n.Target], n)
	}
	return out, nil
}
