package store

import (
	"database/sql"
	"fmt"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

const noteColumns = `id, type, target, lang, author_id, time, text`

// =============================================================================
// Editorial notes
// =============================================================================

// CreateNote inserts an editorial note and returns its id.
func (s *SQLiteStore) CreateNote(note *transcription.EditorialNote) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries.Create()
	res, err := s.db.Exec(`
		INSERT INTO ednotes (type, target, lang, author_id, time, text) VALUES (?, ?, ?, ?, ?, ?)
	`, int(note.Type), note.Target, note.Lang, note.AuthorID, note.Time, note.Text)
	if err != nil {
		return 0, fmt.Errorf("create note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	note.ID = id
	return id, nil
}

// UpdateNote overwrites an editorial note in place.
func (s *SQLiteStore) UpdateNote(note *transcription.EditorialNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries.Update()
	_, err := s.db.Exec(`
		UPDATE ednotes SET type = ?, target = ?, lang = ?, author_id = ?, time = ?, text = ?
		WHERE id = ?
	`, int(note.Type), note.Target, note.Lang, note.AuthorID, note.Time, note.Text, note.ID)
	if err != nil {
		return fmt.Errorf("update note %d: %w", note.ID, err)
	}
	return nil
}

// GetNote retrieves an editorial note by id.
func (s *SQLiteStore) GetNote(id int64) (*transcription.EditorialNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	n, err := scanNote(s.db.QueryRow(`SELECT `+noteColumns+` FROM ednotes WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return n, err
}

// ListNotesForTarget returns the notes attached to one target, oldest first.
func (s *SQLiteStore) ListNotesForTarget(noteType transcription.NoteType, target int64) ([]*transcription.EditorialNote, error) {
	return s.ListNotesForTargets(noteType, []int64{target})
}

// ListNotesForTargets returns the notes attached to any of the targets.
func (s *SQLiteStore) ListNotesForTargets(noteType transcription.NoteType, targets []int64) ([]*transcription.EditorialNote, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	args := []any{int(noteType)}
	for _, t := range targets {
		args = append(args, t)
	}

	s.queries.Select()
	rows, err := s.db.Query(`
		SELECT `+noteColumns+` FROM ednotes
		WHERE type = ? AND target IN (`+placeholders(len(targets))+`)
		ORDER BY target, time, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*transcription.EditorialNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func scanNote(r rowScanner) (*transcription.EditorialNote, error) {
	var n transcription.EditorialNote
	var typ int
	if err := r.Scan(&n.ID, &typ, &n.Target, &n.Lang, &n.AuthorID, &n.Time, &n.Text); err != nil {
		return nil, err
	}
	n.Type = transcription.NoteType(typ)
	return &n, nil
}

// =============================================================================
// Transcription versions
// =============================================================================

// RecordTranscriptionVersion stores a saved-column record.
func (s *SQLiteStore) RecordTranscriptionVersion(v *transcription.TranscriptionVersion) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries.Create()
	res, err := s.db.Exec(`
		INSERT INTO tx_versions (page_id, col, time_from, author_id, descr, is_minor, is_review)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.PageID, v.Column, v.Time, v.AuthorID, nullIfEmpty(v.Description), boolToInt(v.Minor), boolToInt(v.Review))
	if err != nil {
		return 0, fmt.Errorf("record version: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	v.ID = id
	return id, nil
}

// ListTranscriptionVersions returns the versions saved for a column, oldest first.
func (s *SQLiteStore) ListTranscriptionVersions(pageID int64, column int) ([]*transcription.TranscriptionVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	rows, err := s.db.Query(`
		SELECT id, page_id, col, time_from, author_id, descr, is_minor, is_review
		FROM tx_versions WHERE page_id = ? AND col = ?
		ORDER BY time_from, id
	`, pageID, column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*transcription.TranscriptionVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func scanVersion(r rowScanner) (*transcription.TranscriptionVersion, error) {
	var v transcription.TranscriptionVersion
	var descr sql.NullString
	var minor, review int
	if err := r.Scan(&v.ID, &v.PageID, &v.Column, &v.Time, &v.AuthorID, &descr, &minor, &review); err != nil {
		return nil, err
	}
	v.Description = descr.String
	v.Minor = minor != 0
	v.Review = review != 0
	return &v, nil
}
