// Package docstore holds rendered column text in memory.
// Columns are hydrated from resolved streams, then scanned on demand.
package docstore

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// Source renders the columns of a document. *stream.Resolver satisfies it.
type Source interface {
	Pages(docID int64, at time.Time) ([]*transcription.Page, error)
	ColumnText(docID int64, pageSeq, column int, at time.Time) (string, error)
}

// Store holds rendered column documents in memory.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// Document is the rendered plain text of one page column.
type Document struct {
	ID      string `json:"id"`
	DocID   int64  `json:"docId"`
	PageSeq int    `json:"pageSeq"`
	Column  int    `json:"column"`
	Text    string `json:"text"`
	Version int64  `json:"version"` // instant the text was rendered at
}

// Key returns the document id of a page column.
func Key(docID int64, pageSeq, column int) string {
	return fmt.Sprintf("%d:%d:%d", docID, pageSeq, column)
}

// New creates an empty document store.
func New() *Store {
	return &Store{
		docs: make(map[string]*Document),
	}
}

// Hydrate renders every column of a document as of at and replaces what
// the store held for that document. It returns the number of columns loaded.
func (s *Store) Hydrate(src Source, docID int64, at time.Time) (int, error) {
	pages, err := src.Pages(docID, at)
	if err != nil {
		return 0, err
	}

	version := transcription.Instant(at)
	var docs []*Document
	for _, p := range pages {
		for col := 1; col <= p.NumColumns; col++ {
			text, err := src.ColumnText(docID, p.Seq, col, at)
			if err != nil {
				return 0, fmt.Errorf("render page %d column %d: %w", p.Seq, col, err)
			}
			docs = append(docs, &Document{
				ID:      Key(docID, p.Seq, col),
				DocID:   docID,
				PageSeq: p.Seq,
				Column:  col,
				Text:    text,
				Version: version,
			})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, d := range s.docs {
		if d.DocID == docID {
			delete(s.docs, id)
		}
	}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return len(docs), nil
}

// Refresh re-renders a single column, typically after it was reconciled.
// Older renders never replace newer ones.
func (s *Store) Refresh(src Source, docID int64, pageSeq, column int, at time.Time) error {
	text, err := src.ColumnText(docID, pageSeq, column, at)
	if err != nil {
		return err
	}
	s.Upsert(&Document{
		ID:      Key(docID, pageSeq, column),
		DocID:   docID,
		PageSeq: pageSeq,
		Column:  column,
		Text:    text,
		Version: transcription.Instant(at),
	})
	return nil
}

// Upsert adds or updates a single document. A document older than the one
// held is ignored.
func (s *Store) Upsert(doc *Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.docs[doc.ID]; ok && cur.Version > doc.Version {
		return false
	}
	c := *doc
	s.docs[doc.ID] = &c
	return true
}

// Remove deletes a document from the store.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, id)
}

// Get retrieves a document by id.
// Returns nil if not found.
func (s *Store) Get(id string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.docs[id]; ok {
		c := *d
		return &c
	}
	return nil
}

// GetText retrieves just the text content by id.
// Returns empty string if not found.
func (s *Store) GetText(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if doc, ok := s.docs[id]; ok {
		return doc.Text
	}
	return ""
}

// Count returns the number of documents in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs)
}

// All returns copies of every document in document order.
func (s *Store) All() []Document {
	s.mu.RLock()
	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, *d)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Document) int {
		switch {
		case a.DocID != b.DocID:
			return cmp.Compare(a.DocID, b.DocID)
		case a.PageSeq != b.PageSeq:
			return a.PageSeq - b.PageSeq
		default:
			return a.Column - b.Column
		}
	})
	return out
}

// Clear removes all documents.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = make(map[string]*Document)
}
