package store

import (
	"database/sql"
	"fmt"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

const pageColumns = `p.id, p.version, p.doc_id, p.page_number, p.seq, p.num_cols, p.lang, p.foliation, p.type, p.valid_from, p.valid_until`

// =============================================================================
// Page CRUD (temporal)
// =============================================================================

// CreatePage inserts version 1 of a new page valid from the instant.
func (s *SQLiteStore) CreatePage(page *transcription.Page, at int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextID("pages")
	if err != nil {
		return 0, err
	}
	page.ID = id
	page.Version = 1
	page.ValidFrom = at
	page.ValidUntil = nil
	if err := s.insertPageVersion(page); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdatePage closes the open version of the page and inserts the given
// data as the next version.
func (s *SQLiteStore) UpdatePage(page *transcription.Page, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.currentVersion("pages", page.ID)
	if err != nil {
		return err
	}
	if _, err := s.closeVersion("pages", page.ID, at); err != nil {
		return err
	}
	page.Version = version + 1
	page.ValidFrom = at
	page.ValidUntil = nil
	return s.insertPageVersion(page)
}

func (s *SQLiteStore) insertPageVersion(p *transcription.Page) error {
	s.queries.Create()
	_, err := s.db.Exec(`
		INSERT INTO pages (id, version, doc_id, page_number, seq, num_cols, lang, foliation, type, valid_from, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Version, p.DocID, p.PageNumber, p.Seq, p.NumColumns, p.Lang,
		nullIfEmpty(p.Foliation), p.Type, p.ValidFrom, p.ValidUntil)
	if err != nil {
		return fmt.Errorf("insert page %d v%d: %w", p.ID, p.Version, err)
	}
	return nil
}

// GetPage retrieves the version of a page live at the instant.
func (s *SQLiteStore) GetPage(id int64, at int64) (*transcription.Page, error) {
	return s.queryPage(`WHERE p.id = ? AND `+live("p"), id, at, at)
}

// GetPageByNumber retrieves a page of a document by its page number.
func (s *SQLiteStore) GetPageByNumber(docID int64, pageNumber int, at int64) (*transcription.Page, error) {
	return s.queryPage(`WHERE p.doc_id = ? AND p.page_number = ? AND `+live("p"), docID, pageNumber, at, at)
}

// GetPageBySeq retrieves a page of a document by its sequence number.
func (s *SQLiteStore) GetPageBySeq(docID int64, seq int, at int64) (*transcription.Page, error) {
	return s.queryPage(`WHERE p.doc_id = ? AND p.seq = ? AND `+live("p"), docID, seq, at, at)
}

func (s *SQLiteStore) queryPage(where string, args ...any) (*transcription.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	p, err := scanPage(s.db.QueryRow(`SELECT `+pageColumns+` FROM pages p `+where+` LIMIT 1`, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListPages returns the pages of a document live at the instant, by sequence.
func (s *SQLiteStore) ListPages(docID int64, at int64) ([]*transcription.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	rows, err := s.db.Query(`
		SELECT `+pageColumns+` FROM pages p
		WHERE p.doc_id = ? AND `+live("p")+`
		ORDER BY p.seq
	`, docID, at, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*transcription.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeletePage physically removes every version of a page. Callers check
// that the page is empty first.
func (s *SQLiteStore) DeletePage(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries.Delete()
	if _, err := s.db.Exec(`DELETE FROM pages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete page %d: %w", id, err)
	}
	return nil
}

func scanPage(r rowScanner) (*transcription.Page, error) {
	var p transcription.Page
	var foliation sql.NullString
	var until sql.NullInt64
	if err := r.Scan(&p.ID, &p.Version, &p.DocID, &p.PageNumber, &p.Seq, &p.NumColumns,
		&p.Lang, &foliation, &p.Type, &p.ValidFrom, &until); err != nil {
		return nil, err
	}
	p.Foliation = foliation.String
	p.ValidUntil = untilPtr(until)
	return &p, nil
}
