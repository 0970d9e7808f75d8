package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// exportData is the portable JSON image of the database. Versioned tables
// are exported with every version so history survives a round trip.
type exportData struct {
	Docs      []*Doc                                `json:"docs"`
	Editors   []*Editor                             `json:"editors"`
	PageTypes []*PageType                           `json:"pageTypes"`
	Pages     []*transcription.Page                 `json:"pages"`
	Elements  []*transcription.Element              `json:"elements"`
	Items     []*transcription.Item                 `json:"items"`
	Notes     []*transcription.EditorialNote        `json:"notes"`
	Versions  []*transcription.TranscriptionVersion `json:"versions"`
}

// Export serializes all database tables to JSON bytes.
// This is a portable export that doesn't depend on sqlite3 serialization APIs.
func (s *SQLiteStore) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data exportData
	var err error

	if data.Docs, err = collect(s, `SELECT id, title, short_title, lang, doc_type, image_source, created_at FROM docs ORDER BY id`, scanDoc); err != nil {
		return nil, fmt.Errorf("export docs: %w", err)
	}
	if data.Editors, err = collect(s, `SELECT id, username, fullname, created_at FROM editors ORDER BY id`, scanEditor); err != nil {
		return nil, fmt.Errorf("export editors: %w", err)
	}
	if data.PageTypes, err = collect(s, `SELECT id, name FROM page_types ORDER BY id`, scanPageType); err != nil {
		return nil, fmt.Errorf("export page types: %w", err)
	}
	if data.Pages, err = collect(s, `SELECT `+pageColumns+` FROM pages p ORDER BY p.id, p.version`, scanPage); err != nil {
		return nil, fmt.Errorf("export pages: %w", err)
	}
	if data.Elements, err = s.queryElements(`SELECT ` + elementColumns + ` FROM elements e ORDER BY e.id, e.version`); err != nil {
		return nil, fmt.Errorf("export elements: %w", err)
	}
	if data.Items, err = s.queryItems(`SELECT ` + itemColumns + ` FROM items i ORDER BY i.id, i.version`); err != nil {
		return nil, fmt.Errorf("export items: %w", err)
	}
	if data.Notes, err = collect(s, `SELECT `+noteColumns+` FROM ednotes ORDER BY id`, scanNote); err != nil {
		return nil, fmt.Errorf("export notes: %w", err)
	}
	if data.Versions, err = collect(s, `SELECT id, page_id, col, time_from, author_id, descr, is_minor, is_review FROM tx_versions ORDER BY id`, scanVersion); err != nil {
		return nil, fmt.Errorf("export versions: %w", err)
	}

	return json.Marshal(data)
}

// Import restores the database state from an exported JSON byte slice.
// Clears all existing data and re-inserts from the export.
func (s *SQLiteStore) Import(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(data) == 0 {
		return nil
	}

	var in exportData
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("import unmarshal: %w", err)
	}

	// Clear all tables
	for _, table := range []string{"tx_versions", "ednotes", "items", "elements", "pages", "page_types", "editors", "docs"} {
		s.queries.Delete()
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, d := range in.Docs {
		s.queries.Create()
		if _, err := s.db.Exec(`
			INSERT INTO docs (id, title, short_title, lang, doc_type, image_source, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, d.ID, d.Title, nullIfEmpty(d.ShortTitle), d.Lang, d.DocType, nullIfEmpty(d.ImageSource), d.CreatedAt); err != nil {
			return fmt.Errorf("import doc %d: %w", d.ID, err)
		}
	}
	for _, e := range in.Editors {
		s.queries.Create()
		if _, err := s.db.Exec(`
			INSERT INTO editors (id, username, fullname, created_at) VALUES (?, ?, ?, ?)
		`, e.ID, e.Username, nullIfEmpty(e.FullName), e.CreatedAt); err != nil {
			return fmt.Errorf("import editor %d: %w", e.ID, err)
		}
	}
	for _, pt := range in.PageTypes {
		s.queries.Create()
		if _, err := s.db.Exec(`INSERT INTO page_types (id, name) VALUES (?, ?)`, pt.ID, pt.Name); err != nil {
			return fmt.Errorf("import page type %d: %w", pt.ID, err)
		}
	}
	for _, p := range in.Pages {
		if err := s.insertPageVersion(p); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	for _, e := range in.Elements {
		if err := s.insertElementVersion(e); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	for _, it := range in.Items {
		if err := s.insertItemVersion(it); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	for _, n := range in.Notes {
		s.queries.Create()
		if _, err := s.db.Exec(`
			INSERT INTO ednotes (id, type, target, lang, author_id, time, text) VALUES (?, ?, ?, ?, ?, ?, ?)
		`, n.ID, int(n.Type), n.Target, n.Lang, n.AuthorID, n.Time, n.Text); err != nil {
			return fmt.Errorf("import note %d: %w", n.ID, err)
		}
	}
	for _, v := range in.Versions {
		s.queries.Create()
		if _, err := s.db.Exec(`
			INSERT INTO tx_versions (id, page_id, col, time_from, author_id, descr, is_minor, is_review)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.PageID, v.Column, v.Time, v.AuthorID, nullIfEmpty(v.Description),
			boolToInt(v.Minor), boolToInt(v.Review)); err != nil {
			return fmt.Errorf("import version %d: %w", v.ID, err)
		}
	}

	return nil
}

// collect runs a query and scans every row. Caller holds the lock.
func collect[T any](s *SQLiteStore, query string, scan func(rowScanner) (*T, error)) ([]*T, error) {
	s.queries.Select()
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanEditor(r rowScanner) (*Editor, error) {
	var e Editor
	var fullName sql.NullString
	if err := r.Scan(&e.ID, &e.Username, &fullName, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.FullName = fullName.String
	return &e, nil
}

func scanPageType(r rowScanner) (*PageType, error) {
	var pt PageType
	if err := r.Scan(&pt.ID, &pt.Name); err != nil {
		return nil, err
	}
	return &pt, nil
}
