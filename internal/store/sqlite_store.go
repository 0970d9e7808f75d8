// Package store provides SQLite-backed persistence for scriptorium.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/kittclouds/scriptorium/internal/metrics"
)

// ErrNoCurrentVersion is returned when updating a versioned row that has
// no open version.
var ErrNoCurrentVersion = errors.New("no current version")

// SQLiteStore is the SQLite-backed data store.
// Safe for concurrent use; writes are serialized.
type SQLiteStore struct {
	mu      sync.RWMutex
	db      *sql.DB
	queries *metrics.QueryCounter
}

// schema defines all tables. Pages, elements and items use the temporal
// versioning pattern: a composite (id, version) key keeps the logical id
// stable across versions, and valid_until IS NULL marks the open version.
const schema = `
CREATE TABLE IF NOT EXISTS docs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    short_title TEXT,
    lang TEXT NOT NULL,
    doc_type TEXT NOT NULL DEFAULT 'mss',
    image_source TEXT,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS editors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    fullname TEXT,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS page_types (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);

-- Pages (temporal)
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    doc_id INTEGER NOT NULL,
    page_number INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    num_cols INTEGER NOT NULL DEFAULT 0,
    lang TEXT NOT NULL,
    foliation TEXT,
    type INTEGER NOT NULL DEFAULT 0,
    valid_from INTEGER NOT NULL,
    valid_until INTEGER,
    PRIMARY KEY (id, version)
);

CREATE INDEX IF NOT EXISTS idx_pages_current ON pages(id) WHERE valid_until IS NULL;
CREATE INDEX IF NOT EXISTS idx_pages_doc ON pages(doc_id, seq);
CREATE INDEX IF NOT EXISTS idx_pages_history ON pages(id, valid_from);

-- Column elements (temporal)
-- Note: No foreign keys - referential integrity is checked by the reconciliation engine
CREATE TABLE IF NOT EXISTS elements (
    id INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    page_id INTEGER NOT NULL,
    column_number INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    type INTEGER NOT NULL,
    lang TEXT NOT NULL,
    editor_id INTEGER NOT NULL,
    hand_id INTEGER NOT NULL DEFAULT 0,
    reference INTEGER NOT NULL DEFAULT 0,
    placement TEXT,
    valid_from INTEGER NOT NULL,
    valid_until INTEGER,
    PRIMARY KEY (id, version)
);

CREATE INDEX IF NOT EXISTS idx_elements_current ON elements(id) WHERE valid_until IS NULL;
CREATE INDEX IF NOT EXISTS idx_elements_column ON elements(page_id, column_number, seq);
CREATE INDEX IF NOT EXISTS idx_elements_reference ON elements(reference) WHERE reference <> 0;
CREATE INDEX IF NOT EXISTS idx_elements_history ON elements(id, valid_from);

-- Transcription items (temporal)
CREATE TABLE IF NOT EXISTS items (
    id INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    ce_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    type INTEGER NOT NULL,
    lang TEXT NOT NULL,
    hand_id INTEGER NOT NULL DEFAULT 0,
    text TEXT NOT NULL DEFAULT '',
    alt_text TEXT NOT NULL DEFAULT '',
    extra_info TEXT NOT NULL DEFAULT '',
    length INTEGER NOT NULL DEFAULT 0,
    target INTEGER NOT NULL DEFAULT 0,
    valid_from INTEGER NOT NULL,
    valid_until INTEGER,
    PRIMARY KEY (id, version)
);

CREATE INDEX IF NOT EXISTS idx_items_current ON items(id) WHERE valid_until IS NULL;
CREATE INDEX IF NOT EXISTS idx_items_element ON items(ce_id, seq);
CREATE INDEX IF NOT EXISTS idx_items_target ON items(target) WHERE target <> 0;
CREATE INDEX IF NOT EXISTS idx_items_history ON items(id, valid_from);

-- Editorial notes (plain mutable rows)
CREATE TABLE IF NOT EXISTS ednotes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type INTEGER NOT NULL,
    target INTEGER NOT NULL,
    lang TEXT NOT NULL DEFAULT '',
    author_id INTEGER NOT NULL,
    time INTEGER NOT NULL,
    text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ednotes_target ON ednotes(type, target);

-- Transcription versions (one row per saved column)
CREATE TABLE IF NOT EXISTS tx_versions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL,
    col INTEGER NOT NULL,
    time_from INTEGER NOT NULL,
    author_id INTEGER NOT NULL,
    descr TEXT,
    is_minor INTEGER DEFAULT 0,
    is_review INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tx_versions_column ON tx_versions(page_id, col, time_from);
`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	// Create schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SetQueryCounter attaches a statement counter. A nil counter disables counting.
func (s *SQLiteStore) SetQueryCounter(q *metrics.QueryCounter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = q
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Info reports the SQLite and sqlite-vec versions.
func (s *SQLiteStore) Info() (*Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var info Info
	if err := s.db.QueryRow(`SELECT sqlite_version()`).Scan(&info.SQLiteVersion); err != nil {
		return nil, fmt.Errorf("sqlite version: %w", err)
	}
	if err := s.db.QueryRow(`SELECT vec_version()`).Scan(&info.VecVersion); err != nil {
		return nil, fmt.Errorf("vec version: %w", err)
	}
	return &info, nil
}

// =============================================================================
// Docs
// =============================================================================

// CreateDoc inserts a document and returns its id.
func (s *SQLiteStore) CreateDoc(doc *Doc) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries.Create()
	res, err := s.db.Exec(`
		INSERT INTO docs (title, short_title, lang, doc_type, image_source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.Title, nullIfEmpty(doc.ShortTitle), doc.Lang, doc.DocType, nullIfEmpty(doc.ImageSource), doc.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("create doc: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	doc.ID = id
	return id, nil
}

// GetDoc retrieves a document by id.
func (s *SQLiteStore) GetDoc(id int64) (*Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	d, err := scanDoc(s.db.QueryRow(`
		SELECT id, title, short_title, lang, doc_type, image_source, created_at
		FROM docs WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// ListDocs returns all documents ordered by id.
func (s *SQLiteStore) ListDocs() ([]*Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	rows, err := s.db.Query(`
		SELECT id, title, short_title, lang, doc_type, image_source, created_at
		FROM docs ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Doc
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDoc(r rowScanner) (*Doc, error) {
	var d Doc
	var shortTitle, imageSource sql.NullString
	if err := r.Scan(&d.ID, &d.Title, &shortTitle, &d.Lang, &d.DocType, &imageSource, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.ShortTitle = shortTitle.String
	d.ImageSource = imageSource.String
	return &d, nil
}

// =============================================================================
// Editors
// =============================================================================

// CreateEditor registers an editor and returns its id.
func (s *SQLiteStore) CreateEditor(editor *Editor) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries.Create()
	res, err := s.db.Exec(`
		INSERT INTO editors (username, fullname, created_at) VALUES (?, ?, ?)
	`, editor.Username, nullIfEmpty(editor.FullName), editor.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("create editor: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	editor.ID = id
	return id, nil
}

// GetEditor retrieves an editor by id.
func (s *SQLiteStore) GetEditor(id int64) (*Editor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	var e Editor
	var fullName sql.NullString
	err := s.db.QueryRow(`
		SELECT id, username, fullname, created_at FROM editors WHERE id = ?
	`, id).Scan(&e.ID, &e.Username, &fullName, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.FullName = fullName.String
	return &e, nil
}

// EditorExists reports whether an editor with the id is registered.
func (s *SQLiteStore) EditorExists(id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	return s.exists(`SELECT 1 FROM editors WHERE id = ? LIMIT 1`, id)
}

// =============================================================================
// Page types
// =============================================================================

// EnsurePageTypes stores the names with ids 0..n-1, keeping existing rows.
func (s *SQLiteStore) EnsurePageTypes(names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, name := range names {
		s.queries.Create()
		if _, err := s.db.Exec(`INSERT OR IGNORE INTO page_types (id, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("page type %s: %w", name, err)
		}
	}
	return nil
}

// ListPageTypes returns all page types ordered by id.
func (s *SQLiteStore) ListPageTypes() ([]*PageType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	rows, err := s.db.Query(`SELECT id, name FROM page_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*PageType
	for rows.Next() {
		var pt PageType
		if err := rows.Scan(&pt.ID, &pt.Name); err != nil {
			return nil, err
		}
		types = append(types, &pt)
	}
	return types, rows.Err()
}

// PageTypeExists reports whether the page type id is defined.
func (s *SQLiteStore) PageTypeExists(id int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	return s.exists(`SELECT 1 FROM page_types WHERE id = ? LIMIT 1`, id)
}

// =============================================================================
// Helpers
// =============================================================================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// live returns the predicate selecting the version of alias live at an
// instant; it consumes two arguments.
func live(alias string) string {
	return fmt.Sprintf("%[1]s.valid_from <= ? AND (%[1]s.valid_until IS NULL OR %[1]s.valid_until > ?)", alias)
}

// exists runs a "SELECT 1" query. Caller holds the lock.
func (s *SQLiteStore) exists(query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// nextID allocates the next logical id of a versioned table. Caller holds
// the write lock.
func (s *SQLiteStore) nextID(table string) (int64, error) {
	s.queries.Select()
	var id int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM ` + table).Scan(&id); err != nil {
		return 0, fmt.Errorf("next %s id: %w", table, err)
	}
	return id, nil
}

// currentVersion returns the open version of a row. Caller holds the lock.
func (s *SQLiteStore) currentVersion(table string, id int64) (int, error) {
	s.queries.Select()
	var version int
	err := s.db.QueryRow(`SELECT version FROM `+table+` WHERE id = ? AND valid_until IS NULL`, id).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%s %d: %w", table, id, ErrNoCurrentVersion)
	}
	return version, err
}

// closeVersion closes the open version of a row at the instant.
// Caller holds the write lock.
func (s *SQLiteStore) closeVersion(table string, id int64, at int64) (bool, error) {
	s.queries.Update()
	res, err := s.db.Exec(`UPDATE `+table+` SET valid_until = ? WHERE id = ? AND valid_until IS NULL`, at, id)
	if err != nil {
		return false, fmt.Errorf("close %s %d: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func untilPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	u := v.Int64
	return &u
}

// placeholders returns "?, ?, ..." for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
