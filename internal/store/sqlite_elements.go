package store

import (
	"database/sql"
	"fmt"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

const elementColumns = `e.id, e.version, e.page_id, e.column_number, e.seq, e.type, e.lang, e.editor_id,
	e.hand_id, e.reference, e.placement, e.valid_from, e.valid_until`

// =============================================================================
// Element CRUD (temporal)
// =============================================================================

// CreateElement inserts version 1 of a new element. Items are not written;
// see CreateItem.
func (s *SQLiteStore) CreateElement(element *transcription.Element, at int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextID("elements")
	if err != nil {
		return 0, err
	}
	element.ID = id
	element.Version = 1
	element.ValidFrom = at
	element.ValidUntil = nil
	if err := s.insertElementVersion(element); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateElement closes the open version of the element and inserts the
// given data as the next version under the same id.
func (s *SQLiteStore) UpdateElement(element *transcription.Element, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.currentVersion("elements", element.ID)
	if err != nil {
		return err
	}
	if _, err := s.closeVersion("elements", element.ID, at); err != nil {
		return err
	}
	element.Version = version + 1
	element.ValidFrom = at
	element.ValidUntil = nil
	return s.insertElementVersion(element)
}

// CloseElement ends the element's open version at the instant. It reports
// false when there was no open version. Items are left untouched.
func (s *SQLiteStore) CloseElement(id int64, at int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeVersion("elements", id, at)
}

func (s *SQLiteStore) insertElementVersion(e *transcription.Element) error {
	s.queries.Create()
	_, err := s.db.Exec(`
		INSERT INTO elements (id, version, page_id, column_number, seq, type, lang, editor_id,
			hand_id, reference, placement, valid_from, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Version, e.PageID, e.ColumnNumber, e.Seq, int(e.Type), e.Lang, e.EditorID,
		e.HandID, e.Reference, nullIfEmpty(e.Placement), e.ValidFrom, e.ValidUntil)
	if err != nil {
		return fmt.Errorf("insert element %d v%d: %w", e.ID, e.Version, err)
	}
	return nil
}

// GetElement retrieves the element version live at the instant, with its
// live items in sequence order.
func (s *SQLiteStore) GetElement(id int64, at int64) (*transcription.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	e, err := scanElement(s.db.QueryRow(`
		SELECT `+elementColumns+` FROM elements e
		WHERE e.id = ? AND `+live("e")+` LIMIT 1
	`, id, at, at))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachItems([]*transcription.Element{e}, at); err != nil {
		return nil, err
	}
	return e, nil
}

// ListColumnElements returns the elements of a page column live at the
// instant, by sequence, each with its live items.
func (s *SQLiteStore) ListColumnElements(pageID int64, column int, at int64) ([]*transcription.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	elements, err := s.queryElements(`
		SELECT `+elementColumns+` FROM elements e
		WHERE e.page_id = ? AND e.column_number = ? AND `+live("e")+`
		ORDER BY e.seq
	`, pageID, column, at, at)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(elements, at); err != nil {
		return nil, err
	}
	return elements, nil
}

// ListElementVersions returns every stored version of an element, oldest
// first, without items.
func (s *SQLiteStore) ListElementVersions(id int64) ([]*transcription.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryElements(`
		SELECT `+elementColumns+` FROM elements e
		WHERE e.id = ? ORDER BY e.version
	`, id)
}

// CountPageElements counts the elements live on a page in any column.
func (s *SQLiteStore) CountPageElements(pageID int64, at int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM elements e WHERE e.page_id = ? AND `+live("e"),
		pageID, at, at).Scan(&n)
	return n, err
}

// FindReferencingElement returns the first live element of one of the given
// types whose reference is ref, with its items.
func (s *SQLiteStore) FindReferencingElement(ref int64, types []transcription.ElementType, at int64) (*transcription.Element, error) {
	if len(types) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	args := []any{ref}
	for _, t := range types {
		args = append(args, int(t))
	}
	args = append(args, at, at)

	elements, err := s.queryElements(`
		SELECT `+elementColumns+` FROM elements e
		WHERE e.reference = ? AND e.type IN (`+placeholders(len(types))+`) AND `+live("e")+`
		ORDER BY e.id LIMIT 1
	`, args...)
	if err != nil || len(elements) == 0 {
		return nil, err
	}
	if err := s.attachItems(elements, at); err != nil {
		return nil, err
	}
	return elements[0], nil
}

// queryElements runs an element query to completion. Caller holds the lock.
func (s *SQLiteStore) queryElements(query string, args ...any) ([]*transcription.Element, error) {
	s.queries.Select()
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var elements []*transcription.Element
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}
	return elements, rows.Err()
}

// attachItems loads the live items of the elements. Caller holds the lock.
func (s *SQLiteStore) attachItems(elements []*transcription.Element, at int64) error {
	if len(elements) == 0 {
		return nil
	}
	byID := make(map[int64]*transcription.Element, len(elements))
	args := make([]any, 0, len(elements)+2)
	for _, e := range elements {
		e.Items = []*transcription.Item{}
		byID[e.ID] = e
		args = append(args, e.ID)
	}
	args = append(args, at, at)

	items, err := s.queryItems(`
		SELECT `+itemColumns+` FROM items i
		WHERE i.ce_id IN (`+placeholders(len(elements))+`) AND `+live("i")+`
		ORDER BY i.ce_id, i.seq
	`, args...)
	if err != nil {
		return err
	}
	for _, it := range items {
		if e, ok := byID[it.ElementID]; ok {
			e.Items = append(e.Items, it)
		}
	}
	return nil
}

func scanElement(r rowScanner) (*transcription.Element, error) {
	var e transcription.Element
	var typ int
	var placement sql.NullString
	var until sql.NullInt64
	if err := r.Scan(&e.ID, &e.Version, &e.PageID, &e.ColumnNumber, &e.Seq, &typ, &e.Lang, &e.EditorID,
		&e.HandID, &e.Reference, &placement, &e.ValidFrom, &until); err != nil {
		return nil, err
	}
	e.Type = transcription.ElementType(typ)
	e.Placement = placement.String
	e.ValidUntil = untilPtr(until)
	return &e, nil
}
