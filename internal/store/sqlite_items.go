package store

import (
	"database/sql"
	"fmt"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

const itemColumns = `i.id, i.version, i.ce_id, i.seq, i.type, i.lang, i.hand_id, i.text, i.alt_text,
	i.extra_info, i.length, i.target, i.valid_from, i.valid_until`

// =============================================================================
// Item CRUD (temporal)
// =============================================================================

// CreateItem inserts version 1 of a new item.
func (s *SQLiteStore) CreateItem(item *transcription.Item, at int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextID("items")
	if err != nil {
		return 0, err
	}
	item.ID = id
	item.Version = 1
	item.ValidFrom = at
	item.ValidUntil = nil
	if err := s.insertItemVersion(item); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateItem closes the open version of the item and inserts the given
// data as the next version under the same id.
func (s *SQLiteStore) UpdateItem(item *transcription.Item, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.currentVersion("items", item.ID)
	if err != nil {
		return err
	}
	if _, err := s.closeVersion("items", item.ID, at); err != nil {
		return err
	}
	item.Version = version + 1
	item.ValidFrom = at
	item.ValidUntil = nil
	return s.insertItemVersion(item)
}

// CloseItem ends the item's open version at the instant.
func (s *SQLiteStore) CloseItem(id int64, at int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeVersion("items", id, at)
}

func (s *SQLiteStore) insertItemVersion(it *transcription.Item) error {
	s.queries.Create()
	_, err := s.db.Exec(`
		INSERT INTO items (id, version, ce_id, seq, type, lang, hand_id, text, alt_text,
			extra_info, length, target, valid_from, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, it.ID, it.Version, it.ElementID, it.Seq, int(it.Type), it.Lang, it.HandID, it.Text, it.AltText,
		it.ExtraInfo, it.Length, it.Target, it.ValidFrom, it.ValidUntil)
	if err != nil {
		return fmt.Errorf("insert item %d v%d: %w", it.ID, it.Version, err)
	}
	return nil
}

// GetItem retrieves the item version live at the instant.
func (s *SQLiteStore) GetItem(id int64, at int64) (*transcription.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	it, err := scanItem(s.db.QueryRow(`
		SELECT `+itemColumns+` FROM items i WHERE i.id = ? AND `+live("i")+` LIMIT 1
	`, id, at, at))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return it, err
}

// ItemExists reports whether an item with the id is live at the instant.
func (s *SQLiteStore) ItemExists(id int64, at int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	return s.exists(`SELECT 1 FROM items i WHERE i.id = ? AND `+live("i")+` LIMIT 1`, id, at, at)
}

// ListElementItems returns the live items of an element by sequence.
func (s *SQLiteStore) ListElementItems(elementID int64, at int64) ([]*transcription.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryItems(`
		SELECT `+itemColumns+` FROM items i
		WHERE i.ce_id = ? AND `+live("i")+`
		ORDER BY i.seq
	`, elementID, at, at)
}

// FindAdditionByTarget returns the first live addition item whose target is
// the given item id.
func (s *SQLiteStore) FindAdditionByTarget(target int64, at int64) (*transcription.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	it, err := scanItem(s.db.QueryRow(`
		SELECT `+itemColumns+` FROM items i
		WHERE i.type = ? AND i.target = ? AND `+live("i")+`
		ORDER BY i.id LIMIT 1
	`, int(transcription.ItemAddition), target, at, at))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return it, err
}

// queryItems runs an item query to completion. Caller holds the lock.
func (s *SQLiteStore) queryItems(query string, args ...any) ([]*transcription.Item, error) {
	s.queries.Select()
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*transcription.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanItem(r rowScanner) (*transcription.Item, error) {
	var it transcription.Item
	var typ int
	var until sql.NullInt64
	if err := r.Scan(&it.ID, &it.Version, &it.ElementID, &it.Seq, &typ, &it.Lang, &it.HandID,
		&it.Text, &it.AltText, &it.ExtraInfo, &it.Length, &it.Target, &it.ValidFrom, &until); err != nil {
		return nil, err
	}
	it.Type = transcription.ItemType(typ)
	it.ValidUntil = untilPtr(until)
	return &it, nil
}

// =============================================================================
// Document-order queries
// =============================================================================

// documentOrder is the composite key items are ordered and compared by.
const documentOrder = `(p.seq, e.column_number, e.seq, i.seq)`

// ListLineItemsBetween returns the live items of line elements of a document
// strictly between two locations, in document order. A zero column number
// in a bound covers every column of that page.
func (s *SQLiteStore) ListLineItemsBetween(docID int64, from, to transcription.Location, at int64) ([]*transcription.StreamItem, error) {
	lower, upper := from.LowerBound(), to.UpperBound()
	if !upper.After(lower) {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	rows, err := s.db.Query(`
		SELECT `+itemColumns+`,
			e.type, e.page_id, e.column_number, e.seq, e.hand_id, e.reference, e.placement,
			p.seq, p.foliation
		FROM items i
		JOIN elements e ON e.id = i.ce_id
		JOIN pages p ON p.id = e.page_id
		WHERE p.doc_id = ?
		  AND e.type = ?
		  AND `+documentOrder+` > (?, ?, ?, ?)
		  AND `+documentOrder+` < (?, ?, ?, ?)
		  AND `+live("i")+`
		  AND `+live("e")+`
		  AND `+live("p")+`
		ORDER BY p.seq, e.column_number, e.seq, i.seq
	`, docID, int(transcription.ElementLine),
		lower.PageSeq, lower.ColumnNumber, lower.ElementSeq, lower.ItemSeq,
		upper.PageSeq, upper.ColumnNumber, upper.ElementSeq, upper.ItemSeq,
		at, at, at, at, at, at)
	if err != nil {
		return nil, fmt.Errorf("item stream: %w", err)
	}
	defer rows.Close()

	var out []*transcription.StreamItem
	for rows.Next() {
		var si transcription.StreamItem
		var typ, elemType int
		var until sql.NullInt64
		var placement, foliation sql.NullString
		if err := rows.Scan(&si.ID, &si.Version, &si.ElementID, &si.Seq, &typ, &si.Lang, &si.HandID,
			&si.Text, &si.AltText, &si.ExtraInfo, &si.Length, &si.Target, &si.ValidFrom, &until,
			&elemType, &si.PageID, &si.ColumnNumber, &si.ElementSeq, &si.ElementHandID, &si.Reference, &placement,
			&si.PageSeq, &foliation); err != nil {
			return nil, err
		}
		si.Type = transcription.ItemType(typ)
		si.ValidUntil = untilPtr(until)
		si.ElementType = transcription.ElementType(elemType)
		si.Placement = placement.String
		si.Foliation = foliation.String
		out = append(out, &si)
	}
	return out, rows.Err()
}

// ListChunkMarks returns the live chunk marks of a work chunk found in the
// line elements of a document, in document order.
func (s *SQLiteStore) ListChunkMarks(docID int64, workID string, chunk int, localWitnessID string, at int64) ([]*transcription.ChunkMark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.queries.Select()
	rows, err := s.db.Query(`
		SELECT i.id, p.id, p.seq, p.foliation, e.column_number, e.seq, i.seq,
			i.alt_text, i.text, i.target, i.extra_info, i.length
		FROM items i
		JOIN elements e ON e.id = i.ce_id
		JOIN pages p ON p.id = e.page_id
		WHERE p.doc_id = ?
		  AND e.type = ?
		  AND i.type = ?
		  AND i.text = ?
		  AND i.target = ?
		  AND i.extra_info = ?
		  AND `+live("i")+`
		  AND `+live("e")+`
		  AND `+live("p")+`
		ORDER BY p.seq, e.column_number, e.seq, i.seq
	`, docID, int(transcription.ElementLine), int(transcription.ItemChunkMark), workID, chunk, localWitnessID,
		at, at, at, at, at, at)
	if err != nil {
		return nil, fmt.Errorf("chunk marks: %w", err)
	}
	defer rows.Close()

	var marks []*transcription.ChunkMark
	for rows.Next() {
		var m transcription.ChunkMark
		var foliation sql.NullString
		var target int64
		if err := rows.Scan(&m.ItemID, &m.PageID, &m.PageSeq, &foliation, &m.ColumnNumber, &m.ElementSeq, &m.ItemSeq,
			&m.Kind, &m.WorkID, &target, &m.LocalWitnessID, &m.Segment); err != nil {
			return nil, err
		}
		m.Foliation = foliation.String
		m.Chunk = int(target)
		marks = append(marks, &m)
	}
	return marks, rows.Err()
}
