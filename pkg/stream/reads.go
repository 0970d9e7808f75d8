package stream

import (
	"fmt"
	"time"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// ColumnElements returns the live elements of a page column in sequence,
// each with its items.
func (r *Resolver) ColumnElements(pageID int64, column int, at time.Time) ([]*transcription.Element, error) {
	elements, err := r.store.ListColumnElements(pageID, column, transcription.Instant(at))
	if err != nil {
		return nil, transcription.Storage("list column elements", err)
	}
	return elements, nil
}

// Element returns one element with its items as of at.
func (r *Resolver) Element(id int64, at time.Time) (*transcription.Element, error) {
	el, err := r.store.GetElement(id, transcription.Instant(at))
	if err != nil {
		return nil, transcription.Storage("get element", err)
	}
	if el == nil {
		return nil, fmt.Errorf("element %d: %w", id, transcription.ErrNotFound)
	}
	return el, nil
}

// Item returns one item as of at.
func (r *Resolver) Item(id int64, at time.Time) (*transcription.Item, error) {
	it, err := r.store.GetItem(id, transcription.Instant(at))
	if err != nil {
		return nil, transcription.Storage("get item", err)
	}
	if it == nil {
		return nil, fmt.Errorf("item %d: %w", id, transcription.ErrNotFound)
	}
	return it, nil
}

// ElementVersions returns every stored version of an element, oldest first.
// Versions carry no items.
func (r *Resolver) ElementVersions(id int64) ([]*transcription.Element, error) {
	versions, err := r.store.ListElementVersions(id)
	if err != nil {
		return nil, transcription.Storage("list element versions", err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("element %d: %w", id, transcription.ErrNotFound)
	}
	return versions, nil
}

// Pages returns the live pages of a document in sequence order.
func (r *Resolver) Pages(docID int64, at time.Time) ([]*transcription.Page, error) {
	pages, err := r.store.ListPages(docID, transcription.Instant(at))
	if err != nil {
		return nil, transcription.Storage("list pages", err)
	}
	return pages, nil
}
