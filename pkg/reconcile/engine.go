// Package reconcile turns a full replacement of a page column into the
// minimal set of versioned writes against the stored column.
//
// Incoming elements and items may carry caller-chosen ids for rows that do
// not exist yet, so that an addition can point at a deletion saved in the
// same call. Every such id is mapped to its stored id as rows are kept or
// created, and every target and reference is rewritten through that map
// before the call returns.
package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kittclouds/scriptorium/internal/metrics"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// Store is the persistence the engine writes through.
// *store.SQLiteStore satisfies it.
type Store interface {
	GetPage(id int64, at int64) (*transcription.Page, error)
	EditorExists(id int64) (bool, error)

	GetElement(id int64, at int64) (*transcription.Element, error)
	ListColumnElements(pageID int64, column int, at int64) ([]*transcription.Element, error)
	CreateElement(element *transcription.Element, at int64) (int64, error)
	UpdateElement(element *transcription.Element, at int64) error
	CloseElement(id int64, at int64) (bool, error)

	CreateItem(item *transcription.Item, at int64) (int64, error)
	UpdateItem(item *transcription.Item, at int64) error
	CloseItem(id int64, at int64) (bool, error)
	ItemExists(id int64, at int64) (bool, error)

	RecordTranscriptionVersion(v *transcription.TranscriptionVersion) (int64, error)
}

// Engine reconciles columns and elements against a Store.
// An Engine holds no per-call state and may be shared.
type Engine struct {
	store     Store
	log       zerolog.Logger
	validator *transcription.Validator
	metrics   *metrics.Reconcile
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithValidator sets the input validator, and with it the accepted
// language codes.
func WithValidator(v *transcription.Validator) Option {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithMetrics attaches reconciliation instruments.
func WithMetrics(m *metrics.Reconcile) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine writing through st.
func New(st Store, opts ...Option) *Engine {
	e := &Engine{
		store: st,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validator == nil {
		e.validator = transcription.NewValidator(nil)
	}
	return e
}

// Counts tallies the edit script instructions applied at one level.
type Counts struct {
	Kept     int `json:"kept"`
	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
}

// Result describes one reconciliation call.
type Result struct {
	RunID string `json:"runId"`

	// ItemIDs maps every non-zero incoming item id to the stored id of the
	// item it was kept as or created as.
	ItemIDs map[int64]int64 `json:"itemIds"`

	// ElementIDs holds the stored id of each incoming element, by position.
	ElementIDs []int64 `json:"elementIds"`

	Elements Counts `json:"elements"`
	Items    Counts `json:"items"`

	// Writes is the number of versioned rows created, updated or closed.
	Writes int `json:"writes"`

	Warnings []transcription.ReferentialWarning `json:"warnings,omitempty"`
}

// VersionInfo describes a saved transcription version.
type VersionInfo struct {
	AuthorID    int64  `json:"authorId"`
	Description string `json:"description,omitempty"`
	Minor       bool   `json:"isMinor"`
	Review      bool   `json:"isReview"`
}

// ReconcileColumn makes the live content of a page column equal to
// incoming as of at. Incoming elements are taken in order; their page,
// column and sequence fields are overwritten.
//
// Input is validated in full before anything is written. A storage
// failure partway through leaves the writes made so far in place.
func (e *Engine) ReconcileColumn(pageID int64, column int, incoming []*transcription.Element, at time.Time) (*Result, error) {
	start := time.Now()
	defer e.metrics.Observe("column", start)

	r := e.newRun(at)
	log := r.log.With().Int64("page_id", pageID).Int("column", column).Logger()
	r.log = log

	elements, err := e.prepareColumn(pageID, column, incoming, r.instant)
	if err != nil {
		return nil, err
	}
	for _, el := range elements {
		for _, it := range el.Items {
			if it.ID != 0 {
				r.callerIDs[it.ID] = true
			}
		}
	}

	old, err := e.store.ListColumnElements(pageID, column, r.instant)
	if err != nil {
		return nil, transcription.Storage("list column elements", err)
	}

	log.Debug().Int("old", len(old)).Int("new", len(elements)).Msg("reconciling column")
	if err := r.column(old, elements); err != nil {
		return nil, err
	}
	if err := r.fixup(); err != nil {
		return nil, err
	}
	log.Info().
		Int("kept", r.res.Elements.Kept).
		Int("deleted", r.res.Elements.Deleted).
		Int("inserted", r.res.Elements.Inserted).
		Int("writes", r.res.Writes).
		Int("warnings", len(r.res.Warnings)).
		Msg("column reconciled")
	return r.res, nil
}

// ReconcileColumnVersion reconciles a column and records the save as a
// transcription version authored by v.AuthorID.
func (e *Engine) ReconcileColumnVersion(pageID int64, column int, incoming []*transcription.Element, v VersionInfo, at time.Time) (*Result, error) {
	ok, err := e.store.EditorExists(v.AuthorID)
	if err != nil {
		return nil, transcription.Storage("lookup editor", err)
	}
	if !ok {
		return nil, transcription.Invalid("authorId", v.AuthorID, "editor %d not found", v.AuthorID)
	}

	res, err := e.ReconcileColumn(pageID, column, incoming, at)
	if err != nil {
		return nil, err
	}
	_, err = e.store.RecordTranscriptionVersion(&transcription.TranscriptionVersion{
		PageID:      pageID,
		Column:      column,
		Time:        transcription.Instant(at),
		AuthorID:    v.AuthorID,
		Description: v.Description,
		Minor:       v.Minor,
		Review:      v.Review,
	})
	if err != nil {
		return nil, transcription.Storage("record version", err)
	}
	return res, nil
}

// ReconcileElement makes the live items of one element equal to items as
// of at. Item element ids and sequences are overwritten.
func (e *Engine) ReconcileElement(elementID int64, items []*transcription.Item, at time.Time) (*Result, error) {
	start := time.Now()
	defer e.metrics.Observe("element", start)

	r := e.newRun(at)
	r.log = r.log.With().Int64("element_id", elementID).Logger()

	el, err := e.store.GetElement(elementID, r.instant)
	if err != nil {
		return nil, transcription.Storage("get element", err)
	}
	if el == nil {
		return nil, fmt.Errorf("element %d: %w", elementID, transcription.ErrNotFound)
	}

	next := make([]*transcription.Item, len(items))
	for i, it := range items {
		if it == nil {
			return nil, transcription.Invalid("items", i, "item %d is nil", i)
		}
		next[i] = prepareItem(it, el)
	}
	candidate := *el
	candidate.Items = next
	if err := e.validateBatch([]*transcription.Element{&candidate}); err != nil {
		return nil, err
	}
	for _, it := range next {
		if it.ID != 0 {
			r.callerIDs[it.ID] = true
		}
	}

	changed, err := r.items(el.ID, el.Items, next)
	if err != nil {
		return nil, err
	}
	if err := r.fixup(); err != nil {
		return nil, err
	}
	r.res.ElementIDs = []int64{el.ID}
	r.log.Debug().Bool("changed", changed).Int("writes", r.res.Writes).Msg("element reconciled")
	return r.res, nil
}

func (e *Engine) newRun(at time.Time) *run {
	id := uuid.NewString()
	return &run{
		engine:    e,
		instant:   transcription.Instant(at),
		log:       e.log.With().Str("run_id", id).Logger(),
		ids:       make(map[int64]int64),
		callerIDs: make(map[int64]bool),
		owner:     make(map[int64]int64),
		res: &Result{
			RunID:   id,
			ItemIDs: make(map[int64]int64),
		},
	}
}

// prepareColumn validates the target column and returns normalized copies
// of the incoming elements.
func (e *Engine) prepareColumn(pageID int64, column int, incoming []*transcription.Element, at int64) ([]*transcription.Element, error) {
	page, err := e.store.GetPage(pageID, at)
	if err != nil {
		return nil, transcription.Storage("get page", err)
	}
	if page == nil {
		return nil, transcription.Invalid("pageId", pageID, "page %d not found", pageID)
	}
	if column <= 0 || column > page.NumColumns {
		return nil, transcription.Invalid("columnNumber", column,
			"column %d out of range, page %d has %d columns", column, pageID, page.NumColumns)
	}

	elements := make([]*transcription.Element, len(incoming))
	for i, in := range incoming {
		if in == nil {
			return nil, transcription.Invalid("elements", i, "element %d is nil", i)
		}
		el := *in
		el.PageID = pageID
		el.ColumnNumber = column
		el.Seq = i
		el.ValidUntil = nil
		el.Items = make([]*transcription.Item, len(in.Items))
		for j, it := range in.Items {
			if it == nil {
				return nil, transcription.Invalid("items", j, "element %d item %d is nil", i, j)
			}
			el.Items[j] = prepareItem(it, &el)
		}
		elements[i] = &el
	}
	if err := e.validateBatch(elements); err != nil {
		return nil, err
	}
	return elements, nil
}

// prepareItem returns a normalized copy of an incoming item. Language and
// hand default to those of the element.
func prepareItem(it *transcription.Item, el *transcription.Element) *transcription.Item {
	c := it.Clone()
	if c.Lang == "" {
		c.Lang = el.Lang
	}
	if c.HandID == 0 {
		c.HandID = el.HandID
	}
	c.Normalize()
	return c
}

// validateBatch checks every element and item of a batch and the
// existence of every editor named in it.
func (e *Engine) validateBatch(elements []*transcription.Element) error {
	seen := make(map[int64]bool)
	editors := make(map[int64]bool)
	for _, el := range elements {
		if err := e.validator.Element(el); err != nil {
			return err
		}
		editors[el.EditorID] = true
		for _, it := range el.Items {
			if it.ID == 0 {
				continue
			}
			if seen[it.ID] {
				return transcription.Invalid("items", it.ID, "duplicate item id %d in batch", it.ID)
			}
			seen[it.ID] = true
		}
	}
	for id := range editors {
		ok, err := e.store.EditorExists(id)
		if err != nil {
			return transcription.Storage("lookup editor", err)
		}
		if !ok {
			return transcription.Invalid("editorId", id, "editor %d not found", id)
		}
	}
	return nil
}
