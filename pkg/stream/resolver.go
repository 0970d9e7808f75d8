// Package stream resolves stored transcriptions into linear reading order.
//
// A stream is the sequence of items of the line elements between two
// document locations, with cross references followed: an anchor item
// (deletion, unclear reading or marginal mark) that is supplemented by an
// addition item, or replaced by an addition or substitution element, is
// followed immediately by that material. No item appears twice.
package stream

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kittclouds/scriptorium/pkg/pool"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// Store is the read side of the temporal store.
type Store interface {
	GetPage(id int64, at int64) (*transcription.Page, error)
	GetPageBySeq(docID int64, seq int, at int64) (*transcription.Page, error)
	ListPages(docID int64, at int64) ([]*transcription.Page, error)

	GetElement(id int64, at int64) (*transcription.Element, error)
	ListColumnElements(pageID int64, column int, at int64) ([]*transcription.Element, error)
	ListElementVersions(id int64) ([]*transcription.Element, error)
	FindReferencingElement(ref int64, types []transcription.ElementType, at int64) (*transcription.Element, error)

	GetItem(id int64, at int64) (*transcription.Item, error)
	FindAdditionByTarget(target int64, at int64) (*transcription.Item, error)

	ListLineItemsBetween(docID int64, from, to transcription.Location, at int64) ([]*transcription.StreamItem, error)
	ListChunkMarks(docID int64, workID string, chunk int, localWitnessID string, at int64) ([]*transcription.ChunkMark, error)
}

// spliceTypes are the element types whose content can stand in for an anchor.
var spliceTypes = []transcription.ElementType{transcription.ElementSubstitution, transcription.ElementAddition}

// Resolver builds streams from a Store. It is safe for concurrent use.
type Resolver struct {
	store Store
	log   zerolog.Logger
	glyph string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

// WithIllegibleGlyph sets the placeholder rendered for each missing
// character of an illegible span.
func WithIllegibleGlyph(glyph string) Option {
	return func(r *Resolver) {
		if glyph != "" {
			r.glyph = glyph
		}
	}
}

// NewResolver creates a resolver reading from st.
func NewResolver(st Store, opts ...Option) *Resolver {
	r := &Resolver{
		store: st,
		log:   zerolog.Nop(),
		glyph: transcription.DefaultIllegibleGlyph,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stream is a resolved item sequence. Warnings describe references that
// could not be followed safely.
type Stream struct {
	Items    []*transcription.StreamItem `json:"items"`
	Warnings []string                    `json:"warnings,omitempty"`
}

// IDs returns the item ids of the stream in order.
func (s *Stream) IDs() []int64 {
	ids := make([]int64, len(s.Items))
	for i, it := range s.Items {
		ids[i] = it.ID
	}
	return ids
}

// ResolveStream returns the resolved stream of the document strictly
// between from and to, as of at. A zero column number in a bound covers
// the whole page.
func (r *Resolver) ResolveStream(docID int64, from, to transcription.Location, at time.Time) (*Stream, error) {
	instant := transcription.Instant(at)
	base, err := r.store.ListLineItemsBetween(docID, from, to, instant)
	if err != nil {
		return nil, transcription.Storage("list line items", err)
	}

	w := r.newWalker(instant)
	defer w.release()
	for _, si := range base {
		w.expect(&si.Item)
	}
	for _, si := range base {
		if err := w.visit(si); err != nil {
			return nil, err
		}
	}
	r.log.Debug().Int64("doc_id", docID).Int("base", len(base)).Int("items", len(w.out.Items)).Msg("stream resolved")
	return w.out, nil
}

// ResolveElementStream returns the items of one element in sequence with
// the same cross references followed.
func (r *Resolver) ResolveElementStream(elementID int64, at time.Time) (*Stream, error) {
	instant := transcription.Instant(at)
	el, err := r.store.GetElement(elementID, instant)
	if err != nil {
		return nil, transcription.Storage("get element", err)
	}
	if el == nil {
		return nil, fmt.Errorf("element %d: %w", elementID, transcription.ErrNotFound)
	}

	w := r.newWalker(instant)
	defer w.release()
	if err := w.element(el, false); err != nil {
		return nil, err
	}
	return w.out, nil
}

// walker carries the state of one resolution.
type walker struct {
	r       *Resolver
	at      int64
	emitted map[int64]bool
	// ahead holds the anchors of the sequences being walked that are not
	// visited yet.
	ahead map[int64]bool
	// entered holds the elements whose items are being, or have been, spliced.
	entered map[int64]bool
	pages   map[int64]*transcription.Page
	out     *Stream
}

func (r *Resolver) newWalker(at int64) *walker {
	return &walker{
		r:       r,
		at:      at,
		emitted: pool.GetIDSet(),
		ahead:   pool.GetIDSet(),
		entered: pool.GetIDSet(),
		pages:   make(map[int64]*transcription.Page),
		out:     &Stream{Items: []*transcription.StreamItem{}},
	}
}

func (w *walker) release() {
	pool.PutIDSet(w.emitted)
	pool.PutIDSet(w.ahead)
	pool.PutIDSet(w.entered)
}

func (w *walker) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	w.out.Warnings = append(w.out.Warnings, msg)
	w.r.log.Warn().Msg(msg)
}

func (w *walker) expect(it *transcription.Item) {
	if it.Type.IsAnchor() && !w.emitted[it.ID] {
		w.ahead[it.ID] = true
	}
}

// visit emits an item and whatever stands in for it.
func (w *walker) visit(si *transcription.StreamItem) error {
	if w.emitted[si.ID] {
		return nil
	}
	if si.Type == transcription.ItemAddition && w.ahead[si.Target] {
		live, err := w.r.store.FindAdditionByTarget(si.Target, w.at)
		if err != nil {
			return transcription.Storage("find addition", err)
		}
		if live != nil && live.ID == si.ID {
			// Emitted after its anchor.
			return nil
		}
	}
	w.emitted[si.ID] = true
	delete(w.ahead, si.ID)
	w.out.Items = append(w.out.Items, si)

	if !si.Type.IsAnchor() {
		return nil
	}

	add, err := w.r.store.FindAdditionByTarget(si.ID, w.at)
	if err != nil {
		return transcription.Storage("find addition", err)
	}
	if add != nil {
		si.Superseded = true
		if w.emitted[add.ID] {
			return nil
		}
		w.emitted[add.ID] = true
		w.out.Items = append(w.out.Items, &transcription.StreamItem{
			Item:          *add,
			ElementType:   si.ElementType,
			PageID:        si.PageID,
			PageSeq:       si.PageSeq,
			Foliation:     si.Foliation,
			ColumnNumber:  si.ColumnNumber,
			ElementSeq:    si.ElementSeq,
			ElementHandID: si.ElementHandID,
			Spliced:       true,
		})
		return nil
	}

	el, err := w.r.store.FindReferencingElement(si.ID, spliceTypes, w.at)
	if err != nil {
		return transcription.Storage("find referencing element", err)
	}
	if el == nil {
		return nil
	}
	if w.entered[el.ID] {
		w.warn("reference cycle through element %d at item %d", el.ID, si.ID)
		return nil
	}
	si.Superseded = true
	return w.element(el, true)
}

// element emits the items of el. Spliced items are flagged as such, the
// first one as the start of a splice.
func (w *walker) element(el *transcription.Element, spliced bool) error {
	if w.entered[el.ID] {
		w.warn("reference cycle through element %d", el.ID)
		return nil
	}
	w.entered[el.ID] = true
	for _, it := range el.Items {
		w.expect(it)
	}

	page, err := w.page(el.PageID)
	if err != nil {
		return err
	}
	for i, it := range el.Items {
		si := &transcription.StreamItem{
			Item:          *it,
			ElementType:   el.Type,
			PageID:        el.PageID,
			ColumnNumber:  el.ColumnNumber,
			ElementSeq:    el.Seq,
			ElementHandID: el.HandID,
			Reference:     el.Reference,
			Placement:     el.Placement,
			Spliced:       spliced,
			SpliceStart:   spliced && i == 0,
		}
		if page != nil {
			si.PageSeq = page.Seq
			si.Foliation = page.Foliation
		}
		if err := w.visit(si); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) page(id int64) (*transcription.Page, error) {
	if p, ok := w.pages[id]; ok {
		return p, nil
	}
	p, err := w.r.store.GetPage(id, w.at)
	if err != nil {
		return nil, transcription.Storage("get page", err)
	}
	w.pages[id] = p
	return p, nil
}
