package transcription

import "time"

// Interval is the valid-time interval of a versioned row, in Unix
// microseconds. A nil ValidUntil means the row is still open.
type Interval struct {
	ValidFrom  int64  `json:"validFrom"`
	ValidUntil *int64 `json:"validUntil,omitempty"`
}

// LiveAt reports whether the interval contains the instant.
func (iv Interval) LiveAt(at int64) bool {
	return iv.ValidFrom <= at && (iv.ValidUntil == nil || *iv.ValidUntil > at)
}

// Instant converts a wall-clock time to the store's instant representation.
func Instant(t time.Time) int64 {
	return t.UnixMicro()
}

// FromInstant converts a stored instant back to a time.
func FromInstant(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// Page is one page of a document.
// Foliation is empty when unset.
type Page struct {
	ID         int64  `json:"id"`
	DocID      int64  `json:"docId" validate:"gt=0"`
	PageNumber int    `json:"pageNumber" validate:"gt=0"`
	Seq        int    `json:"seq" validate:"gt=0"`
	NumColumns int    `json:"numColumns" validate:"gte=0"`
	Lang       string `json:"lang" validate:"langcode"`
	Foliation  string `json:"foliation,omitempty"`
	Type       int    `json:"type" validate:"gte=0"`
	Version    int    `json:"version"`
	Interval
}

// Element is a column element: a line, a heading, a marginal gloss and so on.
// For additions and substitutions Reference is the id of the item the
// element's content replaces or supplements; for lines it is the line number.
type Element struct {
	ID           int64       `json:"id"`
	PageID       int64       `json:"pageId"`
	ColumnNumber int         `json:"columnNumber"`
	Seq          int         `json:"seq"`
	Type         ElementType `json:"type" validate:"elementtype"`
	Lang         string      `json:"lang" validate:"langcode"`
	EditorID     int64       `json:"editorId" validate:"gt=0"`
	HandID       int         `json:"handId" validate:"gte=0"`
	Reference    int64       `json:"reference"`
	Placement    string      `json:"placement,omitempty"`
	Items        []*Item     `json:"items" validate:"dive,required"`
	Version      int         `json:"version"`
	Interval
}

// Item is one transcription text item inside an element. Only the payload
// fields used by the item's Type are meaningful; Normalize clears the rest.
type Item struct {
	ID        int64    `json:"id"`
	ElementID int64    `json:"columnElementId"`
	Seq       int      `json:"seq"`
	Type      ItemType `json:"type" validate:"itemtype"`
	Lang      string   `json:"lang" validate:"langcode"`
	HandID    int      `json:"handId" validate:"gte=0"`
	Text      string   `json:"text,omitempty"`
	AltText   string   `json:"altText,omitempty"`
	ExtraInfo string   `json:"extraInfo,omitempty"`
	Length    int      `json:"length,omitempty" validate:"gte=0"`
	Target    int64    `json:"target,omitempty"`
	Version   int      `json:"version"`
	Interval
}

// Normalize clears payload fields the item's variant does not carry and
// fills in variant defaults.
func (it *Item) Normalize() {
	f := it.Type.fields()
	if f&fieldText == 0 {
		it.Text = ""
	}
	if f&fieldAltText == 0 {
		it.AltText = ""
	}
	if f&fieldExtraInfo == 0 {
		it.ExtraInfo = ""
	}
	if f&fieldLength == 0 {
		it.Length = 0
	}
	if f&fieldTarget == 0 {
		it.Target = 0
	}
	switch it.Type {
	case ItemIllegible:
		if it.ExtraInfo == "" {
			it.ExtraInfo = ReasonIllegible
		}
	case ItemUnclear:
		if it.ExtraInfo == "" {
			it.ExtraInfo = DefaultUnclearReason
		}
	}
}

// SameContent reports whether two items are equal in every business field,
// ignoring id, element id, sequence and time.
func (it *Item) SameContent(o *Item) bool {
	return it.Type == o.Type &&
		it.Lang == o.Lang &&
		it.HandID == o.HandID &&
		it.Text == o.Text &&
		it.AltText == o.AltText &&
		it.ExtraInfo == o.ExtraInfo &&
		it.Length == o.Length &&
		it.Target == o.Target
}

// Clone returns a shallow copy of the item with an open interval.
func (it *Item) Clone() *Item {
	c := *it
	c.ValidUntil = nil
	return &c
}

// SameContent reports whether two elements are equal in every business
// field, ignoring id, sequence, time, editor attribution and items.
func (e *Element) SameContent(o *Element) bool {
	return e.PageID == o.PageID &&
		e.ColumnNumber == o.ColumnNumber &&
		e.Type == o.Type &&
		e.Lang == o.Lang &&
		e.HandID == o.HandID &&
		e.Reference == o.Reference &&
		e.Placement == o.Placement
}

// Clone returns a copy of the element with cloned items.
func (e *Element) Clone() *Element {
	c := *e
	c.ValidUntil = nil
	c.Items = make([]*Item, len(e.Items))
	for i, it := range e.Items {
		c.Items[i] = it.Clone()
	}
	return &c
}

// Location addresses an item position in document order.
type Location struct {
	PageSeq      int `json:"pageSeq"`
	ColumnNumber int `json:"columnNumber"`
	ElementSeq   int `json:"elementSeq"`
	ItemSeq      int `json:"itemSeq"`
}

// Compare orders locations by page sequence, column, element sequence and
// item sequence. It returns -1, 0 or 1.
func (l Location) Compare(o Location) int {
	a := [4]int{l.PageSeq, l.ColumnNumber, l.ElementSeq, l.ItemSeq}
	b := [4]int{o.PageSeq, o.ColumnNumber, o.ElementSeq, o.ItemSeq}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// After reports whether l comes strictly after o.
func (l Location) After(o Location) bool {
	return l.Compare(o) > 0
}

// allColumns stands in for "after the last column" in an upper bound.
const allColumns = 1 << 30

// UpperBound returns the location to use as an exclusive upper bound.
// A zero column number covers every column of the page, so {p, 0}
// includes page p; pass {p-1, 0} to stop before it.
func (l Location) UpperBound() Location {
	if l.ColumnNumber == 0 {
		return Location{PageSeq: l.PageSeq, ColumnNumber: allColumns}
	}
	return l
}

// LowerBound returns the location to use as an exclusive lower bound.
// A zero column number covers every column of the page.
func (l Location) LowerBound() Location {
	if l.ColumnNumber == 0 {
		return Location{PageSeq: l.PageSeq, ColumnNumber: 0, ElementSeq: -1, ItemSeq: -1}
	}
	return l
}

// StreamItem is an item together with the element and page context it was
// read in. Superseded marks an anchor whose content is replaced by the
// splice that follows it; Spliced marks items brought in by such a splice.
type StreamItem struct {
	Item
	ElementType   ElementType `json:"elementType"`
	PageID        int64       `json:"pageId"`
	PageSeq       int         `json:"pageSeq"`
	Foliation     string      `json:"foliation,omitempty"`
	ColumnNumber  int         `json:"columnNumber"`
	ElementSeq    int         `json:"elementSeq"`
	ElementHandID int         `json:"elementHandId"`
	Reference     int64       `json:"reference,omitempty"`
	Placement     string      `json:"placement,omitempty"`

	Superseded  bool `json:"superseded,omitempty"`
	Spliced     bool `json:"spliced,omitempty"`
	SpliceStart bool `json:"spliceStart,omitempty"`
}

// Location returns the document-order position of the item.
func (s *StreamItem) Location() Location {
	return Location{PageSeq: s.PageSeq, ColumnNumber: s.ColumnNumber, ElementSeq: s.ElementSeq, ItemSeq: s.Seq}
}

// ChunkMark is a located chunk boundary mark as read from storage.
type ChunkMark struct {
	ItemID         int64  `json:"itemId"`
	PageID         int64  `json:"pageId"`
	PageSeq        int    `json:"pageSeq"`
	Foliation      string `json:"foliation"`
	ColumnNumber   int    `json:"columnNumber"`
	ElementSeq     int    `json:"elementSeq"`
	ItemSeq        int    `json:"itemSeq"`
	Kind           string `json:"type"`
	WorkID         string `json:"workId"`
	Chunk          int    `json:"chunk"`
	LocalWitnessID string `json:"lwid"`
	Segment        int    `json:"segment"`
}

// Location returns the document-order position of the mark.
func (m *ChunkMark) Location() Location {
	return Location{PageSeq: m.PageSeq, ColumnNumber: m.ColumnNumber, ElementSeq: m.ElementSeq, ItemSeq: m.ItemSeq}
}

// EditorialNote is a mutable annotation attached to an item (inline) or
// an element (offline). Notes have no history.
type EditorialNote struct {
	ID       int64    `json:"id"`
	Type     NoteType `json:"type" validate:"notetype"`
	Target   int64    `json:"target" validate:"gt=0"`
	AuthorID int64    `json:"authorId" validate:"gt=0"`
	Lang     string   `json:"lang" validate:"omitempty,langcode"`
	Time     int64    `json:"time"`
	Text     string   `json:"text" validate:"required"`
}

// SameContent compares notes ignoring id and time.
func (n *EditorialNote) SameContent(o *EditorialNote) bool {
	return n.Type == o.Type &&
		n.Target == o.Target &&
		n.AuthorID == o.AuthorID &&
		n.Lang == o.Lang &&
		n.Text == o.Text
}

// TranscriptionVersion records who saved a column and when.
type TranscriptionVersion struct {
	ID          int64  `json:"id"`
	PageID      int64  `json:"pageId"`
	Column      int    `json:"column"`
	Time        int64  `json:"time"`
	AuthorID    int64  `json:"authorId"`
	Description string `json:"description,omitempty"`
	Minor       bool   `json:"isMinor"`
	Review      bool   `json:"isReview"`
}
