package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/scriptorium/internal/store"
	"github.com/kittclouds/scriptorium/pkg/reconcile"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

var (
	t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t1.Add(time.Hour)
	t3 = t2.Add(time.Hour)
)

type fixture struct {
	store    *store.SQLiteStore
	engine   *reconcile.Engine
	resolver *Resolver
	docID    int64
	editorID int64
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	docID, err := st.CreateDoc(&store.Doc{Title: "Codex", Lang: "la", DocType: "mss"})
	require.NoError(t, err)
	editorID, err := st.CreateEditor(&store.Editor{Username: "ed"})
	require.NoError(t, err)

	return &fixture{
		store:    st,
		engine:   reconcile.New(st),
		resolver: NewResolver(st, opts...),
		docID:    docID,
		editorID: editorID,
	}
}

func (f *fixture) page(t *testing.T, seq, columns int, foliation string) int64 {
	t.Helper()
	id, err := f.store.CreatePage(&transcription.Page{
		DocID: f.docID, PageNumber: seq, Seq: seq, NumColumns: columns, Lang: "la", Foliation: foliation,
	}, transcription.Instant(t0))
	require.NoError(t, err)
	return id
}

func (f *fixture) element(typ transcription.ElementType, ref int64, items ...*transcription.Item) *transcription.Element {
	return &transcription.Element{Type: typ, Lang: "la", EditorID: f.editorID, Reference: ref, Items: items}
}

func (f *fixture) line(items ...*transcription.Item) *transcription.Element {
	return f.element(transcription.ElementLine, 0, items...)
}

func (f *fixture) save(t *testing.T, pageID int64, column int, elements ...*transcription.Element) *reconcile.Result {
	t.Helper()
	res, err := f.engine.ReconcileColumn(pageID, column, elements, t1)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	return res
}

func (f *fixture) whole(t *testing.T) *Stream {
	t.Helper()
	s, err := f.resolver.ResolveStream(f.docID, transcription.Location{}, transcription.Location{PageSeq: 1 << 20}, t2)
	require.NoError(t, err)
	return s
}

func withID(id int64, it *transcription.Item) *transcription.Item {
	it.ID = id
	return it
}

func TestResolveStreamSplicesAddition(t *testing.T) {
	f := newFixture(t)
	pageID := f.page(t, 1, 1, "")

	res := f.save(t, pageID, 1, f.line(
		withID(101, transcription.NewDeletion("old", "strikeout")),
		withID(102, transcription.NewAddition("new ", "above", 101)),
		withID(103, transcription.NewText("word")),
		withID(104, transcription.NewText(" end")),
	))

	s := f.whole(t)
	require.Len(t, s.Items, 4)
	assert.Equal(t, []int64{res.ItemIDs[101], res.ItemIDs[102], res.ItemIDs[103], res.ItemIDs[104]}, s.IDs())

	assert.True(t, s.Items[0].Superseded)
	assert.True(t, s.Items[1].Spliced)
	assert.False(t, s.Items[1].SpliceStart)
	assert.Equal(t, s.Items[0].PageSeq, s.Items[1].PageSeq)
	assert.False(t, s.Items[2].Spliced)
	assert.Empty(t, s.Warnings)

	assert.Equal(t, "new word end", f.resolver.PlainText(s))
}

func TestResolveStreamAdditionBeforeItsDeletion(t *testing.T) {
	f := newFixture(t)
	pageID := f.page(t, 1, 1, "")

	res := f.save(t, pageID, 1, f.line(
		withID(1, transcription.NewAddition("new", "above", 2)),
		withID(2, transcription.NewDeletion("old", "strikeout")),
		withID(3, transcription.NewText(" end")),
	))

	s := f.whole(t)
	require.Len(t, s.Items, 3)
	assert.Equal(t, []int64{res.ItemIDs[2], res.ItemIDs[1], res.ItemIDs[3]}, s.IDs())
	assert.True(t, s.Items[0].Superseded)
	assert.True(t, s.Items[1].Spliced)
	assert.Equal(t, "new end", f.resolver.PlainText(s))

	el, err := f.resolver.ResolveElementStream(s.Items[0].ElementID, t2)
	require.NoError(t, err)
	assert.Equal(t, s.IDs(), el.IDs())
	assert.Equal(t, "new end", f.resolver.PlainText(el))
}

func TestResolveStreamSplicesSubstitution(t *testing.T) {
	f := newFixture(t)
	pageID := f.page(t, 1, 1, "")

	res := f.save(t, pageID, 1,
		f.line(
			withID(201, transcription.NewText("Some text.")),
			withID(202, transcription.NewMarginalMark("#")),
			withID(203, transcription.NewText(" More text.")),
		),
		f.element(transcription.ElementSubstitution, 202,
			withID(204, transcription.NewText("Marginal text.")),
		),
	)

	s := f.whole(t)
	require.Len(t, s.Items, 4)
	assert.Equal(t, []int64{res.ItemIDs[201], res.ItemIDs[202], res.ItemIDs[204], res.ItemIDs[203]}, s.IDs())
	assert.True(t, s.Items[1].Superseded)
	assert.True(t, s.Items[2].SpliceStart)
	assert.Equal(t, transcription.ElementSubstitution, s.Items[2].ElementType)

	assert.Equal(t, "Some text. Marginal text. More text.", f.resolver.PlainText(s))
}

func TestResolveStreamIsDuplicateFree(t *testing.T) {
	f := newFixture(t)
	p1 := f.page(t, 1, 2, "1r")
	p2 := f.page(t, 2, 1, "")

	f.save(t, p1, 1,
		f.line(
			withID(1, transcription.NewDeletion("a", "strikeout")),
			withID(2, transcription.NewAddition("b", "above", 1)),
		),
		f.line(withID(3, transcription.NewMarginalMark("*"))),
		f.element(transcription.ElementAddition, 3, withID(4, transcription.NewText("c"))),
	)
	f.save(t, p1, 2, f.line(transcription.NewText("d")))
	f.save(t, p2, 1, f.line(transcription.NewText("e")))

	s := f.whole(t)
	require.Len(t, s.Items, 6)
	seen := make(map[int64]bool)
	for _, id := range s.IDs() {
		assert.False(t, seen[id], "item %d emitted twice", id)
		seen[id] = true
	}
	assert.Equal(t, "b\nc\nd\ne", f.resolver.PlainText(s))
}

func TestResolveStreamBounds(t *testing.T) {
	f := newFixture(t)
	p1 := f.page(t, 1, 2, "")
	f.save(t, p1, 1, f.line(transcription.NewText("one")))
	f.save(t, p1, 2, f.line(transcription.NewText("two")))

	text, err := f.resolver.ColumnText(f.docID, 1, 2, t2)
	require.NoError(t, err)
	assert.Equal(t, "two", text)

	s, err := f.resolver.ResolveStream(f.docID, transcription.Location{PageSeq: 1}, transcription.Location{PageSeq: 1}, t2)
	require.NoError(t, err)
	assert.Len(t, s.Items, 2)

	before, err := f.resolver.ResolveStream(f.docID, transcription.Location{}, transcription.Location{PageSeq: 1}, t0)
	require.NoError(t, err)
	assert.Empty(t, before.Items)
}

func TestResolveElementStreamCycleGuard(t *testing.T) {
	f := newFixture(t)
	pageID := f.page(t, 1, 1, "")
	at := transcription.Instant(t1)

	e1 := &transcription.Element{PageID: pageID, ColumnNumber: 1, Seq: 0, Type: transcription.ElementSubstitution, Lang: "la", EditorID: f.editorID}
	_, err := f.store.CreateElement(e1, at)
	require.NoError(t, err)
	a := &transcription.Item{ElementID: e1.ID, Type: transcription.ItemMarginalMark, Lang: "la", Text: "a"}
	_, err = f.store.CreateItem(a, at)
	require.NoError(t, err)

	e2 := &transcription.Element{PageID: pageID, ColumnNumber: 1, Seq: 1, Type: transcription.ElementSubstitution, Lang: "la", EditorID: f.editorID, Reference: a.ID}
	_, err = f.store.CreateElement(e2, at)
	require.NoError(t, err)
	b := &transcription.Item{ElementID: e2.ID, Type: transcription.ItemMarginalMark, Lang: "la", Text: "b"}
	_, err = f.store.CreateItem(b, at)
	require.NoError(t, err)

	e1.Reference = b.ID
	require.NoError(t, f.store.UpdateElement(e1, transcription.Instant(t2)))

	s, err := f.resolver.ResolveElementStream(e1.ID, t3)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, s.IDs())
	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "reference cycle")
}

func TestResolveElementStreamNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.resolver.ResolveElementStream(999, t2)
	assert.True(t, errors.Is(err, transcription.ErrNotFound))
}

func TestPlainTextIllegibleGlyph(t *testing.T) {
	f := newFixture(t, WithIllegibleGlyph("?"))
	pageID := f.page(t, 1, 1, "")
	f.save(t, pageID, 1, f.line(
		transcription.NewText("ab"),
		transcription.NewIllegible(3, transcription.ReasonDamaged),
	))

	assert.Equal(t, "ab???", f.resolver.PlainText(f.whole(t)))
	assert.Equal(t, "ab"+transcription.DefaultIllegibleGlyph, PlainText(&Stream{Items: []*transcription.StreamItem{
		{Item: *transcription.NewText("ab"), ElementType: transcription.ElementLine},
		{Item: *transcription.NewIllegible(1, ""), ElementType: transcription.ElementLine},
	}}, ""))
}

func TestPlainTextNoWordBreak(t *testing.T) {
	f := newFixture(t)
	pageID := f.page(t, 1, 1, "")
	f.save(t, pageID, 1,
		f.line(transcription.NewText("exam"), transcription.NewNoWordBreak()),
		f.line(transcription.NewText("ple")),
		f.line(transcription.NewText("next")),
	)

	assert.Equal(t, "example\nnext", f.resolver.PlainText(f.whole(t)))
	assert.Equal(t, "", PlainText(nil, ""))
}

func TestPointInTimeReads(t *testing.T) {
	f := newFixture(t)
	pageID := f.page(t, 1, 1, "")
	res := f.save(t, pageID, 1, f.line(withID(7, transcription.NewText("first"))))

	_, err := f.engine.ReconcileColumn(pageID, 1, []*transcription.Element{
		f.line(transcription.NewText("second")),
	}, t2)
	require.NoError(t, err)

	elementID := res.ElementIDs[0]
	before, err := f.resolver.ColumnElements(pageID, 1, t1)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, "first", before[0].Items[0].Text)

	el, err := f.resolver.Element(elementID, t3)
	require.NoError(t, err)
	require.Len(t, el.Items, 1)
	assert.Equal(t, "second", el.Items[0].Text)

	it, err := f.resolver.Item(res.ItemIDs[7], t1)
	require.NoError(t, err)
	assert.Equal(t, "first", it.Text)

	_, err = f.resolver.Item(res.ItemIDs[7], t3)
	assert.True(t, errors.Is(err, transcription.ErrNotFound))

	versions, err := f.resolver.ElementVersions(elementID)
	require.NoError(t, err)
	assert.NotEmpty(t, versions)

	_, err = f.resolver.ElementVersions(12345)
	assert.True(t, errors.Is(err, transcription.ErrNotFound))
}
