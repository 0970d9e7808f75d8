package store

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/scriptorium/internal/metrics"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

const (
	t0 int64 = 1_000_000
	t1 int64 = 2_000_000
	t2 int64 = 3_000_000
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedPage creates a doc, an editor and a one-column page.
func seedPage(t *testing.T, s *SQLiteStore, seq int) (docID, editorID, pageID int64) {
	t.Helper()
	docs, err := s.ListDocs()
	require.NoError(t, err)
	if len(docs) == 0 {
		docID, err = s.CreateDoc(&Doc{Title: "Codex", Lang: "la", DocType: "mss", CreatedAt: t0})
		require.NoError(t, err)
		editorID, err = s.CreateEditor(&Editor{Username: "ed", CreatedAt: t0})
		require.NoError(t, err)
	} else {
		docID, editorID = docs[0].ID, 1
	}
	pageID, err = s.CreatePage(&transcription.Page{
		DocID: docID, PageNumber: seq, Seq: seq, NumColumns: 1, Lang: "la",
	}, t0)
	require.NoError(t, err)
	return docID, editorID, pageID
}

func addLine(t *testing.T, s *SQLiteStore, pageID, editorID int64, seq int, at int64, items ...*transcription.Item) *transcription.Element {
	t.Helper()
	e := &transcription.Element{
		PageID: pageID, ColumnNumber: 1, Seq: seq, Type: transcription.ElementLine,
		Lang: "la", EditorID: editorID, Reference: int64(seq + 1),
	}
	_, err := s.CreateElement(e, at)
	require.NoError(t, err)
	for i, it := range items {
		it.ElementID = e.ID
		it.Seq = i
		if it.Lang == "" {
			it.Lang = "la"
		}
		_, err := s.CreateItem(it, at)
		require.NoError(t, err)
		e.Items = append(e.Items, it)
	}
	return e
}

func TestDocsAndEditors(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateDoc(&Doc{Title: "Codex", ShortTitle: "C", Lang: "la", DocType: "mss", CreatedAt: t0})
	require.NoError(t, err)

	doc, err := s.GetDoc(id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Codex", doc.Title)
	assert.Equal(t, "C", doc.ShortTitle)
	assert.Empty(t, doc.ImageSource)

	missing, err := s.GetDoc(99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	edID, err := s.CreateEditor(&Editor{Username: "ed", FullName: "Ed Itor", CreatedAt: t0})
	require.NoError(t, err)
	ok, err := s.EditorExists(edID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.EditorExists(edID + 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsurePageTypesKeepsExisting(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.EnsurePageTypes([]string{"Not Set", "Text"}))
	require.NoError(t, s.EnsurePageTypes([]string{"Other", "Text", "Front Matter"}))

	types, err := s.ListPageTypes()
	require.NoError(t, err)
	require.Len(t, types, 3)
	assert.Equal(t, "Not Set", types[0].Name)
	assert.Equal(t, "Front Matter", types[2].Name)

	ok, err := s.PageTypeExists(2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.PageTypeExists(3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPageVersioning(t *testing.T) {
	s := newTestStore(t)
	docID, _, pageID := seedPage(t, s, 1)

	page, err := s.GetPage(pageID, t0)
	require.NoError(t, err)
	require.NotNil(t, page)
	page.Foliation = "1r"
	require.NoError(t, s.UpdatePage(page, t1))
	assert.Equal(t, 2, page.Version)

	before, err := s.GetPage(pageID, t0)
	require.NoError(t, err)
	assert.Empty(t, before.Foliation)
	assert.Equal(t, 1, before.Version)

	after, err := s.GetPage(pageID, t1)
	require.NoError(t, err)
	assert.Equal(t, "1r", after.Foliation)

	bySeq, err := s.GetPageBySeq(docID, 1, t2)
	require.NoError(t, err)
	assert.Equal(t, pageID, bySeq.ID)

	pages, err := s.ListPages(docID, t2)
	require.NoError(t, err)
	assert.Len(t, pages, 1)

	require.NoError(t, s.DeletePage(pageID))
	gone, err := s.GetPage(pageID, t2)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestUpdateUnknownRow(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateElement(&transcription.Element{ID: 42}, t0)
	assert.ErrorIs(t, err, ErrNoCurrentVersion)
}

func TestElementAndItemVersions(t *testing.T) {
	s := newTestStore(t)
	_, editorID, pageID := seedPage(t, s, 1)

	e := addLine(t, s, pageID, editorID, 0, t0, transcription.NewText("alpha"), transcription.NewText("beta"))
	require.Len(t, e.Items, 2)

	// Reseat the element and rewrite one item at t1.
	e.Seq = 3
	require.NoError(t, s.UpdateElement(e, t1))
	beta := e.Items[1]
	beta.Text = "gamma"
	require.NoError(t, s.UpdateItem(beta, t1))

	old, err := s.GetElement(e.ID, t0)
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Equal(t, 0, old.Seq)
	require.Len(t, old.Items, 2)
	assert.Equal(t, "beta", old.Items[1].Text)

	cur, err := s.GetElement(e.ID, t1)
	require.NoError(t, err)
	assert.Equal(t, 3, cur.Seq)
	assert.Equal(t, "gamma", cur.Items[1].Text)
	assert.Equal(t, beta.ID, cur.Items[1].ID)

	versions, err := s.ListElementVersions(e.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.NotNil(t, versions[0].ValidUntil)
	assert.Equal(t, t1, *versions[0].ValidUntil)
	assert.Nil(t, versions[1].ValidUntil)

	// Closing removes the element from later reads only.
	closed, err := s.CloseElement(e.ID, t2)
	require.NoError(t, err)
	assert.True(t, closed)
	closed, err = s.CloseElement(e.ID, t2)
	require.NoError(t, err)
	assert.False(t, closed)

	list, err := s.ListColumnElements(pageID, 1, t2)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = s.ListColumnElements(pageID, 1, t1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err := s.CountPageElements(pageID, t1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFindReferences(t *testing.T) {
	s := newTestStore(t)
	_, editorID, pageID := seedPage(t, s, 1)

	del := transcription.NewDeletion("wrong", "strikeout")
	line := addLine(t, s, pageID, editorID, 0, t0, del, transcription.NewText("rest"))
	add := transcription.NewAddition("right", "above", del.ID)
	addLine(t, s, pageID, editorID, 1, t0, add)

	found, err := s.FindAdditionByTarget(del.ID, t0)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, add.ID, found.ID)

	sub := &transcription.Element{
		PageID: pageID, ColumnNumber: 1, Seq: 2, Type: transcription.ElementSubstitution,
		Lang: "la", EditorID: editorID, Reference: line.Items[1].ID,
	}
	_, err = s.CreateElement(sub, t0)
	require.NoError(t, err)

	ref, err := s.FindReferencingElement(line.Items[1].ID,
		[]transcription.ElementType{transcription.ElementSubstitution, transcription.ElementAddition}, t0)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, sub.ID, ref.ID)

	none, err := s.FindReferencingElement(line.Items[1].ID, []transcription.ElementType{transcription.ElementAddition}, t0)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestListLineItemsBetween(t *testing.T) {
	s := newTestStore(t)
	docID, editorID, p1 := seedPage(t, s, 1)
	_, _, p2 := seedPage(t, s, 2)

	addLine(t, s, p1, editorID, 0, t0, transcription.NewText("a"), transcription.NewText("b"))
	addLine(t, s, p1, editorID, 1, t0, transcription.NewText("c"))
	addLine(t, s, p2, editorID, 0, t0, transcription.NewText("d"))

	gloss := &transcription.Element{
		PageID: p1, ColumnNumber: 1, Seq: 2, Type: transcription.ElementGloss, Lang: "la", EditorID: editorID,
	}
	_, err := s.CreateElement(gloss, t0)
	require.NoError(t, err)
	_, err = s.CreateItem(&transcription.Item{ElementID: gloss.ID, Type: transcription.ItemText, Lang: "la", Text: "g"}, t0)
	require.NoError(t, err)

	texts := func(items []*transcription.StreamItem) []string {
		var out []string
		for _, it := range items {
			out = append(out, it.Text)
		}
		return out
	}

	all, err := s.ListLineItemsBetween(docID, transcription.Location{PageSeq: 1}, transcription.Location{PageSeq: 2}, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, texts(all))
	assert.Equal(t, 2, all[3].PageSeq)

	// Exclusive bounds inside a column.
	mid, err := s.ListLineItemsBetween(docID,
		transcription.Location{PageSeq: 1, ColumnNumber: 1, ElementSeq: 0, ItemSeq: 0},
		transcription.Location{PageSeq: 2, ColumnNumber: 1, ElementSeq: 0, ItemSeq: 0}, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, texts(mid))

	empty, err := s.ListLineItemsBetween(docID, transcription.Location{PageSeq: 2}, transcription.Location{PageSeq: 1}, t0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListChunkMarks(t *testing.T) {
	s := newTestStore(t)
	docID, editorID, pageID := seedPage(t, s, 1)

	addLine(t, s, pageID, editorID, 0, t0,
		transcription.NewChunkMark("AW47", 1, transcription.ChunkStart, "A", 0),
		transcription.NewText("x"),
		transcription.NewChunkMark("AW47", 2, transcription.ChunkStart, "A", 0),
		transcription.NewChunkMark("AW47", 1, transcription.ChunkEnd, "A", 0),
	)

	marks, err := s.ListChunkMarks(docID, "AW47", 1, "A", t0)
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, transcription.ChunkStart, marks[0].Kind)
	assert.Equal(t, transcription.ChunkEnd, marks[1].Kind)
	assert.Equal(t, 1, marks[1].Chunk)
	assert.Equal(t, 3, marks[1].ItemSeq)
}

func TestNotesAndVersions(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateNote(&transcription.EditorialNote{
		Type: transcription.NoteInline, Target: 7, AuthorID: 1, Time: t0, Text: "first",
	})
	require.NoError(t, err)

	note, err := s.GetNote(id)
	require.NoError(t, err)
	note.Text = "edited"
	require.NoError(t, s.UpdateNote(note))

	notes, err := s.ListNotesForTargets(transcription.NoteInline, []int64{7, 8})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "edited", notes[0].Text)

	off, err := s.ListNotesForTarget(transcription.NoteOffline, 7)
	require.NoError(t, err)
	assert.Empty(t, off)

	_, err = s.RecordTranscriptionVersion(&transcription.TranscriptionVersion{
		PageID: 1, Column: 1, Time: t1, AuthorID: 1, Description: "saved", Review: true,
	})
	require.NoError(t, err)
	versions, err := s.ListTranscriptionVersions(1, 1)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.True(t, versions[0].Review)
	assert.False(t, versions[0].Minor)
	assert.Equal(t, "saved", versions[0].Description)
}

func TestExportImport(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsurePageTypes([]string{"Not Set"}))
	_, editorID, pageID := seedPage(t, s, 1)
	e := addLine(t, s, pageID, editorID, 0, t0, transcription.NewText("alpha"))
	e.Items[0].Text = "beta"
	require.NoError(t, s.UpdateItem(e.Items[0], t1))
	_, err := s.CreateNote(&transcription.EditorialNote{
		Type: transcription.NoteOffline, Target: e.ID, AuthorID: editorID, Time: t1, Text: "note",
	})
	require.NoError(t, err)

	data, err := s.Export()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	// Import into a fresh store to simulate a reload.
	s2 := newTestStore(t)
	_, err = s2.CreateDoc(&Doc{Title: "stale", Lang: "en", DocType: "mss"})
	require.NoError(t, err)
	require.NoError(t, s2.Import(data))

	docs, err := s2.ListDocs()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Codex", docs[0].Title)

	// History survives the round trip.
	old, err := s2.GetElement(e.ID, t0)
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Equal(t, "alpha", old.Items[0].Text)
	cur, err := s2.GetElement(e.ID, t2)
	require.NoError(t, err)
	assert.Equal(t, "beta", cur.Items[0].Text)

	notes, err := s2.ListNotesForTarget(transcription.NoteOffline, e.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	again, err := s2.Export()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestInfo(t *testing.T) {
	s := newTestStore(t)
	info, err := s.Info()
	require.NoError(t, err)
	assert.NotEmpty(t, info.SQLiteVersion)
	assert.NotEmpty(t, info.VecVersion)
}

func TestQueryCounter(t *testing.T) {
	s := newTestStore(t)
	reg := prometheus.NewRegistry()
	q := metrics.NewQueryCounter(reg)
	s.SetQueryCounter(q)

	_, err := s.CreateDoc(&Doc{Title: "Codex", Lang: "la", DocType: "mss"})
	require.NoError(t, err)
	_, err = s.ListDocs()
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(q.Vec().WithLabelValues(metrics.KindCreate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(q.Vec().WithLabelValues(metrics.KindSelect)))
}
