// Package store provides SQLite-backed temporal persistence for transcriptions.
// Pages, elements and items are versioned rows keyed by (id, version) with a
// valid-time interval; every other table holds plain mutable rows.
package store

import "github.com/kittclouds/scriptorium/pkg/transcription"

// Doc is a manuscript or printed document.
type Doc struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ShortTitle  string `json:"shortTitle,omitempty"`
	Lang        string `json:"lang"`
	DocType     string `json:"docType"`
	ImageSource string `json:"imageSource,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// Editor is a person allowed to author transcriptions and notes.
// Accounts and roles are managed elsewhere; this is only the registry.
type Editor struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// PageType is a named page classification.
type PageType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Info describes the underlying engine.
type Info struct {
	SQLiteVersion string `json:"sqliteVersion"`
	VecVersion    string `json:"vecVersion"`
}

// Storer defines the interface for data persistence.
// Instants are Unix microseconds; reads return the rows live at the instant.
// Lookups of missing rows return (nil, nil).
type Storer interface {
	// Docs
	CreateDoc(doc *Doc) (int64, error)
	GetDoc(id int64) (*Doc, error)
	ListDocs() ([]*Doc, error)

	// Editors
	CreateEditor(editor *Editor) (int64, error)
	GetEditor(id int64) (*Editor, error)
	EditorExists(id int64) (bool, error)

	// Page types
	EnsurePageTypes(names []string) error
	ListPageTypes() ([]*PageType, error)
	PageTypeExists(id int) (bool, error)

	// Pages - versioned
	CreatePage(page *transcription.Page, at int64) (int64, error)
	UpdatePage(page *transcription.Page, at int64) error
	GetPage(id int64, at int64) (*transcription.Page, error)
	GetPageByNumber(docID int64, pageNumber int, at int64) (*transcription.Page, error)
	GetPageBySeq(docID int64, seq int, at int64) (*transcription.Page, error)
	ListPages(docID int64, at int64) ([]*transcription.Page, error)
	DeletePage(id int64) error

	// Elements - versioned
	CreateElement(element *transcription.Element, at int64) (int64, error)
	UpdateElement(element *transcription.Element, at int64) error
	CloseElement(id int64, at int64) (bool, error)
	GetElement(id int64, at int64) (*transcription.Element, error)
	ListColumnElements(pageID int64, column int, at int64) ([]*transcription.Element, error)
	ListElementVersions(id int64) ([]*transcription.Element, error)
	CountPageElements(pageID int64, at int64) (int, error)
	FindReferencingElement(ref int64, types []transcription.ElementType, at int64) (*transcription.Element, error)

	// Items - versioned
	CreateItem(item *transcription.Item, at int64) (int64, error)
	UpdateItem(item *transcription.Item, at int64) error
	CloseItem(id int64, at int64) (bool, error)
	GetItem(id int64, at int64) (*transcription.Item, error)
	ItemExists(id int64, at int64) (bool, error)
	ListElementItems(elementID int64, at int64) ([]*transcription.Item, error)
	FindAdditionByTarget(target int64, at int64) (*transcription.Item, error)

	// Document-order queries
	ListLineItemsBetween(docID int64, from, to transcription.Location, at int64) ([]*transcription.StreamItem, error)
	ListChunkMarks(docID int64, workID string, chunk int, localWitnessID string, at int64) ([]*transcription.ChunkMark, error)

	// Editorial notes - mutable
	CreateNote(note *transcription.EditorialNote) (int64, error)
	UpdateNote(note *transcription.EditorialNote) error
	GetNote(id int64) (*transcription.EditorialNote, error)
	ListNotesForTarget(noteType transcription.NoteType, target int64) ([]*transcription.EditorialNote, error)
	ListNotesForTargets(noteType transcription.NoteType, targets []int64) ([]*transcription.EditorialNote, error)

	// Transcription versions
	RecordTranscriptionVersion(v *transcription.TranscriptionVersion) (int64, error)
	ListTranscriptionVersions(pageID int64, column int) ([]*transcription.TranscriptionVersion, error)

	// Export/Import (full history)
	Export() ([]byte, error)
	Import(data []byte) error

	// Lifecycle
	Info() (*Info, error)
	Close() error
}
