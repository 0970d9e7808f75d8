// Package pages manages documents and their versioned pages.
package pages

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kittclouds/scriptorium/internal/store"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// Store is the persistence the service works through.
type Store interface {
	CreateDoc(doc *store.Doc) (int64, error)
	GetDoc(id int64) (*store.Doc, error)
	PageTypeExists(id int) (bool, error)

	CreatePage(page *transcription.Page, at int64) (int64, error)
	UpdatePage(page *transcription.Page, at int64) error
	GetPage(id int64, at int64) (*transcription.Page, error)
	GetPageByNumber(docID int64, pageNumber int, at int64) (*transcription.Page, error)
	GetPageBySeq(docID int64, seq int, at int64) (*transcription.Page, error)
	ListPages(docID int64, at int64) ([]*transcription.Page, error)
	DeletePage(id int64) error
	CountPageElements(pageID int64, at int64) (int, error)

	ListTranscriptionVersions(pageID int64, column int) ([]*transcription.TranscriptionVersion, error)
}

// Service creates, edits and deletes documents and pages.
type Service struct {
	store     Store
	log       zerolog.Logger
	validator *transcription.Validator
}

// NewService creates a page service. A nil validator accepts the default
// languages.
func NewService(st Store, v *transcription.Validator, log zerolog.Logger) *Service {
	if v == nil {
		v = transcription.NewValidator(nil)
	}
	return &Service{store: st, log: log, validator: v}
}

// DocInfo describes a new document.
type DocInfo struct {
	Title       string `json:"title"`
	ShortTitle  string `json:"shortTitle,omitempty"`
	PageCount   int    `json:"pageCount"`
	Lang        string `json:"lang"`
	DocType     string `json:"docType"`
	ImageSource string `json:"imageSource,omitempty"`
}

// NewDoc creates a document with PageCount single-column pages numbered
// and sequenced from 1.
func (s *Service) NewDoc(info DocInfo, at time.Time) (*store.Doc, []*transcription.Page, error) {
	if info.Title == "" {
		return nil, nil, transcription.Invalid("title", "", "document title is required")
	}
	if !s.validator.ValidLanguage(info.Lang) {
		return nil, nil, transcription.Invalid("lang", info.Lang, "invalid language code %q", info.Lang)
	}
	if info.PageCount < 0 {
		return nil, nil, transcription.Invalid("pageCount", info.PageCount, "page count cannot be negative")
	}

	instant := transcription.Instant(at)
	doc := &store.Doc{
		Title:       info.Title,
		ShortTitle:  info.ShortTitle,
		Lang:        info.Lang,
		DocType:     info.DocType,
		ImageSource: info.ImageSource,
		CreatedAt:   instant,
	}
	if _, err := s.store.CreateDoc(doc); err != nil {
		return nil, nil, transcription.Storage("create doc", err)
	}

	pages := make([]*transcription.Page, 0, info.PageCount)
	for n := 1; n <= info.PageCount; n++ {
		p := &transcription.Page{DocID: doc.ID, PageNumber: n, Seq: n, NumColumns: 1, Lang: info.Lang}
		if _, err := s.store.CreatePage(p, instant); err != nil {
			return nil, nil, transcription.Storage("create page", err)
		}
		pages = append(pages, p)
	}
	s.log.Info().Int64("doc_id", doc.ID).Int("pages", len(pages)).Msg("document created")
	return doc, pages, nil
}

// NewPage appends a page to a document. A page number of zero takes the
// new page's sequence number.
func (s *Service) NewPage(docID int64, pageNumber int, lang string, at time.Time) (*transcription.Page, error) {
	instant := transcription.Instant(at)
	doc, err := s.store.GetDoc(docID)
	if err != nil {
		return nil, transcription.Storage("get doc", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("doc %d: %w", docID, transcription.ErrNotFound)
	}
	if lang == "" {
		lang = doc.Lang
	}

	pages, err := s.store.ListPages(docID, instant)
	if err != nil {
		return nil, transcription.Storage("list pages", err)
	}
	seq := len(pages) + 1
	if pageNumber == 0 {
		pageNumber = seq
	}
	for _, p := range pages {
		if p.PageNumber == pageNumber {
			return nil, transcription.Invalid("pageNumber", pageNumber, "page %d already exists", pageNumber)
		}
	}

	page := &transcription.Page{DocID: docID, PageNumber: pageNumber, Seq: seq, NumColumns: 1, Lang: lang}
	if err := s.validator.Struct(page); err != nil {
		return nil, err
	}
	if _, err := s.store.CreatePage(page, instant); err != nil {
		return nil, transcription.Storage("create page", err)
	}
	s.log.Debug().Int64("page_id", page.ID).Int("seq", seq).Msg("page created")
	return page, nil
}

// AddColumn adds one column to a page.
func (s *Service) AddColumn(docID int64, pageNumber int, at time.Time) (*transcription.Page, error) {
	instant := transcription.Instant(at)
	page, err := s.pageByNumber(docID, pageNumber, instant)
	if err != nil {
		return nil, err
	}
	page.NumColumns++
	if err := s.store.UpdatePage(page, instant); err != nil {
		return nil, transcription.Storage("update page", err)
	}
	return page, nil
}

// Setting keys accepted by UpdatePageSettings.
const (
	SettingLang       = "lang"
	SettingFoliation  = "foliation"
	SettingType       = "type"
	SettingNumColumns = "numColumns"
)

// UpdatePageSettings applies the known keys of settings to a page as a new
// version. Unknown keys are ignored. An empty foliation clears it.
func (s *Service) UpdatePageSettings(pageID int64, settings map[string]any, at time.Time) (*transcription.Page, error) {
	if len(settings) == 0 {
		return nil, transcription.Invalid("settings", "", "no settings given")
	}
	instant := transcription.Instant(at)
	page, err := s.store.GetPage(pageID, instant)
	if err != nil {
		return nil, transcription.Storage("get page", err)
	}
	if page == nil {
		return nil, fmt.Errorf("page %d: %w", pageID, transcription.ErrNotFound)
	}

	next := *page
	changed := false
	for key, raw := range settings {
		switch key {
		case SettingLang:
			lang, ok := raw.(string)
			if !ok || !s.validator.ValidLanguage(lang) {
				return nil, transcription.Invalid(key, raw, "invalid language code %v", raw)
			}
			next.Lang = lang
		case SettingFoliation:
			f, ok := raw.(string)
			if !ok && raw != nil {
				return nil, transcription.Invalid(key, raw, "foliation must be a string")
			}
			next.Foliation = f
		case SettingType:
			typ, ok := asInt(raw)
			if !ok {
				return nil, transcription.Invalid(key, raw, "page type must be a number")
			}
			exists, err := s.store.PageTypeExists(typ)
			if err != nil {
				return nil, transcription.Storage("lookup page type", err)
			}
			if !exists {
				return nil, transcription.Invalid(key, typ, "unknown page type %d", typ)
			}
			next.Type = typ
		case SettingNumColumns:
			n, ok := asInt(raw)
			if !ok || n <= 0 {
				return nil, transcription.Invalid(key, raw, "column count must be a positive number")
			}
			next.NumColumns = n
		default:
			s.log.Debug().Str("key", key).Msg("ignoring unknown page setting")
			continue
		}
		changed = true
	}
	if !changed {
		return page, nil
	}
	if err := s.store.UpdatePage(&next, instant); err != nil {
		return nil, transcription.Storage("update page", err)
	}
	return &next, nil
}

// asInt accepts the number types JSON and callers produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// IsPageEmpty reports whether no element is live on the page in any column.
func (s *Service) IsPageEmpty(pageID int64, at time.Time) (bool, error) {
	n, err := s.store.CountPageElements(pageID, transcription.Instant(at))
	if err != nil {
		return false, transcription.Storage("count elements", err)
	}
	return n == 0, nil
}

// DeletePage removes an empty page and all its versions, then renumbers
// the remaining pages so sequences run 1..n again and page numbers after
// the deleted one close the gap.
func (s *Service) DeletePage(docID int64, pageNumber int, at time.Time) error {
	instant := transcription.Instant(at)
	page, err := s.pageByNumber(docID, pageNumber, instant)
	if err != nil {
		return err
	}
	empty, err := s.IsPageEmpty(page.ID, at)
	if err != nil {
		return err
	}
	if !empty {
		return fmt.Errorf("page %d: %w", pageNumber, transcription.ErrPageNotEmpty)
	}

	if err := s.store.DeletePage(page.ID); err != nil {
		return transcription.Storage("delete page", err)
	}

	rest, err := s.store.ListPages(docID, instant)
	if err != nil {
		return transcription.Storage("list pages", err)
	}
	renumbered := 0
	for i, p := range rest {
		seq := i + 1
		number := p.PageNumber
		if number > pageNumber {
			number--
		}
		if p.Seq == seq && p.PageNumber == number {
			continue
		}
		p.Seq = seq
		p.PageNumber = number
		if err := s.store.UpdatePage(p, instant); err != nil {
			return transcription.Storage("update page", err)
		}
		renumbered++
	}
	s.log.Info().Int64("doc_id", docID).Int("page_number", pageNumber).Int("renumbered", renumbered).Msg("page deleted")
	return nil
}

// TranscriptionVersions lists the recorded saves of a page column, oldest first.
func (s *Service) TranscriptionVersions(pageID int64, column int) ([]*transcription.TranscriptionVersion, error) {
	versions, err := s.store.ListTranscriptionVersions(pageID, column)
	if err != nil {
		return nil, transcription.Storage("list versions", err)
	}
	return versions, nil
}

// PageByNumber returns a page of a document by its page number.
func (s *Service) PageByNumber(docID int64, pageNumber int, at time.Time) (*transcription.Page, error) {
	return s.pageByNumber(docID, pageNumber, transcription.Instant(at))
}

// PageBySeq returns a page of a document by its sequence number.
func (s *Service) PageBySeq(docID int64, seq int, at time.Time) (*transcription.Page, error) {
	page, err := s.store.GetPageBySeq(docID, seq, transcription.Instant(at))
	if err != nil {
		return nil, transcription.Storage("get page", err)
	}
	if page == nil {
		return nil, fmt.Errorf("page seq %d: %w", seq, transcription.ErrNotFound)
	}
	return page, nil
}

// ListPages returns the pages of a document in sequence order.
func (s *Service) ListPages(docID int64, at time.Time) ([]*transcription.Page, error) {
	pages, err := s.store.ListPages(docID, transcription.Instant(at))
	if err != nil {
		return nil, transcription.Storage("list pages", err)
	}
	return pages, nil
}

func (s *Service) pageByNumber(docID int64, pageNumber int, at int64) (*transcription.Page, error) {
	page, err := s.store.GetPageByNumber(docID, pageNumber, at)
	if err != nil {
		return nil, transcription.Storage("get page", err)
	}
	if page == nil {
		return nil, fmt.Errorf("page %d: %w", pageNumber, transcription.ErrNotFound)
	}
	return page, nil
}
