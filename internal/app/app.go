// Package app wires configuration, logging, storage and the transcription
// services into one handle shared by the CLI and the wasm bridge.
package app

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kittclouds/scriptorium/internal/config"
	"github.com/kittclouds/scriptorium/internal/logging"
	"github.com/kittclouds/scriptorium/internal/metrics"
	"github.com/kittclouds/scriptorium/internal/store"
	"github.com/kittclouds/scriptorium/pkg/docstore"
	"github.com/kittclouds/scriptorium/pkg/ednotes"
	"github.com/kittclouds/scriptorium/pkg/pages"
	"github.com/kittclouds/scriptorium/pkg/reconcile"
	"github.com/kittclouds/scriptorium/pkg/search"
	"github.com/kittclouds/scriptorium/pkg/stream"
	"github.com/kittclouds/scriptorium/pkg/transcription"
	"github.com/kittclouds/scriptorium/pkg/witness"
)

// App holds the wired components.
type App struct {
	Config   config.Config
	Log      zerolog.Logger
	Registry *prometheus.Registry

	Store      *store.SQLiteStore
	Queries    *metrics.QueryCounter
	Reconciler *reconcile.Engine
	Resolver   *stream.Resolver
	Pages      *pages.Service
	Notes      *ednotes.Service
	Columns    *docstore.Store
	Tokenizer  *witness.Tokenizer

	logData *logging.LogData
}

// New builds an App from cfg. Log lines go to cfg.Log.Path when set,
// otherwise to w.
func New(cfg config.Config, w io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	build := logging.New().WithLevel(cfg.Log.Level).WithComponent("scriptorium")
	if cfg.Log.Path != "" {
		build = build.FromPath(cfg.Log.Path)
	} else {
		build = build.FromBuffer(w)
	}
	logData, err := build.Make()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	log := logData.Logger

	st, err := store.NewSQLiteStoreWithDSN(cfg.Database.DSN)
	if err != nil {
		logData.Close()
		return nil, err
	}
	if err := st.EnsurePageTypes(cfg.Transcription.PageTypes); err != nil {
		st.Close()
		logData.Close()
		return nil, err
	}

	tokenizer, err := witness.NewTokenizer(cfg.Search.StopwordLanguage, cfg.Transcription.IllegibleGlyph)
	if err != nil {
		st.Close()
		logData.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	queries := metrics.NewQueryCounter(reg)
	st.SetQueryCounter(queries)

	v := transcription.NewValidator(cfg.Transcription.Languages)
	a := &App{
		Config:   cfg,
		Log:      log,
		Registry: reg,
		Store:    st,
		Queries:  queries,
		Reconciler: reconcile.New(st,
			reconcile.WithLogger(log.With().Str("component", "reconcile").Logger()),
			reconcile.WithValidator(v),
			reconcile.WithMetrics(metrics.NewReconcile(reg)),
		),
		Resolver: stream.NewResolver(st,
			stream.WithLogger(log.With().Str("component", "stream").Logger()),
			stream.WithIllegibleGlyph(cfg.Transcription.IllegibleGlyph),
		),
		Pages:     pages.NewService(st, v, log.With().Str("component", "pages").Logger()),
		Notes:     ednotes.NewService(st, v, log.With().Str("component", "ednotes").Logger()),
		Columns:   docstore.New(),
		Tokenizer: tokenizer,
		logData:   logData,
	}
	log.Debug().Str("dsn", cfg.Database.DSN).Msg("app ready")
	return a, nil
}

// Close releases the store and the log file.
func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.logData.Close())
}

// SearchResult is the outcome of a term search over one document.
type SearchResult struct {
	Hits    []search.Hit `json:"hits"`
	Dropped []string     `json:"dropped,omitempty"`
	Columns int          `json:"columns"`
}

// Search hydrates the column cache for docID as of at and scans it for terms.
func (a *App) Search(docID int64, terms []string, at time.Time) (*SearchResult, error) {
	n, err := a.Columns.Hydrate(a.Resolver, docID, at)
	if err != nil {
		return nil, err
	}
	dict, err := search.Compile(terms, search.Options{
		StopwordLanguage: a.Config.Search.StopwordLanguage,
		MinTermLength:    a.Config.Search.MinTermLength,
	})
	if err != nil {
		return nil, err
	}
	hits := search.Search(a.Columns, dict)
	a.Log.Info().Int64("doc_id", docID).Int("columns", n).Int("hits", len(hits)).Msg("search done")
	return &SearchResult{Hits: hits, Dropped: dict.Dropped, Columns: n}, nil
}

// Witness resolves the stream between from and to and tokenizes it.
func (a *App) Witness(docID int64, from, to transcription.Location, at time.Time) (*witness.Witness, error) {
	s, err := a.Resolver.ResolveStream(docID, from, to, at)
	if err != nil {
		return nil, err
	}
	return a.Tokenizer.Tokenize(s), nil
}

// RefreshColumn re-renders one cached column after it was reconciled.
// Columns of documents never hydrated are left alone.
func (a *App) RefreshColumn(pageID int64, column int, at time.Time) error {
	page, err := a.Store.GetPage(pageID, transcription.Instant(at))
	if err != nil {
		return transcription.Storage("get page", err)
	}
	if page == nil {
		return fmt.Errorf("page %d: %w", pageID, transcription.ErrNotFound)
	}
	if a.Columns.Get(docstore.Key(page.DocID, page.Seq, column)) == nil {
		return nil
	}
	return a.Columns.Refresh(a.Resolver, page.DocID, page.Seq, column, at)
}
