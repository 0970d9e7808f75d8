package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kittclouds/scriptorium/internal/app"
	"github.com/kittclouds/scriptorium/internal/store"
	"github.com/kittclouds/scriptorium/pkg/pages"
)

var (
	docInfo    pages.DocInfo
	pageDocID  int64
	pageNumber int
	pageLang   string
	editorName string

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create the config file and database schema",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			out := map[string]any{"config": configPath, "dsn": a.Config.Database.DSN}
			if editorName != "" {
				id, err := a.Store.CreateEditor(&store.Editor{Username: editorName})
				if err != nil {
					return err
				}
				out["editorId"] = id
			}
			return printJSON(cmd.OutOrStdout(), out)
		}),
	}

	docCmd = &cobra.Command{
		Use:   "doc",
		Short: "Manage documents",
	}
	docNewCmd = &cobra.Command{
		Use:   "new",
		Short: "Create a document with numbered single-column pages",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			if docInfo.Lang == "" {
				docInfo.Lang = a.Config.Transcription.DefaultLanguage
			}
			doc, created, err := a.Pages.NewDoc(docInfo, at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"doc": doc, "pages": created})
		}),
	}
	docListCmd = &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			docs, err := a.Store.ListDocs()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), docs)
		}),
	}

	pageCmd = &cobra.Command{
		Use:   "page",
		Short: "Manage the pages of a document",
	}
	pageNewCmd = &cobra.Command{
		Use:   "new",
		Short: "Append a page to a document",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			page, err := a.Pages.NewPage(pageDocID, pageNumber, pageLang, at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		}),
	}
	pageSettingsCmd = &cobra.Command{
		Use:   "settings [page-id] [settings.json]",
		Short: "Apply lang, foliation, type or numColumns settings to a page",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			var pageID int64
			if _, err := fmt.Sscan(args[0], &pageID); err != nil {
				return fmt.Errorf("invalid page id %q", args[0])
			}
			settings, err := readSettings(args[1])
			if err != nil {
				return err
			}
			page, err := a.Pages.UpdatePageSettings(pageID, settings, at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		}),
	}
	pageDeleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete an empty page and renumber the rest",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			if err := a.Pages.DeletePage(pageDocID, pageNumber, at); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": pageNumber})
		}),
	}
	pageAddColumnCmd = &cobra.Command{
		Use:   "add-column",
		Short: "Add a column to a page",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			page, err := a.Pages.AddColumn(pageDocID, pageNumber, at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		}),
	}
	pageListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the pages of a document",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			list, err := a.Pages.ListPages(pageDocID, at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		}),
	}
)

// readSettings decodes a settings file keeping numbers as json.Number.
func readSettings(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.UseNumber()
	var settings map[string]any
	if err := dec.Decode(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return settings, nil
}

func init() {
	initCmd.Flags().StringVar(&editorName, "editor", "", "Also register an editor with this username")

	docNewCmd.Flags().StringVar(&docInfo.Title, "title", "", "Document title")
	docNewCmd.Flags().StringVar(&docInfo.ShortTitle, "short-title", "", "Short title")
	docNewCmd.Flags().IntVar(&docInfo.PageCount, "pages", 0, "Number of pages to create")
	docNewCmd.Flags().StringVar(&docInfo.Lang, "lang", "", "Document language (default transcription.default_language)")
	docNewCmd.Flags().StringVar(&docInfo.DocType, "type", "mss", "Document type")
	docNewCmd.Flags().StringVar(&docInfo.ImageSource, "images", "", "Image source")
	docCmd.AddCommand(docNewCmd, docListCmd)

	for _, c := range []*cobra.Command{pageNewCmd, pageDeleteCmd, pageAddColumnCmd, pageListCmd} {
		c.Flags().Int64Var(&pageDocID, "doc", 0, "Document id")
	}
	for _, c := range []*cobra.Command{pageNewCmd, pageDeleteCmd, pageAddColumnCmd} {
		c.Flags().IntVar(&pageNumber, "number", 0, "Page number")
	}
	pageNewCmd.Flags().StringVar(&pageLang, "lang", "", "Page language (default the document's)")
	pageCmd.AddCommand(pageNewCmd, pageSettingsCmd, pageDeleteCmd, pageAddColumnCmd, pageListCmd)
}
