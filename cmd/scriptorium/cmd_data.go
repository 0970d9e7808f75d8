package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kittclouds/scriptorium/internal/app"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

var (
	searchDoc int64

	notesCmd = &cobra.Command{
		Use:   "notes",
		Short: "Manage editorial notes",
	}
	notesUpdateCmd = &cobra.Command{
		Use:   "update [file.json]",
		Short: "Insert or update a batch of editorial notes",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			var notes []*transcription.EditorialNote
			if err := readJSON(args[0], &notes); err != nil {
				return err
			}
			res, err := a.Notes.UpdateNotes(notes, at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}

	searchCmd = &cobra.Command{
		Use:   "search [term...]",
		Short: "Find whole-word occurrences of terms in the rendered columns of a document",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			res, err := a.Search(searchDoc, args, at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}

	exportCmd = &cobra.Command{
		Use:   "export [file]",
		Short: "Write every version of every row as JSON (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			data, err := a.Store.Export()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			a.Log.Info().Str("path", args[0]).Int("bytes", len(data)).Msg("exported")
			return nil
		}),
	}

	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the database content with an export",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if err := a.Store.Import(data); err != nil {
				return err
			}
			a.Log.Info().Str("path", args[0]).Int("bytes", len(data)).Msg("imported")
			return nil
		}),
	}

	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Show engine versions and page types",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			info, err := a.Store.Info()
			if err != nil {
				return err
			}
			types, err := a.Store.ListPageTypes()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"engine":    info,
				"pageTypes": types,
				"dsn":       a.Config.Database.DSN,
			})
		}),
	}
)

func init() {
	notesCmd.AddCommand(notesUpdateCmd)
	searchCmd.Flags().Int64Var(&searchDoc, "doc", 0, "Document id")
}
