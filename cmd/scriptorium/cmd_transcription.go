package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/scriptorium/internal/app"
	"github.com/kittclouds/scriptorium/pkg/reconcile"
	"github.com/kittclouds/scriptorium/pkg/stream"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// reconcileInput is the file read by the reconcile command. With ElementID
// set, Items replace the items of that one element; otherwise Elements
// replace the page column.
type reconcileInput struct {
	PageID    int64                    `json:"pageId"`
	Column    int                      `json:"column"`
	ElementID int64                    `json:"elementId,omitempty"`
	Elements  []*transcription.Element `json:"elements"`
	Items     []*transcription.Item    `json:"items,omitempty"`
	Version   *reconcile.VersionInfo   `json:"version,omitempty"`
}

var (
	colPageID  int64
	colNumber  int
	streamDoc  int64
	streamEl   int64
	streamSpan rangeFlags
	textSpan   rangeFlags
	witSpan    rangeFlags

	chunkDoc  int64
	chunkWork string
	chunkNum  int
	chunkLWID string

	versionElement int64

	reconcileCmd = &cobra.Command{
		Use:   "reconcile [file.json]",
		Short: "Replace a page column (or one element's items) with the content of a file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			var in reconcileInput
			if err := readJSON(args[0], &in); err != nil {
				return err
			}

			var res *reconcile.Result
			switch {
			case in.ElementID != 0:
				res, err = a.Reconciler.ReconcileElement(in.ElementID, in.Items, at)
			case in.Version != nil:
				res, err = a.Reconciler.ReconcileColumnVersion(in.PageID, in.Column, in.Elements, *in.Version, at)
			default:
				res, err = a.Reconciler.ReconcileColumn(in.PageID, in.Column, in.Elements, at)
			}
			if err != nil {
				return err
			}
			if in.ElementID == 0 {
				if err := a.RefreshColumn(in.PageID, in.Column, at); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}

	columnCmd = &cobra.Command{
		Use:   "column",
		Short: "Show the elements and items of a page column",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			elements, err := a.Resolver.ColumnElements(colPageID, colNumber, at)
			if err != nil {
				return err
			}
			ids := make([]int64, len(elements))
			for i, el := range elements {
				ids[i] = el.ID
			}
			notes, err := a.Notes.NotesForElements(ids)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"elements": elements, "notes": notes})
		}),
	}

	streamCmd = &cobra.Command{
		Use:   "stream",
		Short: "Resolve the reading-order item stream of a range or an element",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			s, err := resolve(a, streamDoc, streamEl, streamSpan)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		}),
	}

	textCmd = &cobra.Command{
		Use:   "text",
		Short: "Print the plain text of a range or an element",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			s, err := resolve(a, streamDoc, streamEl, textSpan)
			if err != nil {
				return err
			}
			for _, w := range s.Warnings {
				a.Log.Warn().Msg(w)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), a.Resolver.PlainText(s))
			return err
		}),
	}

	witnessCmd = &cobra.Command{
		Use:   "witness",
		Short: "Tokenize the text of a range into words",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			from, to, err := witSpan.bounds()
			if err != nil {
				return err
			}
			w, err := a.Witness(streamDoc, from, to, at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), w)
		}),
	}

	chunksCmd = &cobra.Command{
		Use:   "chunks",
		Short: "Pair the chunk marks of a work chunk and list the columns each segment covers",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			at, err := instant()
			if err != nil {
				return err
			}
			segments, err := a.Resolver.ChunkLocations(chunkDoc, chunkWork, chunkNum, chunkLWID, at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), segments)
		}),
	}

	versionsCmd = &cobra.Command{
		Use:   "versions",
		Short: "List saved transcription versions of a column, or the history of an element",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			if versionElement != 0 {
				history, err := a.Resolver.ElementVersions(versionElement)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), history)
			}
			versions, err := a.Pages.TranscriptionVersions(colPageID, colNumber)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), versions)
		}),
	}
)

func resolve(a *app.App, docID, elementID int64, span rangeFlags) (*stream.Stream, error) {
	at, err := instant()
	if err != nil {
		return nil, err
	}
	if elementID != 0 {
		return a.Resolver.ResolveElementStream(elementID, at)
	}
	from, to, err := span.bounds()
	if err != nil {
		return nil, err
	}
	return a.Resolver.ResolveStream(docID, from, to, at)
}

func init() {
	for _, c := range []*cobra.Command{columnCmd, versionsCmd} {
		c.Flags().Int64Var(&colPageID, "page", 0, "Page id")
		c.Flags().IntVar(&colNumber, "col", 1, "Column number")
	}
	versionsCmd.Flags().Int64Var(&versionElement, "element", 0, "List the history of this element instead")

	for _, c := range []*cobra.Command{streamCmd, textCmd, witnessCmd} {
		c.Flags().Int64Var(&streamDoc, "doc", 0, "Document id")
	}
	for _, c := range []*cobra.Command{streamCmd, textCmd} {
		c.Flags().Int64Var(&streamEl, "element", 0, "Resolve one element instead of a range")
	}
	streamSpan.register(streamCmd)
	textSpan.register(textCmd)
	witSpan.register(witnessCmd)

	chunksCmd.Flags().Int64Var(&chunkDoc, "doc", 0, "Document id")
	chunksCmd.Flags().StringVar(&chunkWork, "work", "", "Work id")
	chunksCmd.Flags().IntVar(&chunkNum, "chunk", 0, "Chunk number")
	chunksCmd.Flags().StringVar(&chunkLWID, "lwid", "A", "Local witness id")
}
