package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/scriptorium/pkg/transcription"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want transcription.Location
		err  bool
	}{
		{in: "0", want: transcription.Location{ElementSeq: -1, ItemSeq: -1}},
		{in: "2:1", want: transcription.Location{PageSeq: 2, ColumnNumber: 1, ElementSeq: -1, ItemSeq: -1}},
		{in: "2:1:3:4", want: transcription.Location{PageSeq: 2, ColumnNumber: 1, ElementSeq: 3, ItemSeq: 4}},
		{in: "1:x", err: true},
		{in: "1:2:3:4:5", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLocation(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "scriptorium.yaml"),
		"--db", filepath.Join(dir, "test.db"),
		"--at", "2024-09-01T10:00:00Z",
	}, args...))
	require.NoError(t, rootCmd.Execute(), "scriptorium %v", args)
	return out.String()
}

func TestCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()

	var initOut struct {
		EditorID int64 `json:"editorId"`
	}
	require.NoError(t, json.Unmarshal([]byte(run(t, dir, "init", "--editor", "ed")), &initOut))
	assert.FileExists(t, filepath.Join(dir, "scriptorium.yaml"))

	var docOut struct {
		Doc   struct{ ID int64 }    `json:"doc"`
		Pages []*transcription.Page `json:"pages"`
	}
	require.NoError(t, json.Unmarshal([]byte(run(t, dir, "doc", "new", "--title", "Codex", "--pages", "1")), &docOut))
	require.Len(t, docOut.Pages, 1)

	input := map[string]any{
		"pageId": docOut.Pages[0].ID,
		"column": 1,
		"elements": []map[string]any{{
			"type":     int(transcription.ElementLine),
			"lang":     "la",
			"editorId": initOut.EditorID,
			"items":    []map[string]any{{"type": int(transcription.ItemText), "text": "In principio erat verbum"}},
		}},
		"version": map[string]any{"authorId": initOut.EditorID, "description": "first pass"},
	}
	data, err := json.Marshal(input)
	require.NoError(t, err)
	file := filepath.Join(dir, "column.json")
	require.NoError(t, os.WriteFile(file, data, 0644))
	run(t, dir, "reconcile", file)

	docID := jsonInt(docOut.Doc.ID)
	assert.Equal(t, "In principio erat verbum\n", run(t, dir, "text", "--doc", docID))

	var res struct {
		Hits []struct {
			Term string `json:"term"`
		} `json:"hits"`
	}
	require.NoError(t, json.Unmarshal([]byte(run(t, dir, "search", "--doc", docID, "verbum")), &res))
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "verbum", res.Hits[0].Term)

	var versions []*transcription.TranscriptionVersion
	require.NoError(t, json.Unmarshal([]byte(run(t, dir, "versions", "--page", jsonInt(docOut.Pages[0].ID))), &versions))
	require.Len(t, versions, 1)
	assert.Equal(t, "first pass", versions[0].Description)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
