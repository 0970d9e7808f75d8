//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall/js"
	"time"

	"github.com/kittclouds/scriptorium/internal/app"
	"github.com/kittclouds/scriptorium/internal/config"
	"github.com/kittclouds/scriptorium/internal/store"
	"github.com/kittclouds/scriptorium/pkg/pages"
	"github.com/kittclouds/scriptorium/pkg/reconcile"
	"github.com/kittclouds/scriptorium/pkg/stream"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// Version info
const Version = "0.1.0"

// Global state
var scriptorium *app.App

func main() {
	fmt.Println("[Scriptorium] WASM Ready v" + Version)

	js.Global().Set("Scriptorium", js.ValueOf(map[string]interface{}{
		"version":    js.FuncOf(getVersion),
		"initialize": js.FuncOf(initialize),
		// Documents and pages
		"docNew":          js.FuncOf(docNew),
		"pageNew":         js.FuncOf(pageNew),
		"pageSettings":    js.FuncOf(pageSettings),
		"pageDelete":      js.FuncOf(pageDelete),
		"pageAddColumn":   js.FuncOf(pageAddColumn),
		"pageList":        js.FuncOf(pageList),
		"editorNew":       js.FuncOf(editorNew),
		"versions":        js.FuncOf(versions),
		"elementVersions": js.FuncOf(elementVersions),
		// Reconciliation
		"reconcileColumn":  js.FuncOf(reconcileColumn),
		"reconcileElement": js.FuncOf(reconcileElement),
		// Reads
		"column": js.FuncOf(column),
		"stream": js.FuncOf(streamRange),
		"text":   js.FuncOf(text),
		"chunks": js.FuncOf(chunks),
		// Notes
		"notesUpdate": js.FuncOf(notesUpdate),
		"notesFor":    js.FuncOf(notesFor),
		// Search and tokens
		"search":  js.FuncOf(search),
		"witness": js.FuncOf(witnessRange),
		// Store Export/Import (OPFS sync)
		"storeExport": js.FuncOf(storeExport),
		"storeImport": js.FuncOf(storeImport),
		"storeInfo":   js.FuncOf(storeInfo),
	}))

	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// initialize opens an in-memory store.
// Args: [configYAML string] - optional config overriding the defaults
func initialize(this js.Value, args []js.Value) interface{} {
	cfg := config.DefaultConfig()
	if len(args) > 0 && args[0].String() != "" {
		var err error
		if cfg, err = config.LoadFromBytes([]byte(args[0].String())); err != nil {
			return errorResult(err.Error())
		}
	}
	if scriptorium != nil {
		scriptorium.Close()
	}
	var err error
	scriptorium, err = app.New(cfg, os.Stdout)
	if err != nil {
		return errorResult("failed to initialize: " + err.Error())
	}
	return successResult("initialized")
}

// Helper: Create error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Create success result
func successResult(msg string) interface{} {
	result := map[string]interface{}{
		"success": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Marshal a value or report the error
func jsonResult(v interface{}, err error) interface{} {
	if err != nil {
		return errorResult(err.Error())
	}
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult("marshal failed: " + err.Error())
	}
	return string(jsonBytes)
}

// call checks the arity and the app, decodes the JSON request in args[0]
// into req and resolves the instant in args[1] (RFC3339, default now).
func call(name string, args []js.Value, req interface{}) (time.Time, interface{}) {
	if scriptorium == nil {
		return time.Time{}, errorResult("not initialized")
	}
	if len(args) < 1 {
		return time.Time{}, errorResult(name + " requires 1 arg: requestJSON")
	}
	if err := json.Unmarshal([]byte(args[0].String()), req); err != nil {
		return time.Time{}, errorResult("invalid " + name + " json: " + err.Error())
	}
	at := time.Now().UTC()
	if len(args) > 1 && args[1].Type() == js.TypeString && args[1].String() != "" {
		t, err := time.Parse(time.RFC3339Nano, args[1].String())
		if err != nil {
			return time.Time{}, errorResult("invalid instant: " + err.Error())
		}
		at = t
	}
	return at, nil
}

// =============================================================================
// Documents and pages
// =============================================================================

// docNew: [docInfoJSON string, at?]
func docNew(this js.Value, args []js.Value) interface{} {
	var info pages.DocInfo
	at, fail := call("docNew", args, &info)
	if fail != nil {
		return fail
	}
	doc, created, err := scriptorium.Pages.NewDoc(info, at)
	return jsonResult(map[string]interface{}{"doc": doc, "pages": created}, err)
}

type pageRef struct {
	DocID      int64  `json:"docId"`
	PageID     int64  `json:"pageId"`
	PageNumber int    `json:"pageNumber"`
	Column     int    `json:"column"`
	Lang       string `json:"lang"`
}

// pageNew: [{docId, pageNumber, lang}, at?]
func pageNew(this js.Value, args []js.Value) interface{} {
	var req pageRef
	at, fail := call("pageNew", args, &req)
	if fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Pages.NewPage(req.DocID, req.PageNumber, req.Lang, at))
}

// pageSettings: [{pageId, settings}, at?]
func pageSettings(this js.Value, args []js.Value) interface{} {
	var req struct {
		PageID   int64                  `json:"pageId"`
		Settings map[string]interface{} `json:"settings"`
	}
	at, fail := call("pageSettings", args, &req)
	if fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Pages.UpdatePageSettings(req.PageID, req.Settings, at))
}

// pageDelete: [{docId, pageNumber}, at?]
func pageDelete(this js.Value, args []js.Value) interface{} {
	var req pageRef
	at, fail := call("pageDelete", args, &req)
	if fail != nil {
		return fail
	}
	if err := scriptorium.Pages.DeletePage(req.DocID, req.PageNumber, at); err != nil {
		return errorResult(err.Error())
	}
	return successResult(fmt.Sprintf("deleted page %d", req.PageNumber))
}

// pageAddColumn: [{docId, pageNumber}, at?]
func pageAddColumn(this js.Value, args []js.Value) interface{} {
	var req pageRef
	at, fail := call("pageAddColumn", args, &req)
	if fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Pages.AddColumn(req.DocID, req.PageNumber, at))
}

// pageList: [{docId}, at?]
func pageList(this js.Value, args []js.Value) interface{} {
	var req pageRef
	at, fail := call("pageList", args, &req)
	if fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Pages.ListPages(req.DocID, at))
}

// editorNew: [{username, fullName}]
func editorNew(this js.Value, args []js.Value) interface{} {
	var req struct {
		Username string `json:"username"`
		FullName string `json:"fullName"`
	}
	at, fail := call("editorNew", args, &req)
	if fail != nil {
		return fail
	}
	ed := &store.Editor{Username: req.Username, FullName: req.FullName, CreatedAt: transcription.Instant(at)}
	_, err := scriptorium.Store.CreateEditor(ed)
	return jsonResult(ed, err)
}

// versions: [{pageId, column}]
func versions(this js.Value, args []js.Value) interface{} {
	var req pageRef
	if _, fail := call("versions", args, &req); fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Pages.TranscriptionVersions(req.PageID, req.Column))
}

// elementVersions: [{elementId}]
func elementVersions(this js.Value, args []js.Value) interface{} {
	var req struct {
		ElementID int64 `json:"elementId"`
	}
	if _, fail := call("elementVersions", args, &req); fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Resolver.ElementVersions(req.ElementID))
}

// =============================================================================
// Reconciliation
// =============================================================================

// reconcileColumn: [{pageId, column, elements, version?}, at?]
func reconcileColumn(this js.Value, args []js.Value) interface{} {
	var req struct {
		PageID   int64                    `json:"pageId"`
		Column   int                      `json:"column"`
		Elements []*transcription.Element `json:"elements"`
		Version  *reconcile.VersionInfo   `json:"version"`
	}
	at, fail := call("reconcileColumn", args, &req)
	if fail != nil {
		return fail
	}
	var res *reconcile.Result
	var err error
	if req.Version != nil {
		res, err = scriptorium.Reconciler.ReconcileColumnVersion(req.PageID, req.Column, req.Elements, *req.Version, at)
	} else {
		res, err = scriptorium.Reconciler.ReconcileColumn(req.PageID, req.Column, req.Elements, at)
	}
	if err == nil {
		err = scriptorium.RefreshColumn(req.PageID, req.Column, at)
	}
	return jsonResult(res, err)
}

// reconcileElement: [{elementId, items}, at?]
func reconcileElement(this js.Value, args []js.Value) interface{} {
	var req struct {
		ElementID int64                 `json:"elementId"`
		Items     []*transcription.Item `json:"items"`
	}
	at, fail := call("reconcileElement", args, &req)
	if fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Reconciler.ReconcileElement(req.ElementID, req.Items, at))
}

// =============================================================================
// Reads
// =============================================================================

// column: [{pageId, column}, at?]
func column(this js.Value, args []js.Value) interface{} {
	var req pageRef
	at, fail := call("column", args, &req)
	if fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Resolver.ColumnElements(req.PageID, req.Column, at))
}

type rangeRequest struct {
	DocID     int64                  `json:"docId"`
	ElementID int64                  `json:"elementId"`
	From      transcription.Location `json:"from"`
	To        transcription.Location `json:"to"`
}

// streamRange: [{docId, from, to} | {elementId}, at?]
func streamRange(this js.Value, args []js.Value) interface{} {
	var req rangeRequest
	at, fail := call("stream", args, &req)
	if fail != nil {
		return fail
	}
	if req.ElementID != 0 {
		return jsonResult(scriptorium.Resolver.ResolveElementStream(req.ElementID, at))
	}
	return jsonResult(scriptorium.Resolver.ResolveStream(req.DocID, req.From, req.To, at))
}

// text: [{docId, from, to} | {elementId}, at?]
// Returns: {text, warnings}
func text(this js.Value, args []js.Value) interface{} {
	var req rangeRequest
	at, fail := call("text", args, &req)
	if fail != nil {
		return fail
	}
	var s *stream.Stream
	var err error
	if req.ElementID != 0 {
		s, err = scriptorium.Resolver.ResolveElementStream(req.ElementID, at)
	} else {
		s, err = scriptorium.Resolver.ResolveStream(req.DocID, req.From, req.To, at)
	}
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(map[string]interface{}{
		"text":     scriptorium.Resolver.PlainText(s),
		"warnings": s.Warnings,
	}, nil)
}

// chunks: [{docId, workId, chunk, lwid}, at?]
func chunks(this js.Value, args []js.Value) interface{} {
	var req struct {
		DocID  int64  `json:"docId"`
		WorkID string `json:"workId"`
		Chunk  int    `json:"chunk"`
		LWID   string `json:"lwid"`
	}
	at, fail := call("chunks", args, &req)
	if fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Resolver.ChunkLocations(req.DocID, req.WorkID, req.Chunk, req.LWID, at))
}

// =============================================================================
// Notes
// =============================================================================

// notesUpdate: [notesJSON string, at?]
func notesUpdate(this js.Value, args []js.Value) interface{} {
	var notes []*transcription.EditorialNote
	at, fail := call("notesUpdate", args, &notes)
	if fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Notes.UpdateNotes(notes, at))
}

// notesFor: [{type, target}]
func notesFor(this js.Value, args []js.Value) interface{} {
	var req struct {
		Type   transcription.NoteType `json:"type"`
		Target int64                  `json:"target"`
	}
	if _, fail := call("notesFor", args, &req); fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Notes.NotesForTarget(req.Type, req.Target))
}

// =============================================================================
// Search and tokens
// =============================================================================

// search: [{docId, terms}, at?]
func search(this js.Value, args []js.Value) interface{} {
	var req struct {
		DocID int64    `json:"docId"`
		Terms []string `json:"terms"`
	}
	at, fail := call("search", args, &req)
	if fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Search(req.DocID, req.Terms, at))
}

// witnessRange: [{docId, from, to}, at?]
func witnessRange(this js.Value, args []js.Value) interface{} {
	var req rangeRequest
	at, fail := call("witness", args, &req)
	if fail != nil {
		return fail
	}
	return jsonResult(scriptorium.Witness(req.DocID, req.From, req.To, at))
}

// =============================================================================
// Store Export/Import
// =============================================================================

// storeExport serializes every row version to JSON bytes.
// Args: []
// Returns: Uint8Array (for OPFS persistence)
func storeExport(this js.Value, args []js.Value) interface{} {
	if scriptorium == nil {
		return errorResult("not initialized")
	}
	data, err := scriptorium.Store.Export()
	if err != nil {
		return errorResult("export failed: " + err.Error())
	}
	jsArray := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(jsArray, data)
	return jsArray
}

// storeImport restores the store from an export.
// Args: [data Uint8Array]
func storeImport(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("storeImport requires 1 arg: data (Uint8Array)")
	}
	if scriptorium == nil {
		return errorResult("not initialized")
	}
	jsArray := args[0]
	length := jsArray.Get("length").Int()
	data := make([]byte, length)
	js.CopyBytesToGo(data, jsArray)

	if err := scriptorium.Store.Import(data); err != nil {
		return errorResult("import failed: " + err.Error())
	}
	scriptorium.Columns.Clear()
	return successResult(fmt.Sprintf("imported %d bytes", length))
}

// storeInfo reports the SQLite and sqlite-vec versions.
func storeInfo(this js.Value, args []js.Value) interface{} {
	if scriptorium == nil {
		return errorResult("not initialized")
	}
	return jsonResult(scriptorium.Store.Info())
}
