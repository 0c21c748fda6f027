package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/soneri/appcanvas/internal/cache"
	"github.com/soneri/appcanvas/internal/catalog"
	"github.com/soneri/appcanvas/internal/document"
	"github.com/soneri/appcanvas/internal/observability"
	"github.com/soneri/appcanvas/model"
)

// maxImportSize bounds uploaded document files.
const maxImportSize = 5 << 20

// documentResponse is the editor's view of the current session state.
type documentResponse struct {
	Document       model.ConfigurationDocument `json:"document"`
	ActiveScreen   string                      `json:"activeScreen,omitempty"`
	SelectedWidget string                      `json:"selectedWidget,omitempty"`
}

func currentDocument(store *document.Store) documentResponse {
	screen, widget := store.Selection()
	return documentResponse{
		Document:       store.Document(),
		ActiveScreen:   screen,
		SelectedWidget: widget,
	}
}

func handleGetDocument(store *document.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, currentDocument(store))
	}
}

// handleLoadDocument replaces the editing session with the variant's
// upstream document, served through the snapshot cache.
func handleLoadDocument(store *document.Store, docs DocumentSource, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Distro string `json:"distro"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		doc, source, err := docs.Load(r.Context(), body.Distro)
		if err != nil {
			WriteError(w, err)
			return
		}
		recordSnapshotRead(metrics, "document", source)

		store.Load(*doc)
		resp := currentDocument(store)
		WriteJSON(w, http.StatusOK, struct {
			documentResponse
			Source cache.Source `json:"source"`
		}{resp, source})
	}
}

func handleExportDocument(store *document.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data, err := document.Export(store.Document())
		if err != nil {
			WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="configuration.json"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func handleImportDocument(store *document.Store, reg *catalog.Registry, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
		if err != nil {
			WriteError(w, model.NewBadRequestError("failed to read request body"))
			return
		}

		doc, err := document.Import(data, reg)
		if err != nil {
			WriteError(w, err)
			return
		}
		recordMutation(metrics, "import")

		store.Load(doc)
		WriteJSON(w, http.StatusOK, currentDocument(store))
	}
}

// handleMenuItems serves the derived menu projection, recomputed on demand.
func handleMenuItems(store *document.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		items := document.ExtractMenuItems(store.Document())
		WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

// --- shared helpers ---

func recordMutation(m *observability.Metrics, op string) {
	if m != nil {
		m.RecordDocumentMutation(op)
	}
}

func recordSnapshotRead(m *observability.Metrics, entity string, source cache.Source) {
	if m == nil {
		return
	}
	if source == cache.SourceSnapshot {
		m.RecordSnapshotHit(entity)
	} else {
		m.RecordSnapshotMiss(entity)
	}
}
