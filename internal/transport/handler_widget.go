package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soneri/appcanvas/internal/catalog"
	"github.com/soneri/appcanvas/internal/document"
	"github.com/soneri/appcanvas/internal/observability"
	"github.com/soneri/appcanvas/model"
)

func handleListWidgetTypes(reg *catalog.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"widgetTypes": reg.All()})
	}
}

func handleAddWidget(store *document.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		screen := chi.URLParam(r, "screen")

		var body struct {
			TypeID string `json:"typeId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		widget, ok := store.AddWidget(screen, body.TypeID)
		if !ok {
			WriteNotFound(w, fmt.Sprintf("unknown widget type %q", body.TypeID))
			return
		}
		recordMutation(metrics, "add_widget")
		WriteJSON(w, http.StatusCreated, widget)
	}
}

func handleUpdateWidget(store *document.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		screen := chi.URLParam(r, "screen")
		instanceID := chi.URLParam(r, "instanceId")

		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		if !store.UpdateWidget(screen, instanceID, patch) {
			WriteNotFound(w, fmt.Sprintf("widget %q not found on screen %q", instanceID, screen))
			return
		}
		recordMutation(metrics, "update_widget")
		WriteJSON(w, http.StatusOK, currentDocument(store))
	}
}

func handleDeleteWidget(store *document.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		screen := chi.URLParam(r, "screen")
		instanceID := chi.URLParam(r, "instanceId")

		if !store.DeleteWidget(screen, instanceID) {
			WriteNotFound(w, fmt.Sprintf("widget %q not found on screen %q", instanceID, screen))
			return
		}
		recordMutation(metrics, "delete_widget")
		WriteJSON(w, http.StatusOK, currentDocument(store))
	}
}

func handleDuplicateWidget(store *document.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		screen := chi.URLParam(r, "screen")
		instanceID := chi.URLParam(r, "instanceId")

		clone, ok := store.DuplicateWidget(screen, instanceID)
		if !ok {
			WriteNotFound(w, fmt.Sprintf("widget %q not found on screen %q", instanceID, screen))
			return
		}
		recordMutation(metrics, "duplicate_widget")
		WriteJSON(w, http.StatusCreated, clone)
	}
}

// handleReorderWidgets replaces a screen's widget order. The new order must
// be a permutation of the screen's current instances; anything else is
// rejected before the store is touched.
func handleReorderWidgets(store *document.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		screen := chi.URLParam(r, "screen")

		var widgets []model.WidgetInstance
		if err := json.NewDecoder(r.Body).Decode(&widgets); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		current, ok := store.Document().Screens[screen]
		if !ok {
			WriteNotFound(w, fmt.Sprintf("screen %q not found", screen))
			return
		}
		if !sameInstanceSet(current.Widgets, widgets) {
			WriteValidationError(w, []model.FieldError{{
				Field:   "widgets",
				Code:    "not_a_permutation",
				Message: "reordered widgets must match the screen's current instances",
			}})
			return
		}

		if !store.ReorderWidgets(screen, widgets) {
			WriteNotFound(w, fmt.Sprintf("screen %q not found", screen))
			return
		}
		recordMutation(metrics, "reorder_widgets")
		WriteJSON(w, http.StatusOK, currentDocument(store))
	}
}

// sameInstanceSet reports whether both slices carry the same multiset of
// instance IDs.
func sameInstanceSet(a, b []model.WidgetInstance) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, w := range a {
		counts[w.InstanceID]++
	}
	for _, w := range b {
		counts[w.InstanceID]--
		if counts[w.InstanceID] < 0 {
			return false
		}
	}
	return true
}
