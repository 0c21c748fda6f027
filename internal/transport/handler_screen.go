package transport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soneri/appcanvas/internal/document"
	"github.com/soneri/appcanvas/internal/observability"
	"github.com/soneri/appcanvas/model"
)

func handleCreateScreen(store *document.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		if err := store.CreateScreen(body.Name); err != nil {
			WriteError(w, err)
			return
		}
		recordMutation(metrics, "create_screen")
		WriteJSON(w, http.StatusCreated, currentDocument(store))
	}
}

func handleDeleteScreen(store *document.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.DeleteScreen(chi.URLParam(r, "screen"))
		recordMutation(metrics, "delete_screen")
		WriteJSON(w, http.StatusOK, currentDocument(store))
	}
}

func handleSelectScreen(store *document.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.SelectScreen(chi.URLParam(r, "screen"))
		WriteJSON(w, http.StatusOK, currentDocument(store))
	}
}

func handleSetNavigation(store *document.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var nav model.Navigation
		if err := json.NewDecoder(r.Body).Decode(&nav); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		store.SetNavigation(nav)
		recordMutation(metrics, "set_navigation")
		WriteJSON(w, http.StatusOK, currentDocument(store))
	}
}
