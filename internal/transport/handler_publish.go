package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/soneri/appcanvas/internal/document"
	"github.com/soneri/appcanvas/internal/publish"
	"github.com/soneri/appcanvas/model"
)

// Publisher is the slice of the synchronizer the publish handler drives.
type Publisher interface {
	Publish(ctx context.Context, target model.DistroDescriptor, doc model.ConfigurationDocument, helpPanels map[string]string) publish.Result
}

// handlePublish pushes the current document to the configuration backend for
// one distribution variant. Group-level failures are reported in the body
// but only the screens write decides the response status.
func handlePublish(store *document.Store, publisher Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Distro     model.DistroDescriptor `json:"distro"`
			HelpPanels map[string]string      `json:"helpPanels"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if body.Distro.Name == "" {
			WriteValidationError(w, []model.FieldError{{
				Field: "distro.name", Code: "required",
				Message: "target distro name must not be empty",
			}})
			return
		}

		res := publisher.Publish(r.Context(), body.Distro, store.Document(), body.HelpPanels)
		if res.Err != nil {
			WriteError(w, res.Err)
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"recordId": res.RecordID,
			"groups":   res.Groups,
		})
	}
}

// handleListPublishes serves the recent publish journal, newest first.
func handleListPublishes(journal publish.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 200 {
				WriteValidationError(w, []model.FieldError{{
					Field: "limit", Code: "out_of_range",
					Message: "limit must be an integer between 1 and 200",
				}})
				return
			}
			limit = n
		}

		records, err := journal.Recent(r.Context(), limit)
		if err != nil {
			WriteError(w, err)
			return
		}
		if records == nil {
			records = []publish.Record{}
		}
		WriteJSON(w, http.StatusOK, map[string]any{"records": records})
	}
}
