package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soneri/appcanvas/internal/distro"
	"github.com/soneri/appcanvas/internal/document"
	"github.com/soneri/appcanvas/internal/observability"
	"github.com/soneri/appcanvas/internal/theming"
	"github.com/soneri/appcanvas/model"
)

// themingSetting is one logical setting resolved for a distro.
type themingSetting struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Value   string `json:"value"`
	Set     bool   `json:"set"`
	Default string `json:"default"`
}

// renderThemingGroup resolves every setting of a feature group for one
// variant, falling back to hard-coded defaults for absent keys.
func renderThemingGroup(store *document.Store, group theming.Group, distroName string) map[string]any {
	accessor := theming.NewAccessor(store.Document().GlobalTheming, distro.Suffix(distroName))

	settings := make([]themingSetting, 0)
	for _, s := range theming.ByGroup(group) {
		_, set := accessor.Get(s)
		settings = append(settings, themingSetting{
			Name:    s.Name,
			Kind:    s.Kind.String(),
			Value:   accessor.Resolve(s),
			Set:     set,
			Default: s.Default,
		})
	}

	return map[string]any{
		"group":    group,
		"distro":   distroName,
		"settings": settings,
	}
}

func handleGetTheming(store *document.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := theming.Group(chi.URLParam(r, "group"))
		if !theming.ValidGroup(group) {
			WriteNotFound(w, fmt.Sprintf("unknown feature group %q", group))
			return
		}
		WriteJSON(w, http.StatusOK, renderThemingGroup(store, group, r.URL.Query().Get("distro")))
	}
}

// handlePutTheming writes or clears settings of one feature group. A null
// value clears the suffixed key so the client falls back to the default.
func handlePutTheming(store *document.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := theming.Group(chi.URLParam(r, "group"))
		if !theming.ValidGroup(group) {
			WriteNotFound(w, fmt.Sprintf("unknown feature group %q", group))
			return
		}

		var body struct {
			Distro string             `json:"distro"`
			Values map[string]*string `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		var fieldErrs []model.FieldError
		for name := range body.Values {
			setting, ok := theming.Lookup(name)
			if !ok {
				fieldErrs = append(fieldErrs, model.FieldError{
					Field: name, Code: "unknown_setting",
					Message: "no such theming setting",
				})
				continue
			}
			if setting.Group != group {
				fieldErrs = append(fieldErrs, model.FieldError{
					Field: name, Code: "wrong_group",
					Message: fmt.Sprintf("setting belongs to group %q", setting.Group),
				})
			}
		}
		if len(fieldErrs) > 0 {
			WriteValidationError(w, fieldErrs)
			return
		}

		suffix := distro.Suffix(body.Distro)
		for name, value := range body.Values {
			setting, _ := theming.Lookup(name)
			if value == nil {
				store.ClearThemingValue(setting, suffix)
			} else {
				store.SetThemingValue(setting, suffix, *value)
			}
		}
		recordMutation(metrics, "set_theming")

		WriteJSON(w, http.StatusOK, renderThemingGroup(store, group, body.Distro))
	}
}
