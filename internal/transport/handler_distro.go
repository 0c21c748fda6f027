package transport

import (
	"net/http"

	"github.com/soneri/appcanvas/internal/observability"
)

// handleListDistros serves the distribution variant list through the
// snapshot cache.
func handleListDistros(distros DistroSource, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		descriptors, source, err := distros.List(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		recordSnapshotRead(metrics, "distros", source)
		WriteJSON(w, http.StatusOK, map[string]any{
			"distros": descriptors,
			"source":  source,
		})
	}
}
