package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soneri/appcanvas/internal/catalog"
	"github.com/soneri/appcanvas/internal/config"
	"github.com/soneri/appcanvas/internal/document"
	"github.com/soneri/appcanvas/internal/observability"
	"github.com/soneri/appcanvas/internal/publish"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config       *config.Config
	Authenticate func(http.Handler) http.Handler

	Store     *document.Store
	Catalog   *catalog.Registry
	Documents DocumentSource
	Distros   DistroSource
	Publisher Publisher
	Journal   publish.Journal

	Metrics *observability.Metrics
	Ready   observability.ReadinessChecks
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery)
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	r.Use(observability.TracingMiddleware)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.MetricsMiddleware)
	}

	// Public routes. These bypass authentication.
	r.Get("/ui/health", observability.HandleHealth())
	r.Get("/ui/ready", observability.HandleReady(deps.Ready))
	r.Method(http.MethodGet, "/metrics", observability.Handler())

	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	// Authenticated routes with the full middleware chain.
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(BuildOperatorContext)
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging)

		// Editing session document.
		r.Get("/ui/document", handleGetDocument(deps.Store))
		r.Post("/ui/document/load", handleLoadDocument(deps.Store, deps.Documents, deps.Metrics))
		r.Get("/ui/document/export", handleExportDocument(deps.Store))
		r.Post("/ui/document/import", handleImportDocument(deps.Store, deps.Catalog, deps.Metrics))
		r.Put("/ui/document/navigation", handleSetNavigation(deps.Store, deps.Metrics))

		// Screens and widgets.
		r.Post("/ui/screens", handleCreateScreen(deps.Store, deps.Metrics))
		r.Delete("/ui/screens/{screen}", handleDeleteScreen(deps.Store, deps.Metrics))
		r.Post("/ui/screens/{screen}/select", handleSelectScreen(deps.Store))
		r.Post("/ui/screens/{screen}/widgets", handleAddWidget(deps.Store, deps.Metrics))
		r.Put("/ui/screens/{screen}/widgets", handleReorderWidgets(deps.Store, deps.Metrics))
		r.Patch("/ui/screens/{screen}/widgets/{instanceId}", handleUpdateWidget(deps.Store, deps.Metrics))
		r.Delete("/ui/screens/{screen}/widgets/{instanceId}", handleDeleteWidget(deps.Store, deps.Metrics))
		r.Post("/ui/screens/{screen}/widgets/{instanceId}/duplicate", handleDuplicateWidget(deps.Store, deps.Metrics))

		// Derived projections and reference data.
		r.Get("/ui/menu-items", handleMenuItems(deps.Store))
		r.Get("/ui/widget-types", handleListWidgetTypes(deps.Catalog))
		r.Get("/ui/distros", handleListDistros(deps.Distros, deps.Metrics))

		// Theming.
		r.Get("/ui/theming/{group}", handleGetTheming(deps.Store))
		r.Put("/ui/theming/{group}", handlePutTheming(deps.Store, deps.Metrics))

		// Publish.
		r.Post("/ui/publish", handlePublish(deps.Store, deps.Publisher))
		r.Get("/ui/publishes", handleListPublishes(deps.Journal))
	})

	return r
}
