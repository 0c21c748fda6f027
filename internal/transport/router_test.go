package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/soneri/appcanvas/internal/cache"
	"github.com/soneri/appcanvas/internal/catalog"
	"github.com/soneri/appcanvas/internal/config"
	"github.com/soneri/appcanvas/internal/document"
	"github.com/soneri/appcanvas/internal/observability"
	"github.com/soneri/appcanvas/internal/publish"
	"github.com/soneri/appcanvas/model"
)

// --- fakes ---

type fakeDocSource struct {
	doc model.ConfigurationDocument
	err error
}

func (f *fakeDocSource) Load(context.Context, string) (*model.ConfigurationDocument, cache.Source, error) {
	if f.err != nil {
		return nil, cache.SourceUpstream, f.err
	}
	doc := f.doc
	return &doc, cache.SourceUpstream, nil
}

type fakeDistroSource struct {
	distros []model.DistroDescriptor
}

func (f *fakeDistroSource) List(context.Context) ([]model.DistroDescriptor, cache.Source, error) {
	return f.distros, cache.SourceSnapshot, nil
}

type fakePublisher struct {
	lastTarget model.DistroDescriptor
	result     publish.Result
}

func (f *fakePublisher) Publish(_ context.Context, target model.DistroDescriptor, _ model.ConfigurationDocument, _ map[string]string) publish.Result {
	f.lastTarget = target
	return f.result
}

type testEnv struct {
	router    http.Handler
	store     *document.Store
	docs      *fakeDocSource
	publisher *fakePublisher
	journal   *publish.MemoryJournal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg := catalog.NewRegistry([]model.WidgetType{
		{ID: "banner", Label: "Banner", Order: 1, DefaultPayload: map[string]any{"height": 120.0}},
		{ID: "promo", Label: "Promo card", Order: 2},
	})
	store := document.NewStore(reg)
	store.Load(model.ConfigurationDocument{
		Screens: map[string]model.ScreenConfig{
			"home": {Name: "home", Widgets: []model.WidgetInstance{
				{TypeID: "banner", InstanceID: "banner_1"},
				{TypeID: "promo", InstanceID: "promo_1"},
			}},
		},
		GlobalTheming: map[string]string{},
	})

	docs := &fakeDocSource{doc: model.NewDocument()}
	publisher := &fakePublisher{result: publish.Result{RecordID: "rec-1"}}
	journal := publish.NewMemoryJournal()

	cfg := config.Defaults()
	deps := Dependencies{
		Config:    cfg,
		Store:     store,
		Catalog:   reg,
		Documents: docs,
		Distros: &fakeDistroSource{distros: []model.DistroDescriptor{
			{Name: "main"},
			{Name: "PromoA", Filename: "promo_a.apk"},
		}},
		Publisher: publisher,
		Journal:   journal,
		Metrics:   observability.InitMetrics(prometheus.NewRegistry()),
		Ready:     observability.ReadinessChecks{CatalogLoaded: func() bool { return reg.Len() > 0 }},
	}

	return &testEnv{
		router:    NewRouter(deps),
		store:     store,
		docs:      docs,
		publisher: publisher,
		journal:   journal,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// --- routes ---

func TestPublicEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/ui/health", "/ui/ready", "/metrics"} {
		if rec := env.do(t, http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestGetDocument(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/ui/document", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body documentResponse
	decodeBody(t, rec, &body)
	if body.ActiveScreen != "home" {
		t.Errorf("active screen = %q, want home", body.ActiveScreen)
	}
	if len(body.Document.Screens["home"].Widgets) != 2 {
		t.Errorf("home widgets = %d, want 2", len(body.Document.Screens["home"].Widgets))
	}
}

func TestLoadDocumentReportsSource(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/ui/document/load", map[string]string{"distro": "PromoA"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Source cache.Source `json:"source"`
	}
	decodeBody(t, rec, &body)
	if body.Source != cache.SourceUpstream {
		t.Errorf("source = %q, want %q", body.Source, cache.SourceUpstream)
	}
}

func TestLoadDocumentUpstreamFailureMapsToBadGateway(t *testing.T) {
	env := newTestEnv(t)

	// The remote client wraps transient failures in a retry marker; after
	// exhausted retries the wrapper reaches the handler unchanged and must
	// still surface as the upstream envelope, not a generic 500.
	env.docs.err = fmt.Errorf("after 3 attempts: %w", model.NewUpstreamUnavailableError())

	rec := env.do(t, http.MethodPost, "/ui/document/load", map[string]string{"distro": "PromoA"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 (body %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	decodeBody(t, rec, &body)
	if body.Error.Code != model.ErrUpstreamUnavailable {
		t.Errorf("code = %q, want %q", body.Error.Code, model.ErrUpstreamUnavailable)
	}
}

func TestCreateScreenConflict(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/ui/screens", map[string]string{"name": "deposit"}); rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPost, "/ui/screens", map[string]string{"name": "deposit"}); rec.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", rec.Code)
	}
}

func TestAddWidgetUnknownType(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/ui/screens/home/widgets", map[string]string{"typeId": "no-such-type"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAddWidgetUsesDefaultPayload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/ui/screens/home/widgets", map[string]string{"typeId": "banner"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var widget model.WidgetInstance
	decodeBody(t, rec, &widget)
	if widget.TypeID != "banner" || widget.InstanceID == "" {
		t.Fatalf("widget = %+v", widget)
	}
	if widget.Payload["height"] != 120.0 {
		t.Errorf("payload = %v, want default height", widget.Payload)
	}
}

func TestReorderWidgetsRejectsNonPermutation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		widgets    []model.WidgetInstance
		wantStatus int
	}{
		{
			name: "valid permutation",
			widgets: []model.WidgetInstance{
				{TypeID: "promo", InstanceID: "promo_1"},
				{TypeID: "banner", InstanceID: "banner_1"},
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "missing instance",
			widgets: []model.WidgetInstance{
				{TypeID: "banner", InstanceID: "banner_1"},
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "foreign instance",
			widgets: []model.WidgetInstance{
				{TypeID: "banner", InstanceID: "banner_1"},
				{TypeID: "promo", InstanceID: "smuggled"},
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "duplicated instance",
			widgets: []model.WidgetInstance{
				{TypeID: "banner", InstanceID: "banner_1"},
				{TypeID: "banner", InstanceID: "banner_1"},
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, "/ui/screens/home/widgets", tt.widgets)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestWidgetLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// Update.
	rec := env.do(t, http.MethodPatch, "/ui/screens/home/widgets/banner_1", map[string]any{"title": "Hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d, body %s", rec.Code, rec.Body.String())
	}

	// Duplicate.
	rec = env.do(t, http.MethodPost, "/ui/screens/home/widgets/banner_1/duplicate", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("duplicate = %d", rec.Code)
	}
	var clone model.WidgetInstance
	decodeBody(t, rec, &clone)
	if clone.Payload["title"] != "Hello" {
		t.Errorf("clone payload = %v, want copied title", clone.Payload)
	}

	// Delete the clone.
	rec = env.do(t, http.MethodDelete, "/ui/screens/home/widgets/"+clone.InstanceID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	if n := len(env.store.Document().Screens["home"].Widgets); n != 2 {
		t.Errorf("widgets after delete = %d, want 2", n)
	}
}

func TestThemingRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	val := "#FF0000"
	rec := env.do(t, http.MethodPut, "/ui/theming/login", map[string]any{
		"distro": "promo_a.apk",
		"values": map[string]*string{"loginTitleColor": &val},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put = %d, body %s", rec.Code, rec.Body.String())
	}

	if got := env.store.Document().GlobalTheming["loginTitleColorPromoA"]; got != val {
		t.Fatalf("stored flat key = %q, want %q", got, val)
	}

	rec = env.do(t, http.MethodGet, "/ui/theming/login?distro=promo_a.apk", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}
	var body struct {
		Settings []themingSetting `json:"settings"`
	}
	decodeBody(t, rec, &body)
	found := false
	for _, s := range body.Settings {
		if s.Name == "loginTitleColor" {
			found = true
			if !s.Set || s.Value != val {
				t.Errorf("setting = %+v, want set=%q", s, val)
			}
		}
	}
	if !found {
		t.Fatal("loginTitleColor missing from group view")
	}

	// Null clears the key.
	rec = env.do(t, http.MethodPut, "/ui/theming/login", map[string]any{
		"distro": "promo_a.apk",
		"values": map[string]*string{"loginTitleColor": nil},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("clear = %d", rec.Code)
	}
	if _, ok := env.store.Document().GlobalTheming["loginTitleColorPromoA"]; ok {
		t.Error("flat key still present after clear")
	}
}

func TestThemingValidation(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/ui/theming/no-such-group", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown group = %d, want 404", rec.Code)
	}

	val := "x"
	rec := env.do(t, http.MethodPut, "/ui/theming/login", map[string]any{
		"values": map[string]*string{"depositTitle": &val},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("wrong-group write = %d, want 422", rec.Code)
	}
}

func TestPublish(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/ui/publish", map[string]any{
		"distro": map[string]string{"name": "PromoA", "filename": "promo_a.apk"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		RecordID string `json:"recordId"`
	}
	decodeBody(t, rec, &body)
	if body.RecordID != "rec-1" {
		t.Errorf("recordId = %q, want rec-1", body.RecordID)
	}
	if env.publisher.lastTarget.Name != "PromoA" {
		t.Errorf("publish target = %q", env.publisher.lastTarget.Name)
	}
}

func TestPublishScreensFailureSurfaces(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.result = publish.Result{
		RecordID: "rec-2",
		Err:      model.NewUpstreamUnavailableError(),
	}

	rec := env.do(t, http.MethodPost, "/ui/publish", map[string]any{
		"distro": map[string]string{"name": "main"},
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestPublishRequiresTarget(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/ui/publish", map[string]any{})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestListPublishes(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		env.journal.Append(context.Background(), publish.Record{ID: fmt.Sprintf("rec-%d", i)})
	}

	rec := env.do(t, http.MethodGet, "/ui/publishes?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Records []publish.Record `json:"records"`
	}
	decodeBody(t, rec, &body)
	if len(body.Records) != 2 || body.Records[0].ID != "rec-2" {
		t.Errorf("records = %+v, want newest two first", body.Records)
	}

	if rec := env.do(t, http.MethodGet, "/ui/publishes?limit=0", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("limit=0 = %d, want 422", rec.Code)
	}
}

func TestListDistros(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/ui/distros", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Distros []model.DistroDescriptor `json:"distros"`
		Source  cache.Source             `json:"source"`
	}
	decodeBody(t, rec, &body)
	if len(body.Distros) != 2 || body.Distros[0].Name != "main" {
		t.Errorf("distros = %+v", body.Distros)
	}
	if body.Source != cache.SourceSnapshot {
		t.Errorf("source = %q", body.Source)
	}
}

func TestListWidgetTypes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/ui/widget-types", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		WidgetTypes []model.WidgetType `json:"widgetTypes"`
	}
	decodeBody(t, rec, &body)
	if len(body.WidgetTypes) != 2 || body.WidgetTypes[0].ID != "banner" {
		t.Errorf("widget types = %+v, want banner first by order", body.WidgetTypes)
	}
}

func TestMenuItems(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/ui/menu-items", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthenticateMiddlewareGuardsUIRoutes(t *testing.T) {
	// A deny-all authenticator must block /ui routes while health stays
	// public.
	reg := catalog.NewRegistry(nil)
	deps := Dependencies{
		Config:  config.Defaults(),
		Store:   document.NewStore(reg),
		Catalog: reg,
		Authenticate: func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				WriteError(w, model.NewUnauthorizedError("denied"))
			})
		},
		Documents: &fakeDocSource{},
		Distros:   &fakeDistroSource{},
		Publisher: &fakePublisher{},
		Journal:   publish.NewMemoryJournal(),
		Ready:     observability.ReadinessChecks{CatalogLoaded: func() bool { return true }},
	}
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/ui/document", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("guarded route = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ui/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health = %d, want 200", rec.Code)
	}
}
