package document

import (
	"testing"
	"time"

	"github.com/soneri/appcanvas/internal/catalog"
	"github.com/soneri/appcanvas/internal/theming"
	"github.com/soneri/appcanvas/model"
)

func testCatalog() *catalog.Registry {
	return catalog.NewRegistry([]model.WidgetType{
		{
			ID:            "banner_slider",
			Label:         "Banner Slider",
			PlaceholderID: "banner_slider_1",
			DefaultPayload: map[string]any{
				"items":    []any{},
				"autoplay": true,
			},
		},
		{
			ID:    "quick_menu",
			Label: "Quick Menu",
			DefaultPayload: map[string]any{
				"items": []any{},
			},
		},
	})
}

func newTestStore() *Store {
	s := NewStore(testCatalog())
	// Deterministic but advancing clock.
	base := time.UnixMilli(1700000000000)
	var calls int64
	s.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Millisecond)
	}
	return s
}

func TestAddWidget_createsScreenAndSelects(t *testing.T) {
	s := newTestStore()

	w, ok := s.AddWidget("home", "banner_slider")
	if !ok {
		t.Fatal("AddWidget returned ok=false for known type")
	}
	if w.TypeID != "banner_slider" {
		t.Errorf("TypeID = %q, want banner_slider", w.TypeID)
	}
	if w.InstanceID == "" {
		t.Error("InstanceID is empty")
	}
	if w.Payload["autoplay"] != true {
		t.Errorf("default payload not applied: %+v", w.Payload)
	}

	doc := s.Document()
	if len(doc.Screens["home"].Widgets) != 1 {
		t.Fatalf("home has %d widgets, want 1", len(doc.Screens["home"].Widgets))
	}
	if _, selected := s.Selection(); selected != w.InstanceID {
		t.Errorf("selected widget = %q, want %q", selected, w.InstanceID)
	}
}

func TestAddWidget_unknownTypeIsNoop(t *testing.T) {
	s := newTestStore()

	if _, ok := s.AddWidget("home", "no_such_type"); ok {
		t.Fatal("AddWidget accepted an unknown type")
	}
	if len(s.Document().Screens) != 0 {
		t.Error("document changed by a no-op add")
	}
}

func TestAddWidget_defaultPayloadNotShared(t *testing.T) {
	s := newTestStore()

	a, _ := s.AddWidget("home", "banner_slider")
	s.UpdateWidget("home", a.InstanceID, map[string]any{"autoplay": false})

	b, _ := s.AddWidget("home", "banner_slider")
	if b.Payload["autoplay"] != true {
		t.Error("second instance inherited the first instance's edits")
	}
}

// Every widget instance in the resulting document has a unique instance ID
// within its screen, for any sequence of add/delete/duplicate calls.
func TestInstanceIDsUnique(t *testing.T) {
	s := newTestStore()

	var first model.WidgetInstance
	for i := 0; i < 5; i++ {
		w, ok := s.AddWidget("home", "banner_slider")
		if !ok {
			t.Fatal("AddWidget failed")
		}
		if i == 0 {
			first = w
		}
	}
	for i := 0; i < 3; i++ {
		if _, ok := s.DuplicateWidget("home", first.InstanceID); !ok {
			t.Fatal("DuplicateWidget failed")
		}
	}
	s.DeleteWidget("home", first.InstanceID)
	s.AddWidget("home", "quick_menu")

	seen := map[string]bool{}
	for _, w := range s.Document().Screens["home"].Widgets {
		if seen[w.InstanceID] {
			t.Fatalf("duplicate instance ID %q", w.InstanceID)
		}
		seen[w.InstanceID] = true
	}
}

func TestUpdateWidget_shallowMergePreservesIdentity(t *testing.T) {
	s := newTestStore()
	w, _ := s.AddWidget("home", "banner_slider")

	if !s.UpdateWidget("home", w.InstanceID, map[string]any{"interval": 5, "autoplay": false}) {
		t.Fatal("UpdateWidget returned false")
	}

	got := s.Document().Screens["home"].Widgets[0]
	if got.InstanceID != w.InstanceID || got.TypeID != w.TypeID {
		t.Errorf("identity changed: %q/%q", got.InstanceID, got.TypeID)
	}
	if got.Payload["interval"] != 5 {
		t.Errorf("patched field interval = %v, want 5", got.Payload["interval"])
	}
	if got.Payload["autoplay"] != false {
		t.Errorf("patched field autoplay = %v, want false", got.Payload["autoplay"])
	}
	if _, ok := got.Payload["items"]; !ok {
		t.Error("unrelated payload field dropped by shallow merge")
	}
}

func TestUpdateWidget_missingInstanceIsNoop(t *testing.T) {
	s := newTestStore()
	s.AddWidget("home", "banner_slider")
	before := s.Document()

	if s.UpdateWidget("home", "banner_slider", map[string]any{"x": 1}) {
		t.Error("lookup by type ID must not resolve an instance")
	}
	if s.UpdateWidget("home", "missing_123", map[string]any{"x": 1}) {
		t.Error("UpdateWidget returned true for a missing instance")
	}
	after := s.Document()
	if len(after.Screens["home"].Widgets[0].Payload) != len(before.Screens["home"].Widgets[0].Payload) {
		t.Error("no-op update changed the payload")
	}
}

func TestDeleteWidget_clearsSelection(t *testing.T) {
	s := newTestStore()
	w, _ := s.AddWidget("home", "banner_slider")

	if !s.DeleteWidget("home", w.InstanceID) {
		t.Fatal("DeleteWidget returned false")
	}
	if len(s.Document().Screens["home"].Widgets) != 0 {
		t.Error("widget not removed")
	}
	if _, selected := s.Selection(); selected != "" {
		t.Errorf("selection = %q, want cleared", selected)
	}
}

func TestDuplicateWidget_copyMarkerAndPayload(t *testing.T) {
	s := newTestStore()
	w, _ := s.AddWidget("home", "banner_slider")
	s.UpdateWidget("home", w.InstanceID, map[string]any{"interval": 7})

	clone, ok := s.DuplicateWidget("home", w.InstanceID)
	if !ok {
		t.Fatal("DuplicateWidget returned false")
	}
	if clone.InstanceID == w.InstanceID {
		t.Error("clone shares the original's instance ID")
	}
	if want := "banner_slider_copy_"; len(clone.InstanceID) < len(want) || clone.InstanceID[:len(want)] != want {
		t.Errorf("clone ID = %q, want %q prefix", clone.InstanceID, want)
	}
	if clone.Payload["interval"] != 7 {
		t.Error("clone did not carry the original payload")
	}

	// Clone payload is independent of the original.
	s.UpdateWidget("home", clone.InstanceID, map[string]any{"interval": 9})
	original := s.Document().Screens["home"].Widgets[0]
	if original.Payload["interval"] != 7 {
		t.Error("editing the clone mutated the original payload")
	}

	if _, selected := s.Selection(); selected != clone.InstanceID {
		t.Errorf("selection = %q, want clone %q", selected, clone.InstanceID)
	}
}

// Reorder preserves the multiset of instances when the caller supplies a
// permutation, which is the caller's contract.
func TestReorderWidgets_wholesaleReplace(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddWidget("home", "banner_slider")
	b, _ := s.AddWidget("home", "quick_menu")
	c, _ := s.AddWidget("home", "banner_slider")

	doc := s.Document()
	reordered := []model.WidgetInstance{
		doc.Screens["home"].Widgets[2],
		doc.Screens["home"].Widgets[0],
		doc.Screens["home"].Widgets[1],
	}
	if !s.ReorderWidgets("home", reordered) {
		t.Fatal("ReorderWidgets returned false")
	}

	got := s.Document().Screens["home"].Widgets
	wantOrder := []string{c.InstanceID, a.InstanceID, b.InstanceID}
	for i, want := range wantOrder {
		if got[i].InstanceID != want {
			t.Errorf("position %d = %q, want %q", i, got[i].InstanceID, want)
		}
	}

	before := map[string]int{a.InstanceID: 1, b.InstanceID: 1, c.InstanceID: 1}
	after := map[string]int{}
	for _, w := range got {
		after[w.InstanceID]++
	}
	for id, n := range before {
		if after[id] != n {
			t.Errorf("instance %q count = %d, want %d", id, after[id], n)
		}
	}
}

func TestCreateScreen_conflict(t *testing.T) {
	s := newTestStore()
	if err := s.CreateScreen("promo"); err != nil {
		t.Fatalf("CreateScreen error: %v", err)
	}
	before := s.Document()

	err := s.CreateScreen("promo")
	ee, ok := err.(*model.ErrorEnvelope)
	if !ok || ee.Code != model.ErrConflict {
		t.Fatalf("err = %v, want CONFLICT envelope", err)
	}

	after := s.Document()
	if len(after.Screens) != len(before.Screens) {
		t.Error("document changed by the conflicting create")
	}
}

func TestDeleteScreen_selectionFallback(t *testing.T) {
	s := newTestStore()
	s.CreateScreen("home")
	s.CreateScreen("promo")
	s.SelectScreen("promo")

	s.DeleteScreen("promo")
	if active, _ := s.Selection(); active != "home" {
		t.Errorf("active screen = %q, want home", active)
	}

	s.DeleteScreen("home")
	if active, _ := s.Selection(); active != "" {
		t.Errorf("active screen = %q, want no-screen state", active)
	}
}

func TestDeleteScreen_inactiveKeepsSelection(t *testing.T) {
	s := newTestStore()
	s.CreateScreen("home")
	s.CreateScreen("promo")
	s.SelectScreen("home")

	s.DeleteScreen("promo")
	if active, _ := s.Selection(); active != "home" {
		t.Errorf("active screen = %q, want home", active)
	}
}

func TestLoad_replacesWholesale(t *testing.T) {
	s := newTestStore()
	s.AddWidget("old", "banner_slider")

	s.Load(model.ConfigurationDocument{
		Screens: map[string]model.ScreenConfig{
			"fresh": {Name: "fresh"},
		},
	})

	doc := s.Document()
	if _, ok := doc.Screens["old"]; ok {
		t.Error("previous session state survived a load")
	}
	if active, selected := s.Selection(); active != "fresh" || selected != "" {
		t.Errorf("selection = %q/%q, want fresh/empty", active, selected)
	}
}

func TestThemingValues_copyOnWrite(t *testing.T) {
	s := newTestStore()
	title, _ := theming.Lookup("loginTitle")

	before := s.Document().GlobalTheming
	s.SetThemingValue(title, "PromoA", "Hello")

	if _, ok := before["loginTitlePromoA"]; ok {
		t.Error("previous theming map mutated in place")
	}
	if s.Document().GlobalTheming["loginTitlePromoA"] != "Hello" {
		t.Error("value not stored under suffixed key")
	}

	s.ClearThemingValue(title, "PromoA")
	if _, ok := s.Document().GlobalTheming["loginTitlePromoA"]; ok {
		t.Error("Clear left the key in place")
	}
}
