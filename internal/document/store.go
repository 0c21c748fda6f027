// Package document owns the in-memory configuration document for an editing
// session and the mutation operations over it. Every mutation produces a new
// document value with copy-on-write containers; shared maps and slices are
// never mutated in place, so an unchanged sub-tree keeps its identity across
// operations.
package document

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/soneri/appcanvas/internal/catalog"
	"github.com/soneri/appcanvas/internal/theming"
	"github.com/soneri/appcanvas/model"
)

// Store holds the current configuration document and the editor's selection
// state. It is created from an upstream snapshot and replaced wholesale on
// the next load.
type Store struct {
	mu      sync.Mutex
	catalog *catalog.Registry

	doc            model.ConfigurationDocument
	activeScreen   string
	selectedWidget string

	now func() time.Time
}

// NewStore creates a Store backed by the given widget type catalog.
func NewStore(reg *catalog.Registry) *Store {
	return &Store{
		catalog: reg,
		doc:     model.NewDocument(),
		now:     time.Now,
	}
}

// Load replaces the document wholesale with a fresh snapshot and resets the
// selection to the first screen, if any.
func (s *Store) Load(doc model.ConfigurationDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.Screens == nil {
		doc.Screens = make(map[string]model.ScreenConfig)
	}
	if doc.GlobalTheming == nil {
		doc.GlobalTheming = make(map[string]string)
	}
	s.doc = doc
	s.selectedWidget = ""
	s.activeScreen = firstScreenName(doc.Screens)
}

// Document returns the current document. Containers are shared with the
// store's copy; callers must treat them as read-only.
func (s *Store) Document() model.ConfigurationDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Selection returns the active screen name and the selected widget instance
// ID. Either may be empty.
func (s *Store) Selection() (screen, widget string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeScreen, s.selectedWidget
}

// SelectScreen makes the named screen active. Unknown names are ignored.
func (s *Store) SelectScreen(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc.Screens[name]; ok {
		s.activeScreen = name
	}
}

// CreateScreen adds an empty screen. Screen names are a uniqueness domain:
// creating an existing name is a conflict and leaves the document unchanged.
func (s *Store) CreateScreen(name string) error {
	if name == "" {
		return model.NewValidationError([]model.FieldError{
			{Field: "name", Code: "required", Message: "screen name must not be empty"},
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.doc.Screens[name]; exists {
		return model.NewConflictError(fmt.Sprintf("screen %q already exists", name))
	}

	screens := s.doc.CloneScreens()
	screens[name] = model.ScreenConfig{Name: name, Widgets: []model.WidgetInstance{}}
	s.doc.Screens = screens
	s.activeScreen = name
	return nil
}

// DeleteScreen removes the named screen. If it was the active screen, the
// selection falls back to the first remaining screen, or to the explicit
// no-screen state when none remain.
func (s *Store) DeleteScreen(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Screens[name]; !ok {
		return
	}

	screens := s.doc.CloneScreens()
	delete(screens, name)
	s.doc.Screens = screens

	if s.activeScreen == name {
		s.activeScreen = firstScreenName(screens)
		s.selectedWidget = ""
	}
}

// AddWidget places a new instance of the given widget type on the named
// screen, creating the screen if absent, and selects the new widget. Unknown
// widget types are a silent no-op.
func (s *Store) AddWidget(screenName, typeID string) (model.WidgetInstance, bool) {
	wt, ok := s.catalog.Get(typeID)
	if !ok {
		return model.WidgetInstance{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	screen, exists := s.doc.Screens[screenName]
	if !exists {
		screen = model.ScreenConfig{Name: screenName}
	}

	widget := model.WidgetInstance{
		TypeID:     typeID,
		InstanceID: s.freshInstanceID(screen, typeID, ""),
		Payload:    model.ClonePayload(wt.DefaultPayload),
	}

	screen.Widgets = appendWidgets(screen.Widgets, widget)
	s.replaceScreen(screenName, screen)
	s.selectedWidget = widget.InstanceID
	return widget, true
}

// UpdateWidget locates a widget by instance ID within the named screen and
// shallow-merges the partial payload into it, preserving TypeID and
// InstanceID. A missing screen or instance is a no-op.
func (s *Store) UpdateWidget(screenName, instanceID string, patch map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	screen, ok := s.doc.Screens[screenName]
	if !ok {
		return false
	}
	idx := indexOfInstance(screen.Widgets, instanceID)
	if idx < 0 {
		return false
	}

	widget := screen.Widgets[idx]
	payload := model.ClonePayload(widget.Payload)
	if payload == nil {
		payload = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		payload[k] = v
	}
	widget.Payload = payload

	widgets := copyWidgets(screen.Widgets)
	widgets[idx] = widget
	screen.Widgets = widgets
	s.replaceScreen(screenName, screen)
	return true
}

// DeleteWidget removes the matching instance from the named screen, clearing
// the selection if the deleted widget was selected.
func (s *Store) DeleteWidget(screenName, instanceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	screen, ok := s.doc.Screens[screenName]
	if !ok {
		return false
	}
	idx := indexOfInstance(screen.Widgets, instanceID)
	if idx < 0 {
		return false
	}

	widgets := make([]model.WidgetInstance, 0, len(screen.Widgets)-1)
	widgets = append(widgets, screen.Widgets[:idx]...)
	widgets = append(widgets, screen.Widgets[idx+1:]...)
	screen.Widgets = widgets
	s.replaceScreen(screenName, screen)

	if s.selectedWidget == instanceID {
		s.selectedWidget = ""
	}
	return true
}

// DuplicateWidget clones the instance with a fresh copy-suffixed ID, appends
// the clone to the same screen, and selects it.
func (s *Store) DuplicateWidget(screenName, instanceID string) (model.WidgetInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	screen, ok := s.doc.Screens[screenName]
	if !ok {
		return model.WidgetInstance{}, false
	}
	idx := indexOfInstance(screen.Widgets, instanceID)
	if idx < 0 {
		return model.WidgetInstance{}, false
	}

	original := screen.Widgets[idx]
	clone := model.WidgetInstance{
		TypeID:     original.TypeID,
		InstanceID: s.freshInstanceID(screen, original.TypeID, "_copy"),
		Payload:    model.ClonePayload(original.Payload),
	}

	screen.Widgets = appendWidgets(screen.Widgets, clone)
	s.replaceScreen(screenName, screen)
	s.selectedWidget = clone.InstanceID
	return clone, true
}

// ReorderWidgets replaces the screen's widget slice wholesale with the
// caller-supplied order. The caller is responsible for supplying a valid
// permutation of the same instances; the store does not verify the set.
func (s *Store) ReorderWidgets(screenName string, widgets []model.WidgetInstance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	screen, ok := s.doc.Screens[screenName]
	if !ok {
		return false
	}

	screen.Widgets = copyWidgets(widgets)
	s.replaceScreen(screenName, screen)
	return true
}

// SetNavigation replaces the navigation structure.
func (s *Store) SetNavigation(nav model.Navigation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Navigation = nav
}

// SetThemingValue stores an encoded value under the setting's suffixed flat
// key. An empty value is stored as-is; clearing is a separate operation.
func (s *Store) SetThemingValue(setting theming.Setting, suffix, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.doc.CloneTheming()
	theming.NewAccessor(values, suffix).Set(setting, value)
	s.doc.GlobalTheming = values
}

// ClearThemingValue removes the suffixed flat key so the downstream client
// falls back to the setting's default.
func (s *Store) ClearThemingValue(setting theming.Setting, suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.doc.CloneTheming()
	theming.NewAccessor(values, suffix).Clear(setting)
	s.doc.GlobalTheming = values
}

// --- internal helpers (mu held) ---

// replaceScreen swaps one screen entry into a cloned screens map.
func (s *Store) replaceScreen(name string, screen model.ScreenConfig) {
	if screen.Name == "" {
		screen.Name = name
	}
	screens := s.doc.CloneScreens()
	screens[name] = screen
	s.doc.Screens = screens
}

// freshInstanceID generates "type[_copy]_<unixmillis>", advancing the
// timestamp until the ID is unused within the screen. Instance IDs only need
// to be unique per screen, but in practice the millisecond clock keeps them
// globally unique as well.
func (s *Store) freshInstanceID(screen model.ScreenConfig, typeID, marker string) string {
	ts := s.now().UnixMilli()
	for {
		id := typeID + marker + "_" + strconv.FormatInt(ts, 10)
		if indexOfInstance(screen.Widgets, id) < 0 {
			return id
		}
		ts++
	}
}

func indexOfInstance(widgets []model.WidgetInstance, instanceID string) int {
	for i, w := range widgets {
		if w.InstanceID == instanceID {
			return i
		}
	}
	return -1
}

func copyWidgets(widgets []model.WidgetInstance) []model.WidgetInstance {
	out := make([]model.WidgetInstance, len(widgets))
	copy(out, widgets)
	return out
}

func appendWidgets(widgets []model.WidgetInstance, w model.WidgetInstance) []model.WidgetInstance {
	out := make([]model.WidgetInstance, 0, len(widgets)+1)
	out = append(out, widgets...)
	return append(out, w)
}

func firstScreenName(screens map[string]model.ScreenConfig) string {
	if len(screens) == 0 {
		return ""
	}
	names := make([]string, 0, len(screens))
	for name := range screens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}
