// Package model contains the shared data types exchanged between the
// document store, the theming codec, the publish pipeline, and the HTTP
// transport layer.
package model

// ConfigurationDocument is the full editable state for one app variant:
// screen layouts, flat theming values, and the navigation structure.
//
// A document is created from an upstream snapshot at the start of an editing
// session and replaced wholesale on the next load; it is never merged with
// a previous session's state.
type ConfigurationDocument struct {
	Screens       map[string]ScreenConfig `json:"screens"`
	GlobalTheming map[string]string       `json:"globalTheming,omitempty"`
	Navigation    Navigation              `json:"navigation,omitempty"`
}

// ScreenConfig is a named screen and its placed widgets. Slice order is the
// rendering order on the client.
type ScreenConfig struct {
	Name    string           `json:"name"`
	Widgets []WidgetInstance `json:"widgets"`
}

// WidgetInstance is one placed occurrence of a widget type on a screen.
//
// InstanceID is the only valid key for locating a placed widget: TypeID is
// shared by every instance of the same kind and must never be used for
// instance lookup.
type WidgetInstance struct {
	TypeID     string         `json:"typeId"`
	InstanceID string         `json:"instanceId"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Navigation is the client's menu/route structure, independent of screens.
type Navigation struct {
	Entries []NavigationEntry `json:"entries,omitempty"`
}

// NavigationEntry is one node of the navigation structure.
type NavigationEntry struct {
	Label    string            `json:"label,omitempty"`
	Route    string            `json:"route,omitempty"`
	Icon     string            `json:"icon,omitempty"`
	Children []NavigationEntry `json:"children,omitempty"`
}

// WidgetType describes one widget kind available to the editor: its stable
// type ID, display label, catalog ordering hint, and the payload a freshly
// placed instance starts with.
type WidgetType struct {
	ID             string         `yaml:"id" json:"id"`
	Label          string         `yaml:"label" json:"label"`
	Order          int            `yaml:"order" json:"order"`
	PlaceholderID  string         `yaml:"placeholder_id" json:"placeholderId,omitempty"`
	DefaultPayload map[string]any `yaml:"default_payload" json:"defaultPayload,omitempty"`

	// Set by the catalog loader.
	Checksum   string `yaml:"-" json:"-"`
	SourceFile string `yaml:"-" json:"-"`
}

// DistroDescriptor identifies one distribution variant as reported by the
// discovery endpoint. The default/main variant is synthesized client-side
// and is never returned by the server.
type DistroDescriptor struct {
	Filename string `json:"filename"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}

// IsMain reports whether the descriptor is the synthetic default variant.
func (d DistroDescriptor) IsMain() bool {
	return d.Filename == ""
}

// NewDocument returns an empty document with initialized containers.
func NewDocument() ConfigurationDocument {
	return ConfigurationDocument{
		Screens:       make(map[string]ScreenConfig),
		GlobalTheming: make(map[string]string),
	}
}

// CloneScreens returns a shallow copy of the screens map. Screen values
// (and their widget slices) are shared with the original; callers replace
// the entry they mutate.
func (d ConfigurationDocument) CloneScreens() map[string]ScreenConfig {
	screens := make(map[string]ScreenConfig, len(d.Screens))
	for name, sc := range d.Screens {
		screens[name] = sc
	}
	return screens
}

// CloneTheming returns a copy of the flat theming map.
func (d ConfigurationDocument) CloneTheming() map[string]string {
	theming := make(map[string]string, len(d.GlobalTheming))
	for k, v := range d.GlobalTheming {
		theming[k] = v
	}
	return theming
}

// ClonePayload returns a shallow copy of a widget payload.
func ClonePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
