package model

// MenuItem is a derived, addressable entry extracted from widget payloads
// that carry item lists. Menu items are recomputed on every extraction and
// never stored back into the document; a synthesized MenuID is therefore
// not stable across extractions of an unmodified document.
type MenuItem struct {
	MenuID string `json:"menuId"`
	Title  string `json:"title,omitempty"`
	Route  string `json:"route,omitempty"`
	Icon   string `json:"icon,omitempty"`

	// Screen and widget the item was extracted from, for editor display.
	Screen   string `json:"screen,omitempty"`
	WidgetID string `json:"widgetId,omitempty"`
}
