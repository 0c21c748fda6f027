package document

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soneri/appcanvas/model"
)

// ExtractMenuItems computes the flattened, addressable menu item list from
// every widget payload carrying an "items" array, descending recursively
// through "submenu.items". Items with a menuId or route are collected; a
// missing menuId is synthesized from title, route, and the current time.
//
// The projection is pure and recomputed on every call; synthesized IDs are
// therefore not stable across extractions of an unmodified document.
func ExtractMenuItems(doc model.ConfigurationDocument) []model.MenuItem {
	return extractMenuItems(doc, time.Now())
}

func extractMenuItems(doc model.ConfigurationDocument, now time.Time) []model.MenuItem {
	names := make([]string, 0, len(doc.Screens))
	for name := range doc.Screens {
		names = append(names, name)
	}
	sort.Strings(names)

	var items []model.MenuItem
	for _, name := range names {
		screen := doc.Screens[name]
		for _, widget := range screen.Widgets {
			collectItems(widget.Payload["items"], name, widget.InstanceID, now, &items)
		}
	}
	return items
}

// collectItems walks one items array, recursing into submenus.
func collectItems(raw any, screen, widgetID string, now time.Time, out *[]model.MenuItem) {
	arr, ok := raw.([]any)
	if !ok {
		return
	}

	for _, entry := range arr {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		menuID := stringField(item, "menuId")
		route := stringField(item, "route")
		if menuID != "" || route != "" {
			title := stringField(item, "title")
			if menuID == "" {
				menuID = synthesizeMenuID(title, route, now)
			}
			*out = append(*out, model.MenuItem{
				MenuID:   menuID,
				Title:    title,
				Route:    route,
				Icon:     stringField(item, "icon"),
				Screen:   screen,
				WidgetID: widgetID,
			})
		}

		if submenu, ok := item["submenu"].(map[string]any); ok {
			collectItems(submenu["items"], screen, widgetID, now, out)
		}
	}
}

// synthesizeMenuID builds an ephemeral identifier from title, route, and the
// extraction timestamp.
func synthesizeMenuID(title, route string, now time.Time) string {
	return slug(title) + "_" + slug(route) + "_" + strconv.FormatInt(now.UnixMilli(), 10)
}

// slug lowercases and reduces a fragment to alphanumerics.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
