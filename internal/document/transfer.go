package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/soneri/appcanvas/internal/catalog"
	"github.com/soneri/appcanvas/model"
)

// Export serializes a document to formatted JSON for download.
func Export(doc model.ConfigurationDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("document: export: %w", err)
	}
	return data, nil
}

// Import parses an operator-supplied document file. Malformed JSON is a
// validation error. Any widget instance whose ID is missing or collides with
// a known catalog placeholder is repaired before the document is accepted,
// regenerating the ID from type ID, current time, and array index.
func Import(data []byte, reg *catalog.Registry) (model.ConfigurationDocument, error) {
	var doc model.ConfigurationDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.ConfigurationDocument{}, model.NewValidationError([]model.FieldError{
			{Field: "file", Code: "malformed", Message: "the file is not a valid configuration document"},
		})
	}

	if doc.Screens == nil {
		doc.Screens = make(map[string]model.ScreenConfig)
	}
	if doc.GlobalTheming == nil {
		doc.GlobalTheming = make(map[string]string)
	}

	repairInstanceIDs(&doc, reg, time.Now())
	return doc, nil
}

// repairInstanceIDs regenerates missing or placeholder instance IDs in place.
func repairInstanceIDs(doc *model.ConfigurationDocument, reg *catalog.Registry, now time.Time) {
	millis := strconv.FormatInt(now.UnixMilli(), 10)

	for name, screen := range doc.Screens {
		repaired := false
		for i, widget := range screen.Widgets {
			if widget.InstanceID != "" && !reg.IsPlaceholderID(widget.InstanceID) {
				continue
			}
			if !repaired {
				screen.Widgets = copyWidgets(screen.Widgets)
				repaired = true
			}
			screen.Widgets[i].InstanceID = widget.TypeID + "_" + millis + "_" + strconv.Itoa(i)
		}
		if repaired {
			doc.Screens[name] = screen
		}
	}
}
