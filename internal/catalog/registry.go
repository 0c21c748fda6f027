package catalog

import (
	"sort"
	"sync/atomic"

	"github.com/soneri/appcanvas/model"
)

// snapshot is an immutable view of the loaded widget types.
type snapshot struct {
	byID         map[string]model.WidgetType
	ordered      []model.WidgetType
	placeholders map[string]bool
}

// Registry is a read-optimized, thread-safe store of widget types. It uses
// atomic pointer swap for lock-free concurrent reads.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from the given widget types.
func NewRegistry(types []model.WidgetType) *Registry {
	r := &Registry{}
	r.Replace(types)
	return r
}

// Replace atomically swaps the registry contents.
func (r *Registry) Replace(types []model.WidgetType) {
	s := &snapshot{
		byID:         make(map[string]model.WidgetType, len(types)),
		ordered:      make([]model.WidgetType, len(types)),
		placeholders: make(map[string]bool),
	}

	copy(s.ordered, types)
	sort.SliceStable(s.ordered, func(i, j int) bool {
		return s.ordered[i].Order < s.ordered[j].Order
	})

	for _, wt := range types {
		s.byID[wt.ID] = wt
		if wt.PlaceholderID != "" {
			s.placeholders[wt.PlaceholderID] = true
		}
	}

	r.snap.Store(s)
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// Get returns the widget type with the given ID.
func (r *Registry) Get(typeID string) (model.WidgetType, bool) {
	wt, ok := r.current().byID[typeID]
	return wt, ok
}

// All returns every widget type sorted by catalog order.
func (r *Registry) All() []model.WidgetType {
	s := r.current()
	out := make([]model.WidgetType, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// IsPlaceholderID reports whether id is a known default placeholder
// instance identifier shipped in a widget type's default payload. Imported
// documents carrying such an ID must have it regenerated.
func (r *Registry) IsPlaceholderID(id string) bool {
	return r.current().placeholders[id]
}

// Len returns the number of registered widget types.
func (r *Registry) Len() int {
	return len(r.current().byID)
}
