package theming

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlatKey derives the concrete flat-store key for a logical setting name and
// a distro suffix. The empty suffix addresses the default variant.
func FlatKey(name, suffix string) string {
	return name + suffix
}

// EncodeBool encodes a toggle for the flat store.
func EncodeBool(v bool) string {
	return strconv.FormatBool(v)
}

// DecodeBool parses a flat toggle value. Anything other than "true" decodes
// to false.
func DecodeBool(s string) bool {
	return s == "true"
}

// EncodeIntList encodes an ordered numeric list (amount presets and the
// like) as a comma-joined string.
func EncodeIntList(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// DecodeIntList parses a comma-joined numeric list, dropping entries that
// are not valid positive integers.
func DecodeIntList(s string) []int {
	if s == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// EncodeObjectList encodes an ordered list of objects (custom action
// buttons, reorderable settings entries) as a JSON string.
func EncodeObjectList(items []map[string]any) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("theming: encode object list: %w", err)
	}
	return string(data), nil
}

// DecodeObjectList parses a JSON-encoded object list.
func DecodeObjectList(s string) ([]map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var items []map[string]any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("theming: decode object list: %w", err)
	}
	return items, nil
}

// Accessor is the typed view over a document's flat theming map for one
// distro suffix. It reads and writes suffixed keys without ever storing
// defaults into the map.
type Accessor struct {
	values map[string]string
	suffix string
}

// NewAccessor creates an accessor over the given flat map and distro suffix.
// The map is the caller's; writes mutate it directly.
func NewAccessor(values map[string]string, suffix string) *Accessor {
	return &Accessor{values: values, suffix: suffix}
}

// Get returns the raw stored value for a logical setting and whether the
// suffixed key is present. Absence means the consumer falls back to the
// setting's default.
func (a *Accessor) Get(s Setting) (string, bool) {
	v, ok := a.values[FlatKey(s.Name, a.suffix)]
	return v, ok
}

// Resolve returns the stored value, or the setting's hard-coded default
// when the suffixed key is absent.
func (a *Accessor) Resolve(s Setting) string {
	if v, ok := a.Get(s); ok {
		return v
	}
	return s.Default
}

// Set stores a raw encoded value under the suffixed key.
func (a *Accessor) Set(s Setting, value string) {
	a.values[FlatKey(s.Name, a.suffix)] = value
}

// Clear removes the suffixed key so the consumer falls back to the default.
func (a *Accessor) Clear(s Setting) {
	delete(a.values, FlatKey(s.Name, a.suffix))
}

// GroupTouched reports whether any setting in the group has a value stored
// for this accessor's suffix. Publish skips groups that are untouched.
func (a *Accessor) GroupTouched(g Group) bool {
	for _, s := range ByGroup(g) {
		if _, ok := a.Get(s); ok {
			return true
		}
	}
	return false
}
