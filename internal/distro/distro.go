// Package distro derives the key namespace suffix for distribution variants
// and assembles the list of available distros for the editor.
package distro

import (
	"path"
	"strings"
	"unicode"

	"github.com/soneri/appcanvas/model"
)

// MainName is the display name of the synthetic default variant.
const MainName = "main"

// Suffix derives the theming key suffix for a distro name. The empty string
// and the main variant map to the empty suffix; any other name has its file
// extension stripped and is reduced to a CamelCase alphanumeric token, so
// "promo_a.apk" becomes "PromoA".
func Suffix(name string) string {
	if name == "" || name == MainName {
		return ""
	}

	base := strings.TrimSuffix(name, path.Ext(name))

	var b strings.Builder
	upperNext := true
	for _, r := range base {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Main returns the synthetic descriptor for the default variant. It is
// injected client-side; the discovery endpoint never returns it.
func Main() model.DistroDescriptor {
	return model.DistroDescriptor{Name: MainName}
}

// WithMain prepends the synthetic main descriptor to a server-provided list.
func WithMain(descriptors []model.DistroDescriptor) []model.DistroDescriptor {
	out := make([]model.DistroDescriptor, 0, len(descriptors)+1)
	out = append(out, Main())
	return append(out, descriptors...)
}
