// Package theming maps logical per-feature settings onto the flat,
// distro-suffixed key namespace consumed by the downstream client, and
// encodes structured editor values into their flat string form.
package theming

// Group identifies one independently published feature group.
type Group string

// Feature groups synchronized during publish, in publish order.
const (
	GroupLogin    Group = "login"
	GroupDeposit  Group = "deposit"
	GroupProfile  Group = "profile"
	GroupSettings Group = "settings"
)

// Groups lists every feature group in publish order.
func Groups() []Group {
	return []Group{GroupLogin, GroupDeposit, GroupProfile, GroupSettings}
}

// Kind describes how a setting's value is encoded in the flat store.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindIntList
	KindObjectList
)

// String names the encoding for API responses.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindIntList:
		return "intList"
	case KindObjectList:
		return "objectList"
	default:
		return "string"
	}
}

// Policy selects the merge behavior during publish.
//
// PolicySet writes the encoded value, falling back to the empty string when
// the local value is empty. PolicyTombstone deletes the remote key when the
// local value is empty instead of writing an empty string.
type Policy int

const (
	PolicySet Policy = iota
	PolicyTombstone
)

// Setting is the metadata for one logical theming setting: its base key
// name, feature group, encoding, merge policy, and hard-coded default.
// Defaults are never written to the flat store; consumers fall back to them
// when the suffixed key is absent.
type Setting struct {
	Name    string
	Group   Group
	Kind    Kind
	Policy  Policy
	Default string
}

// registry enumerates every logical setting the editor can publish.
var registry = []Setting{
	// Login customization.
	{Name: "loginTitle", Group: GroupLogin, Kind: KindString, Policy: PolicySet, Default: "Welcome back"},
	{Name: "loginTitleColor", Group: GroupLogin, Kind: KindString, Policy: PolicySet, Default: "#1A1A1A"},
	{Name: "loginSubtitle", Group: GroupLogin, Kind: KindString, Policy: PolicySet, Default: ""},
	{Name: "loginSubtitleColor", Group: GroupLogin, Kind: KindString, Policy: PolicySet, Default: "#6B7280"},
	{Name: "loginLogoEnabled", Group: GroupLogin, Kind: KindBool, Policy: PolicySet, Default: "true"},
	{Name: "loginBackgroundImage", Group: GroupLogin, Kind: KindString, Policy: PolicySet, Default: ""},
	{Name: "loginActionButtons", Group: GroupLogin, Kind: KindObjectList, Policy: PolicySet, Default: "[]"},
	{Name: "termsUrl", Group: GroupLogin, Kind: KindString, Policy: PolicyTombstone, Default: ""},
	{Name: "termsText", Group: GroupLogin, Kind: KindString, Policy: PolicyTombstone, Default: ""},

	// Deposit customization.
	{Name: "depositTitle", Group: GroupDeposit, Kind: KindString, Policy: PolicySet, Default: "Top up"},
	{Name: "depositAmountPresets", Group: GroupDeposit, Kind: KindIntList, Policy: PolicySet, Default: "50000,100000,200000"},
	{Name: "depositQuickButtonsEnabled", Group: GroupDeposit, Kind: KindBool, Policy: PolicySet, Default: "true"},
	{Name: "depositMinAmount", Group: GroupDeposit, Kind: KindString, Policy: PolicySet, Default: "10000"},
	{Name: "depositNominalOverride", Group: GroupDeposit, Kind: KindIntList, Policy: PolicyTombstone, Default: ""},

	// Profile customization.
	{Name: "profileHeaderColor", Group: GroupProfile, Kind: KindString, Policy: PolicySet, Default: "#111827"},
	{Name: "profileShowAvatar", Group: GroupProfile, Kind: KindBool, Policy: PolicySet, Default: "true"},
	{Name: "profileBannerImage", Group: GroupProfile, Kind: KindString, Policy: PolicySet, Default: ""},
	{Name: "profileMenuItems", Group: GroupProfile, Kind: KindObjectList, Policy: PolicySet, Default: "[]"},

	// Settings-screen customization.
	{Name: "settingsItems", Group: GroupSettings, Kind: KindObjectList, Policy: PolicySet, Default: "[]"},
	{Name: "settingsShowVersion", Group: GroupSettings, Kind: KindBool, Policy: PolicySet, Default: "true"},
	{Name: "settingsAccentColor", Group: GroupSettings, Kind: KindString, Policy: PolicySet, Default: "#2563EB"},
	{Name: "settingsSupportUrl", Group: GroupSettings, Kind: KindString, Policy: PolicyTombstone, Default: ""},
}

// All returns every registered setting.
func All() []Setting {
	out := make([]Setting, len(registry))
	copy(out, registry)
	return out
}

// ByGroup returns the settings belonging to one feature group, in
// registration order.
func ByGroup(g Group) []Setting {
	var out []Setting
	for _, s := range registry {
		if s.Group == g {
			out = append(out, s)
		}
	}
	return out
}

// Lookup returns the setting with the given logical name.
func Lookup(name string) (Setting, bool) {
	for _, s := range registry {
		if s.Name == name {
			return s, true
		}
	}
	return Setting{}, false
}

// ValidGroup reports whether g names a known feature group.
func ValidGroup(g Group) bool {
	for _, known := range Groups() {
		if g == known {
			return true
		}
	}
	return false
}
