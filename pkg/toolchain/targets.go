package toolchain

import "slices"

// Target identifies one platform plus architecture family and carries the
// toolchain configuration needed to build for it. Targets are supplied by
// configuration and immutable for the run.
type Target struct {
	ID           string   `json:"id"`             // e.g. "ios-device"
	Family       string   `json:"family"`         // OS family grouping key, e.g. "ios"
	SDK          string   `json:"sdk"`            // SDK name passed to the toolchain
	Destination  string   `json:"destination"`    // toolchain destination specifier
	MinOSVersion string   `json:"min_os_version"` // minimum deployment version
	Archs        []string `json:"archs"`          // architecture list
}

// defaultTargets is the built-in target table. Minimum OS versions match
// the generated project defaults; configuration can override per target.
var defaultTargets = []Target{
	{
		ID:           "ios-device",
		Family:       "ios",
		SDK:          "iphoneos",
		Destination:  "generic/platform=iOS",
		MinOSVersion: "12.0",
		Archs:        []string{"arm64"},
	},
	{
		ID:           "ios-simulator",
		Family:       "ios",
		SDK:          "iphonesimulator",
		Destination:  "generic/platform=iOS Simulator",
		MinOSVersion: "12.0",
		Archs:        []string{"arm64", "x86_64"},
	},
	{
		ID:           "macos",
		Family:       "macos",
		SDK:          "macosx",
		Destination:  "generic/platform=macOS",
		MinOSVersion: "11.0",
		Archs:        []string{"arm64", "x86_64"},
	},
	{
		ID:           "mac-catalyst",
		Family:       "mac-catalyst",
		SDK:          "macosx",
		Destination:  "generic/platform=macOS,variant=Mac Catalyst",
		MinOSVersion: "13.1",
		Archs:        []string{"arm64", "x86_64"},
	},
}

// DefaultTargets returns a copy of the built-in target table.
func DefaultTargets() []Target {
	out := make([]Target, len(defaultTargets))
	for i, t := range defaultTargets {
		t.Archs = slices.Clone(t.Archs)
		out[i] = t
	}
	return out
}

// Lookup returns the built-in target with the given identifier.
func Lookup(id string) (Target, bool) {
	for _, t := range defaultTargets {
		if t.ID == id {
			t.Archs = slices.Clone(t.Archs)
			return t, true
		}
	}
	return Target{}, false
}

// TargetIDs returns the identifiers of the built-in targets, in table order.
func TargetIDs() []string {
	ids := make([]string, len(defaultTargets))
	for i, t := range defaultTargets {
		ids[i] = t.ID
	}
	return ids
}
