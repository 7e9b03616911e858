// Package version holds build metadata injected through -ldflags.
package version

import "runtime/debug"

// Build metadata. Overridden at link time, e.g.
//
//	-ldflags "-X github.com/Sumatoshi-tech/histeq/pkg/version.Version=v1.2.0"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills Version and Commit from the embedded module build
// info when ldflags did not set them (e.g. `go install`).
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	if Commit != "none" {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			Commit = setting.Value
		}
	}
}

// String renders the version line printed by `histeq version`.
func String() string {
	return "histeq " + Version + " (commit: " + Commit + ", built: " + Date + ")"
}
