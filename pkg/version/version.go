// Package version exposes build metadata for the rbcheck binary.
package version

import (
	"fmt"
	"runtime/debug"
)

const devVersion = "dev"

// Build metadata, overridden at link time with -ldflags "-X ...".
var (
	Version = devVersion
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills Version and Commit from the module build info when
// the binary was built without ldflags (e.g. go install).
func InitBinaryVersion() {
	if Version != devVersion {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Commit = setting.Value
		case "vcs.time":
			Date = setting.Value
		}
	}
}

// String formats the build metadata for display.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
