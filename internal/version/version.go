// Package version reports build metadata for the mtzip binaries.
//
// Version, Commit and Date can be set at link time:
//
//	-ldflags "-X github.com/meigma/mtzip/internal/version.Version=v1.0.0"
//
// Otherwise the values recorded by the Go toolchain are used.
package version

import (
	"fmt"
	"io"
	"runtime/debug"
)

// Set by -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the complete version information.
type Info struct {
	Version string
	Commit  string
	Date    string
}

// Get returns the version information, preferring link-time values over
// the module build info.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		}
	}
	return info
}

// String formats the version with a short commit and build date when known.
func (i Info) String() string {
	if i.Commit == "unknown" || len(i.Commit) < 7 {
		return i.Version
	}
	if i.Date == "unknown" {
		return fmt.Sprintf("%s (%s)", i.Version, i.Commit[:7])
	}
	return fmt.Sprintf("%s (%s, built %s)", i.Version, i.Commit[:7], i.Date)
}

// Fprint writes human-readable version information for app to w.
func Fprint(w io.Writer, app string) error {
	info := Get()
	_, err := fmt.Fprintf(w, "%s version %s\nCommit: %s\nBuild Date: %s\n", app, info, info.Commit, info.Date)
	return err
}
