package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	infoOnce sync.Once
	info     Info
)

// Get returns the build information.
func Get() Info {
	infoOnce.Do(func() {
		info = Info{
			Version:   Version,
			Commit:    Commit,
			BuildTime: BuildTime,
			GoVersion: runtime.Version(),
		}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "unknown" {
					info.Commit = shortRevision(s.Value)
				}
			case "vcs.time":
				if info.BuildTime == "unknown" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	})
	return info
}

// String returns a formatted version string.
func String() string {
	i := Get()
	s := i.Version + " (" + i.Commit
	if i.Modified {
		s += "-dirty"
	}
	return s + ") built at " + i.BuildTime + " with " + i.GoVersion
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
