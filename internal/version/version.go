package version

import (
	"fmt"
	"runtime/debug"
)

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/datainit/internal/version.Version=v1.0.0".
var Version = "unknown"

// BuildInfo contains additional build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version. A commit missing from
// ldflags is taken from the VCS stamp the toolchain embeds, when present.
func String() string {
	return format(Version, commit(), BuildTime)
}

func commit() string {
	if GitCommit != "unknown" && GitCommit != "" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return "unknown"
}

func format(version, commit, built string) string {
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("datainit %s (commit %s, built %s)", version, commit, built)
}
