// Package version reports build information for the returnlab binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// BuildInfo contains build information
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Module    string `json:"module"`
	Dirty     bool   `json:"dirty"`
}

// Info returns the build information of the running binary
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     strings.HasSuffix(GitCommit, "-dirty"),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.Module = bi.Main.Path
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == unknownValue {
					info.GitCommit = s.Value
				}
			case "vcs.modified":
				info.Dirty = info.Dirty || s.Value == "true"
			}
		}
	}
	return info
}

// Short returns the version with an abbreviated commit, e.g. "v1.2.0 (abc1234)".
func (b BuildInfo) Short() string {
	if b.GitCommit == unknownValue || b.GitCommit == "" {
		return b.Version
	}
	commit := strings.TrimSuffix(b.GitCommit, "-dirty")
	if len(commit) > commitHashLength {
		commit = commit[:commitHashLength]
	}
	if b.Dirty {
		commit += ", dirty"
	}
	return fmt.Sprintf("%s (%s)", b.Version, commit)
}

// String returns a multi-line description for the version command
func (b BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "returnlab %s\n", b.Short())
	if b.BuildDate != unknownValue {
		fmt.Fprintf(&sb, "Build Date: %s\n", b.BuildDate)
	}
	fmt.Fprintf(&sb, "Go Version: %s\n", b.GoVersion)
	fmt.Fprintf(&sb, "Platform:   %s\n", b.Platform)
	if b.Module != "" {
		fmt.Fprintf(&sb, "Module:     %s\n", b.Module)
	}
	return sb.String()
}

// IsRelease reports whether this is a tagged release build
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}
