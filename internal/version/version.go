// Package version provides build information for the income classifier CLIs.
package version

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

const unknownValue = "unknown"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// BuildInfo contains build information
type BuildInfo struct {
	Version   string    `json:"version"`
	BuildDate string    `json:"build_date"`
	GitCommit string    `json:"git_commit"`
	GoVersion string    `json:"go_version"`
	BuildTime time.Time `json:"build_time"`
	Dirty     bool      `json:"dirty"`
}

// Info returns build information
func Info() BuildInfo {
	buildTime, _ := time.Parse(time.RFC3339, BuildDate)
	if buildTime.IsZero() {
		buildTime = time.Now()
	}
	return BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
		BuildTime: buildTime,
		Dirty:     strings.Contains(GitCommit, "-dirty"),
	}
}

// String renders a human-readable version banner.
func (b BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "incomeclf %s\n", b.Version)
	if b.GitCommit != unknownValue {
		fmt.Fprintf(&sb, "  commit:   %s\n", b.GitCommit)
	}
	if b.BuildDate != unknownValue {
		fmt.Fprintf(&sb, "  built:    %s\n", b.BuildDate)
	}
	fmt.Fprintf(&sb, "  go:       %s\n", b.GoVersion)
	return sb.String()
}
