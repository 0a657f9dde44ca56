// Package version carries build-time version metadata.
package version

import "fmt"

// Version is the release version, set via ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/docsync/internal/version.Version=v1.2.0"
var Version = "unknown"

// Build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders a single-line version summary for CLI output.
func String() string {
	return fmt.Sprintf("docsync %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
