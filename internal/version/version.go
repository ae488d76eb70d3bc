// Package version provides build-time version information.
package version

import "fmt"

// Set at build time with -ldflags "-X burnscar/internal/version.GitCommit=...".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for `burnscar version`.
func String() string {
	return fmt.Sprintf("burnscar %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
