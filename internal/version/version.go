// Package version carries the build identity injected through ldflags.
package version

import "fmt"

var (
	// Version is set with -ldflags "-X github.com/ManuGH/ellier/internal/version.Version=...".
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the build identity for humans.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
