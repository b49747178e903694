// Package version holds build information injected with ldflags.
package version

import "fmt"

// Example: go build -ldflags "-X planbuilder/pkg/version.Version=v0.3.0".
//
//nolint:gochecknoglobals // package-level vars for ldflags injection
var (
	// Version is the release tag, or "dev".
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)

// String renders "version (commit: sha, built: date)".
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
