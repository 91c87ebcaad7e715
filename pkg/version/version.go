// Package version exposes build metadata stamped at link time.
package version

// Stamped by the release build via
// -ldflags "-X github.com/gitsleuth/gitsleuth/pkg/version.Version=...".
var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the git hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)
