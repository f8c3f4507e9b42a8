// Package version exposes build version information, injected at link
// time via -ldflags.
package version

import "fmt"

var (
	// Version is the semantic version, set at build time.
	Version = "dev"
	// Commit is the short git commit hash, set at build time.
	Commit = "unknown"
	// Date is the build timestamp, set at build time.
	Date = "unknown"
)

// Short returns just the version string.
func Short() string {
	return Version
}

// Info returns a human-readable version line.
func Info() string {
	return fmt.Sprintf("vigia %s (commit %s, built %s)", Version, Commit, Date)
}

// Map returns the build info as a map for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
