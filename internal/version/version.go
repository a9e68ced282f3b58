// Package version reports build metadata set via -ldflags.
package version

import "fmt"

// Set at build time: -ldflags "-X github.com/evtrends/evtrends/internal/version.Version=v1.2.3".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Short returns the version string.
func Short() string { return Version }

// Info returns version, commit and build date on one line.
func Info() string {
	return fmt.Sprintf("evtrends %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
