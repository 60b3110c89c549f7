// Package version carries build metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/rickgao/outcome-exchange/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/outcome-exchange/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/outcome-exchange/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import "fmt"

var (
	// Version is the release tag; "dev" for unstamped local builds.
	Version = "dev"

	// Commit is the short git hash of the build.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// String renders the full build identity for startup logs.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, Commit, BuildTime)
}
