// Package version carries build metadata for ratehub binaries.
//
// Set at link time:
//
//	go build -ldflags "-X github.com/rickgao/ratehub/internal/version.Version=1.2.0 \
//	                   -X github.com/rickgao/ratehub/internal/version.Commit=$(git rev-parse --short HEAD)" ./cmd/ratehub
package version

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build metadata reported by /health.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
}

// String returns a one-line description, e.g. "1.2.0 (a1b2c3d)".
func String() string {
	if BuildTime == "unknown" {
		return Version + " (" + Commit + ")"
	}
	return Version + " (" + Commit + ") built " + BuildTime
}
