// Package version holds build metadata set via -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/kevink2022/Boomic-sub000/internal/version.Version=v1.2.3 \
//	  -X github.com/kevink2022/Boomic-sub000/internal/version.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "dev"
	Commit  = "unknown"
)

// String returns "version (commit)".
func String() string {
	return Version + " (" + Commit + ")"
}
