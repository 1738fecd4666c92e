// Package version holds the build version, set with
//
//	go build -ldflags "-X github.com/ramonehamilton/mtga-synergy/internal/version.Version=v0.3.0"
package version

// Version defaults to "dev" for local builds.
var Version = "dev"

// GetVersion returns the current version.
func GetVersion() string {
	return Version
}
