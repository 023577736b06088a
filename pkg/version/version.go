// Package version exposes the build version of memberboard.
package version

// Version is set at build time via -ldflags "-X .../pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // Build-time injection requires a package variable.
var Version = "dev"

// GetVersion returns the current build version.
func GetVersion() string {
	return Version
}
