// Package buildinfo exposes the host version the plugin installer
// compares against a version entry's requires.min_host_version (spec
// §3, §4.E). Version is a build-time constant overridable via
// -ldflags "-X github.com/osaurus-ai/osaurus/internal/buildinfo.Version=1.2.3".
package buildinfo

import "github.com/osaurus-ai/osaurus/internal/semver"

// Version is the release version baked in at build time. It defaults to
// a prerelease so unreleased builds still parse as a valid, low-sorting
// SemVer value.
var Version = "0.0.0-dev"

// HostVersion parses Version, falling back to 0.0.0-dev if an ldflags
// override produced something unparsable.
func HostVersion() semver.Version {
	v, err := semver.Parse(Version)
	if err != nil {
		v = semver.MustParse("0.0.0-dev")
	}
	return v
}
