package version

import "runtime/debug"

// version is the version of the agent.
//
// This value is expected to be set via build-time injection:
//
//	-ldflags "-X github.com/wishful-project/agent/internal/version.version=v1.2.3"
var version string

// Version returns the version of the agent.
//
// Without an injected version it falls back to the main module version
// recorded by the Go toolchain, then to "dev".
func Version() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}
