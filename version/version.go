package version

import "runtime/debug"

// These variables are set via ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	return Version
}

// GetCommit returns the build commit, falling back to the VCS revision
// recorded by the Go toolchain when ldflags did not set one
func GetCommit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return GitCommit
}

// GetFullVersion returns a full version string with commit and date
func GetFullVersion() string {
	if Version == "dev" {
		return "dev (" + GetCommit() + ")"
	}
	return Version + " (" + GetCommit() + ", " + BuildDate + ")"
}
