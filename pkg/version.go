// Package carpulse holds build metadata shared by all binaries.
package carpulse

// Version and Build are set during compilation via ldflags.
var (
	// Version is the semantic version of the build.
	Version = "v0.1.0"

	// Build is the timestamp of the build.
	Build = "n/a"
)
