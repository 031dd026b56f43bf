package version

// Version and Commit are overridden at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)
