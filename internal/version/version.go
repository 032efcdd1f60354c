package version

// Version is the release of the binary, overridden at build time with
// -ldflags "-X github.com/vova111/skyrga/internal/version.Version=..."
var Version = "0.3.0-dev"
