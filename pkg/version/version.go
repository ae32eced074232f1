// Package version provides build version information for the observable-agent starter.
package version

// Build information variables - set via ldflags.
// Example: go build -ldflags "-X github.com/ammons-datalabs/observable-agent-starter/pkg/version.Version=v0.2.0".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	// Version is the semantic version (e.g., "v0.2.0" or "dev" for development builds).
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)
