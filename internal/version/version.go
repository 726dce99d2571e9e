package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build stamp for startup logs and the status endpoint.
func String() string {
	return fmt.Sprintf("rover %s (%s, built %s)", Version, GitSHA, BuildTime)
}
