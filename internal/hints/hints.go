// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/vianubio/clubsite/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	// Detect CI environment
	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	// Suggest ROD_NO_SANDBOX for container/CI environments
	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	// Suggest ROD_BROWSER_BIN if not set
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config and creating a config in the user config directory.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/site.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, "clubsite") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForDatabaseOpen returns hints for database open or migration failures.
func ForDatabaseOpen(path string) string {
	var hints []string
	if path != "" && path != ":memory:" {
		hints = append(hints, "check that the directory of "+path+" is writable")
	}
	hints = append(hints, "set CLUBSITE_DB or --db to choose another file")
	return formatHints(hints)
}

// ForUploadDir returns hints for upload directory errors.
func ForUploadDir() string {
	return format("set CLUBSITE_UPLOAD_DIR or assets.uploadDir to a writable directory")
}

// ForSessionKey returns hints when no session key is configured.
func ForSessionKey() string {
	return format("set CLUBSITE_SESSION_KEY to at least 32 random bytes (e.g. openssl rand -hex 32)")
}

// ForAddressInUse returns hints when the listen address is taken.
func ForAddressInUse(addr string) string {
	return format("another process listens on " + addr + "; use --addr or CLUBSITE_ADDR")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
