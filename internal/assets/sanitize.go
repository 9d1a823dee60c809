package assets

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// TokenLength is the number of hex characters prepended to stored uploads.
const TokenLength = 8

// fallbackBase replaces a base name that sanitizes to nothing.
const fallbackBase = "file"

var unsafeRun = regexp.MustCompile(`[^a-z0-9._-]+`)

// newToken returns TokenLength random lowercase hex characters.
// Replaced in tests that need deterministic names.
var newToken = func() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:TokenLength]
}

// SanitizeFilename turns an arbitrary client-supplied filename into a
// collision-free stored name: "<token>-<safe base><lower ext>".
//
//	"My Photo.PNG"        -> "3f9a01bc-my_photo.png"
//	"../../etc/passwd"    -> "a1b2c3d4-passwd"
//	`C:\Users\x\Cat.JPG`  -> "0badf00d-cat.jpg"
//
// The mapping is one-way; the original name is not recoverable.
func SanitizeFilename(original string) string {
	base, ext := splitSafe(original)
	return newToken() + "-" + base + ext
}

// splitSafe strips directory components and unsafe characters, returning the
// sanitized base name and the lower-cased extension (with its dot, or "").
func splitSafe(original string) (string, string) {
	// Normalize Windows separators so path.Base strips every directory.
	name := path.Base(strings.ReplaceAll(original, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}

	ext := strings.ToLower(path.Ext(name))
	stem := strings.TrimSuffix(name, path.Ext(name))

	ext = unsafeRun.ReplaceAllString(ext, "")
	if ext == "." {
		ext = ""
	}

	stem = unsafeRun.ReplaceAllString(strings.ToLower(stem), "_")
	stem = strings.Trim(stem, "._-")
	if stem == "" {
		stem = fallbackBase
	}

	return stem, ext
}
