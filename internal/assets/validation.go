package assets

import (
	"fmt"
	"path"
	"strings"
)

// DefaultUploadExtensions lists the image types accepted for post covers.
var DefaultUploadExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}

// ValidateUploadName checks an original upload filename against the allowed
// extensions. Comparison is case-insensitive; a nil allow-list means
// DefaultUploadExtensions.
func ValidateUploadName(original string, allowed []string) error {
	if strings.TrimSpace(original) == "" {
		return ErrEmptyFilename
	}
	if allowed == nil {
		allowed = DefaultUploadExtensions
	}

	ext := strings.ToLower(path.Ext(strings.ReplaceAll(original, `\`, "/")))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedUpload, ext)
}
