package clubsite

import (
	"errors"
	"fmt"

	"github.com/vianubio/clubsite/internal/assets"
	"github.com/vianubio/clubsite/internal/store"
)

// Sentinel errors for library operations.
var (
	// Post errors.
	ErrPostNotFound     = errors.New("post not found")
	ErrInvalidSection   = errors.New("invalid section")
	ErrForbiddenSection = errors.New("section not allowed for this user")
	ErrNotAuthenticated = errors.New("login required")

	// Upload errors.
	ErrUnsupportedUpload = errors.New("unsupported upload type")
	ErrUploadTooLarge    = errors.New("upload exceeds size limit")
	ErrUploadWrite       = errors.New("failed to store upload")
	ErrInvalidAssetPath  = errors.New("invalid asset path")

	// Persistence errors.
	ErrDatabase = errors.New("database error")

	// Export errors.
	ErrExportDisabled = errors.New("printable export is disabled")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPoolClosed     = errors.New("exporter pool is closed")
)

// wrapError keeps both the public sentinel and the internal cause
// reachable through errors.Is.
func wrapError(public, cause error) error {
	return fmt.Errorf("%w: %w", public, cause)
}

// convertAssetError maps internal asset errors to public errors.
func convertAssetError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, assets.ErrUnsupportedUpload), errors.Is(err, assets.ErrEmptyFilename):
		return wrapError(ErrUnsupportedUpload, err)
	case errors.Is(err, assets.ErrInvalidBasePath), errors.Is(err, assets.ErrPathTraversal),
		errors.Is(err, assets.ErrInvalidContext):
		return wrapError(ErrInvalidAssetPath, err)
	case errors.Is(err, ErrUploadTooLarge):
		return err
	case errors.Is(err, assets.ErrAssetWrite):
		return wrapError(ErrUploadWrite, err)
	default:
		return err
	}
}

// convertStoreError maps internal store errors to public errors.
func convertStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrPostNotFound
	default:
		return wrapError(ErrDatabase, err)
	}
}
