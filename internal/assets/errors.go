package assets

import "errors"

// Sentinel errors for asset operations.
var (
	// ErrUnsupportedUpload indicates the upload's extension is not an allowed image type.
	ErrUnsupportedUpload = errors.New("unsupported upload type")

	// ErrEmptyFilename indicates an upload arrived without an original filename.
	ErrEmptyFilename = errors.New("upload filename cannot be empty")

	// ErrInvalidContext indicates a resolution context is missing its mount or placeholder.
	ErrInvalidContext = errors.New("invalid resolution context")

	// ErrInvalidBasePath indicates the configured directory is not usable.
	ErrInvalidBasePath = errors.New("invalid base path")

	// ErrAssetWrite indicates an I/O error occurred while storing an upload.
	ErrAssetWrite = errors.New("failed to write asset")

	// ErrPathTraversal indicates an attempt to write outside the base directory.
	ErrPathTraversal = errors.New("path traversal detected")
)
