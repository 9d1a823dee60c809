package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Directory permissions for created upload directories.
const dirPermissions = 0o750

// Directory is a writable asset directory on the filesystem (the uploads
// folder). Reads go through Resolve; Directory only stores and removes.
type Directory struct {
	basePath string
}

// NewDirectory prepares basePath for writing, creating it when missing.
// Returns ErrInvalidBasePath if the path exists but is not a directory.
func NewDirectory(basePath string) (*Directory, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}

	if err := os.MkdirAll(absPath, dirPermissions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}

	// Resolve symlinks in base path for consistent containment checks
	if realPath, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = realPath
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, absPath)
	}

	return &Directory{basePath: absPath}, nil
}

// Path returns the absolute base path.
func (d *Directory) Path() string {
	return d.basePath
}

// Save writes r to name inside the directory. The file must not exist yet:
// stored names carry a random token, so an existing file means a collision
// that must not be silently overwritten.
func (d *Directory) Save(name string, r io.Reader) (err error) {
	target := filepath.Join(d.basePath, name)
	if err := d.verifyPathContainment(target); err != nil {
		return err
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) // #nosec G304 -- path validated above
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetWrite, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrAssetWrite, cerr)
		}
		if err != nil {
			_ = os.Remove(target)
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("%w: %w", ErrAssetWrite, err)
	}
	return nil
}

// Remove deletes name from the directory. Removing a missing file is not an error.
func (d *Directory) Remove(name string) error {
	target := filepath.Join(d.basePath, name)
	if err := d.verifyPathContainment(target); err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

// verifyPathContainment ensures the target stays directly under basePath.
// Add separator to prevent prefix attacks (/base/up vs /base/upevil).
func (d *Directory) verifyPathContainment(target string) error {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve path", ErrPathTraversal)
	}
	if !strings.HasPrefix(absTarget, d.basePath+string(filepath.Separator)) {
		return fmt.Errorf("%w: path escapes base directory", ErrPathTraversal)
	}
	return nil
}
