// Package assets resolves stored image references to servable URLs and
// prepares uploaded files for storage.
//
// # Resolution
//
// A stored reference is one of:
//
//	""                         -> placeholder
//	"https://cdn/x.png"        -> unchanged (external, not checked)
//	"/static/uploads/x.png"    -> unchanged (already under the public mount)
//	"x.png"                    -> first candidate directory holding x.png, else placeholder
//
// Resolution is driven by an explicit Context (mount, ordered candidates,
// placeholder) so each call site chooses its own probe order. Post covers
// probe the uploads directory only; team photos probe the bundled
// directory before uploads. Resolve never returns an error.
//
// # Uploads
//
// SanitizeFilename maps a client filename to "<8 hex>-<safe base><ext>".
// ValidateUploadName enforces the image extension allow-list and Directory
// writes files with a containment check and exclusive create.
//
// # Embedded assets
//
// StaticFS exposes the placeholder image, the site stylesheet and script
// compiled into the binary.
package assets
