package assets

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// PlaceholderFile is the embedded placeholder path relative to the static root.
const PlaceholderFile = "img/placeholder.svg"

// StaticFS returns the embedded static tree (css, js, img) rooted so that
// "img/placeholder.svg" is a valid name. Serve it under the public mount.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// fs.Sub only fails on an invalid path literal.
		panic(err)
	}
	return sub
}
