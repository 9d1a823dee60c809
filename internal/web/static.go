package web

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/vianubio/clubsite/internal/assets"
)

// prefixFS serves fsys under prefix, a slash-separated path without
// leading or trailing slashes.
type prefixFS struct {
	prefix string
	fsys   fs.FS
}

// staticFS looks a name up in each layer in order, then the embedded assets.
type staticFS struct {
	layers   []prefixFS
	fallback fs.FS
}

// newStaticFS maps every candidate directory below mount onto its URL
// prefix, in front of the embedded assets.
func newStaticFS(rc assets.Context) *staticFS {
	s := &staticFS{fallback: assets.StaticFS()}
	for _, c := range rc.Candidates {
		rel := strings.Trim(strings.TrimPrefix(c.URLPrefix, rc.Mount), "/")
		if rel == "" || !strings.HasPrefix(c.URLPrefix, rc.Mount) {
			continue
		}
		s.layers = append(s.layers, prefixFS{prefix: rel, fsys: os.DirFS(c.Dir)})
	}
	return s
}

func (s *staticFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, l := range s.layers {
		rest, ok := strings.CutPrefix(name, l.prefix+"/")
		if !ok {
			continue
		}
		f, err := l.fsys.Open(rest)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s.fallback.Open(name)
}

// staticHandler serves files under mount without directory listings.
func staticHandler(rc assets.Context) http.Handler {
	files := http.StripPrefix(strings.TrimSuffix(rc.Mount, "/"), http.FileServerFS(newStaticFS(rc)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") || path.Base(r.URL.Path) == "." {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if strings.EqualFold(path.Ext(r.URL.Path), ".svg") {
			w.Header().Set("Content-Security-Policy", "script-src 'none'")
		}
		files.ServeHTTP(w, r)
	})
}
