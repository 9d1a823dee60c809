package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	clubsite "github.com/vianubio/clubsite"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "blog", "about", "login", "new"}

// pageData is shared by every page template.
type pageData struct {
	SiteTitle     string
	Title         string
	Mount         string
	Viewer        string
	CanLessons    bool
	ExportEnabled bool
	Flashes       []string

	Posts    []clubsite.PostView
	Team     []clubsite.TeamMember
	Sections []clubsite.Section
	Accept   string
}

var funcs = template.FuncMap{
	// Post bodies come from the Markdown renderer, which drops raw HTML.
	"safeHTML": func(s string) template.HTML { return template.HTML(s) }, // #nosec G203
}

// parsePages builds one template per page on top of the shared layout.
func parsePages() (map[string]*template.Template, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		pages[name] = clone
	}
	return pages, nil
}

// render executes the named page into a buffer first so a template error
// never produces a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.serverError(w, r, fmt.Errorf("unknown page %q", name))
		return
	}

	viewer := s.sessions.identity(r)
	data.SiteTitle = s.siteTitle
	data.Mount = s.mount
	data.Viewer = viewer
	data.CanLessons = s.svc.CanViewLessons(viewer)
	data.ExportEnabled = s.exportEnabled
	data.Flashes = s.sessions.popFlashes(w, r)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
