package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// ErrPrintRender indicates the printable document template failed.
var ErrPrintRender = errors.New("printable document rendering failed")

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection injects CSS as a <style> block into HTML content.
type CSSInjection struct{}

// InjectCSS inserts a <style> block into HTML content.
// Tries </head> first, then <body>, then prepends to the HTML.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" || ctx.Err() != nil {
		return htmlContent
	}

	styleBlock := "<style>" + sanitizeCSS(cssContent) + "</style>"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes sequences that could close the <style> block early.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// PrintData is the content of a printable post document.
type PrintData struct {
	SiteTitle string
	Title     string
	Author    string
	Date      string
	Section   string
	CoverURL  template.URL  // Empty = no cover image; trusted, may be file: or data:
	Body      template.HTML // Rendered, already rewritten fragment
}

const printTemplate = `<!DOCTYPE html>
<html lang="ro">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body class="print">
<header class="print-header">
<p class="print-site">{{.SiteTitle}}</p>
<h1>{{.Title}}</h1>
<p class="print-meta">{{.Author}}{{if .Date}} · {{.Date}}{{end}}{{if .Section}} · {{.Section}}{{end}}</p>
</header>
{{if .CoverURL}}<img class="print-cover" src="{{.CoverURL}}" alt="">
{{end}}<article class="post-content">
{{.Body}}
</article>
</body>
</html>`

// PrintDocument assembles standalone printable documents.
type PrintDocument struct {
	tmpl *template.Template
	css  CSSInjector
}

// NewPrintDocument parses the printable template.
func NewPrintDocument() (*PrintDocument, error) {
	tmpl, err := template.New("print").Parse(printTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing print template: %w", err)
	}
	return &PrintDocument{tmpl: tmpl, css: &CSSInjection{}}, nil
}

// Build renders data into a complete HTML document with css inlined.
func (p *PrintDocument) Build(ctx context.Context, data *PrintData, css string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if data == nil {
		return "", fmt.Errorf("%w: nil data", ErrPrintRender)
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPrintRender, err)
	}
	return p.css.InjectCSS(ctx, buf.String(), css), nil
}
