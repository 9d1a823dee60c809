// Package pipeline turns post content into HTML.
//
// Stages:
//   - Markdown preprocessing (line normalization, ==highlight== syntax)
//   - Markdown to HTML fragment conversion via Goldmark with chroma classes
//   - Image source rewriting, so inline image references go through the
//     same resolver as post covers
//   - Printable document assembly with CSS injection
//
// PDF generation is handled by the root clubsite package using headless
// Chrome (go-rod). Page rendering uses the fragments directly.
package pipeline
