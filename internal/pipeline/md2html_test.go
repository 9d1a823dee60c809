package pipeline

// Notes:
// - Rendering is checked for fragment shape and the few features posts use
//   (GFM tables, fenced code with chroma classes, highlights, hard wraps)
// - Raw HTML is escaped/omitted because the renderer is not unsafe

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMarkdownRenderer_Render(t *testing.T) {
	t.Parallel()

	r := NewMarkdownRenderer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
		wantExcludes []string
	}{
		{
			name:         "heading and paragraph",
			input:        "# Celula\n\nText despre celula.",
			wantContains: []string{`<h1 id="celula">Celula</h1>`, "<p>Text despre celula.</p>"},
			wantExcludes: []string{"<html", "<body", "<!DOCTYPE"},
		},
		{
			name:         "hard wraps",
			input:        "line one\nline two",
			wantContains: []string{"line one<br />"},
		},
		{
			name:         "highlight syntax",
			input:        "a ==mitocondrie== b",
			wantContains: []string{"<mark>mitocondrie</mark>"},
			wantExcludes: []string{MarkStartPlaceholder, MarkEndPlaceholder},
		},
		{
			name:         "GFM table",
			input:        "| a | b |\n|---|---|\n| 1 | 2 |",
			wantContains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:         "code block uses chroma classes",
			input:        "```go\nfunc main() {}\n```",
			wantContains: []string{`class="chroma"`},
			wantExcludes: []string{"style="},
		},
		{
			name:         "raw html omitted",
			input:        "<script>alert(1)</script>",
			wantExcludes: []string{"<script>"},
		},
		{
			name:         "image reference kept for rewriting",
			input:        "![celula](cell.png)",
			wantContains: []string{`src="cell.png"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Render(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Render() = %q, want to contain %q", got, want)
				}
			}
			for _, exclude := range tt.wantExcludes {
				if strings.Contains(got, exclude) {
					t.Errorf("Render() = %q, should not contain %q", got, exclude)
				}
			}
		})
	}
}

func TestMarkdownRenderer_Render_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMarkdownRenderer().Render(ctx, "# x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

func TestPreprocess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"crlf", "a\r\nb", "a\nb"},
		{"lone cr", "a\rb", "a\nb"},
		{"blank lines", "a\n\n\n\nb", "a\n\nb"},
		{"highlight", "==x==", MarkStartPlaceholder + "x" + MarkEndPlaceholder},
		{"empty highlight untouched", "====", "===="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Preprocess(tt.input); got != tt.want {
				t.Errorf("Preprocess(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
