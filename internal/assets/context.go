package assets

import (
	"fmt"
	"strings"
)

// Candidate is one local directory probed for bare filenames, together with
// the public URL prefix that serves files found there.
type Candidate struct {
	Dir       string // Local directory, e.g. "static/uploads"
	URLPrefix string // Public prefix, e.g. "/static/uploads"
}

// Context is the explicit configuration a reference is resolved against.
// Candidates are probed in declared order; the first hit wins.
type Context struct {
	Mount       string      // Public mount prefix, e.g. "/static/"
	Candidates  []Candidate // Ordered probe list
	Placeholder string      // Always-resolvable fallback URL
}

// NewContext builds a Context. Candidates are copied so later changes to the
// caller's slice do not affect resolution.
func NewContext(mount, placeholder string, candidates ...Candidate) Context {
	cs := make([]Candidate, len(candidates))
	copy(cs, candidates)
	return Context{
		Mount:       mount,
		Candidates:  cs,
		Placeholder: placeholder,
	}
}

// Validate reports whether the context can resolve every input.
// A context without candidates is valid: bare filenames then always fall back.
func (c Context) Validate() error {
	if c.Mount == "" {
		return fmt.Errorf("%w: empty mount", ErrInvalidContext)
	}
	if c.Placeholder == "" {
		return fmt.Errorf("%w: empty placeholder", ErrInvalidContext)
	}
	for i, cand := range c.Candidates {
		if cand.Dir == "" {
			return fmt.Errorf("%w: candidate %d has empty directory", ErrInvalidContext, i)
		}
		if cand.URLPrefix == "" {
			return fmt.Errorf("%w: candidate %d has empty URL prefix", ErrInvalidContext, i)
		}
	}
	return nil
}

// joinURL joins a public prefix and a filename with exactly one slash.
func joinURL(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(name, "/")
}
