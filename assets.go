package clubsite

import (
	"github.com/vianubio/clubsite/internal/assets"
)

// Resolution rules reported by ResolveDetailed.
const (
	RulePlaceholderEmpty   = string(assets.RuleEmpty)
	RuleExternal           = string(assets.RuleExternal)
	RuleMounted            = string(assets.RuleMounted)
	RuleFound              = string(assets.RuleFound)
	RulePlaceholderMissing = string(assets.RuleMissing)
)

// AssetDir is a local directory probed for bare filenames, with the public
// URL prefix that serves it.
type AssetDir struct {
	Dir       string
	URLPrefix string
}

// ResolutionContext describes where references are looked up.
// Dirs are probed in order; Placeholder must always be servable.
type ResolutionContext struct {
	Mount       string // Public static mount, e.g. "/static/"
	Placeholder string
	Dirs        []AssetDir
}

func (rc ResolutionContext) internal() assets.Context {
	cands := make([]assets.Candidate, len(rc.Dirs))
	for i, d := range rc.Dirs {
		cands[i] = assets.Candidate{Dir: d.Dir, URLPrefix: d.URLPrefix}
	}
	return assets.NewContext(rc.Mount, rc.Placeholder, cands...)
}

func fromInternal(c assets.Context) ResolutionContext {
	dirs := make([]AssetDir, len(c.Candidates))
	for i, cand := range c.Candidates {
		dirs[i] = AssetDir{Dir: cand.Dir, URLPrefix: cand.URLPrefix}
	}
	return ResolutionContext{Mount: c.Mount, Placeholder: c.Placeholder, Dirs: dirs}
}

// Validate reports ErrInvalidAssetPath when the context lacks a mount,
// a placeholder, or has an incomplete directory entry.
func (rc ResolutionContext) Validate() error {
	return convertAssetError(rc.internal().Validate())
}

// Resolve maps a stored image reference to a public URL. It never fails:
// empty or unresolvable references yield the placeholder.
func Resolve(reference string, rc ResolutionContext) string {
	return assets.Resolve(reference, rc.internal())
}

// ResolveDetailed is Resolve plus the name of the rule that matched.
func ResolveDetailed(reference string, rc ResolutionContext) (string, string) {
	url, rule := assets.ResolveDetailed(reference, rc.internal())
	return url, string(rule)
}

// SanitizeFilename returns the collision-safe stored name for an upload.
func SanitizeFilename(original string) string {
	return assets.SanitizeFilename(original)
}

// ValidateUploadName returns ErrUnsupportedUpload unless original has one of
// the allowed extensions. A nil list means the default image types.
func ValidateUploadName(original string, allowed []string) error {
	return convertAssetError(assets.ValidateUploadName(original, allowed))
}
