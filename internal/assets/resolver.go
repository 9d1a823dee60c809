package assets

import (
	"path/filepath"
	"strings"

	"github.com/vianubio/clubsite/internal/fileutil"
)

// Rule identifies which resolution rule produced a URL.
type Rule string

// Resolution rules, in evaluation order.
const (
	RuleEmpty    Rule = "placeholder-empty"
	RuleExternal Rule = "external"
	RuleMounted  Rule = "mounted"
	RuleFound    Rule = "found"
	RuleMissing  Rule = "placeholder-missing"
)

// Resolve maps a stored asset reference to the URL a client should load.
// It never fails: anything that cannot be located resolves to the placeholder.
func Resolve(reference string, rc Context) string {
	url, _ := ResolveDetailed(reference, rc)
	return url
}

// ResolveDetailed is Resolve plus the rule that matched.
//
// Prefix tests are literal; "httpx://a" is a bare filename and a mount that
// appears mid-string does not count. Bare filenames are not re-sanitized:
// they were sanitized when the upload was stored.
func ResolveDetailed(reference string, rc Context) (string, Rule) {
	if reference == "" {
		return rc.Placeholder, RuleEmpty
	}
	if fileutil.IsURL(reference) {
		return reference, RuleExternal
	}
	if rc.Mount != "" && strings.HasPrefix(reference, rc.Mount) {
		return reference, RuleMounted
	}

	for _, cand := range rc.Candidates {
		// Missing directories stat as not-exist, which reads as "no file here".
		if fileutil.FileExists(filepath.Join(cand.Dir, reference)) {
			return joinURL(cand.URLPrefix, reference), RuleFound
		}
	}

	return rc.Placeholder, RuleMissing
}
