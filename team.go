package clubsite

import (
	"context"

	"go.uber.org/zap"

	"github.com/vianubio/clubsite/internal/fileutil"
	"github.com/vianubio/clubsite/internal/yamlutil"
)

// TeamSource reads the team list from the first existing file among its
// candidates. JSON files work as-is since JSON is valid YAML.
type TeamSource struct {
	paths  []string
	logger *zap.Logger
}

// NewTeamSource creates a TeamSource over paths, probed in order.
func NewTeamSource(paths []string, logger *zap.Logger) *TeamSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamSource{paths: append([]string(nil), paths...), logger: logger}
}

// Load returns the members from the first existing file. Missing files
// and malformed content both yield an empty list; malformed content is
// logged. Later candidates are not consulted once one file exists.
func (t *TeamSource) Load(ctx context.Context) []TeamMember {
	if t == nil || ctx.Err() != nil {
		return []TeamMember{}
	}

	for _, path := range t.paths {
		if !fileutil.FileExists(path) {
			continue
		}

		var members []TeamMember
		if err := yamlutil.ReadFile(path, &members, false); err != nil {
			t.logger.Warn("malformed team data, showing empty team",
				zap.String("path", path), zap.Error(err))
			return []TeamMember{}
		}
		if members == nil {
			members = []TeamMember{}
		}
		return members
	}
	return []TeamMember{}
}

// Path returns the file Load would read, or "" when none exists.
func (t *TeamSource) Path() string {
	for _, path := range t.paths {
		if fileutil.FileExists(path) {
			return path
		}
	}
	return ""
}
