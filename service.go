package clubsite

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vianubio/clubsite/internal/assets"
	"github.com/vianubio/clubsite/internal/auth"
	"github.com/vianubio/clubsite/internal/config"
	"github.com/vianubio/clubsite/internal/dateutil"
	"github.com/vianubio/clubsite/internal/fileutil"
	"github.com/vianubio/clubsite/internal/pipeline"
	"github.com/vianubio/clubsite/internal/store"
)

// PageLimit is the number of posts shown on the blog page.
const PageLimit = 100

// siteCSSFile is the embedded stylesheet inlined into printable documents.
const siteCSSFile = "css/site.css"

// PostStore is the persistence the Service needs. *store.Store implements it.
type PostStore interface {
	CreatePost(ctx context.Context, p store.Post) (store.Post, error)
	GetPost(ctx context.Context, id int64) (store.Post, error)
	ListPosts(ctx context.Context, opts store.ListOptions) ([]store.Post, error)
}

// Recorder receives resolver and upload outcomes. *metrics.Metrics implements it.
type Recorder interface {
	Resolution(kind, rule string)
	Upload(outcome string)
	Export(err error, d time.Duration)
}

// Service implements the site's post, team, upload and export operations.
// Safe for concurrent use.
type Service struct {
	posts      PostStore
	authz      *auth.Authorizer
	uploads    *assets.Directory
	coverCtx   assets.Context
	teamCtx    assets.Context
	allowedExt []string
	maxUpload  int64
	renderer   pipeline.Renderer
	team       *TeamSource
	printDoc   *pipeline.PrintDocument
	exporter   Exporter
	dates      *dateutil.Formatter
	siteTitle  string
	logger     *zap.Logger
	recorder   Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder records resolver, upload and export outcomes.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithExporter enables ExportPDF. Without it ExportPDF returns ErrExportDisabled.
func WithExporter(e Exporter) Option {
	return func(s *Service) { s.exporter = e }
}

// New creates a Service from configuration. The uploads directory is
// created if missing.
func New(cfg *config.Config, posts PostStore, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if posts == nil {
		return nil, errors.New("clubsite: nil post store")
	}

	uploads, err := assets.NewDirectory(cfg.Assets.UploadDir)
	if err != nil {
		return nil, convertAssetError(err)
	}

	coverCtx := cfg.Assets.CoverContext()
	teamCtx := cfg.Assets.TeamContext()
	for _, rc := range []assets.Context{coverCtx, teamCtx} {
		if err := rc.Validate(); err != nil {
			return nil, convertAssetError(err)
		}
	}

	loc := time.UTC
	if cfg.Site.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Site.Timezone); err != nil {
			return nil, fmt.Errorf("loading timezone: %w", err)
		}
	}
	dates, err := dateutil.NewFormatter(cfg.Site.DateFormat, loc)
	if err != nil {
		return nil, err
	}

	printDoc, err := pipeline.NewPrintDocument()
	if err != nil {
		return nil, err
	}

	s := &Service{
		posts:      posts,
		authz:      auth.NewAuthorizer(cfg.Auth.Capabilities),
		uploads:    uploads,
		coverCtx:   coverCtx,
		teamCtx:    teamCtx,
		allowedExt: append([]string(nil), cfg.Assets.AllowedExtensions...),
		maxUpload:  cfg.Assets.MaxUploadBytes(),
		renderer:   pipeline.NewMarkdownRenderer(),
		printDoc:   printDoc,
		dates:      dates,
		siteTitle:  cfg.Site.Title,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.team = NewTeamSource(cfg.Team.Sources, s.logger)

	return s, nil
}

// CanViewLessons reports whether viewer may see and post lessons.
func (s *Service) CanViewLessons(viewer string) bool {
	return s.authz.HasCapability(viewer, auth.CapViewLessons)
}

// CoverContext returns the resolution context used for post covers.
func (s *Service) CoverContext() ResolutionContext {
	return fromInternal(s.coverCtx)
}

// TeamContext returns the resolution context used for team photos.
func (s *Service) TeamContext() ResolutionContext {
	return fromInternal(s.teamCtx)
}

// ListPosts returns up to limit posts newest first; limit 0 means all.
// Lessons are omitted unless viewer holds the lessons capability.
func (s *Service) ListPosts(ctx context.Context, viewer string, limit int) ([]PostView, error) {
	opts := store.ListOptions{Limit: limit}
	if !s.CanViewLessons(viewer) {
		opts.ExcludeSections = []string{string(SectionLessons)}
	}

	posts, err := s.posts.ListPosts(ctx, opts)
	if err != nil {
		return nil, convertStoreError(err)
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, s.view(ctx, p))
	}
	return views, nil
}

// GetPost returns one post. A post in a section the viewer may not see is
// reported as ErrPostNotFound.
func (s *Service) GetPost(ctx context.Context, viewer string, id int64) (PostView, error) {
	p, err := s.visiblePost(ctx, viewer, id)
	if err != nil {
		return PostView{}, err
	}
	return s.view(ctx, p), nil
}

func (s *Service) visiblePost(ctx context.Context, viewer string, id int64) (store.Post, error) {
	p, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return store.Post{}, convertStoreError(err)
	}
	if Section(p.Section).Gated() && !s.CanViewLessons(viewer) {
		return store.Post{}, ErrPostNotFound
	}
	return p, nil
}

// CreatePost validates in, stores the optional upload under a sanitized
// name and persists the post authored by viewer. Nothing is stored when
// validation fails, and the upload is removed if persisting fails.
func (s *Service) CreatePost(ctx context.Context, viewer string, in PostInput, up *Upload) (PostView, error) {
	viewer = strings.TrimSpace(viewer)
	if viewer == "" {
		return PostView{}, ErrNotAuthenticated
	}

	section, err := ParseSection(in.Section)
	if err != nil {
		return PostView{}, err
	}
	if section.Gated() && !s.CanViewLessons(viewer) {
		return PostView{}, fmt.Errorf("%w: %s", ErrForbiddenSection, section)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = DefaultTitle
	}

	hasUpload := up != nil && up.Body != nil && strings.TrimSpace(up.Filename) != ""
	if hasUpload {
		if err := ValidateUploadName(up.Filename, s.allowedExt); err != nil {
			s.recordUpload("rejected")
			return PostView{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return PostView{}, err
	}

	var stored string
	if hasUpload {
		stored, err = s.storeUpload(up)
		if err != nil {
			return PostView{}, err
		}
	}

	p, err := s.posts.CreatePost(ctx, store.Post{
		Section:     string(section),
		Title:       title,
		Content:     strings.TrimSpace(in.Content),
		ImageURL:    stored,
		ExternalURL: strings.TrimSpace(in.ExternalURL),
		PPTURL:      strings.TrimSpace(in.PPTURL),
		Author:      viewer,
	})
	if err != nil {
		if stored != "" {
			if rmErr := s.uploads.Remove(stored); rmErr != nil {
				s.logger.Error("removing orphaned upload", zap.String("name", stored), zap.Error(rmErr))
			}
		}
		return PostView{}, convertStoreError(err)
	}

	s.logger.Info("post created",
		zap.Int64("id", p.ID),
		zap.String("section", p.Section),
		zap.String("author", p.Author),
		zap.String("image", p.ImageURL))
	return s.view(ctx, p), nil
}

// storeUpload saves up under a sanitized name and returns that name.
func (s *Service) storeUpload(up *Upload) (string, error) {
	name := assets.SanitizeFilename(up.Filename)
	body := up.Body
	if s.maxUpload > 0 {
		body = &limitReader{r: up.Body, remaining: s.maxUpload}
	}

	if err := s.uploads.Save(name, body); err != nil {
		if errors.Is(err, ErrUploadTooLarge) {
			s.recordUpload("rejected")
			return "", ErrUploadTooLarge
		}
		s.recordUpload("failed")
		return "", convertAssetError(err)
	}
	s.recordUpload("stored")
	return name, nil
}

// limitReader fails with ErrUploadTooLarge once more than remaining bytes
// have been read.
type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrUploadTooLarge
	}
	return n, err
}

// Team returns the team list with photos resolved against the bundled
// directory first, then uploads.
func (s *Service) Team(ctx context.Context) []TeamMember {
	members := s.team.Load(ctx)
	for i := range members {
		members[i].PhotoURL = s.resolve("team", members[i].Photo, s.teamCtx)
	}
	return members
}

// ExportPDF prints one post to PDF with the same visibility rules as GetPost.
func (s *Service) ExportPDF(ctx context.Context, viewer string, id int64) ([]byte, error) {
	if s.exporter == nil {
		return nil, ErrExportDisabled
	}

	p, err := s.visiblePost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pdf, err := s.exportPost(ctx, p)
	if s.recorder != nil {
		s.recorder.Export(err, time.Since(start))
	}
	if err != nil {
		s.logger.Error("export failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return pdf, nil
}

func (s *Service) exportPost(ctx context.Context, p store.Post) ([]byte, error) {
	v := s.view(ctx, p)

	body, err := pipeline.RewriteImageSources(v.ContentHTML, s.printURL)
	if err != nil {
		body = v.ContentHTML
	}

	var cover template.URL
	if p.ImageURL != "" {
		cover = template.URL(s.printURL(v.CoverURL)) // #nosec G203 -- built from resolver output
	}

	css, err := fs.ReadFile(assets.StaticFS(), siteCSSFile)
	if err != nil {
		return nil, fmt.Errorf("reading site CSS: %w", err)
	}

	doc, err := s.printDoc.Build(ctx, &pipeline.PrintData{
		SiteTitle: s.siteTitle,
		Title:     v.Title,
		Author:    v.Author,
		Date:      v.Date,
		Section:   v.Section.Label(),
		CoverURL:  cover,
		Body:      template.HTML(body), // #nosec G203 -- goldmark output without raw HTML
	}, string(css))
	if err != nil {
		return nil, err
	}

	return s.exporter.Export(ctx, doc)
}

// printURL maps a resolved public URL to something a page loaded from disk
// can fetch: files in an asset directory become file:// URLs, embedded
// assets become data: URLs, anything else is left unchanged.
func (s *Service) printURL(u string) string {
	for _, cand := range s.teamCtx.Candidates {
		prefix := strings.TrimSuffix(cand.URLPrefix, "/") + "/"
		if !strings.HasPrefix(u, prefix) {
			continue
		}
		local := filepath.Join(cand.Dir, filepath.FromSlash(strings.TrimPrefix(u, prefix)))
		if abs, err := filepath.Abs(local); err == nil && fileutil.FileExists(abs) {
			return pipeline.FileURL(abs)
		}
	}

	if strings.HasPrefix(u, s.coverCtx.Mount) {
		name := strings.TrimPrefix(u, s.coverCtx.Mount)
		if data, err := fs.ReadFile(assets.StaticFS(), name); err == nil {
			return dataURL(name, data)
		}
	}
	return u
}

func dataURL(name string, data []byte) string {
	mt := mime.TypeByExtension(path.Ext(name))
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// view projects a stored post for display. It never fails: a rendering
// problem falls back to escaped raw content.
func (s *Service) view(ctx context.Context, p store.Post) PostView {
	return PostView{
		ID:          p.ID,
		Section:     Section(p.Section),
		Title:       p.Title,
		Content:     p.Content,
		ImageURL:    p.ImageURL,
		ExternalURL: p.ExternalURL,
		PPTURL:      p.PPTURL,
		Author:      p.Author,
		CreatedAt:   p.CreatedAt,
		CoverURL:    s.resolve("cover", p.ImageURL, s.coverCtx),
		ContentHTML: s.renderContent(ctx, p.ID, p.Content),
		Date:        s.dates.Format(p.CreatedAt),
	}
}

func (s *Service) renderContent(ctx context.Context, id int64, content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	rendered, err := s.renderer.Render(ctx, content)
	if err != nil {
		s.logger.Warn("rendering post content, showing raw text", zap.Int64("id", id), zap.Error(err))
		return "<p>" + html.EscapeString(content) + "</p>"
	}

	rewritten, err := pipeline.RewriteImageSources(rendered, func(src string) string {
		return s.resolve("inline", src, s.coverCtx)
	})
	if err != nil {
		s.logger.Warn("rewriting inline images", zap.Int64("id", id), zap.Error(err))
		return rendered
	}
	return rewritten
}

func (s *Service) resolve(name, reference string, rc assets.Context) string {
	url, rule := assets.ResolveDetailed(reference, rc)
	if s.recorder != nil {
		s.recorder.Resolution(name, string(rule))
	}
	return url
}

func (s *Service) recordUpload(outcome string) {
	if s.recorder != nil {
		s.recorder.Upload(outcome)
	}
}
