package clubsite

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vianubio/clubsite/internal/config"
	"github.com/vianubio/clubsite/internal/pipeline"
	"github.com/vianubio/clubsite/internal/store"
)

// Notes:
// - Services run against a real SQLite file in t.TempDir(); failingStore
//   covers persistence errors.
// - "admin@vianubio" holds view:lessons through the default grants;
//   "guest@vianubio" is logged in without it.

const (
	lessonsViewer = "admin@vianubio"
	plainViewer   = "guest@vianubio"
)

func withRenderer(r pipeline.Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, string) (string, error) {
	return "", errors.New("boom")
}

type failingStore struct {
	err error
}

func (f *failingStore) CreatePost(context.Context, store.Post) (store.Post, error) {
	return store.Post{}, f.err
}

func (f *failingStore) GetPost(context.Context, int64) (store.Post, error) {
	return store.Post{}, f.err
}

func (f *failingStore) ListPosts(context.Context, store.ListOptions) ([]store.Post, error) {
	return nil, f.err
}

type stubExporter struct {
	mu   sync.Mutex
	docs []string
	err  error
}

func (e *stubExporter) Export(_ context.Context, doc string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs = append(e.docs, doc)
	if e.err != nil {
		return nil, e.err
	}
	return []byte("%PDF-1.7 stub"), nil
}

func (e *stubExporter) Close() error { return nil }

type countingRecorder struct {
	mu          sync.Mutex
	resolutions map[string]int
	uploads     map[string]int
	exports     int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{resolutions: map[string]int{}, uploads: map[string]int{}}
}

func (r *countingRecorder) Resolution(context, rule string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions[context+"/"+rule]++
}

func (r *countingRecorder) Upload(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads[outcome]++
}

func (r *countingRecorder) Export(error, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports++
}

// testConfig points every directory into root.
func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(root, "site.db")
	cfg.Assets.UploadDir = filepath.Join(root, "uploads")
	cfg.Assets.BundledDir = filepath.Join(root, "img")
	cfg.Team.Sources = []string{
		filepath.Join(root, "data", "team.json"),
		filepath.Join(root, "static", "data", "team.json"),
	}
	require.NoError(t, os.MkdirAll(cfg.Assets.BundledDir, 0o750))
	return cfg
}

func openStore(t *testing.T, root string) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(root, "site.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newTestService(t *testing.T, opts ...Option) (*Service, *config.Config) {
	t.Helper()

	root := t.TempDir()
	cfg := testConfig(t, root)
	svc, err := New(cfg, openStore(t, root), opts...)
	require.NoError(t, err)
	return svc, cfg
}

func uploadedFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()

		_, err := New(testConfig(t, t.TempDir()), nil)
		assert.Error(t, err)
	})

	t.Run("creates upload directory", func(t *testing.T) {
		t.Parallel()

		svc, cfg := newTestService(t)
		assert.DirExists(t, cfg.Assets.UploadDir)
		assert.Equal(t, cfg.Assets.UploadURL, svc.CoverContext().Dirs[0].URLPrefix)
		assert.Len(t, svc.TeamContext().Dirs, 2)
	})

	t.Run("unknown timezone", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		cfg := testConfig(t, root)
		cfg.Site.Timezone = "Mars/Olympus"
		_, err := New(cfg, openStore(t, root))
		assert.Error(t, err)
	})

	t.Run("invalid context", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		cfg := testConfig(t, root)
		cfg.Assets.Placeholder = ""
		_, err := New(cfg, openStore(t, root))
		assert.ErrorIs(t, err, ErrInvalidAssetPath)
	})
}

// ---------------------------------------------------------------------------
// CreatePost
// ---------------------------------------------------------------------------

func TestCreatePost_Defaults(t *testing.T) {
	t.Parallel()

	svc, cfg := newTestService(t)
	ctx := context.Background()

	v, err := svc.CreatePost(ctx, plainViewer, PostInput{Content: "  hello  "}, nil)
	require.NoError(t, err)

	assert.NotZero(t, v.ID)
	assert.Equal(t, DefaultTitle, v.Title)
	assert.Equal(t, DefaultSection, v.Section)
	assert.Equal(t, "hello", v.Content)
	assert.Equal(t, plainViewer, v.Author)
	assert.Empty(t, v.ImageURL)
	assert.Equal(t, cfg.Assets.Placeholder, v.CoverURL)
	assert.Contains(t, v.ContentHTML, "<p>hello</p>")
	assert.NotEmpty(t, v.Date)
}

func TestCreatePost_WithUpload(t *testing.T) {
	t.Parallel()

	rec := newCountingRecorder()
	svc, cfg := newTestService(t, WithRecorder(rec))

	v, err := svc.CreatePost(context.Background(), plainViewer,
		PostInput{Title: "Frunze", Section: "gallery"},
		&Upload{Filename: "My Photo.PNG", Body: strings.NewReader("png-bytes")})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}-my_photo\.png$`), v.ImageURL)
	assert.Equal(t, cfg.Assets.UploadURL+"/"+v.ImageURL, v.CoverURL)

	data, err := os.ReadFile(filepath.Join(cfg.Assets.UploadDir, v.ImageURL))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, 1, rec.uploads["stored"])
	assert.Equal(t, 1, rec.resolutions["cover/"+RuleFound])
}

func TestCreatePost_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		viewer  string
		in      PostInput
		upload  *Upload
		wantErr error
	}{
		{
			name:    "anonymous",
			viewer:  "  ",
			in:      PostInput{Title: "x"},
			wantErr: ErrNotAuthenticated,
		},
		{
			name:    "unknown section",
			viewer:  plainViewer,
			in:      PostInput{Section: "recipes"},
			wantErr: ErrInvalidSection,
		},
		{
			name:    "lessons without capability",
			viewer:  plainViewer,
			in:      PostInput{Section: "lectii"},
			wantErr: ErrForbiddenSection,
		},
		{
			name:    "executable upload",
			viewer:  plainViewer,
			in:      PostInput{Title: "x"},
			upload:  &Upload{Filename: "virus.exe", Body: strings.NewReader("MZ")},
			wantErr: ErrUnsupportedUpload,
		},
		{
			name:    "upload without extension",
			viewer:  plainViewer,
			in:      PostInput{Title: "x"},
			upload:  &Upload{Filename: "photo", Body: strings.NewReader("x")},
			wantErr: ErrUnsupportedUpload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, cfg := newTestService(t)
			ctx := context.Background()

			_, err := svc.CreatePost(ctx, tt.viewer, tt.in, tt.upload)
			require.ErrorIs(t, err, tt.wantErr)

			posts, err := svc.ListPosts(ctx, lessonsViewer, 0)
			require.NoError(t, err)
			assert.Empty(t, posts, "nothing persisted")
			assert.Empty(t, uploadedFiles(t, cfg.Assets.UploadDir), "nothing stored")
		})
	}
}

func TestCreatePost_LessonsWithCapability(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	v, err := svc.CreatePost(context.Background(), "Admin@VianuBio",
		PostInput{Section: "LECTII", Title: "Celula"}, nil)
	require.NoError(t, err)
	assert.Equal(t, SectionLessons, v.Section)
}

func TestCreatePost_UploadTooLarge(t *testing.T) {
	t.Parallel()

	svc, cfg := newTestService(t)
	svc.maxUpload = 4

	_, err := svc.CreatePost(context.Background(), plainViewer, PostInput{},
		&Upload{Filename: "big.jpg", Body: bytes.NewReader(make([]byte, 64))})
	require.ErrorIs(t, err, ErrUploadTooLarge)
	assert.Empty(t, uploadedFiles(t, cfg.Assets.UploadDir))
}

func TestCreatePost_StoreFailureRemovesUpload(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := testConfig(t, root)
	svc, err := New(cfg, &failingStore{err: errors.New("disk full")})
	require.NoError(t, err)

	_, err = svc.CreatePost(context.Background(), plainViewer, PostInput{},
		&Upload{Filename: "a.jpg", Body: strings.NewReader("jpg")})
	require.ErrorIs(t, err, ErrDatabase)
	assert.Empty(t, uploadedFiles(t, cfg.Assets.UploadDir))
}

func TestCreatePost_CanceledContext(t *testing.T) {
	t.Parallel()

	svc, cfg := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreatePost(ctx, plainViewer, PostInput{},
		&Upload{Filename: "a.jpg", Body: strings.NewReader("jpg")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, uploadedFiles(t, cfg.Assets.UploadDir))
}

// ---------------------------------------------------------------------------
// ListPosts / GetPost
// ---------------------------------------------------------------------------

func seedPosts(t *testing.T, svc *Service) (article, lesson PostView) {
	t.Helper()

	ctx := context.Background()
	var err error
	article, err = svc.CreatePost(ctx, plainViewer, PostInput{Title: "Public"}, nil)
	require.NoError(t, err)
	lesson, err = svc.CreatePost(ctx, lessonsViewer, PostInput{Title: "Private", Section: "lectii"}, nil)
	require.NoError(t, err)
	return article, lesson
}

func TestListPosts_LessonsGate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	seedPosts(t, svc)
	ctx := context.Background()

	tests := []struct {
		name   string
		viewer string
		want   []string
	}{
		{name: "anonymous", viewer: "", want: []string{"Public"}},
		{name: "member without capability", viewer: plainViewer, want: []string{"Public"}},
		{name: "member with capability", viewer: lessonsViewer, want: []string{"Private", "Public"}},
		{name: "alias account", viewer: "membriiaccount", want: []string{"Private", "Public"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			posts, err := svc.ListPosts(ctx, tt.viewer, 0)
			require.NoError(t, err)

			titles := make([]string, 0, len(posts))
			for _, p := range posts {
				titles = append(titles, p.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestListPosts_Limit(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	for range 3 {
		_, err := svc.CreatePost(ctx, plainViewer, PostInput{}, nil)
		require.NoError(t, err)
	}

	posts, err := svc.ListPosts(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Greater(t, posts[0].ID, posts[1].ID, "newest first")
}

func TestListPosts_StoreError(t *testing.T) {
	t.Parallel()

	svc, err := New(testConfig(t, t.TempDir()), &failingStore{err: errors.New("locked")})
	require.NoError(t, err)

	_, err = svc.ListPosts(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrDatabase)
}

func TestGetPost(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	article, lesson := seedPosts(t, svc)
	ctx := context.Background()

	tests := []struct {
		name    string
		viewer  string
		id      int64
		wantErr error
	}{
		{name: "public post anonymous", viewer: "", id: article.ID},
		{name: "lesson with capability", viewer: lessonsViewer, id: lesson.ID},
		{name: "lesson hidden from anonymous", viewer: "", id: lesson.ID, wantErr: ErrPostNotFound},
		{name: "lesson hidden from member", viewer: plainViewer, id: lesson.ID, wantErr: ErrPostNotFound},
		{name: "missing", viewer: lessonsViewer, id: 9999, wantErr: ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := svc.GetPost(ctx, tt.viewer, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, v.ID)
		})
	}
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

func TestView_InlineImagesResolved(t *testing.T) {
	t.Parallel()

	svc, cfg := newTestService(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Assets.UploadDir, "leaf.png"), []byte("x"), 0o600))

	v, err := svc.CreatePost(context.Background(), plainViewer, PostInput{
		Content: "![leaf](leaf.png)\n\n![ghost](ghost.png)\n\n![cdn](https://cdn.example.com/x.png)",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, v.ContentHTML, `src="`+cfg.Assets.UploadURL+`/leaf.png"`)
	assert.Contains(t, v.ContentHTML, `src="`+cfg.Assets.Placeholder+`"`)
	assert.Contains(t, v.ContentHTML, `src="https://cdn.example.com/x.png"`)
}

func TestView_RenderFailureEscapesContent(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, withRenderer(failingRenderer{}))

	v, err := svc.CreatePost(context.Background(), plainViewer,
		PostInput{Content: "<script>alert(1)</script>"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>", v.ContentHTML)
}

// ---------------------------------------------------------------------------
// Team
// ---------------------------------------------------------------------------

func TestTeam(t *testing.T) {
	t.Parallel()

	svc, cfg := newTestService(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Assets.BundledDir, "team1.jpg"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Assets.UploadDir, "team2.jpg"), []byte("x"), 0o600))

	teamFile := cfg.Team.Sources[1]
	require.NoError(t, os.MkdirAll(filepath.Dir(teamFile), 0o750))
	require.NoError(t, os.WriteFile(teamFile, []byte(`[
		{"name": "Ana", "photo": "team1.jpg"},
		{"name": "Bogdan", "photo": "team2.jpg"},
		{"name": "Cezar", "photo": "ghost.jpg"},
		{"name": "Dana"},
		{"name": "Elena", "photo": "https://cdn.example.com/e.jpg"}
	]`), 0o600))

	members := svc.Team(context.Background())
	require.Len(t, members, 5)
	assert.Equal(t, cfg.Assets.BundledURL+"/team1.jpg", members[0].PhotoURL)
	assert.Equal(t, cfg.Assets.UploadURL+"/team2.jpg", members[1].PhotoURL)
	assert.Equal(t, cfg.Assets.Placeholder, members[2].PhotoURL)
	assert.Equal(t, cfg.Assets.Placeholder, members[3].PhotoURL)
	assert.Equal(t, "https://cdn.example.com/e.jpg", members[4].PhotoURL)
}

// ---------------------------------------------------------------------------
// ExportPDF
// ---------------------------------------------------------------------------

func TestExportPDF_Disabled(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.ExportPDF(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrExportDisabled)
}

func TestExportPDF(t *testing.T) {
	t.Parallel()

	exp := &stubExporter{}
	rec := newCountingRecorder()
	svc, cfg := newTestService(t, WithExporter(exp), WithRecorder(rec))
	ctx := context.Background()

	v, err := svc.CreatePost(ctx, plainViewer, PostInput{Title: "Mitoza", Content: "text"},
		&Upload{Filename: "cell.png", Body: strings.NewReader("png")})
	require.NoError(t, err)

	pdf, err := svc.ExportPDF(ctx, "", v.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Equal(t, 1, rec.exports)

	require.Len(t, exp.docs, 1)
	doc := exp.docs[0]
	assert.Contains(t, doc, "Mitoza")
	assert.Contains(t, doc, "file://")
	assert.Contains(t, doc, filepath.ToSlash(filepath.Base(cfg.Assets.UploadDir)))
	assert.Contains(t, doc, ".chroma", "site CSS inlined")
}

func TestExportPDF_PlaceholderInlined(t *testing.T) {
	t.Parallel()

	exp := &stubExporter{}
	svc, _ := newTestService(t, WithExporter(exp))
	ctx := context.Background()

	v, err := svc.CreatePost(ctx, plainViewer, PostInput{Content: "![x](ghost.png)"}, nil)
	require.NoError(t, err)

	_, err = svc.ExportPDF(ctx, "", v.ID)
	require.NoError(t, err)
	require.Len(t, exp.docs, 1)
	assert.Contains(t, exp.docs[0], "data:image/svg+xml;base64,")
}

func TestExportPDF_GatedAndErrors(t *testing.T) {
	t.Parallel()

	exp := &stubExporter{err: ErrPDFGeneration}
	svc, _ := newTestService(t, WithExporter(exp))
	article, lesson := seedPosts(t, svc)
	ctx := context.Background()

	_, err := svc.ExportPDF(ctx, plainViewer, lesson.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = svc.ExportPDF(ctx, "", article.ID)
	assert.ErrorIs(t, err, ErrPDFGeneration)
}
