package store

// Notes:
// - Every test opens its own database under t.TempDir (or :memory:), so
//   tests run in parallel without sharing state
// - The legacy-schema test builds a posts table without ppt_url by hand to
//   check the additive migration path

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "site.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// ---------------------------------------------------------------------------
// Open / Migrate
// ---------------------------------------------------------------------------

func TestOpen(t *testing.T) {
	t.Parallel()

	_, err := Open("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, ":memory:", s.Path())
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "site.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Migrate(context.Background()))
	assert.FileExists(t, path)
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))

	ok, err := s.columnExists(ctx, "posts", "ppt_url")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMigrate_AddsMissingColumnToLegacyTable(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, err = s.db.ExecContext(ctx, `CREATE TABLE posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		section TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		external_url TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO posts (section, title, created_at) VALUES ('articles', 'old', '2023-05-01 10:00:00')`)
	require.NoError(t, err)

	ok, err := s.columnExists(ctx, "posts", "ppt_url")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Migrate(ctx))

	posts, err := s.ListPosts(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "old", posts[0].Title)
	assert.Empty(t, posts[0].PPTURL)
	assert.Equal(t, time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC), posts[0].CreatedAt)
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

func TestSeedAccounts(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()

	n, err := s.SeedAccounts(ctx, []Account{
		{Email: "admin@vianubio", PasswordHash: "hash-1"},
		{Email: "membriiaccount", PasswordHash: "hash-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-seeding with a new hash leaves the stored one alone.
	n, err = s.SeedAccounts(ctx, []Account{
		{Email: "admin@vianubio", PasswordHash: "changed"},
		{Email: "new@club", PasswordHash: "hash-3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	acc, err := s.FindAccount(ctx, "admin@vianubio")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", acc.PasswordHash)
	assert.NotZero(t, acc.ID)

	_, err = s.FindAccount(ctx, "new@club")
	assert.NoError(t, err)
}

func TestSeedAccounts_RejectsIncomplete(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()

	_, err := s.SeedAccounts(ctx, []Account{
		{Email: "ok@club", PasswordHash: "h"},
		{Email: "", PasswordHash: "h"},
	})
	require.Error(t, err)

	// The transaction rolled back the first insert too.
	_, err = s.FindAccount(ctx, "ok@club")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindAccount_NotFound(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	_, err := s.FindAccount(context.Background(), "nobody@club")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ---------------------------------------------------------------------------
// Posts
// ---------------------------------------------------------------------------

func TestCreateAndGetPost(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()
	created := time.Date(2024, 10, 3, 12, 30, 0, 123, time.UTC)

	p, err := s.CreatePost(ctx, Post{
		Section:     "lectii",
		Title:       "Fotosinteza",
		Content:     "# Fotosinteza",
		ImageURL:    "1a2b3c4d-leaf.png",
		ExternalURL: "https://example.com",
		PPTURL:      "https://slides.example.com/deck",
		Author:      "admin@vianubio",
		CreatedAt:   created,
	})
	require.NoError(t, err)
	require.NotZero(t, p.ID)

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestCreatePost_DefaultsCreatedAt(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("EET", 2*3600))
	s.now = func() time.Time { return fixed }

	p, err := s.CreatePost(context.Background(), Post{Section: "articles", Title: "t"})
	require.NoError(t, err)
	assert.True(t, p.CreatedAt.Equal(fixed))
	assert.Equal(t, time.UTC, p.CreatedAt.Location())
}

func TestGetPost_NotFound(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	_, err := s.GetPost(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPosts(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, sec := range []string{"articles", "lectii", "gallery", "insta", "lectii"} {
		_, err := s.CreatePost(ctx, Post{
			Section:   sec,
			Title:     sec,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		opts   ListOptions
		titles []string
	}{
		{
			name:   "all newest first",
			opts:   ListOptions{},
			titles: []string{"lectii", "insta", "gallery", "lectii", "articles"},
		},
		{
			name:   "exclude lessons",
			opts:   ListOptions{ExcludeSections: []string{"lectii"}},
			titles: []string{"insta", "gallery", "articles"},
		},
		{
			name:   "exclude two sections",
			opts:   ListOptions{ExcludeSections: []string{"lectii", "insta"}},
			titles: []string{"gallery", "articles"},
		},
		{
			name:   "limit",
			opts:   ListOptions{Limit: 2},
			titles: []string{"lectii", "insta"},
		},
		{
			name:   "limit with exclusion",
			opts:   ListOptions{ExcludeSections: []string{"lectii"}, Limit: 1},
			titles: []string{"insta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := s.ListPosts(ctx, tt.opts)
			require.NoError(t, err)
			titles := make([]string, len(posts))
			for i, p := range posts {
				titles[i] = p.Title
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestListPosts_SameTimestampNewestIDFirst(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := s.CreatePost(ctx, Post{Section: "articles", Title: "first", CreatedAt: at})
	require.NoError(t, err)
	second, err := s.CreatePost(ctx, Post{Section: "articles", Title: "second", CreatedAt: at})
	require.NoError(t, err)

	posts, err := s.ListPosts(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
}

func TestListPosts_Empty(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	posts, err := s.ListPosts(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
