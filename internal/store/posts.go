package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Post is a stored post. ImageURL holds the raw asset reference.
type Post struct {
	ID          int64
	Section     string
	Title       string
	Content     string
	ImageURL    string
	ExternalURL string
	PPTURL      string
	Author      string
	CreatedAt   time.Time
}

// ListOptions filters ListPosts.
type ListOptions struct {
	ExcludeSections []string
	Limit           int // 0 = no limit
}

const postColumns = `id, section, title, content, image_url, external_url, ppt_url, author, created_at`

// CreatePost stores p and returns it with ID and CreatedAt set. A zero
// CreatedAt is replaced by the current time.
func (s *Store) CreatePost(ctx context.Context, p Post) (Post, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.CreatedAt = p.CreatedAt.UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (section, title, content, image_url, external_url, ppt_url, author, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Section, p.Title, p.Content, p.ImageURL, p.ExternalURL, p.PPTURL, p.Author, formatTime(p.CreatedAt))
	if err != nil {
		return Post{}, fmt.Errorf("creating post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Post{}, fmt.Errorf("creating post: %w", err)
	}
	p.ID = id
	// Strip the monotonic reading so the value matches a re-read row.
	p.CreatedAt = p.CreatedAt.Round(0)
	return p, nil
}

// GetPost returns the post with id, or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id int64) (Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("getting post %d: %w", id, err)
	}
	return p, nil
}

// ListPosts returns posts newest first.
func (s *Store) ListPosts(ctx context.Context, opts ListOptions) ([]Post, error) {
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT ` + postColumns + ` FROM posts`)
	if n := len(opts.ExcludeSections); n > 0 {
		query.WriteString(` WHERE section NOT IN (` + placeholders(n) + `)`)
		for _, sec := range opts.ExcludeSections {
			args = append(args, sec)
		}
	}
	query.WriteString(` ORDER BY created_at DESC, id DESC`)
	if opts.Limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("listing posts: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(sc scanner) (Post, error) {
	var (
		p       Post
		created string
	)
	if err := sc.Scan(&p.ID, &p.Section, &p.Title, &p.Content, &p.ImageURL,
		&p.ExternalURL, &p.PPTURL, &p.Author, &created); err != nil {
		return Post{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return Post{}, err
	}
	p.CreatedAt = t
	return p, nil
}
