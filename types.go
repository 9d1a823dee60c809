package clubsite

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Section groups posts. The stored key is also the public value.
type Section string

// Known sections.
const (
	SectionInsta    Section = "insta"
	SectionArticles Section = "articles"
	SectionGallery  Section = "gallery"
	SectionLessons  Section = "lectii"
)

// DefaultSection is used when a post is created without one.
const DefaultSection = SectionArticles

// DefaultTitle is used when a post is created without a title.
const DefaultTitle = "Untitled"

// Sections lists every section in display order.
func Sections() []Section {
	return []Section{SectionArticles, SectionGallery, SectionInsta, SectionLessons}
}

// ParseSection validates s. Empty input yields DefaultSection.
func ParseSection(s string) (Section, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSection, nil
	}
	for _, sec := range Sections() {
		if Section(s) == sec {
			return sec, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSection, s)
}

// Label is the human name of a section.
func (s Section) Label() string {
	switch s {
	case SectionInsta:
		return "Instagram"
	case SectionArticles:
		return "Articole"
	case SectionGallery:
		return "Galerie"
	case SectionLessons:
		return "Lecții"
	default:
		return string(s)
	}
}

// Gated reports whether the section requires the lessons capability.
func (s Section) Gated() bool {
	return s == SectionLessons
}

// PostInput is the author-supplied part of a new post.
type PostInput struct {
	Section     string
	Title       string
	Content     string // Markdown
	ExternalURL string
	PPTURL      string
}

// Upload is an optional cover image sent with a new post.
// Filename is the client-supplied name, never used as-is on disk.
type Upload struct {
	Filename string
	Body     io.Reader
}

// PostView is a post prepared for pages and the JSON API.
type PostView struct {
	ID          int64     `json:"id"`
	Section     Section   `json:"section"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ImageURL    string    `json:"image_url"`
	ExternalURL string    `json:"external_url"`
	PPTURL      string    `json:"ppt_url"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`

	CoverURL    string `json:"cover_url"`    // ImageURL resolved
	ContentHTML string `json:"content_html"` // Content rendered
	Date        string `json:"date"`         // CreatedAt in the site date format
}

// TeamMember is one entry of the externally maintained team list.
type TeamMember struct {
	Name     string `yaml:"name" json:"name"`
	Role     string `yaml:"role" json:"role"`
	Photo    string `yaml:"photo" json:"photo"`
	Bio      string `yaml:"bio" json:"bio"`
	PhotoURL string `yaml:"-" json:"photo_url"` // Photo resolved
}
