// Package articles holds the article store contract: the record types, an
// HTTP client the pipeline publishes through, and a SQLite-backed reference
// implementation of the store served over gin.
package articles

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Article kinds.
const (
	KindOriginal  = "original"
	KindRewritten = "rewritten"
)

// Store errors. The HTTP API maps them to 404, 409 and 400.
var (
	ErrNotFound   = errors.New("article not found")
	ErrDuplicate  = errors.New("article already exists")
	ErrValidation = errors.New("invalid article")
)

// Article is a stored article. Originals carry SourceURL and the processed
// flag; rewrites carry ParentID and References.
type Article struct {
	ID          uuid.UUID  `json:"id"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	SourceURL   *string    `json:"source_url,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	References  []string   `json:"references,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Processed   bool       `json:"processed"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateRequest is the body of POST /api/v1/articles.
type CreateRequest struct {
	Title       string     `json:"title" binding:"required"`
	Content     string     `json:"content" binding:"required"`
	Kind        string     `json:"kind" binding:"required"`
	SourceURL   string     `json:"source_url,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	References  []string   `json:"references,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Validate checks the kind-specific rules: an original needs a source URL,
// a rewrite needs a parent and at least one reference.
func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}

	switch r.Kind {
	case KindOriginal:
		if r.SourceURL == "" {
			return fmt.Errorf("%w: source_url is required for original articles", ErrValidation)
		}
		if u, err := url.Parse(r.SourceURL); err != nil || u.Host == "" {
			return fmt.Errorf("%w: source_url must be an absolute URL", ErrValidation)
		}
	case KindRewritten:
		if r.ParentID == nil {
			return fmt.Errorf("%w: parent_id is required for rewritten articles", ErrValidation)
		}
		if len(r.References) == 0 {
			return fmt.Errorf("%w: rewritten articles need at least one reference", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: kind must be %s or %s", ErrValidation, KindOriginal, KindRewritten)
	}
	return nil
}
