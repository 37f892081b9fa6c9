package articles

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store keeps articles in SQLite.
type Store struct {
	db *sql.DB
}

// ArticleFilter represents filtering options for listing articles.
type ArticleFilter struct {
	Kind      *string
	Processed *bool
	Limit     int
	Offset    int
}

// NewStore opens (or creates) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the articles table if it doesn't exist. source_url is
// the acquisition idempotency key and parent_id the rewrite one; SQLite
// allows any number of NULLs under a UNIQUE constraint.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		source_url TEXT UNIQUE,
		parent_id TEXT UNIQUE REFERENCES articles(id),
		refs TEXT,
		published_at TEXT,
		processed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_articles_unprocessed
		ON articles(kind, processed, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `
	SELECT id, kind, title, content, source_url, parent_id, refs,
	       published_at, processed, created_at
	FROM articles
`

// Create validates and inserts an article. Creating a rewrite flags its
// parent as processed in the same transaction.
func (s *Store) Create(req CreateRequest) (*Article, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	article := &Article{
		ID:          uuid.New(),
		Kind:        req.Kind,
		Title:       req.Title,
		Content:     req.Content,
		ParentID:    req.ParentID,
		References:  req.References,
		PublishedAt: req.PublishedAt,
		CreatedAt:   time.Now().UTC().Truncate(0),
	}
	if req.SourceURL != "" {
		sourceURL := req.SourceURL
		article.SourceURL = &sourceURL
	}

	var refsJSON *string
	if len(req.References) > 0 {
		data, err := json.Marshal(req.References)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal references: %w", err)
		}
		jsonStr := string(data)
		refsJSON = &jsonStr
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if article.ParentID != nil {
		var parentKind string
		err := tx.QueryRow("SELECT kind FROM articles WHERE id = ?", article.ParentID.String()).Scan(&parentKind)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: parent %s does not exist", ErrValidation, article.ParentID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query parent: %w", err)
		}
		if parentKind != KindOriginal {
			return nil, fmt.Errorf("%w: parent %s is not an original article", ErrValidation, article.ParentID)
		}
	}

	query := `
		INSERT INTO articles (
			id, kind, title, content, source_url, parent_id, refs,
			published_at, processed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`

	_, err = tx.Exec(query,
		article.ID.String(),
		article.Kind,
		article.Title,
		article.Content,
		article.SourceURL,
		formatUUID(article.ParentID),
		refsJSON,
		formatTime(article.PublishedAt),
		formatTime(&article.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert article: %w", err)
	}

	if article.ParentID != nil {
		if _, err := tx.Exec("UPDATE articles SET processed = 1 WHERE id = ?", article.ParentID.String()); err != nil {
			return nil, fmt.Errorf("failed to mark parent processed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit article: %w", err)
	}

	return article, nil
}

// Get retrieves an article by ID.
func (s *Store) Get(id uuid.UUID) (*Article, error) {
	return s.queryOne(selectColumns+" WHERE id = ?", id.String())
}

// LookupBySourceURL retrieves the original article scraped from sourceURL.
func (s *Store) LookupBySourceURL(sourceURL string) (*Article, error) {
	return s.queryOne(selectColumns+" WHERE source_url = ?", sourceURL)
}

// LatestUnprocessed returns the most recently stored original that has no
// rewrite yet.
func (s *Store) LatestUnprocessed() (*Article, error) {
	return s.queryOne(
		selectColumns+" WHERE kind = ? AND processed = 0 ORDER BY created_at DESC, rowid DESC LIMIT 1",
		KindOriginal,
	)
}

// List lists articles with optional filtering, newest first.
func (s *Store) List(filter ArticleFilter) ([]Article, error) {
	query := selectColumns

	var whereClauses []string
	var args []any

	if filter.Kind != nil {
		whereClauses = append(whereClauses, "kind = ?")
		args = append(args, *filter.Kind)
	}
	if filter.Processed != nil {
		whereClauses = append(whereClauses, "processed = ?")
		args = append(args, *filter.Processed)
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	articles := []Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}

	return articles, rows.Err()
}

func (s *Store) queryOne(query string, args ...any) (*Article, error) {
	article, err := scanArticle(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return article, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanArticle parses one row into an Article. It is shared by the single
// row lookups and List.
func scanArticle(row rowScanner) (*Article, error) {
	var idStr, kind, title, content, createdAtStr string
	var sourceURL, parentIDStr, refsJSON, publishedAtStr sql.NullString
	var processed bool

	err := row.Scan(
		&idStr, &kind, &title, &content, &sourceURL, &parentIDStr,
		&refsJSON, &publishedAtStr, &processed, &createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse article ID: %w", err)
	}

	article := &Article{
		ID:        id,
		Kind:      kind,
		Title:     title,
		Content:   content,
		Processed: processed,
		CreatedAt: parseTime(createdAtStr),
	}

	if sourceURL.Valid {
		article.SourceURL = &sourceURL.String
	}
	if parentIDStr.Valid {
		parentID, err := uuid.Parse(parentIDStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse parent ID: %w", err)
		}
		article.ParentID = &parentID
	}
	if publishedAtStr.Valid {
		t := parseTime(publishedAtStr.String)
		article.PublishedAt = &t
	}
	if refsJSON.Valid {
		if err := json.Unmarshal([]byte(refsJSON.String), &article.References); err != nil {
			return nil, fmt.Errorf("failed to unmarshal references: %w", err)
		}
	}

	return article, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint") ||
		strings.Contains(err.Error(), "unique constraint")
}

func formatUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
