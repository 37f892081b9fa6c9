package articles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client talks to an article store over its HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the store at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// LatestUnprocessed returns the newest original article without a rewrite,
// or ErrNotFound.
func (c *Client) LatestUnprocessed(ctx context.Context) (*Article, error) {
	var article Article
	if err := c.do(ctx, http.MethodGet, "/api/v1/articles/latest-unprocessed", nil, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// LookupBySourceURL returns the original article stored for sourceURL, or
// ErrNotFound.
func (c *Client) LookupBySourceURL(ctx context.Context, sourceURL string) (*Article, error) {
	var article Article
	path := "/api/v1/articles/lookup?source_url=" + url.QueryEscape(sourceURL)
	if err := c.do(ctx, http.MethodGet, path, nil, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// Get returns the article with the given ID, or ErrNotFound.
func (c *Client) Get(ctx context.Context, id uuid.UUID) (*Article, error) {
	var article Article
	if err := c.do(ctx, http.MethodGet, "/api/v1/articles/"+id.String(), nil, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// List returns articles matching filter, newest first.
func (c *Client) List(ctx context.Context, filter ArticleFilter) ([]Article, error) {
	q := url.Values{}
	if filter.Kind != nil {
		q.Set("kind", *filter.Kind)
	}
	if filter.Processed != nil {
		q.Set("processed", strconv.FormatBool(*filter.Processed))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := "/api/v1/articles"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListArticlesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Articles, nil
}

// Create stores an article. A second create for the same source URL or
// parent returns ErrDuplicate.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Article, error) {
	var article Article
	if err := c.do(ctx, http.MethodPost, "/api/v1/articles", req, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// apiError is the store's error body.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("article store request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// statusError maps store responses back onto the store's sentinel errors.
func statusError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var decoded apiError
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Message != "" {
		message = decoded.Error.Message
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrDuplicate, message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrValidation, message)
	default:
		return fmt.Errorf("article store returned %d: %s", status, message)
	}
}
