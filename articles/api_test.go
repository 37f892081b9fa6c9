package articles

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Test helper: create a router over a fresh store
func setupTestRouter(t *testing.T) (*gin.Engine, *Store) {
	t.Helper()
	store := createTestStore(t)
	return NewAPIServer(store).SetupRouter(), store
}

// Test helper: perform a request against the router
func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHandleCreateArticle verifies 201, 409 and 400 responses
func TestHandleCreateArticle(t *testing.T) {
	router, _ := setupTestRouter(t)
	req := CreateRequest{Title: "T", Content: "C", Kind: KindOriginal, SourceURL: "https://example.com/blog/a"}

	w := doRequest(t, router, http.MethodPost, "/api/v1/articles", req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "T", created.Title)

	w = doRequest(t, router, http.MethodPost, "/api/v1/articles", req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"conflict"`)

	w = doRequest(t, router, http.MethodPost, "/api/v1/articles", map[string]string{"title": "missing content"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/articles", CreateRequest{Title: "T", Content: "C", Kind: KindRewritten})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

// TestHandleLatestUnprocessed verifies 404 when empty and 200 otherwise
func TestHandleLatestUnprocessed(t *testing.T) {
	router, store := setupTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/articles/latest-unprocessed", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	created := createOriginal(t, store, "https://example.com/blog/a")

	w = doRequest(t, router, http.MethodGet, "/api/v1/articles/latest-unprocessed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
}

// TestHandleLookup verifies lookups by source URL
func TestHandleLookup(t *testing.T) {
	router, store := setupTestRouter(t)
	createOriginal(t, store, "https://example.com/blog/a?x=1")

	w := doRequest(t, router, http.MethodGet, "/api/v1/articles/lookup?source_url="+url.QueryEscape("https://example.com/blog/a?x=1"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/articles/lookup?source_url="+url.QueryEscape("https://example.com/other"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/articles/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleGetArticle verifies ID parsing and lookup
func TestHandleGetArticle(t *testing.T) {
	router, store := setupTestRouter(t)
	created := createOriginal(t, store, "https://example.com/blog/a")

	w := doRequest(t, router, http.MethodGet, "/api/v1/articles/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/articles/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/articles/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleListArticles verifies filters from the query string
func TestHandleListArticles(t *testing.T) {
	router, store := setupTestRouter(t)
	parent := createOriginal(t, store, "https://example.com/blog/a")
	createOriginal(t, store, "https://example.com/blog/b")
	_, err := store.Create(rewriteRequest(parent.ID))
	require.NoError(t, err)

	w := doRequest(t, router, http.MethodGet, "/api/v1/articles?kind=rewritten", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp ListArticlesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	w = doRequest(t, router, http.MethodGet, "/api/v1/articles?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleListArticles_ProcessedParam verifies boolean parsing of processed
func TestHandleListArticles_ProcessedParam(t *testing.T) {
	router, store := setupTestRouter(t)
	parent := createOriginal(t, store, "https://example.com/blog/a")
	createOriginal(t, store, "https://example.com/blog/b")
	_, err := store.Create(rewriteRequest(parent.ID))
	require.NoError(t, err)

	tests := []struct {
		query string
		total int
	}{
		{"processed=1", 1},
		{"processed=true", 1},
		{"processed=0&kind=original", 1},
		{"processed=false", 2},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, "/api/v1/articles?"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			var resp ListArticlesResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.total, resp.Total)
		})
	}

	w := doRequest(t, router, http.MethodGet, "/api/v1/articles?processed=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestClient_RoundTrip drives the HTTP client against the real router
func TestClient_RoundTrip(t *testing.T) {
	router, _ := setupTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	client := NewClient(server.URL+"/", 2*time.Second)
	ctx := context.Background()

	_, err := client.LatestUnprocessed(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	published := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	source, err := client.Create(ctx, CreateRequest{
		Title:       "Source",
		Content:     "Body",
		Kind:        KindOriginal,
		SourceURL:   "https://example.com/blog/a",
		PublishedAt: &published,
	})
	require.NoError(t, err)

	_, err = client.Create(ctx, CreateRequest{Title: "Source", Content: "Body", Kind: KindOriginal, SourceURL: "https://example.com/blog/a"})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := client.LookupBySourceURL(ctx, "https://example.com/blog/a")
	require.NoError(t, err)
	assert.Equal(t, source.ID, found.ID)

	latest, err := client.LatestUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.ID, latest.ID)
	require.NotNil(t, latest.PublishedAt)
	assert.True(t, published.Equal(*latest.PublishedAt))

	_, err = client.Create(ctx, CreateRequest{Title: "Rewrite", Content: "Body", Kind: KindRewritten, ParentID: &source.ID})
	assert.ErrorIs(t, err, ErrValidation)

	rewrite, err := client.Create(ctx, rewriteRequest(source.ID))
	require.NoError(t, err)

	got, err := client.Get(ctx, source.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)

	got, err = client.Get(ctx, rewrite.ID)
	require.NoError(t, err)
	assert.Equal(t, source.ID, *got.ParentID)

	kind := KindRewritten
	listed, err := client.List(ctx, ArticleFilter{Kind: &kind, Limit: 10})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, rewrite.ID, listed[0].ID)

	processed := true
	listed, err = client.List(ctx, ArticleFilter{Processed: &processed})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, source.ID, listed[0].ID)

	_, err = client.LatestUnprocessed(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestClient_UnexpectedStatus verifies other statuses are plain errors
func TestClient_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).LatestUnprocessed(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "502")
}
