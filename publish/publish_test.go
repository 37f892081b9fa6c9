package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsmith/articles"
	"github.com/pevans/newsmith/extract"
	"github.com/pevans/newsmith/rewrite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore captures create requests
type recordingStore struct {
	requests []articles.CreateRequest
	err      error
}

func (s *recordingStore) Create(_ context.Context, req articles.CreateRequest) (*articles.Article, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &articles.Article{ID: uuid.New(), Kind: req.Kind, Title: req.Title}, nil
}

func TestPublishSource(t *testing.T) {
	store := &recordingStore{}
	published := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	id, err := New(store, nil).PublishSource(context.Background(), &extract.Result{
		Title:       "Title",
		Body:        "Body",
		PublishedAt: &published,
	}, "https://example.com/blog/a")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	require.Len(t, store.requests, 1)
	req := store.requests[0]
	assert.Equal(t, articles.KindOriginal, req.Kind)
	assert.Equal(t, "https://example.com/blog/a", req.SourceURL)
	assert.Equal(t, &published, req.PublishedAt)
	assert.Nil(t, req.ParentID)
}

func TestPublishSource_DuplicateSurfaces(t *testing.T) {
	store := &recordingStore{err: articles.ErrDuplicate}

	_, err := New(store, nil).PublishSource(context.Background(), &extract.Result{Title: "T", Body: "B"}, "https://example.com/a")
	assert.ErrorIs(t, err, articles.ErrDuplicate)
}

func TestPublishRewrite(t *testing.T) {
	store := &recordingStore{}
	sourceID := uuid.New()

	_, err := New(store, nil).PublishRewrite(context.Background(), &rewrite.RewrittenArticle{
		Title:         "New",
		Body:          "Body\n\n## References\n\n1. https://a.com/x",
		SourceID:      sourceID.String(),
		ReferenceURLs: []string{"https://a.com/x"},
	})
	require.NoError(t, err)

	require.Len(t, store.requests, 1)
	req := store.requests[0]
	assert.Equal(t, articles.KindRewritten, req.Kind)
	require.NotNil(t, req.ParentID)
	assert.Equal(t, sourceID, *req.ParentID)
	assert.Equal(t, []string{"https://a.com/x"}, req.References)
	assert.Empty(t, req.SourceURL)
}

func TestPublishRewrite_InvalidSourceID(t *testing.T) {
	store := &recordingStore{}

	_, err := New(store, nil).PublishRewrite(context.Background(), &rewrite.RewrittenArticle{SourceID: "nope"})
	assert.ErrorIs(t, err, articles.ErrValidation)
	assert.Empty(t, store.requests)
}

func TestPublishRewrite_StoreError(t *testing.T) {
	store := &recordingStore{err: errors.New("connection refused")}

	_, err := New(store, nil).PublishRewrite(context.Background(), &rewrite.RewrittenArticle{
		SourceID:      uuid.New().String(),
		ReferenceURLs: []string{"https://a.com/x"},
	})
	assert.ErrorContains(t, err, "connection refused")
}
