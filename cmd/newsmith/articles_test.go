package main

import (
	"testing"

	"github.com/pevans/newsmith/articles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestArticleFilter verifies flag combinations map onto store filters
func TestArticleFilter(t *testing.T) {
	filter, err := articleFilter("", false, 20)
	require.NoError(t, err)
	assert.Nil(t, filter.Kind)
	assert.Nil(t, filter.Processed)
	assert.Equal(t, 20, filter.Limit)

	filter, err = articleFilter(articles.KindRewritten, false, 5)
	require.NoError(t, err)
	require.NotNil(t, filter.Kind)
	assert.Equal(t, articles.KindRewritten, *filter.Kind)

	filter, err = articleFilter("", true, 5)
	require.NoError(t, err)
	require.NotNil(t, filter.Kind)
	assert.Equal(t, articles.KindOriginal, *filter.Kind)
	require.NotNil(t, filter.Processed)
	assert.False(t, *filter.Processed)

	filter, err = articleFilter(articles.KindOriginal, true, 5)
	require.NoError(t, err)
	assert.Equal(t, articles.KindOriginal, *filter.Kind)
}

// TestArticleFilter_Rejected verifies contradictory or unknown flags fail
func TestArticleFilter_Rejected(t *testing.T) {
	_, err := articleFilter(articles.KindRewritten, true, 5)
	assert.ErrorContains(t, err, "--unprocessed")

	_, err = articleFilter("draft", false, 5)
	assert.ErrorContains(t, err, "--kind")
}
