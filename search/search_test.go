package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/pevans/newsmith/config"
	"github.com/pevans/newsmith/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooksLikeArticle(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/blog/shrinking-images", true},
		{"/news/2024/05/launch", true},
		{"/posts/42", true},
		{"/2024/05/how-we-cut-build-times/", true},
		{"/how-to-cook.html", true},
		{"/blog/", false},
		{"/", false},
		{"/about", false},
		{"/pricing-plans", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, LooksLikeArticle(tt.path), tt.path)
	}
}

func TestIsBlockedHost(t *testing.T) {
	for _, host := range []string{
		"www.google.com", "news.google.co.uk", "bing.com", "m.youtube.com",
		"youtu.be", "x.com", "twitter.com", "www.reddit.com", "uk.linkedin.com",
	} {
		assert.True(t, IsBlockedHost(host), host)
	}
	for _, host := range []string{"example.com", "box.company.com", "dev.to"} {
		assert.False(t, IsBlockedHost(host), host)
	}
}

func TestFilter_ExcludesSourceHost(t *testing.T) {
	f := newFilter("www.source.com")

	_, ok := f.accept("https://source.com/blog/other-post-about-things")
	assert.False(t, ok)
	_, ok = f.accept("https://cdn.source.com/blog/other-post-about-things")
	assert.False(t, ok)

	link, ok := f.accept("https://other.com/blog/other-post-about-things#comments")
	assert.True(t, ok)
	assert.Equal(t, "https://other.com/blog/other-post-about-things", link)
}

func TestPaidSearch_FiltersAndKeepsOrder(t *testing.T) {
	var gotKey string
	var gotBody serperRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"organic": [
			{"title": "Video", "link": "https://www.youtube.com/watch?v=abc"},
			{"title": "Own site", "link": "https://source.com/blog/same-topic-post"},
			{"title": "Home", "link": "https://first.com/"},
			{"title": "First", "link": "https://first.com/blog/multi-stage-builds"},
			{"title": "Second", "link": "https://second.org/2024/01/smaller-container-images-guide"},
			{"title": "Third", "link": "https://third.net/article/docker-tips"}
		]}`)
	}))
	defer server.Close()

	provider := NewPaidSearch("secret", server.URL, server.Client(), nil)
	results, err := provider.Search(context.Background(), "smaller docker images", 2, "source.com")
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "smaller docker images", gotBody.Q)
	assert.Equal(t, []string{
		"https://first.com/blog/multi-stage-builds",
		"https://second.org/2024/01/smaller-container-images-guide",
	}, results)
}

func TestPaidSearch_NoOrganicResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"organic": []}`)
	}))
	defer server.Close()

	results, err := NewPaidSearch("k", server.URL, nil, nil).Search(context.Background(), "q", 2, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPaidSearch_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Unauthorized."}`, http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewPaidSearch("bad", server.URL, nil, nil).Search(context.Background(), "q", 2, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

const ddgResults = `<html><body><div id="links">
<div class="result"><h2 class="result__title">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3Dx&rut=1">Video</a></h2></div>
<div class="result"><h2 class="result__title">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Falpha.dev%2Fblog%2Fcaching-layers-explained&rut=2">Alpha</a></h2></div>
<div class="result"><h2 class="result__title">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fsource.com%2Fblog%2Fown-post-here&rut=3">Own</a></h2></div>
<div class="result"><h2 class="result__title">
  <a class="result__a" href="https://beta.io/posts/docker-layer-caching">Beta</a></h2></div>
<div class="result"><h2 class="result__title">
  <a class="result__a" href="https://gamma.io/posts/another-caching-story">Gamma</a></h2></div>
</div></body></html>`

func newFallbackServer(t *testing.T, html string, gotQuery *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			*gotQuery = r.URL.Query().Get("q")
		}
		fmt.Fprint(w, html)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestFetcher() *fetch.Fetcher {
	return fetch.New(config.FetchConfig{Timeout: 2 * time.Second, Rate: 1000})
}

func TestFallbackSearch_DecodesAndFilters(t *testing.T) {
	var gotQuery string
	server := newFallbackServer(t, ddgResults, &gotQuery)

	provider := NewFallbackSearch(newTestFetcher(), server.URL+"/html/", nil)
	results, err := provider.Search(context.Background(), "docker layer caching", 2, "source.com")
	require.NoError(t, err)

	assert.Equal(t, "docker layer caching", gotQuery)
	assert.Equal(t, []string{
		"https://alpha.dev/blog/caching-layers-explained",
		"https://beta.io/posts/docker-layer-caching",
	}, results)
}

func TestFallbackSearch_LaterSelectorUsedWhenEarlierFindNothing(t *testing.T) {
	html := `<html><body><table><tr><td>
<a class="result-link" href="https://delta.org/articles/observability-for-small-teams">Delta</a>
</td></tr></table></body></html>`
	server := newFallbackServer(t, html, nil)

	results, err := NewFallbackSearch(newTestFetcher(), server.URL, nil).Search(context.Background(), "q", 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://delta.org/articles/observability-for-small-teams"}, results)
}

func TestFallbackSearch_DegradesWithoutError(t *testing.T) {
	t.Run("no results markup", func(t *testing.T) {
		server := newFallbackServer(t, `<html><body><p>Please solve the captcha</p></body></html>`, nil)

		results, err := NewFallbackSearch(newTestFetcher(), server.URL, nil).Search(context.Background(), "q", 2, "")
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("endpoint down", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		server.Close()

		results, err := NewFallbackSearch(newTestFetcher(), server.URL, nil).Search(context.Background(), "q", 2, "")
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestDecodeRedirect(t *testing.T) {
	base, _ := url.Parse("https://html.duckduckgo.com/html/")

	tests := []struct {
		name     string
		href     string
		expected string
	}{
		{"uddg wrapper", "//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.com%2Fpost%2Fx&rut=abc", "https://a.com/post/x"},
		{"url param", "/redirect?url=https%3A%2F%2Fb.com%2Fy", "https://b.com/y"},
		{"google style q", "https://www.google.com/url?q=https://c.com/z&sa=U", "https://c.com/z"},
		{"plain link", "https://d.com/blog/post", "https://d.com/blog/post"},
		{"non-url q kept", "/html/?q=golang", "https://html.duckduckgo.com/html/?q=golang"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DecodeRedirect(tt.href, base))
		})
	}
}

func TestNew(t *testing.T) {
	fetcher := newTestFetcher()

	provider, err := New(config.SearchConfig{Provider: config.SearchProviderAPI, APIKey: "k"}, time.Second, fetcher, nil)
	require.NoError(t, err)
	assert.IsType(t, &PaidSearch{}, provider)

	provider, err = New(config.SearchConfig{Provider: config.SearchProviderFallback}, time.Second, fetcher, nil)
	require.NoError(t, err)
	assert.IsType(t, &FallbackSearch{}, provider)

	_, err = New(config.SearchConfig{Provider: config.SearchProviderAPI}, time.Second, fetcher, nil)
	assert.ErrorIs(t, err, config.ErrMissingCredential)

	_, err = New(config.SearchConfig{Provider: "bing"}, time.Second, fetcher, nil)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}
