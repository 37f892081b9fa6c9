package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pevans/newsmith/logger"
)

// DefaultSerperEndpoint is the Serper Google search API.
const DefaultSerperEndpoint = "https://google.serper.dev/search"

// serperPageSize is how many organic results to request; filtering drops
// many of them.
const serperPageSize = 20

// PaidSearch queries the Serper API.
type PaidSearch struct {
	apiKey   string
	endpoint string
	client   *http.Client
	log      logger.Logger
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// NewPaidSearch creates a Serper client. An empty endpoint uses the public
// API.
func NewPaidSearch(apiKey, endpoint string, client *http.Client, log logger.Logger) *PaidSearch {
	if endpoint == "" {
		endpoint = DefaultSerperEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PaidSearch{apiKey: apiKey, endpoint: endpoint, client: client, log: log}
}

// Search returns organic results that pass the article filters, in the
// order Serper ranked them.
func (s *PaidSearch) Search(ctx context.Context, query string, maxResults int, excludeHost string) ([]string, error) {
	if maxResults <= 0 {
		return []string{}, nil
	}

	payload, err := json.Marshal(serperRequest{Q: query, Num: serperPageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search API returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var decoded serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	f := newFilter(excludeHost)
	results := make([]string, 0, maxResults)
	seen := make(map[string]bool)
	for _, item := range decoded.Organic {
		link, ok := f.accept(item.Link)
		if !ok || seen[link] {
			continue
		}
		seen[link] = true
		results = append(results, link)
		if len(results) == maxResults {
			break
		}
	}

	s.log.Info("search completed",
		logger.String("provider", "serper"),
		logger.String("query", query),
		logger.Int("organic", len(decoded.Organic)),
		logger.Int("accepted", len(results)),
	)

	return results, nil
}
