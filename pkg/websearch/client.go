package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"spatial-search-be/pkg/store"
)

// Client queries a Tavily-compatible web search endpoint. It serves as
// the retrieval fallback when no collection route matches.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type searchRequest struct {
	ApiKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (c *Client) Search(ctx context.Context, query string, k int) ([]store.Document, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("web search endpoint not configured")
	}
	if k <= 0 {
		k = 10
	}

	payload, err := json.Marshal(searchRequest{
		ApiKey:     c.apiKey,
		Query:      query,
		MaxResults: k,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed searchResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]store.Document, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		docs = append(docs, store.Document{
			Content: r.Content,
			Metadata: map[string]any{
				"title":  r.Title,
				"url":    r.URL,
				"score":  r.Score,
				"source": "web",
			},
		})
	}
	return docs, nil
}
