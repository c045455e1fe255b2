package gazetteer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/dialogue/spatial"
)

const cacheTTL = 24 * time.Hour

// Client resolves place names against a Photon geocoding endpoint.
// Lookups are cached in Redis best-effort: a dead cache only costs
// latency, never correctness.
type Client struct {
	baseURL    string
	httpClient *http.Client
	rdb        *redis.Client
	logger     logger.ILogger
}

var _ spatial.Gazetteer = (*Client)(nil)

func NewClient(baseURL string, rdb *redis.Client, log logger.ILogger) *Client {
	if baseURL == "" {
		baseURL = "https://photon.komoot.io"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		rdb:        rdb,
		logger:     log,
	}
}

type photonResponse struct {
	Features []struct {
		Properties struct {
			Name    string    `json:"name"`
			Country string    `json:"country"`
			Type    string    `json:"type"`
			Extent  []float64 `json:"extent"`
		} `json:"properties"`
	} `json:"features"`
}

func (c *Client) SearchPlace(ctx context.Context, name string) ([]spatial.Place, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	cacheKey := "gazetteer:" + strings.ToLower(name)
	if places, ok := c.fromCache(ctx, cacheKey); ok {
		return places, nil
	}

	endpoint := fmt.Sprintf("%s/api?q=%s&limit=10", c.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create gazetteer request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gazetteer request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gazetteer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gazetteer error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed photonResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, fmt.Errorf("decode gazetteer response: %w", err)
	}

	places := make([]spatial.Place, 0, len(parsed.Features))
	for _, f := range parsed.Features {
		places = append(places, spatial.Place{
			Name:    f.Properties.Name,
			Country: f.Properties.Country,
			Type:    f.Properties.Type,
			Extent:  f.Properties.Extent,
		})
	}

	c.toCache(ctx, cacheKey, places)
	return places, nil
}

func (c *Client) fromCache(ctx context.Context, key string) ([]spatial.Place, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var places []spatial.Place
	if err := json.Unmarshal(raw, &places); err != nil {
		return nil, false
	}
	return places, true
}

func (c *Client) toCache(ctx context.Context, key string, places []spatial.Place) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(places)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		c.logger.Debug("GAZETTEER", "Cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
