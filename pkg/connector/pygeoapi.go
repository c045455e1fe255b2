package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/store"
)

var collectionIDPattern = regexp.MustCompile(`collections/([^?/]+)`)

// Instance describes a single pygeoapi deployment to harvest. ExcludeCollections
// holds full collection URLs; the collection id is parsed out of each.
type Instance struct {
	URL                string
	ExcludeCollections []string
}

type collectionInfo struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Keywords    []string       `json:"keywords"`
	Extent      map[string]any `json:"extent"`
	Queryables  []string       `json:"-"`
}

type collectionsResponse struct {
	Collections []collectionInfo `json:"collections"`
}

type queryablesResponse struct {
	Properties map[string]any `json:"properties"`
}

// PyGeoAPIConnector harvests collection metadata from one or more pygeoapi
// instances and converts each collection into an indexable document.
type PyGeoAPIConnector struct {
	instances  []Instance
	httpClient *http.Client
	logger     logger.ILogger
}

func NewPyGeoAPIConnector(instances []Instance, log logger.ILogger) *PyGeoAPIConnector {
	return &PyGeoAPIConnector{
		instances: instances,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: log,
	}
}

// ParseInstances turns "url|excludeURL,excludeURL;url2" style config entries
// into Instance values. Entries without exclusions are just the base URL.
func ParseInstances(entries []string) []Instance {
	instances := make([]Instance, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "|", 2)
		inst := Instance{URL: strings.TrimRight(parts[0], "/")}
		if len(parts) == 2 {
			for _, ex := range strings.Split(parts[1], ",") {
				if ex = strings.TrimSpace(ex); ex != "" {
					inst.ExcludeCollections = append(inst.ExcludeCollections, ex)
				}
			}
		}
		instances = append(instances, inst)
	}
	return instances
}

// FetchDocuments harvests every configured instance concurrently and returns
// one document per collection. Instances that fail are logged and skipped so a
// single unreachable deployment does not abort the whole harvest.
func (c *PyGeoAPIConnector) FetchDocuments(ctx context.Context) ([]store.Document, error) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		docs []store.Document
	)

	for _, instance := range c.instances {
		wg.Add(1)
		go func(inst Instance) {
			defer wg.Done()
			instanceDocs, err := c.harvestInstance(ctx, inst)
			if err != nil {
				c.logger.Warn("PYGEOAPI_CONNECTOR", "Skipping unreachable instance", map[string]interface{}{"instance": inst.URL, "error": err.Error()})
				return
			}
			mu.Lock()
			docs = append(docs, instanceDocs...)
			mu.Unlock()
		}(instance)
	}
	wg.Wait()

	if len(docs) == 0 && len(c.instances) > 0 {
		return nil, fmt.Errorf("no collections harvested from %d configured instances", len(c.instances))
	}
	c.logger.Info("PYGEOAPI_CONNECTOR", "Harvest finished", map[string]interface{}{"documents": len(docs)})
	return docs, nil
}

func (c *PyGeoAPIConnector) harvestInstance(ctx context.Context, inst Instance) ([]store.Document, error) {
	c.logger.Info("PYGEOAPI_CONNECTOR", "Fetching collections of pygeoapi instance", map[string]interface{}{"instance": inst.URL})

	excluded := excludedIDs(inst.ExcludeCollections)
	if len(excluded) > 0 {
		c.logger.Info("PYGEOAPI_CONNECTOR", "Excluding collections from indexing", map[string]interface{}{"excluded": excluded})
	}

	var listing collectionsResponse
	if err := c.getJSON(ctx, inst.URL+"/collections", &listing); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		docs []store.Document
	)
	for _, coll := range listing.Collections {
		if excluded[coll.ID] {
			continue
		}
		wg.Add(1)
		go func(coll collectionInfo) {
			defer wg.Done()
			coll.Queryables = c.fetchQueryables(ctx, inst.URL, coll.ID)
			doc := collectionDocument(inst.URL, coll)
			mu.Lock()
			docs = append(docs, doc)
			mu.Unlock()
		}(coll)
	}
	wg.Wait()
	return docs, nil
}

func (c *PyGeoAPIConnector) fetchQueryables(ctx context.Context, baseURL, collectionID string) []string {
	var resp queryablesResponse
	endpoint := fmt.Sprintf("%s/collections/%s/queryables", baseURL, url.PathEscape(collectionID))
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		c.logger.Warn("PYGEOAPI_CONNECTOR", "No queryables for collection", map[string]interface{}{"collection": collectionID, "error": err.Error()})
		return nil
	}
	names := make([]string, 0, len(resp.Properties))
	for name := range resp.Properties {
		names = append(names, name)
	}
	return names
}

func (c *PyGeoAPIConnector) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	q.Set("f", "json")
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func excludedIDs(excludeURLs []string) map[string]bool {
	ids := make(map[string]bool, len(excludeURLs))
	for _, ex := range excludeURLs {
		if match := collectionIDPattern.FindStringSubmatch(ex); match != nil {
			ids[match[1]] = true
		} else {
			ids[ex] = true
		}
	}
	return ids
}

func collectionDocument(baseURL string, coll collectionInfo) store.Document {
	extentJSON, _ := json.Marshal(coll.Extent)
	content := fmt.Sprintf(
		"Title: %s\nDescription: %s\nKeywords: %s\nQueryables: %s\nExtent: %s",
		coll.Title,
		coll.Description,
		strings.Join(coll.Keywords, ", "),
		strings.Join(coll.Queryables, ", "),
		string(extentJSON),
	)
	collectionURL := fmt.Sprintf("%s/collections/%s", baseURL, coll.ID)
	return store.Document{
		Content: content,
		Metadata: map[string]any{
			"id":     coll.ID,
			"title":  coll.Title,
			"url":    collectionURL,
			"source": collectionURL,
			"extent": string(extentJSON),
		},
	}
}
