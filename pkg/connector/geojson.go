package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/store"
)

var urlPattern = regexp.MustCompile(`^(https?|ftp)://[^\s/$.?#].[^\s]*$`)

var addressKeys = []string{"addr:street", "addr:housenumber", "addr:city", "addr:postcode", "addr:country"}

// GeoJSONConnector loads OpenStreetMap features from local GeoJSON files or a
// pygeoapi items endpoint and converts them into indexable documents. Per-feature
// documents carry the feature geometry; per-tag summary documents carry the whole
// grouped feature collection.
type GeoJSONConnector struct {
	source     string
	tagName    string
	httpClient *http.Client
	logger     logger.ILogger
}

func NewGeoJSONConnector(source, tagName string, log logger.ILogger) *GeoJSONConnector {
	return &GeoJSONConnector{
		source:  source,
		tagName: tagName,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: log,
	}
}

// LoadDocuments reads all features from the configured source, filters out
// meaningless tags, and produces name documents plus tag summary documents.
func (c *GeoJSONConnector) LoadDocuments(ctx context.Context) ([]store.Document, error) {
	features, err := c.loadFeatures(ctx)
	if err != nil {
		return nil, err
	}
	features = c.filterMeaningful(features)
	c.logger.Info("GEOJSON_CONNECTOR", "Received features", map[string]interface{}{"count": len(features), "source": c.source})

	docs := c.nameDocuments(features)
	docs = append(docs, c.tagDocuments(features)...)
	return docs, nil
}

func (c *GeoJSONConnector) loadFeatures(ctx context.Context) ([]*geojson.Feature, error) {
	if urlPattern.MatchString(c.source) {
		return c.fetchRemoteFeatures(ctx)
	}
	return c.readLocalFeatures()
}

// fetchRemoteFeatures pages through a pygeoapi items endpoint until an empty
// page is returned. The pygeoapi feature id is copied into the properties so it
// survives grouping.
func (c *GeoJSONConnector) fetchRemoteFeatures(ctx context.Context) ([]*geojson.Feature, error) {
	const pageLimit = 10000
	c.logger.Info("GEOJSON_CONNECTOR", "Fetching GeoJSON features from online resource, this may take a few minutes", nil)

	var all []*geojson.Feature
	for offset := 0; ; offset += pageLimit {
		endpoint := fmt.Sprintf("%s?f=json&limit=%d&offset=%d", c.source, pageLimit, offset)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch features page: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.source)
		}
		var fc geojson.FeatureCollection
		err = json.NewDecoder(resp.Body).Decode(&fc)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode feature page: %w", err)
		}
		if len(fc.Features) == 0 {
			break
		}
		all = append(all, fc.Features...)
	}

	for _, f := range all {
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		f.Properties["id"] = f.ID
	}
	return all, nil
}

func (c *GeoJSONConnector) readLocalFeatures() ([]*geojson.Feature, error) {
	paths, err := filepath.Glob(filepath.Join(c.source, "*.geojson"))
	if err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(c.source); statErr == nil && !info.IsDir() {
		paths = []string{c.source}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no geojson files found in %s", c.source)
	}

	var all []*geojson.Feature
	for _, path := range paths {
		c.logger.Info("GEOJSON_CONNECTOR", "Extracting features from file", map[string]interface{}{"file": path})
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		all = append(all, fc.Features...)
	}
	return all, nil
}

// filterMeaningful drops features whose tag value is the bare "yes", which in
// OSM data marks presence without saying anything about the feature.
func (c *GeoJSONConnector) filterMeaningful(features []*geojson.Feature) []*geojson.Feature {
	if c.tagName == "" {
		return features
	}
	kept := make([]*geojson.Feature, 0, len(features))
	for _, f := range features {
		if tagValue(f, c.tagName) == "yes" {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func (c *GeoJSONConnector) nameDocuments(features []*geojson.Feature) []store.Document {
	var docs []store.Document
	for _, f := range features {
		name, _ := f.Properties["name"].(string)
		if name == "" {
			continue
		}
		geomJSON, err := json.Marshal(geojson.NewGeometry(f.Geometry))
		if err != nil {
			c.logger.Warn("GEOJSON_CONNECTOR", "Skipping feature, geometry not serializable", map[string]interface{}{"feature_id": f.ID, "error": err.Error()})
			continue
		}

		metadata := map[string]any{
			"id":      fmt.Sprintf("%v", f.ID),
			"source":  c.documentSource(),
			"type":    tagValue(f, c.tagName),
			"feature": string(geomJSON),
		}
		for key, value := range f.Properties {
			metadata[key] = value
		}

		docs = append(docs, store.Document{
			Content:  fmt.Sprintf("Name: %s\n\n%s", name, featureDescription(f)),
			Metadata: metadata,
		})
	}
	return docs
}

func (c *GeoJSONConnector) tagDocuments(features []*geojson.Feature) []store.Document {
	if c.tagName == "" {
		return nil
	}
	grouped := make(map[string][]*geojson.Feature)
	for _, f := range features {
		tag := fmt.Sprintf("%s=%s", c.tagName, tagValue(f, c.tagName))
		grouped[tag] = append(grouped[tag], f)
	}

	tags := make([]string, 0, len(grouped))
	for tag := range grouped {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	docs := make([]store.Document, 0, len(grouped))
	for _, tag := range tags {
		group := grouped[tag]
		fc := geojson.NewFeatureCollection()
		fc.Features = group
		fcJSON, err := fc.MarshalJSON()
		if err != nil {
			c.logger.Warn("GEOJSON_CONNECTOR", "Skipping tag group, feature collection not serializable", map[string]interface{}{"tag": tag, "error": err.Error()})
			continue
		}

		description := strings.Replace(tag, "=", ": ", 1)
		if desc, ok := group[0].Properties["description"].(string); ok && desc != "" {
			description = desc
		}
		content := fmt.Sprintf(
			"%s: %s\n\nThis collection includes %d features of type %s.",
			tag, description, len(group), tag,
		)
		docs = append(docs, store.Document{
			Content: content,
			Metadata: map[string]any{
				"tag":      tag,
				"count":    len(group),
				"features": string(fcJSON),
				"source":   c.documentSource(),
			},
		})
	}
	return docs
}

func (c *GeoJSONConnector) documentSource() string {
	if urlPattern.MatchString(c.source) {
		return strings.TrimSuffix(c.source, "/items")
	}
	return "Feature collection hosted from local GeoJSON"
}

func tagValue(f *geojson.Feature, tagName string) string {
	if tagName == "" {
		return "Unknown"
	}
	if value, ok := f.Properties[tagName].(string); ok && value != "" {
		return value
	}
	return "Unknown"
}

// featureDescription renders the feature properties as readable lines, with the
// address components collapsed into a single leading line.
func featureDescription(f *geojson.Feature) string {
	address := make([]string, 0, len(addressKeys))
	isAddressKey := make(map[string]bool, len(addressKeys))
	for _, key := range addressKeys {
		isAddressKey[key] = true
		if value, ok := f.Properties[key].(string); ok && value != "" {
			address = append(address, value)
		}
	}

	keys := make([]string, 0, len(f.Properties))
	for key := range f.Properties {
		if !isAddressKey[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var parts []string
	if len(address) > 0 {
		parts = append(parts, fmt.Sprintf("Address: %s", strings.Join(address, ", ")))
	}
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", key, f.Properties[key]))
	}
	return strings.Join(parts, "\n")
}

// CombineFeatures merges the geometry payloads of retrieved documents into a
// single feature collection. Per-feature documents contribute one feature with
// the document metadata as properties; tag documents contribute their whole
// group. Documents without geometry are skipped.
func CombineFeatures(docs []store.Document) *geojson.FeatureCollection {
	combined := geojson.NewFeatureCollection()
	for _, doc := range docs {
		if doc.Metadata == nil {
			continue
		}
		if raw, ok := doc.Metadata["feature"].(string); ok {
			g, err := geojson.UnmarshalGeometry([]byte(raw))
			if err != nil {
				continue
			}
			f := geojson.NewFeature(g.Geometry())
			f.Properties = geojson.Properties(doc.Metadata)
			combined.Append(f)
			continue
		}
		if raw, ok := doc.Metadata["features"].(string); ok {
			fc, err := geojson.UnmarshalFeatureCollection([]byte(raw))
			if err != nil {
				continue
			}
			combined.Features = append(combined.Features, fc.Features...)
		}
	}
	return combined
}

// SummarizeProperties renders a per-type digest of the feature properties:
// feature count and the distinct descriptions seen for each type.
func SummarizeProperties(fc *geojson.FeatureCollection) string {
	type typeSummary struct {
		count        int
		descriptions []string
	}
	summaries := make(map[string]*typeSummary)
	var order []string

	for _, f := range fc.Features {
		featureType, _ := f.Properties["type"].(string)
		s, ok := summaries[featureType]
		if !ok {
			s = &typeSummary{}
			summaries[featureType] = s
			order = append(order, featureType)
		}
		s.count++

		description, _ := f.Properties["description"].(string)
		if description == "" {
			continue
		}
		seen := false
		for _, d := range s.descriptions {
			if d == description {
				seen = true
				break
			}
		}
		if !seen {
			s.descriptions = append(s.descriptions, description)
		}
	}

	var b strings.Builder
	for _, featureType := range order {
		s := summaries[featureType]
		fmt.Fprintf(&b, "Type: %s (Count: %d)\nDescriptions:\n", featureType, s.count)
		for _, d := range s.descriptions {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// CollectionBounds computes the [minLon, minLat, maxLon, maxLat] bounding box
// of a feature collection.
func CollectionBounds(fc *geojson.FeatureCollection) store.BoundingBox {
	var box store.BoundingBox
	if fc == nil || len(fc.Features) == 0 {
		return box
	}
	bound := fc.Features[0].Geometry.Bound()
	for _, f := range fc.Features[1:] {
		bound = bound.Union(f.Geometry.Bound())
	}
	return store.BoundingBox{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()}
}
