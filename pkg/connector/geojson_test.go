package connector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"spatial-search-be/pkg/store"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

const sampleGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"id": "way/1",
			"geometry": {"type": "Point", "coordinates": [4.9, 52.37]},
			"properties": {
				"name": "Westertoren",
				"building": "church",
				"addr:street": "Prinsengracht",
				"addr:city": "Amsterdam"
			}
		},
		{
			"type": "Feature",
			"id": "way/2",
			"geometry": {"type": "Point", "coordinates": [4.88, 52.36]},
			"properties": {"building": "yes"}
		},
		{
			"type": "Feature",
			"id": "way/3",
			"geometry": {"type": "Point", "coordinates": [4.91, 52.35]},
			"properties": {"building": "church"}
		}
	]
}`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "buildings.geojson")
	if err := os.WriteFile(path, []byte(sampleGeoJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadDocumentsFromLocalDirectory(t *testing.T) {
	c := NewGeoJSONConnector(writeSample(t), "building", nopLogger{})

	docs, err := c.LoadDocuments(context.Background())
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}

	// One named feature document plus one building=church tag summary;
	// the bare building=yes feature is dropped.
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	named := docs[0]
	if !strings.HasPrefix(named.Content, "Name: Westertoren") {
		t.Errorf("name document content = %q", named.Content)
	}
	if !strings.Contains(named.Content, "Address: Prinsengracht, Amsterdam") {
		t.Errorf("address line missing from %q", named.Content)
	}
	if named.Metadata["type"] != "church" {
		t.Errorf("type metadata = %v", named.Metadata["type"])
	}
	if _, ok := named.Metadata["feature"].(string); !ok {
		t.Error("name document must carry its geometry as JSON")
	}

	summary := docs[1]
	if summary.Metadata["tag"] != "building=church" {
		t.Errorf("tag metadata = %v", summary.Metadata["tag"])
	}
	if summary.Metadata["count"] != 2 {
		t.Errorf("count metadata = %v, want 2", summary.Metadata["count"])
	}
	raw, ok := summary.Metadata["features"].(string)
	if !ok {
		t.Fatal("tag document must carry its grouped feature collection as JSON")
	}
	fc, err := geojson.UnmarshalFeatureCollection([]byte(raw))
	if err != nil {
		t.Fatalf("grouped features does not parse: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Errorf("grouped collection has %d features, want 2", len(fc.Features))
	}
}

func TestLoadDocumentsSingleFile(t *testing.T) {
	path := filepath.Join(writeSample(t), "buildings.geojson")
	c := NewGeoJSONConnector(path, "building", nopLogger{})

	docs, err := c.LoadDocuments(context.Background())
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("got %d documents, want 2", len(docs))
	}
}

func TestLoadDocumentsNoFiles(t *testing.T) {
	c := NewGeoJSONConnector(t.TempDir(), "building", nopLogger{})

	if _, err := c.LoadDocuments(context.Background()); err == nil {
		t.Error("expected error for a directory without geojson files")
	}
}

func TestLoadDocumentsWithoutTagKeepsAllFeatures(t *testing.T) {
	c := NewGeoJSONConnector(writeSample(t), "", nopLogger{})

	docs, err := c.LoadDocuments(context.Background())
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	// No tag grouping and no filtering, so only the single named feature
	// becomes a document.
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0].Metadata["type"] != "Unknown" {
		t.Errorf("type metadata = %v, want Unknown", docs[0].Metadata["type"])
	}
}

func TestCombineFeatures(t *testing.T) {
	docs := []store.Document{
		{
			Content: "single feature",
			Metadata: map[string]any{
				"feature": `{"type":"Point","coordinates":[4.9,52.37]}`,
				"type":    "church",
			},
		},
		{
			Content: "grouped features",
			Metadata: map[string]any{
				"features": `{"type":"FeatureCollection","features":[
					{"type":"Feature","geometry":{"type":"Point","coordinates":[4.88,52.36]},"properties":{"type":"tower"}},
					{"type":"Feature","geometry":{"type":"Point","coordinates":[4.91,52.35]},"properties":{"type":"tower"}}
				]}`,
			},
		},
		{Content: "no geometry"},
		{Content: "broken", Metadata: map[string]any{"feature": "not geojson"}},
	}

	fc := CombineFeatures(docs)
	if len(fc.Features) != 3 {
		t.Fatalf("combined %d features, want 3", len(fc.Features))
	}
	if fc.Features[0].Properties["type"] != "church" {
		t.Errorf("first feature properties = %v", fc.Features[0].Properties)
	}

	summary := SummarizeProperties(fc)
	if !strings.Contains(summary, "Type: church (Count: 1)") {
		t.Errorf("summary missing church line:\n%s", summary)
	}
	if !strings.Contains(summary, "Type: tower (Count: 2)") {
		t.Errorf("summary missing tower line:\n%s", summary)
	}
}

func TestCollectionBounds(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{4.88, 52.35}))
	fc.Append(geojson.NewFeature(orb.Point{4.91, 52.37}))

	got := CollectionBounds(fc)
	want := store.BoundingBox{4.88, 52.35, 4.91, 52.37}
	if got != want {
		t.Errorf("CollectionBounds = %v, want %v", got, want)
	}

	var empty store.BoundingBox
	if CollectionBounds(nil) != empty {
		t.Error("nil collection must yield the zero box")
	}
}
