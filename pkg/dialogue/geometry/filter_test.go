package geometry

import (
	"fmt"
	"testing"

	"spatial-search-be/pkg/store"
)

func pointDoc(name string, lon, lat float64) store.Document {
	return store.Document{
		Content: name,
		Metadata: map[string]any{
			"feature": fmt.Sprintf(`{"type":"Point","coordinates":[%g,%g]}`, lon, lat),
		},
	}
}

func TestFilterEmptyBoxIsIdentity(t *testing.T) {
	docs := []store.Document{
		pointDoc("a", 5, 5),
		{Content: "no geometry at all"},
	}

	got := Filter(docs, store.BoundingBox{})
	if len(got) != 2 {
		t.Fatalf("empty box should keep all %d docs, got %d", len(docs), len(got))
	}
}

func TestFilterPointInclusion(t *testing.T) {
	box := store.BoundingBox{0, 0, 1, 1}

	inside := pointDoc("boundary", 0, 0) // boundary counts as inside
	center := pointDoc("center", 0.5, 0.5)
	outside := pointDoc("outside", 5, 5)

	got := Filter([]store.Document{inside, center, outside}, box)
	if len(got) != 2 {
		t.Fatalf("got %d docs, want 2", len(got))
	}
	if got[0].Content != "boundary" || got[1].Content != "center" {
		t.Errorf("order not preserved: %q, %q", got[0].Content, got[1].Content)
	}
}

func TestFilterDropsMissingAndMalformedGeometry(t *testing.T) {
	box := store.BoundingBox{0, 0, 10, 10}

	docs := []store.Document{
		{Content: "no metadata"},
		{Content: "empty feature", Metadata: map[string]any{"feature": ""}},
		{Content: "garbage", Metadata: map[string]any{"feature": "not json"}},
		pointDoc("valid", 5, 5),
	}

	got := Filter(docs, box)
	if len(got) != 1 || got[0].Content != "valid" {
		t.Fatalf("expected only the valid doc to survive, got %+v", got)
	}
}

func TestFilterFeatureCollection(t *testing.T) {
	box := store.BoundingBox{0, 0, 1, 1}

	doc := store.Document{
		Content: "grouped",
		Metadata: map[string]any{
			"features": `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[50,50]}},
				{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[0.5,0.5]}}
			]}`,
		},
	}
	farAway := store.Document{
		Content: "far",
		Metadata: map[string]any{
			"features": `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[50,50]}}
			]}`,
		},
	}

	got := Filter([]store.Document{doc, farAway}, box)
	if len(got) != 1 || got[0].Content != "grouped" {
		t.Fatalf("expected the collection with one inside point to survive, got %+v", got)
	}
}

func TestFilterRequiresVertexInsideBox(t *testing.T) {
	box := store.BoundingBox{0, 0, 1, 1}

	// Envelope overlap alone is not membership: neither the polygon
	// enclosing the box nor the line crossing it has a vertex inside.
	surrounding := store.Document{
		Content: "surrounding polygon",
		Metadata: map[string]any{
			"feature": `{"type":"Polygon","coordinates":[[[-5,-5],[5,-5],[5,5],[-5,5],[-5,-5]]]}`,
		},
	}
	crossing := store.Document{
		Content: "crossing line",
		Metadata: map[string]any{
			"feature": `{"type":"LineString","coordinates":[[-1,0.5],[2,0.5]]}`,
		},
	}
	touching := store.Document{
		Content: "line with endpoint inside",
		Metadata: map[string]any{
			"feature": `{"type":"LineString","coordinates":[[0.5,0.5],[9,9]]}`,
		},
	}

	got := Filter([]store.Document{surrounding, crossing, touching}, box)
	if len(got) != 1 || got[0].Content != "line with endpoint inside" {
		t.Fatalf("only the geometry with a vertex inside may survive, got %+v", got)
	}
}

func TestFilterPolygonOverlap(t *testing.T) {
	box := store.BoundingBox{0, 0, 1, 1}

	// Polygon straddling the box boundary
	overlapping := store.Document{
		Content: "polygon",
		Metadata: map[string]any{
			"feature": `{"type":"Polygon","coordinates":[[[0.5,0.5],[2,0.5],[2,2],[0.5,2],[0.5,0.5]]]}`,
		},
	}

	got := Filter([]store.Document{overlapping}, box)
	if len(got) != 1 {
		t.Fatalf("overlapping polygon should be kept, got %d docs", len(got))
	}
}
