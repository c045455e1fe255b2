package geometry

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"spatial-search-be/pkg/store"
)

// Filter keeps only the documents whose geometry touches the bounding
// box. An empty box is the identity. Documents with missing or
// malformed geometry are dropped silently; input order is preserved.
func Filter(docs []store.Document, bbox store.BoundingBox) []store.Document {
	if bbox.IsZero() {
		return docs
	}

	bound := orb.Bound{
		Min: orb.Point{bbox[0], bbox[1]},
		Max: orb.Point{bbox[2], bbox[3]},
	}

	out := make([]store.Document, 0, len(docs))
	for _, doc := range docs {
		geometries, ok := extractGeometries(doc)
		if !ok {
			continue
		}
		for _, g := range geometries {
			if intersects(bound, g) {
				out = append(out, doc)
				break
			}
		}
	}
	return out
}

// extractGeometries pulls GeoJSON out of the document metadata. Both a
// single "feature" geometry and a "features" collection are understood.
func extractGeometries(doc store.Document) ([]orb.Geometry, bool) {
	if doc.Metadata == nil {
		return nil, false
	}

	if raw, ok := rawJSON(doc.Metadata["feature"]); ok {
		if g, err := geojson.UnmarshalGeometry(raw); err == nil {
			return []orb.Geometry{g.Geometry()}, true
		}
		if f, err := geojson.UnmarshalFeature(raw); err == nil {
			return []orb.Geometry{f.Geometry}, true
		}
	}

	if raw, ok := rawJSON(doc.Metadata["features"]); ok {
		if fc, err := geojson.UnmarshalFeatureCollection(raw); err == nil {
			geometries := make([]orb.Geometry, 0, len(fc.Features))
			for _, f := range fc.Features {
				if f.Geometry != nil {
					geometries = append(geometries, f.Geometry)
				}
			}
			if len(geometries) > 0 {
				return geometries, true
			}
		}
	}

	return nil, false
}

func rawJSON(value any) ([]byte, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		if v == "" {
			return nil, false
		}
		return []byte(v), true
	case []byte:
		if len(v) == 0 {
			return nil, false
		}
		return v, true
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return raw, true
	}
}

// intersects reports whether any coordinate of the geometry falls inside
// the bound. Membership is strictly coordinate based: a polygon enclosing
// the bound or a line crossing it without a vertex inside does not count.
func intersects(bound orb.Bound, g orb.Geometry) bool {
	if g == nil {
		return false
	}
	switch geom := g.(type) {
	case orb.Point:
		return bound.Contains(geom)
	case orb.MultiPoint:
		return anyVertexInBound(bound, geom)
	case orb.LineString:
		return anyVertexInBound(bound, geom)
	case orb.MultiLineString:
		for _, line := range geom {
			if anyVertexInBound(bound, line) {
				return true
			}
		}
		return false
	case orb.Ring:
		return anyVertexInBound(bound, geom)
	case orb.Polygon:
		for _, ring := range geom {
			if anyVertexInBound(bound, ring) {
				return true
			}
		}
		return false
	case orb.MultiPolygon:
		for _, polygon := range geom {
			if intersects(bound, polygon) {
				return true
			}
		}
		return false
	case orb.Bound:
		return anyVertexInBound(bound, []orb.Point{
			geom.Min,
			{geom.Max[0], geom.Min[1]},
			geom.Max,
			{geom.Min[0], geom.Max[1]},
		})
	case orb.Collection:
		for _, sub := range geom {
			if intersects(bound, sub) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func anyVertexInBound(bound orb.Bound, points []orb.Point) bool {
	for _, p := range points {
		if bound.Contains(p) {
			return true
		}
	}
	return false
}
