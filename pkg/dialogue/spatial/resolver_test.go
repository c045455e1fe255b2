package spatial

import (
	"context"
	"errors"
	"testing"

	"spatial-search-be/pkg/llm"
	"spatial-search-be/pkg/store"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// scriptedLLM replays canned responses in call order.
type scriptedLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedLLM) next() (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	return s.next()
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.next()
}

type stubGazetteer struct {
	places []Place
	err    error
	query  string
}

func (s *stubGazetteer) SearchPlace(ctx context.Context, name string) ([]Place, error) {
	s.query = name
	return s.places, s.err
}

func TestResolveHappyPath(t *testing.T) {
	provider := &scriptedLLM{responses: []string{
		`{"spatial":"Berlin","scale":"City"}`,
		`2`,
	}}
	gaz := &stubGazetteer{places: []Place{
		{Name: "Berlin", Country: "USA", Type: "city", Extent: []float64{-71.3, 44.5, -71.2, 44.4}},
		{Name: "Berlin", Country: "Germany", Type: "city", Extent: []float64{13.1, 52.7, 13.8, 52.3}},
	}}
	r := NewResolver(provider, gaz, nopLogger{})

	result := r.Resolve(context.Background(), "air quality Berlin")

	if !result.Found {
		t.Fatal("expected a resolved extent")
	}
	if gaz.query != "Berlin" {
		t.Errorf("gazetteer queried with %q, want Berlin", gaz.query)
	}
	// [west, north, east, south] reordered to [minLon, minLat, maxLon, maxLat]
	want := store.BoundingBox{13.1, 52.3, 13.8, 52.7}
	if result.Extent != want {
		t.Errorf("Extent = %v, want %v", result.Extent, want)
	}
	if result.Scale != ScaleCity {
		t.Errorf("Scale = %q, want %q", result.Scale, ScaleCity)
	}
}

func TestResolveNoSpatialEntity(t *testing.T) {
	provider := &scriptedLLM{responses: []string{
		`{"spatial":"","scale":"Global"}`,
	}}
	r := NewResolver(provider, &stubGazetteer{}, nopLogger{})

	result := r.Resolve(context.Background(), "any good datasets?")
	if result.Found {
		t.Error("no entity must mean no extent")
	}
}

func TestResolveGazetteerFailure(t *testing.T) {
	provider := &scriptedLLM{responses: []string{
		`{"spatial":"Atlantis","scale":"City"}`,
	}}
	gaz := &stubGazetteer{err: errors.New("gazetteer down")}
	r := NewResolver(provider, gaz, nopLogger{})

	result := r.Resolve(context.Background(), "maps of Atlantis")
	if result.Found {
		t.Error("gazetteer failure must degrade to Found=false")
	}
	if result.Entity != "Atlantis" {
		t.Errorf("Entity = %q, extracted entity should survive", result.Entity)
	}
}

func TestResolveSkipsCandidatesWithoutExtent(t *testing.T) {
	provider := &scriptedLLM{responses: []string{
		`{"spatial":"Springfield","scale":"City"}`,
	}}
	gaz := &stubGazetteer{places: []Place{
		{Name: "Springfield", Country: "USA", Type: "city"}, // no extent
	}}
	r := NewResolver(provider, gaz, nopLogger{})

	result := r.Resolve(context.Background(), "Springfield data")
	if result.Found {
		t.Error("candidates without extents are unusable")
	}
}

func TestResolvePickerFailureFallsBackToFirst(t *testing.T) {
	provider := &scriptedLLM{
		responses: []string{`{"spatial":"Berlin","scale":"City"}`, ""},
		errs:      []error{nil, errors.New("picker down")},
	}
	gaz := &stubGazetteer{places: []Place{
		{Name: "Berlin", Country: "Germany", Type: "city", Extent: []float64{13.1, 52.7, 13.8, 52.3}},
		{Name: "Berlin", Country: "USA", Type: "city", Extent: []float64{-71.3, 44.5, -71.2, 44.4}},
	}}
	r := NewResolver(provider, gaz, nopLogger{})

	result := r.Resolve(context.Background(), "air quality Berlin")
	if !result.Found {
		t.Fatal("expected fallback to first candidate")
	}
	want := store.BoundingBox{13.1, 52.3, 13.8, 52.7}
	if result.Extent != want {
		t.Errorf("Extent = %v, want first candidate %v", result.Extent, want)
	}
}

func TestNormalizeScaleDefaults(t *testing.T) {
	if got := normalizeScale("galactic"); got != ScaleRegional {
		t.Errorf("unknown scale normalized to %q, want %q", got, ScaleRegional)
	}
	if got := normalizeScale(" NATIONAL "); got != ScaleNational {
		t.Errorf("scale = %q, want %q", got, ScaleNational)
	}
}
