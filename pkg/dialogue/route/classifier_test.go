package route

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"spatial-search-be/internal/entity"
	"spatial-search-be/pkg/embedding"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type stubEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (s *stubEmbedder) Generate(text, taskType string) (*embedding.EmbeddingResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	vec, ok := s.vectors[text]
	if !ok {
		vec = []float32{0, 0, 1}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}

func testTable(threshold float32) *Table {
	return NewTable([]Route{
		{
			Collection: &entity.Collection{
				Id:             uuid.New(),
				Name:           "environmental",
				ScoreThreshold: threshold,
			},
			Vectors: [][]float32{{1, 0, 0}},
		},
		{
			Collection: &entity.Collection{
				Id:             uuid.New(),
				Name:           "buildings",
				ScoreThreshold: threshold,
			},
			Vectors: [][]float32{{0, 1, 0}},
		},
	})
}

func TestClassifyPicksBestRoute(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"air quality data": {0.9, 0.1, 0},
	}}
	c := NewClassifier(testTable(0.7), embedder, time.Minute, nopLogger{})

	name, ok := c.Classify(context.Background(), "session-1", "air quality data")
	if !ok {
		t.Fatal("expected a route match")
	}
	if name != "environmental" {
		t.Errorf("route = %q, want environmental", name)
	}
}

func TestClassifyBelowThreshold(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"what is the weather": {0.5, 0.5, 0.7},
	}}
	c := NewClassifier(testTable(0.9), embedder, time.Minute, nopLogger{})

	if _, ok := c.Classify(context.Background(), "session-1", "what is the weather"); ok {
		t.Error("low similarity should not match any route")
	}
}

func TestClassifyMemoizesPerSessionAndText(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"air quality data": {0.9, 0.1, 0},
	}}
	c := NewClassifier(testTable(0.7), embedder, time.Minute, nopLogger{})
	ctx := context.Background()

	c.Classify(ctx, "session-1", "air quality data")
	c.Classify(ctx, "session-1", "  Air Quality Data  ") // same after normalization
	if embedder.calls != 1 {
		t.Errorf("embedder called %d times, want 1 (memoized)", embedder.calls)
	}

	c.Classify(ctx, "session-2", "air quality data")
	if embedder.calls != 2 {
		t.Errorf("embedder called %d times, want 2 (different session)", embedder.calls)
	}
}

func TestSwapFlushesMemo(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"air quality data": {0.9, 0.1, 0},
	}}
	c := NewClassifier(testTable(0.7), embedder, time.Minute, nopLogger{})
	ctx := context.Background()

	name, _ := c.Classify(ctx, "session-1", "air quality data")
	if name != "environmental" {
		t.Fatalf("route = %q, want environmental", name)
	}

	// New table drops the matched route entirely
	c.Swap(NewTable([]Route{
		{
			Collection: &entity.Collection{
				Id:             uuid.New(),
				Name:           "buildings",
				ScoreThreshold: 0.7,
			},
			Vectors: [][]float32{{0, 1, 0}},
		},
	}))

	if _, ok := c.Classify(ctx, "session-1", "air quality data"); ok {
		t.Error("stale memoized decision survived a table swap")
	}
	if embedder.calls != 2 {
		t.Errorf("embedder called %d times, want 2 (re-classified after swap)", embedder.calls)
	}
}

func TestClassifyEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("backend down")}
	c := NewClassifier(testTable(0.7), embedder, time.Minute, nopLogger{})

	if _, ok := c.Classify(context.Background(), "session-1", "air quality data"); ok {
		t.Error("embedding failure must degrade to no route")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float32
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
