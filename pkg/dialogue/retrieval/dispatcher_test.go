package retrieval

import (
	"context"
	"errors"
	"testing"

	"spatial-search-be/pkg/embedding"
	"spatial-search-be/pkg/store"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Generate(text, taskType string) (*embedding.EmbeddingResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: s.vector},
	}, nil
}

type stubStore struct {
	results   []ScoredDocument
	err       error
	lastLimit int
}

func (s *stubStore) SearchSimilar(ctx context.Context, collection string, vector []float32, k int) ([]ScoredDocument, error) {
	s.lastLimit = k
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func scored(name string, score float32, vector []float32) ScoredDocument {
	return ScoredDocument{
		Document: store.Document{Content: name},
		Score:    score,
		Vector:   vector,
	}
}

func TestSearchSimilarityMode(t *testing.T) {
	backend := &stubStore{results: []ScoredDocument{
		scored("first", 0.9, nil),
		scored("second", 0.8, nil),
	}}
	d := NewDispatcher(&stubEmbedder{vector: []float32{1, 0}}, backend, nopLogger{})

	docs, err := d.Search(context.Background(), "datasets", "rivers", 5, ModeSimilarity, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 2 || docs[0].Content != "first" || docs[1].Content != "second" {
		t.Errorf("similarity mode must keep backend order, got %+v", docs)
	}
	if backend.lastLimit != 5 {
		t.Errorf("backend queried with limit %d, want 5", backend.lastLimit)
	}
}

func TestSearchThresholdMode(t *testing.T) {
	backend := &stubStore{results: []ScoredDocument{
		scored("strong", 0.9, nil),
		scored("weak", 0.4, nil),
	}}
	d := NewDispatcher(&stubEmbedder{vector: []float32{1, 0}}, backend, nopLogger{})

	docs, err := d.Search(context.Background(), "datasets", "rivers", 5, ModeThreshold, 0.7)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 1 || docs[0].Content != "strong" {
		t.Errorf("threshold mode kept %+v, want only the strong match", docs)
	}
}

func TestSearchMMRPrefersDiversity(t *testing.T) {
	// "first" and "duplicate" point the same way; "diverse" is orthogonal.
	backend := &stubStore{results: []ScoredDocument{
		scored("first", 0.98, []float32{1, 0}),
		scored("duplicate", 0.98, []float32{1, 0}),
		scored("diverse", 0.20, []float32{0, 1}),
	}}
	d := NewDispatcher(&stubEmbedder{vector: []float32{1, 0.2}}, backend, nopLogger{})

	docs, err := d.Search(context.Background(), "datasets", "rivers", 2, ModeMMR, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].Content != "first" || docs[1].Content != "diverse" {
		t.Errorf("MMR picked %q then %q, want first then diverse", docs[0].Content, docs[1].Content)
	}
	if backend.lastLimit != 8 {
		t.Errorf("MMR oversampled with limit %d, want 8 (k*4)", backend.lastLimit)
	}
}

func TestSearchEmbeddingFailure(t *testing.T) {
	d := NewDispatcher(&stubEmbedder{err: errors.New("backend down")}, &stubStore{}, nopLogger{})

	if _, err := d.Search(context.Background(), "datasets", "rivers", 5, ModeSimilarity, 0); err == nil {
		t.Error("expected error when criteria embedding fails")
	}
}

func TestSearchEmptyCollection(t *testing.T) {
	d := NewDispatcher(&stubEmbedder{vector: []float32{1, 0}}, &stubStore{}, nopLogger{})

	docs, err := d.Search(context.Background(), "datasets", "rivers", 5, ModeMMR, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("empty collection returned %d docs", len(docs))
	}
}
