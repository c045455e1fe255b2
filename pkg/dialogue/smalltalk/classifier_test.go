package smalltalk

import (
	"context"
	"errors"
	"testing"

	"spatial-search-be/pkg/embedding"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// vectorEmbedder maps known texts to fixed vectors and embeds every
// reference utterance along the chitchat axis.
type vectorEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (e *vectorEmbedder) Generate(text, taskType string) (*embedding.EmbeddingResponse, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	v, ok := e.vectors[text]
	if !ok {
		v = []float32{1, 0}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: v},
	}, nil
}

func TestIsChitchatByEmbedding(t *testing.T) {
	provider := &vectorEmbedder{vectors: map[string][]float32{
		"howdy partner":            {1, 0},
		"flood zones in Rotterdam": {0, 1},
	}}
	c := NewClassifier(provider, 0.82, nopLogger{})

	if !c.IsChitchat(context.Background(), "howdy partner") {
		t.Error("greeting aligned with reference vectors must be chitchat")
	}
	if c.IsChitchat(context.Background(), "flood zones in Rotterdam") {
		t.Error("orthogonal dataset query must not be chitchat")
	}
}

func TestIsChitchatEmptyMessage(t *testing.T) {
	provider := &vectorEmbedder{}
	c := NewClassifier(provider, 0.82, nopLogger{})

	if c.IsChitchat(context.Background(), "   ") {
		t.Error("blank message must not be chitchat")
	}
	if provider.calls != 0 {
		t.Errorf("blank message triggered %d embedding calls", provider.calls)
	}
}

func TestIsChitchatKeywordFallback(t *testing.T) {
	provider := &vectorEmbedder{err: errors.New("embedding backend down")}
	c := NewClassifier(provider, 0.82, nopLogger{})

	if !c.IsChitchat(context.Background(), "Hello, anyone home?") {
		t.Error("keyword fallback must catch greetings when embedding is down")
	}
	if c.IsChitchat(context.Background(), "land parcels near the river") {
		t.Error("keyword fallback must reject dataset queries")
	}
}

func TestKeywordFallbackMatchesWholeWords(t *testing.T) {
	provider := &vectorEmbedder{err: errors.New("embedding backend down")}
	c := NewClassifier(provider, 0.82, nopLogger{})

	cases := []struct {
		message string
		want    bool
	}{
		{"hi", true},
		{"Hello, anyone home?", true},
		{"good morning to you", true},
		{"show me historical flood data for Cologne", false},
		{"which datasets cover this region?", false},
		{"heyday of cartography", false},
	}
	for _, tc := range cases {
		if got := c.IsChitchat(context.Background(), tc.message); got != tc.want {
			t.Errorf("IsChitchat(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestReferenceVectorsRetryAfterFailure(t *testing.T) {
	provider := &vectorEmbedder{err: errors.New("embedding backend down")}
	c := NewClassifier(provider, 0.82, nopLogger{})

	// First call fails while embedding references and falls back to keywords.
	if c.IsChitchat(context.Background(), "regional soil maps") {
		t.Error("dataset query must not be chitchat via keyword fallback")
	}

	// Backend recovers; the reference cache must be rebuilt.
	provider.err = nil
	provider.vectors = map[string][]float32{"hi there again": {1, 0}}
	if !c.IsChitchat(context.Background(), "hi there again") {
		t.Error("classifier must retry reference embedding after recovery")
	}
}
