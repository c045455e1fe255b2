package smalltalk

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/dialogue/route"
	"spatial-search-be/pkg/embedding"
)

// Reference chitchat utterances. An incoming message close enough to any
// of these is treated as small talk rather than a search request.
var referenceUtterances = []string{
	"hello",
	"hi there",
	"hey, how are you?",
	"good morning",
	"what can you do?",
	"who are you?",
	"thanks a lot",
	"how is it going?",
}

var keywordFallbacks = []string{
	"hello", "hi", "hey", "good morning", "good afternoon",
	"good evening", "how are you", "thanks", "thank you", "who are you",
}

// Classifier detects conversational chitchat by embedding similarity,
// falling back to keyword matching when the embedding backend is down.
type Classifier struct {
	provider  embedding.EmbeddingProvider
	threshold float32
	logger    logger.ILogger

	mu      sync.Mutex
	vectors [][]float32
}

func NewClassifier(provider embedding.EmbeddingProvider, threshold float32, log logger.ILogger) *Classifier {
	if threshold <= 0 {
		threshold = 0.82
	}
	return &Classifier{
		provider:  provider,
		threshold: threshold,
		logger:    log,
	}
}

// IsChitchat reports whether the message is small talk.
func (c *Classifier) IsChitchat(ctx context.Context, message string) bool {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return false
	}

	vectors := c.referenceVectors()

	if len(vectors) > 0 {
		resp, err := c.provider.Generate(trimmed, embedding.TaskRetrievalQuery)
		if err == nil {
			for _, v := range vectors {
				if route.CosineSimilarity(resp.Embedding.Values, v) >= c.threshold {
					return true
				}
			}
			return false
		}
		c.logger.Warn("SMALLTALK", "Message embedding failed, using keyword fallback", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return c.keywordMatch(trimmed)
}

// referenceVectors lazily embeds the reference utterances. A failed
// attempt leaves the cache empty so the next message retries.
func (c *Classifier) referenceVectors() [][]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vectors != nil {
		return c.vectors
	}

	vectors := make([][]float32, 0, len(referenceUtterances))
	for _, u := range referenceUtterances {
		resp, err := c.provider.Generate(u, embedding.TaskRetrievalDocument)
		if err != nil {
			c.logger.Warn("SMALLTALK", "Reference embedding failed, keyword fallback only", map[string]interface{}{
				"utterance": u,
				"error":     err.Error(),
			})
			return nil
		}
		vectors = append(vectors, resp.Embedding.Values)
	}
	c.vectors = vectors
	return c.vectors
}

// keywordMatch compares whole words only, so "hi" does not fire on
// "this" or "historical".
func (c *Classifier) keywordMatch(message string) bool {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	normalized := strings.Join(words, " ")
	for _, kw := range keywordFallbacks {
		if normalized == kw ||
			strings.HasPrefix(normalized, kw+" ") ||
			strings.HasSuffix(normalized, " "+kw) ||
			strings.Contains(normalized, " "+kw+" ") {
			return true
		}
	}
	return false
}
