package route

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/embedding"
)

type cachedDecision struct {
	RouteName string
	Found     bool
}

// Classifier assigns user utterances to dataset collections by embedding
// similarity against the route table's sample utterances.
type Classifier struct {
	mu       sync.RWMutex
	table    *Table
	memo     *cache.Cache
	provider embedding.EmbeddingProvider
	logger   logger.ILogger
}

func NewClassifier(table *Table, provider embedding.EmbeddingProvider, memoTTL time.Duration, log logger.ILogger) *Classifier {
	if table == nil {
		table = NewTable(nil)
	}
	return &Classifier{
		table:    table,
		memo:     cache.New(memoTTL, 10*time.Minute),
		provider: provider,
		logger:   log,
	}
}

// Swap installs a rebuilt table and flushes memoized decisions, which
// were computed against the old table.
func (c *Classifier) Swap(table *Table) {
	c.mu.Lock()
	c.table = table
	c.memo.Flush()
	c.mu.Unlock()
}

// Table returns the current route table.
func (c *Classifier) Table() *Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// Lookup resolves a collection by route name against the current table.
func (c *Classifier) Lookup(name string) (*entity.Collection, bool) {
	return c.Table().Lookup(name)
}

// Classify returns the best-matching route name for an utterance, or
// found=false when no route clears its threshold. Decisions are memoized
// per (session, normalized text) until the next table swap. Embedding
// failures degrade to "no route": the turn continues on the general path.
func (c *Classifier) Classify(ctx context.Context, sessionID, utterance string) (string, bool) {
	key := sessionID + "|" + strings.ToLower(strings.TrimSpace(utterance))
	if x, ok := c.memo.Get(key); ok {
		d := x.(cachedDecision)
		return d.RouteName, d.Found
	}

	resp, err := c.provider.Generate(utterance, embedding.TaskRetrievalQuery)
	if err != nil {
		c.logger.Warn("ROUTER", "Utterance embedding failed, skipping route classification", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}
	vector := resp.Embedding.Values

	table := c.Table()
	bestName := ""
	bestScore := float32(-1)
	found := false

	for _, r := range table.Routes() {
		score := float32(-1)
		for _, v := range r.Vectors {
			if s := CosineSimilarity(vector, v); s > score {
				score = s
			}
		}
		if score >= r.Collection.ScoreThreshold && score > bestScore {
			bestScore = score
			bestName = r.Collection.Name
			found = true
		}
	}

	c.memo.Set(key, cachedDecision{RouteName: bestName, Found: found}, cache.DefaultExpiration)

	if found {
		c.logger.Debug("ROUTER", "Utterance routed", map[string]interface{}{
			"route": bestName,
			"score": bestScore,
		})
	}
	return bestName, found
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths score zero.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
