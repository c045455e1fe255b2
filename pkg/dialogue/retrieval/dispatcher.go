package retrieval

import (
	"context"
	"fmt"

	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/dialogue/route"
	"spatial-search-be/pkg/embedding"
	"spatial-search-be/pkg/store"
)

// SearchMode selects how candidates are ranked.
type SearchMode string

const (
	ModeSimilarity SearchMode = "similarity"
	ModeMMR        SearchMode = "mmr"
	ModeThreshold  SearchMode = "similarity_score_threshold"
)

// mmrLambda balances query relevance against diversity in MMR mode.
const mmrLambda = 0.5

// ScoredDocument is a retrieval candidate with its similarity score and,
// when the backend returns it, the stored vector (needed for MMR).
type ScoredDocument struct {
	Document store.Document
	Score    float32
	Vector   []float32
}

// Store is the vector search backend.
type Store interface {
	SearchSimilar(ctx context.Context, collection string, vector []float32, k int) ([]ScoredDocument, error)
}

// Dispatcher embeds the search criteria and queries the vector store.
type Dispatcher struct {
	provider embedding.EmbeddingProvider
	store    Store
	logger   logger.ILogger
}

func NewDispatcher(provider embedding.EmbeddingProvider, vectorStore Store, log logger.ILogger) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		store:    vectorStore,
		logger:   log,
	}
}

// Search returns up to k documents from the collection. scoreThreshold
// only applies in ModeThreshold.
func (d *Dispatcher) Search(ctx context.Context, collection, criteria string, k int, mode SearchMode, scoreThreshold float32) ([]store.Document, error) {
	if k <= 0 {
		k = 20
	}

	resp, err := d.provider.Generate(criteria, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed search criteria: %w", err)
	}
	queryVector := resp.Embedding.Values

	switch mode {
	case ModeMMR:
		return d.searchMMR(ctx, collection, queryVector, k)
	case ModeThreshold:
		candidates, err := d.store.SearchSimilar(ctx, collection, queryVector, k)
		if err != nil {
			return nil, err
		}
		docs := make([]store.Document, 0, len(candidates))
		for _, c := range candidates {
			if c.Score >= scoreThreshold {
				docs = append(docs, c.Document)
			}
		}
		return docs, nil
	default:
		candidates, err := d.store.SearchSimilar(ctx, collection, queryVector, k)
		if err != nil {
			return nil, err
		}
		docs := make([]store.Document, len(candidates))
		for i, c := range candidates {
			docs[i] = c.Document
		}
		return docs, nil
	}
}

// searchMMR greedily re-ranks an oversampled candidate set so results
// cover distinct datasets instead of near-duplicates.
func (d *Dispatcher) searchMMR(ctx context.Context, collection string, queryVector []float32, k int) ([]store.Document, error) {
	candidates, err := d.store.SearchSimilar(ctx, collection, queryVector, k*4)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	selected := make([]ScoredDocument, 0, k)
	remaining := make([]ScoredDocument, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := float32(-2)

		for i, c := range remaining {
			relevance := route.CosineSimilarity(queryVector, c.Vector)
			redundancy := float32(0)
			for _, s := range selected {
				if sim := route.CosineSimilarity(c.Vector, s.Vector); sim > redundancy {
					redundancy = sim
				}
			}
			mmr := mmrLambda*relevance - (1-mmrLambda)*redundancy
			if mmr > bestScore {
				bestScore = mmr
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	docs := make([]store.Document, len(selected))
	for i, s := range selected {
		docs[i] = s.Document
	}

	d.logger.Debug("RETRIEVAL", "MMR re-ranking complete", map[string]interface{}{
		"collection": collection,
		"candidates": len(candidates),
		"selected":   len(docs),
	})
	return docs, nil
}
