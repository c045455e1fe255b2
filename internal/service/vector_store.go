package service

import (
	"context"

	"spatial-search-be/internal/repository/unitofwork"
	"spatial-search-be/pkg/dialogue/retrieval"
	"spatial-search-be/pkg/store"
)

type vectorStore struct {
	uowFactory unitofwork.RepositoryFactory
}

// NewVectorStore backs the retrieval dispatcher with pgvector similarity
// search over the document_embeddings table.
func NewVectorStore(uowFactory unitofwork.RepositoryFactory) retrieval.Store {
	return &vectorStore{uowFactory: uowFactory}
}

func (v *vectorStore) SearchSimilar(ctx context.Context, collection string, vector []float32, k int) ([]retrieval.ScoredDocument, error) {
	uow := v.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.DocumentEmbeddingRepository().SearchSimilarWithScore(ctx, collection, vector, k)
	if err != nil {
		return nil, err
	}

	results := make([]retrieval.ScoredDocument, 0, len(scored))
	for _, s := range scored {
		results = append(results, retrieval.ScoredDocument{
			Document: store.Document{
				Content:  s.Embedding.Content,
				Metadata: s.Embedding.Metadata,
			},
			Score:  float32(s.Similarity),
			Vector: s.Embedding.EmbeddingValue,
		})
	}
	return results, nil
}
