package contract

import (
	"context"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/repository/specification"
)

// ScoredDocumentEmbedding wraps DocumentEmbedding with its similarity score
type ScoredDocumentEmbedding struct {
	Embedding  *entity.DocumentEmbedding
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type DocumentEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.DocumentEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.DocumentEmbedding) error
	Update(ctx context.Context, embedding *entity.DocumentEmbedding) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentEmbedding, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentEmbedding, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteByCollection(ctx context.Context, collection string) error
	DeleteByDocId(ctx context.Context, collection, docId string) error
	// SearchSimilarWithScore runs a cosine nearest-neighbour search within
	// one collection and returns candidates ordered by similarity.
	SearchSimilarWithScore(ctx context.Context, collection string, embedding []float32, limit int) ([]*ScoredDocumentEmbedding, error)
}
