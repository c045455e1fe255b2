package implementation

import (
	"context"
	"errors"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/mapper"
	"spatial-search-be/internal/model"
	"spatial-search-be/internal/repository/contract"
	"spatial-search-be/internal/repository/specification"
)

type DocumentEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentEmbeddingMapper
}

func NewDocumentEmbeddingRepository(db *gorm.DB) contract.DocumentEmbeddingRepository {
	return &DocumentEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentEmbeddingMapper(),
	}
}

func (r *DocumentEmbeddingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentEmbeddingRepositoryImpl) Create(ctx context.Context, embedding *entity.DocumentEmbedding) error {
	m := r.mapper.ToModel(embedding)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*embedding = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.DocumentEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	models := r.mapper.ToModels(embeddings)
	if err := r.db.WithContext(ctx).CreateInBatches(models, 100).Error; err != nil {
		return err
	}
	for i, m := range models {
		*embeddings[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *DocumentEmbeddingRepositoryImpl) Update(ctx context.Context, embedding *entity.DocumentEmbedding) error {
	m := r.mapper.ToModel(embedding)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*embedding = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentEmbeddingRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentEmbedding, error) {
	var m model.DocumentEmbedding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentEmbeddingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentEmbedding, error) {
	var models []*model.DocumentEmbedding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentEmbeddingRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DocumentEmbedding{}).Count(&count).Error
	return count, err
}

func (r *DocumentEmbeddingRepositoryImpl) DeleteByCollection(ctx context.Context, collection string) error {
	return r.db.WithContext(ctx).Where("collection_name = ?", collection).Delete(&model.DocumentEmbedding{}).Error
}

func (r *DocumentEmbeddingRepositoryImpl) DeleteByDocId(ctx context.Context, collection, docId string) error {
	return r.db.WithContext(ctx).
		Where("collection_name = ?", collection).
		Where("doc_id = ?", docId).
		Delete(&model.DocumentEmbedding{}).Error
}

// SearchSimilarWithScore runs a cosine nearest-neighbour query scoped to a
// collection. pgvector's <=> operator is cosine distance, so similarity is
// 1 - distance.
func (r *DocumentEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, collection string, embedding []float32, limit int) ([]*contract.ScoredDocumentEmbedding, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.DocumentEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("document_embeddings").
		Select("document_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("collection_name = ?", collection).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredDocumentEmbedding, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredDocumentEmbedding{
			Embedding:  r.mapper.ToEntity(&res.DocumentEmbedding),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
