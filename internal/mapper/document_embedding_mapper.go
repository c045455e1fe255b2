package mapper

import (
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/model"
)

type DocumentEmbeddingMapper struct{}

func NewDocumentEmbeddingMapper() *DocumentEmbeddingMapper {
	return &DocumentEmbeddingMapper{}
}

func (m *DocumentEmbeddingMapper) ToEntity(e *model.DocumentEmbedding) *entity.DocumentEmbedding {
	if e == nil {
		return nil
	}

	var metadata map[string]any
	if len(e.Metadata) > 0 {
		_ = json.Unmarshal(e.Metadata, &metadata)
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.DocumentEmbedding{
		Id:             e.Id,
		CollectionName: e.CollectionName,
		DocId:          e.DocId,
		Content:        e.Content,
		Metadata:       metadata,
		ContentHash:    e.ContentHash,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *DocumentEmbeddingMapper) ToModel(e *entity.DocumentEmbedding) *model.DocumentEmbedding {
	if e == nil {
		return nil
	}

	var metadata datatypes.JSON
	if e.Metadata != nil {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.DocumentEmbedding{
		Id:             e.Id,
		CollectionName: e.CollectionName,
		DocId:          e.DocId,
		Content:        e.Content,
		Metadata:       metadata,
		ContentHash:    e.ContentHash,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *DocumentEmbeddingMapper) ToEntities(embeddings []*model.DocumentEmbedding) []*entity.DocumentEmbedding {
	entities := make([]*entity.DocumentEmbedding, len(embeddings))
	for i, e := range embeddings {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

func (m *DocumentEmbeddingMapper) ToModels(embeddings []*entity.DocumentEmbedding) []*model.DocumentEmbedding {
	models := make([]*model.DocumentEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = m.ToModel(e)
	}
	return models
}
