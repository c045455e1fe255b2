package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentEmbedding struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	CollectionName string
	DocId          string
	Content        string
	Metadata       map[string]any
	ContentHash    string
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
