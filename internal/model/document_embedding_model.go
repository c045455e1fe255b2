package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type DocumentEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CollectionName string          `gorm:"type:text;not null;index"`
	DocId          string          `gorm:"type:text;not null;index"` // Source identifier, e.g. a pygeoapi collection URL
	Content        string          `gorm:"type:text"`
	Metadata       datatypes.JSON  `gorm:"type:jsonb"`
	ContentHash    string          `gorm:"type:text"` // Detects re-index updates vs inserts
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text / jina-v2-base-en width
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

func (DocumentEmbedding) TableName() string {
	return "document_embeddings"
}
