package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BySessionID filters checkpoints belonging to one dialogue session
type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByCollectionName filters rows belonging to one dataset collection
type ByCollectionName struct {
	Name string
}

func (s ByCollectionName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("collection_name = ?", s.Name)
}

// ByName filters by the unique name column
type ByName struct {
	Name string
}

func (s ByName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("name = ?", s.Name)
}

// ByDocID filters document embeddings by their external source identifier
type ByDocID struct {
	DocID string
}

func (s ByDocID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("doc_id = ?", s.DocID)
}
