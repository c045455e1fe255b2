package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Checkpoint rows are append-only. History reads order by created_at.
type Checkpoint struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId uuid.UUID      `gorm:"type:uuid;not null;index"`
	State     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (Checkpoint) TableName() string {
	return "checkpoints"
}
