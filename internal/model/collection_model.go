package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Collection struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name             string         `gorm:"type:text;not null;uniqueIndex"`
	Kind             string         `gorm:"type:text;not null;default:'textual'"` // "geometry" or "textual"
	Description      string         `gorm:"type:text"`
	SampleUtterances datatypes.JSON `gorm:"type:jsonb"`
	SystemPrompt     string         `gorm:"type:text"`
	ScoreThreshold   float32        `gorm:"default:0.7"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
}

func (Collection) TableName() string {
	return "collections"
}
