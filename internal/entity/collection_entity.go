package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	CollectionKindGeometry = "geometry"
	CollectionKindTextual  = "textual"
)

// Collection describes one searchable dataset index and the routing
// material generated for it.
type Collection struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name             string
	Kind             string
	Description      string
	SampleUtterances []string
	SystemPrompt     string
	ScoreThreshold   float32
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}
