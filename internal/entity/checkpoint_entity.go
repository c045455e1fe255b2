package entity

import (
	"time"

	"github.com/google/uuid"

	"spatial-search-be/pkg/store"
)

type Checkpoint struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId uuid.UUID `gorm:"type:uuid;index"`
	State     store.ConversationState
	CreatedAt time.Time
}
