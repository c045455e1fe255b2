package contract

import (
	"context"

	"github.com/google/uuid"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/repository/specification"
)

type CheckpointRepository interface {
	Create(ctx context.Context, checkpoint *entity.Checkpoint) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Checkpoint, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Checkpoint, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// DeleteBySessionId hard-deletes a session's full history.
	DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error
}
