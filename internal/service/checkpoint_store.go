package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/repository/specification"
	"spatial-search-be/internal/repository/unitofwork"
	"spatial-search-be/pkg/dialogue"
	"spatial-search-be/pkg/store"
)

type checkpointStore struct {
	uowFactory unitofwork.RepositoryFactory
}

// NewCheckpointStore backs the dialogue checkpointer with the checkpoints
// table. Appends run in a transaction so a turn leaves exactly one new
// checkpoint or none.
func NewCheckpointStore(uowFactory unitofwork.RepositoryFactory) dialogue.Checkpointer {
	return &checkpointStore{uowFactory: uowFactory}
}

func (c *checkpointStore) Append(ctx context.Context, sessionID uuid.UUID, state store.ConversationState) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	checkpoint := &entity.Checkpoint{
		Id:        uuid.New(),
		SessionId: sessionID,
		State:     state,
		CreatedAt: time.Now(),
	}
	if err := uow.CheckpointRepository().Create(ctx, checkpoint); err != nil {
		return err
	}
	return uow.Commit()
}

func (c *checkpointStore) List(ctx context.Context, sessionID uuid.UUID) ([]store.Checkpoint, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	entities, err := uow.CheckpointRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	checkpoints := make([]store.Checkpoint, 0, len(entities))
	for _, e := range entities {
		checkpoints = append(checkpoints, store.Checkpoint{
			Id:        e.Id,
			SessionId: e.SessionId,
			State:     e.State,
			CreatedAt: e.CreatedAt,
		})
	}
	return checkpoints, nil
}

func (c *checkpointStore) DeleteAll(ctx context.Context, sessionID uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.CheckpointRepository().DeleteBySessionId(ctx, sessionID); err != nil {
		return err
	}
	return uow.Commit()
}
