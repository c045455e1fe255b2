package unitofwork

import (
	"context"

	"spatial-search-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	CheckpointRepository() contract.CheckpointRepository
	CollectionRepository() contract.CollectionRepository
	DocumentEmbeddingRepository() contract.DocumentEmbeddingRepository
}
