package contract

import (
	"context"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/repository/specification"
)

type CollectionRepository interface {
	Create(ctx context.Context, collection *entity.Collection) error
	Update(ctx context.Context, collection *entity.Collection) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Collection, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Collection, error)
	DeleteByName(ctx context.Context, name string) error
}
