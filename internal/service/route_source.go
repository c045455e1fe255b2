package service

import (
	"context"
	"time"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/repository/specification"
	"spatial-search-be/internal/repository/unitofwork"
	"spatial-search-be/pkg/dialogue/route"
)

type routeSource struct {
	uowFactory unitofwork.RepositoryFactory
}

// NewRouteSource feeds the route builder from the collections and
// document_embeddings tables.
func NewRouteSource(uowFactory unitofwork.RepositoryFactory) route.Source {
	return &routeSource{uowFactory: uowFactory}
}

func (r *routeSource) ListCollections(ctx context.Context) ([]*entity.Collection, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	return uow.CollectionRepository().FindAll(ctx, specification.OrderBy{Field: "name"})
}

// SampleContents returns the contents of the n most recent documents in a
// collection, used as material for routing prompt generation.
func (r *routeSource) SampleContents(ctx context.Context, collection string, n int) ([]string, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	embeddings, err := uow.DocumentEmbeddingRepository().FindAll(ctx,
		specification.ByCollectionName{Name: collection},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: n},
	)
	if err != nil {
		return nil, err
	}

	contents := make([]string, 0, len(embeddings))
	for _, e := range embeddings {
		contents = append(contents, e.Content)
	}
	return contents, nil
}

func (r *routeSource) SaveRouting(ctx context.Context, collection *entity.Collection) error {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	now := time.Now()
	collection.UpdatedAt = &now
	if err := uow.CollectionRepository().Update(ctx, collection); err != nil {
		return err
	}
	return uow.Commit()
}
