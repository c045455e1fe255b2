package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/mapper"
	"spatial-search-be/internal/model"
	"spatial-search-be/internal/repository/contract"
	"spatial-search-be/internal/repository/specification"
)

type CollectionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CollectionMapper
}

func NewCollectionRepository(db *gorm.DB) contract.CollectionRepository {
	return &CollectionRepositoryImpl{
		db:     db,
		mapper: mapper.NewCollectionMapper(),
	}
}

func (r *CollectionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CollectionRepositoryImpl) Create(ctx context.Context, collection *entity.Collection) error {
	m := r.mapper.ToModel(collection)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*collection = *r.mapper.ToEntity(m)
	return nil
}

func (r *CollectionRepositoryImpl) Update(ctx context.Context, collection *entity.Collection) error {
	m := r.mapper.ToModel(collection)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*collection = *r.mapper.ToEntity(m)
	return nil
}

func (r *CollectionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Collection, error) {
	var m model.Collection
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CollectionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Collection, error) {
	var models []*model.Collection
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CollectionRepositoryImpl) DeleteByName(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.Collection{}).Error
}
