package implementation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/mapper"
	"spatial-search-be/internal/model"
	"spatial-search-be/internal/repository/contract"
	"spatial-search-be/internal/repository/specification"
)

type CheckpointRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CheckpointMapper
}

func NewCheckpointRepository(db *gorm.DB) contract.CheckpointRepository {
	return &CheckpointRepositoryImpl{
		db:     db,
		mapper: mapper.NewCheckpointMapper(),
	}
}

func (r *CheckpointRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CheckpointRepositoryImpl) Create(ctx context.Context, checkpoint *entity.Checkpoint) error {
	m, err := r.mapper.ToModel(checkpoint)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	e, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*checkpoint = *e
	return nil
}

func (r *CheckpointRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Checkpoint, error) {
	var m model.Checkpoint
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *CheckpointRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Checkpoint, error) {
	var models []*model.Checkpoint
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models)
}

func (r *CheckpointRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Checkpoint{}).Count(&count).Error
	return count, err
}

func (r *CheckpointRepositoryImpl) DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.Checkpoint{}).Error
}
