package mapper

import (
	"encoding/json"

	"gorm.io/datatypes"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/model"
	"spatial-search-be/pkg/store"
)

type CheckpointMapper struct{}

func NewCheckpointMapper() *CheckpointMapper {
	return &CheckpointMapper{}
}

func (m *CheckpointMapper) ToEntity(c *model.Checkpoint) (*entity.Checkpoint, error) {
	if c == nil {
		return nil, nil
	}

	var state store.ConversationState
	if len(c.State) > 0 {
		if err := json.Unmarshal(c.State, &state); err != nil {
			return nil, err
		}
	}

	return &entity.Checkpoint{
		Id:        c.Id,
		SessionId: c.SessionId,
		State:     state,
		CreatedAt: c.CreatedAt,
	}, nil
}

func (m *CheckpointMapper) ToModel(c *entity.Checkpoint) (*model.Checkpoint, error) {
	if c == nil {
		return nil, nil
	}

	raw, err := json.Marshal(c.State)
	if err != nil {
		return nil, err
	}

	return &model.Checkpoint{
		Id:        c.Id,
		SessionId: c.SessionId,
		State:     datatypes.JSON(raw),
		CreatedAt: c.CreatedAt,
	}, nil
}

func (m *CheckpointMapper) ToEntities(checkpoints []*model.Checkpoint) ([]*entity.Checkpoint, error) {
	entities := make([]*entity.Checkpoint, len(checkpoints))
	for i, c := range checkpoints {
		e, err := m.ToEntity(c)
		if err != nil {
			return nil, err
		}
		entities[i] = e
	}
	return entities, nil
}
