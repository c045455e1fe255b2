package mapper

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"spatial-search-be/internal/entity"
	"spatial-search-be/internal/model"
)

type CollectionMapper struct{}

func NewCollectionMapper() *CollectionMapper {
	return &CollectionMapper{}
}

func (m *CollectionMapper) ToEntity(c *model.Collection) *entity.Collection {
	if c == nil {
		return nil
	}

	var utterances []string
	if len(c.SampleUtterances) > 0 {
		// Routing degrades to description-only matching if this is corrupt,
		// so a decode failure is not fatal here.
		_ = json.Unmarshal(c.SampleUtterances, &utterances)
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Collection{
		Id:               c.Id,
		Name:             c.Name,
		Kind:             c.Kind,
		Description:      c.Description,
		SampleUtterances: utterances,
		SystemPrompt:     c.SystemPrompt,
		ScoreThreshold:   c.ScoreThreshold,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

func (m *CollectionMapper) ToModel(c *entity.Collection) *model.Collection {
	if c == nil {
		return nil
	}

	var utterances datatypes.JSON
	if len(c.SampleUtterances) > 0 {
		raw, err := json.Marshal(c.SampleUtterances)
		if err == nil {
			utterances = datatypes.JSON(raw)
		}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.Collection{
		Id:               c.Id,
		Name:             c.Name,
		Kind:             c.Kind,
		Description:      c.Description,
		SampleUtterances: utterances,
		SystemPrompt:     c.SystemPrompt,
		ScoreThreshold:   c.ScoreThreshold,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

func (m *CollectionMapper) ToEntities(collections []*model.Collection) []*entity.Collection {
	entities := make([]*entity.Collection, len(collections))
	for i, c := range collections {
		entities[i] = m.ToEntity(c)
	}
	return entities
}
