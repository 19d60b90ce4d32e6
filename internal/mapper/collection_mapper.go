package mapper

import (
	"time"

	"docrag-be/internal/entity"
	"docrag-be/internal/model"

	"gorm.io/datatypes"
)

type CollectionMapper struct{}

func NewCollectionMapper() *CollectionMapper {
	return &CollectionMapper{}
}

func (m *CollectionMapper) ToEntity(c *model.Collection) *entity.Collection {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Collection{
		Id:             c.Id,
		Name:           c.Name,
		Description:    c.Description,
		OwnerId:        c.OwnerId,
		AccessUsers:    []string(c.AccessUsers),
		AccessRoles:    []string(c.AccessRoles),
		Tags:           []string(c.Tags),
		IsPublic:       c.IsPublic,
		ParentId:       c.ParentId,
		DocumentCount:  c.DocumentCount,
		TotalTokens:    c.TotalTokens,
		EmbeddingModel: c.EmbeddingModel,
		DefaultModel:   c.DefaultModel,
		Metadata:       map[string]interface{}(c.Metadata),
		Revision:       c.Revision,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *CollectionMapper) ToModel(c *entity.Collection) *model.Collection {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.Collection{
		Id:             c.Id,
		Name:           c.Name,
		Description:    c.Description,
		OwnerId:        c.OwnerId,
		AccessUsers:    c.AccessUsers,
		AccessRoles:    c.AccessRoles,
		Tags:           c.Tags,
		IsPublic:       c.IsPublic,
		ParentId:       c.ParentId,
		DocumentCount:  c.DocumentCount,
		TotalTokens:    c.TotalTokens,
		EmbeddingModel: c.EmbeddingModel,
		DefaultModel:   c.DefaultModel,
		Metadata:       datatypes.JSONMap(c.Metadata),
		Revision:       c.Revision,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *CollectionMapper) ToEntities(collections []*model.Collection) []*entity.Collection {
	entities := make([]*entity.Collection, len(collections))
	for i, c := range collections {
		entities[i] = m.ToEntity(c)
	}
	return entities
}
