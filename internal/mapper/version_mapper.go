package mapper

import (
	"time"

	"docrag-be/internal/entity"
	"docrag-be/internal/model"
)

type VersionMapper struct{}

func NewVersionMapper() *VersionMapper {
	return &VersionMapper{}
}

func (m *VersionMapper) ToEntity(v *model.Version) *entity.Version {
	if v == nil {
		return nil
	}

	var updatedAt *time.Time
	if !v.UpdatedAt.IsZero() {
		t := v.UpdatedAt
		updatedAt = &t
	}

	return &entity.Version{
		Id:                v.Id,
		DocumentId:        v.DocumentId,
		VersionNumber:     v.VersionNumber,
		ChunkStartId:      v.ChunkStartId,
		ChunkEndId:        v.ChunkEndId,
		IsActive:          v.IsActive,
		Status:            entity.ProcessingStatus(v.Status),
		ChangeDescription: v.ChangeDescription,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         updatedAt,
	}
}

func (m *VersionMapper) ToModel(v *entity.Version) *model.Version {
	if v == nil {
		return nil
	}

	var updatedAt time.Time
	if v.UpdatedAt != nil {
		updatedAt = *v.UpdatedAt
	}

	return &model.Version{
		Id:                v.Id,
		DocumentId:        v.DocumentId,
		VersionNumber:     v.VersionNumber,
		ChunkStartId:      v.ChunkStartId,
		ChunkEndId:        v.ChunkEndId,
		IsActive:          v.IsActive,
		Status:            string(v.Status),
		ChangeDescription: v.ChangeDescription,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         updatedAt,
	}
}

func (m *VersionMapper) ToEntities(versions []*model.Version) []*entity.Version {
	entities := make([]*entity.Version, len(versions))
	for i, v := range versions {
		entities[i] = m.ToEntity(v)
	}
	return entities
}
