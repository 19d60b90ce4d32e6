package mapper

import (
	"time"

	"docrag-be/internal/entity"
	"docrag-be/internal/model"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.Document{
		Id:             d.Id,
		FileName:       d.FileName,
		FileType:       d.FileType,
		MimeType:       d.MimeType,
		FileSize:       d.FileSize,
		OwnerId:        d.OwnerId,
		CollectionId:   d.CollectionId,
		Tags:           []string(d.Tags),
		CurrentVersion: d.CurrentVersion,
		IsArchived:     d.IsArchived,
		Status:         entity.ProcessingStatus(d.Status),
		Summary:        d.Summary,
		ChunkCount:     d.ChunkCount,
		TotalTokens:    d.TotalTokens,
		AccessCount:    d.AccessCount,
		LastAccessedAt: d.LastAccessedAt,
		Revision:       d.Revision,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.Document{
		Id:             d.Id,
		FileName:       d.FileName,
		FileType:       d.FileType,
		MimeType:       d.MimeType,
		FileSize:       d.FileSize,
		OwnerId:        d.OwnerId,
		CollectionId:   d.CollectionId,
		Tags:           d.Tags,
		CurrentVersion: d.CurrentVersion,
		IsArchived:     d.IsArchived,
		Status:         string(d.Status),
		Summary:        d.Summary,
		ChunkCount:     d.ChunkCount,
		TotalTokens:    d.TotalTokens,
		AccessCount:    d.AccessCount,
		LastAccessedAt: d.LastAccessedAt,
		Revision:       d.Revision,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *DocumentMapper) ToEntities(docs []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
