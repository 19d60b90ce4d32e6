package mapper

import (
	"docrag-be/internal/entity"
	"docrag-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type ChunkMapper struct{}

func NewChunkMapper() *ChunkMapper {
	return &ChunkMapper{}
}

func (m *ChunkMapper) ToEntity(c *model.Chunk) *entity.Chunk {
	if c == nil {
		return nil
	}

	return &entity.Chunk{
		Id:            c.Id,
		DocumentId:    c.DocumentId,
		VersionNumber: c.VersionNumber,
		ChunkIndex:    c.ChunkIndex,
		Content:       c.Content,
		Embedding:     c.Embedding.Slice(),
		TokenCount:    c.TokenCount,
		CreatedAt:     c.CreatedAt,
	}
}

// ToModel leaves Id unset when the entity has none so the sequence assigns it.
func (m *ChunkMapper) ToModel(c *entity.Chunk) *model.Chunk {
	if c == nil {
		return nil
	}

	return &model.Chunk{
		Id:            c.Id,
		DocumentId:    c.DocumentId,
		VersionNumber: c.VersionNumber,
		ChunkIndex:    c.ChunkIndex,
		Content:       c.Content,
		Embedding:     pgvector.NewVector(c.Embedding),
		TokenCount:    c.TokenCount,
		CreatedAt:     c.CreatedAt,
	}
}

func (m *ChunkMapper) ToEntities(chunks []*model.Chunk) []*entity.Chunk {
	entities := make([]*entity.Chunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ChunkMapper) ToModels(chunks []*entity.Chunk) []*model.Chunk {
	models := make([]*model.Chunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
