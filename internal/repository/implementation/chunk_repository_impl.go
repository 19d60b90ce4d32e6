package implementation

import (
	"context"
	"errors"

	"docrag-be/internal/entity"
	"docrag-be/internal/mapper"
	"docrag-be/internal/model"
	"docrag-be/internal/repository/contract"
	"docrag-be/internal/repository/scope"
	"docrag-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkMapper
}

func NewChunkRepository(db *gorm.DB) contract.ChunkRepository {
	return &ChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkMapper(),
	}
}

func (r *ChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	for _, m := range models {
		m.Id = 0
	}

	// A single multi-row INSERT draws ids from the bigserial sequence in VALUES order.
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ChunkRepositoryImpl) FindByDocument(ctx context.Context, documentId uuid.UUID) ([]*entity.Chunk, error) {
	var models []*model.Chunk
	query := applySpecifications(r.db.WithContext(ctx).Scopes(scope.ChunkOrder),
		specification.ByDocumentID{DocumentID: documentId},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChunkRepositoryImpl) FindByRange(ctx context.Context, documentId uuid.UUID, rng contract.IdRange) ([]*entity.Chunk, error) {
	var models []*model.Chunk
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByDocumentID{DocumentID: documentId},
		specification.ChunkIDBetween{Start: rng.Start, End: rng.End},
		specification.OrderBy{Field: "chunks.id"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChunkRepositoryImpl) FindByIndex(ctx context.Context, documentId uuid.UUID, versionNumber int, chunkIndex int) (*entity.Chunk, error) {
	var m model.Chunk
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByDocumentID{DocumentID: documentId},
		specification.Filter("version_number", versionNumber),
		specification.Filter("chunk_index", chunkIndex),
	)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

// SearchSimilar orders by pgvector cosine distance (<=>); similarity is 1 - distance.
func (r *ChunkRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, s contract.ChunkScope, limit int) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.Chunk
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("chunks").
		Select("chunks.*, chunks.embedding <=> ? AS distance", queryVector)

	if len(s.DocumentIds) > 0 {
		query = query.Where("chunks.document_id IN ?", s.DocumentIds)
	}
	if len(s.ExcludeDocumentIds) > 0 {
		query = query.Where("chunks.document_id NOT IN ?", s.ExcludeDocumentIds)
	}
	if len(s.CollectionIds) > 0 {
		query = specification.InCollections{CollectionIDs: s.CollectionIds}.Apply(query)
	}
	if s.Range != nil {
		query = specification.ChunkIDBetween{Start: s.Range.Start, End: s.Range.End}.Apply(query)
	}
	if s.ActiveOnly {
		query = specification.InActiveVersionRange{}.Apply(query)
	}

	err := query.
		Order("distance ASC").
		Order("chunks.id ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk:      r.mapper.ToEntity(&res.Chunk),
			Distance:   res.Distance,
			Similarity: 1 - res.Distance,
		}
	}
	return scored, nil
}

func (r *ChunkRepositoryImpl) DeleteByDocument(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&model.Chunk{}).Error
}

func (r *ChunkRepositoryImpl) CountByDocument(ctx context.Context, documentId uuid.UUID) (int64, error) {
	var count int64
	err := applySpecifications(r.db.WithContext(ctx).Model(&model.Chunk{}),
		specification.ByDocumentID{DocumentID: documentId},
	).Count(&count).Error
	return count, err
}
