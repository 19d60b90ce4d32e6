package contract

import (
	"context"

	"docrag-be/internal/entity"

	"github.com/google/uuid"
)

type IdRange struct {
	Start int64
	End   int64
}

// ChunkScope narrows a nearest-neighbor search. Empty fields do not filter.
type ChunkScope struct {
	DocumentIds        []uuid.UUID
	CollectionIds      []uuid.UUID
	ExcludeDocumentIds []uuid.UUID
	Range              *IdRange
	// ActiveOnly keeps chunks inside the active version range of their document.
	ActiveOnly bool
}

type ScoredChunk struct {
	Chunk      *entity.Chunk
	Distance   float64
	Similarity float64 // 1 - cosine distance
}

type ChunkRepository interface {
	// CreateBulk assigns ids in slice order, each greater than any id issued before.
	CreateBulk(ctx context.Context, chunks []*entity.Chunk) error
	FindByDocument(ctx context.Context, documentId uuid.UUID) ([]*entity.Chunk, error)
	FindByRange(ctx context.Context, documentId uuid.UUID, r IdRange) ([]*entity.Chunk, error)
	FindByIndex(ctx context.Context, documentId uuid.UUID, versionNumber int, chunkIndex int) (*entity.Chunk, error)
	SearchSimilar(ctx context.Context, embedding []float32, scope ChunkScope, limit int) ([]*ScoredChunk, error)
	DeleteByDocument(ctx context.Context, documentId uuid.UUID) error
	CountByDocument(ctx context.Context, documentId uuid.UUID) (int64, error)
}
