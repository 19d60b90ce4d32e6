package contract

import (
	"context"

	"docrag-be/internal/entity"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	// UpdateWithRevision writes document only if the stored revision still equals
	// document.Revision, then bumps it. A mismatch returns ErrStaleRevision.
	UpdateWithRevision(ctx context.Context, document *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Document, error)
	FindByOwner(ctx context.Context, ownerId uuid.UUID, opts ListOptions) ([]*entity.Document, error)
	TouchAccess(ctx context.Context, id uuid.UUID) error
	CountByCollection(ctx context.Context, collectionId uuid.UUID) (int64, error)
}
