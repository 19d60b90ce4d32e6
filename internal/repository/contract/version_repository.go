package contract

import (
	"context"

	"docrag-be/internal/entity"

	"github.com/google/uuid"
)

type VersionRepository interface {
	// Create returns ErrStaleRevision if the (document, version number) pair already exists.
	Create(ctx context.Context, version *entity.Version) error
	Update(ctx context.Context, version *entity.Version) error
	FindLatest(ctx context.Context, documentId uuid.UUID) (*entity.Version, error)
	FindActive(ctx context.Context, documentId uuid.UUID) (*entity.Version, error)
	FindByNumber(ctx context.Context, documentId uuid.UUID, number int) (*entity.Version, error)
	FindByDocument(ctx context.Context, documentId uuid.UUID) ([]*entity.Version, error)
	Deactivate(ctx context.Context, documentId uuid.UUID) error
	DeleteByDocument(ctx context.Context, documentId uuid.UUID) error
}
