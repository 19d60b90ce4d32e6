package contract

import (
	"context"

	"docrag-be/internal/entity"

	"github.com/google/uuid"
)

type CollectionRepository interface {
	Create(ctx context.Context, collection *entity.Collection) error
	UpdateWithRevision(ctx context.Context, collection *entity.Collection) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.Collection, error)
	FindByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.Collection, error)
	FindPublic(ctx context.Context) ([]*entity.Collection, error)
	// FindAccessible returns collections userId owns, is listed on, holds a role for, or that are public.
	FindAccessible(ctx context.Context, userId string, roles []string) ([]*entity.Collection, error)
	FindByTag(ctx context.Context, tag string) ([]*entity.Collection, error)
	Search(ctx context.Context, term string) ([]*entity.Collection, error)
	FindChildren(ctx context.Context, parentId uuid.UUID) ([]*entity.Collection, error)
	FindTree(ctx context.Context, rootId uuid.UUID) ([]*entity.CollectionNode, error)
	CountChildren(ctx context.Context, parentId uuid.UUID) (int64, error)
	// AdjustCounters applies deltas atomically, without touching revision.
	AdjustCounters(ctx context.Context, id uuid.UUID, documentDelta int, tokenDelta int64) error
}
