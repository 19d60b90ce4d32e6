package contract

import (
	"context"

	"docrag-be/internal/entity"
)

type DeadLetterRepository interface {
	Create(ctx context.Context, letter *entity.DeadLetter) error
	FindAll(ctx context.Context, opts ListOptions) ([]*entity.DeadLetter, error)
}
