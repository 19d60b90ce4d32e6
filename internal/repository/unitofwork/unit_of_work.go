package unitofwork

import (
	"context"

	"docrag-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	VersionRepository() contract.VersionRepository
	ChunkRepository() contract.ChunkRepository
	CollectionRepository() contract.CollectionRepository
	DeadLetterRepository() contract.DeadLetterRepository
}
