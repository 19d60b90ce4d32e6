package unitofwork

import (
	"context"
	"fmt"

	"docrag-be/internal/repository/contract"
	"docrag-be/internal/repository/memory"
)

// MemoryUnitOfWork serializes transactions on the shared store and restores a
// snapshot on rollback.
type MemoryUnitOfWork struct {
	store *memory.Store
	tx    *memory.Tx
}

func NewMemoryUnitOfWork(store *memory.Store) UnitOfWork {
	return &MemoryUnitOfWork{store: store}
}

func (u *MemoryUnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	tx, err := u.store.Begin(ctx)
	if err != nil {
		return err
	}
	u.tx = tx
	return nil
}

func (u *MemoryUnitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	u.tx.Commit()
	u.tx = nil
	return nil
}

func (u *MemoryUnitOfWork) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	u.tx.Rollback()
	u.tx = nil
	return nil
}

func (u *MemoryUnitOfWork) DocumentRepository() contract.DocumentRepository {
	return memory.NewDocumentRepository(u.store)
}

func (u *MemoryUnitOfWork) VersionRepository() contract.VersionRepository {
	return memory.NewVersionRepository(u.store)
}

func (u *MemoryUnitOfWork) ChunkRepository() contract.ChunkRepository {
	return memory.NewChunkRepository(u.store)
}

func (u *MemoryUnitOfWork) CollectionRepository() contract.CollectionRepository {
	return memory.NewCollectionRepository(u.store)
}

func (u *MemoryUnitOfWork) DeadLetterRepository() contract.DeadLetterRepository {
	return memory.NewDeadLetterRepository(u.store)
}
