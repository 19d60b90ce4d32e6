package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"docrag-be/internal/entity"
	"docrag-be/internal/repository/contract"
	"docrag-be/internal/repository/unitofwork"
	"docrag-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dims = 768

func unitVector(hot int) []float32 {
	v := make([]float32, dims)
	v[hot%dims] = 1
	return v
}

// Needs a migrated database: go run ./cmd/migrate first.
func TestGormRepositories(t *testing.T) {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)

	sqlDB, _ := gormDB.DB()
	require.NoError(t, sqlDB.Ping())

	ctx := context.Background()
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)

	doc := &entity.Document{
		Id:             uuid.New(),
		FileName:       "integration.txt",
		FileType:       "txt",
		OwnerId:        uuid.New(),
		CurrentVersion: 1,
		Status:         entity.StatusCompleted,
		Summary:        "integration summary",
	}

	t.Cleanup(func() {
		uow := uowFactory.NewUnitOfWork(ctx)
		_ = uow.ChunkRepository().DeleteByDocument(ctx, doc.Id)
		_ = uow.VersionRepository().DeleteByDocument(ctx, doc.Id)
		_ = uow.DocumentRepository().Delete(ctx, doc.Id)
	})

	t.Run("Transactional write of document, version and chunks", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		require.NoError(t, uow.DocumentRepository().Create(ctx, doc))

		chunks := []*entity.Chunk{
			{DocumentId: doc.Id, VersionNumber: 1, ChunkIndex: 0, Content: "alpha", Embedding: unitVector(0), TokenCount: 1},
			{DocumentId: doc.Id, VersionNumber: 1, ChunkIndex: 1, Content: "beta", Embedding: unitVector(1), TokenCount: 1},
		}
		require.NoError(t, uow.ChunkRepository().CreateBulk(ctx, chunks))
		assert.Less(t, chunks[0].Id, chunks[1].Id)

		version := &entity.Version{
			Id:            uuid.New(),
			DocumentId:    doc.Id,
			VersionNumber: 1,
			IsActive:      true,
			Status:        entity.StatusCompleted,
		}
		version.ExtendRange(chunks[0].Id, chunks[1].Id)
		require.NoError(t, uow.VersionRepository().Create(ctx, version))

		require.NoError(t, uow.Commit())
	})

	t.Run("Nearest neighbor search stays inside the active range", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		scored, err := uow.ChunkRepository().SearchSimilar(ctx, unitVector(1), contract.ChunkScope{
			DocumentIds: []uuid.UUID{doc.Id},
			ActiveOnly:  true,
		}, 2)
		require.NoError(t, err)
		require.Len(t, scored, 2)
		assert.Equal(t, "beta", scored[0].Chunk.Content)
		assert.InDelta(t, 1.0, scored[0].Similarity, 1e-6)
	})

	t.Run("Second active version violates the partial unique index", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		err := uow.VersionRepository().Create(ctx, &entity.Version{
			Id:            uuid.New(),
			DocumentId:    doc.Id,
			VersionNumber: 2,
			IsActive:      true,
			Status:        entity.StatusCompleted,
		})
		assert.ErrorIs(t, err, contract.ErrStaleRevision)
	})

	t.Run("Stale revision is rejected", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		current, err := uow.DocumentRepository().FindById(ctx, doc.Id)
		require.NoError(t, err)
		require.NotNil(t, current)

		stale := *current
		current.Summary = "first writer"
		require.NoError(t, uow.DocumentRepository().UpdateWithRevision(ctx, current))

		stale.Summary = "second writer"
		assert.ErrorIs(t, uow.DocumentRepository().UpdateWithRevision(ctx, &stale), contract.ErrStaleRevision)
	})
}
