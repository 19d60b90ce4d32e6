package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"docrag-be/internal/apperror"
	"docrag-be/internal/dto"
	"docrag-be/internal/entity"
	"docrag-be/internal/pkg/logger"
	"docrag-be/internal/repository/unitofwork"
	"docrag-be/pkg/embedding"
	"docrag-be/pkg/events"
	"docrag-be/pkg/retry"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	batchModule          = "batch"
	batchDeadLetterTopic = "batch.ingestion"
)

// BatchJob is a document whose chunk texts are already split. Document carries
// everything but the counters, which the pipeline fills in.
type BatchJob struct {
	Document *entity.Document
	Chunks   []string
}

type IBatchService interface {
	// Submit persists the pending document and version, then embeds and stores
	// the chunks in the background. The returned handle resolves once every
	// batch has finished.
	Submit(ctx context.Context, job *BatchJob) (*IngestionHandle, error)
}

type BatchServiceConfig struct {
	BatchSize   int
	Concurrency int
	Retry       retry.Policy
}

type IngestionHandle struct {
	documentId uuid.UUID
	batches    int
	done       chan struct{}
	res        *dto.IngestResponse
	err        error
}

func (h *IngestionHandle) DocumentId() uuid.UUID {
	return h.documentId
}

func (h *IngestionHandle) Batches() int {
	return h.batches
}

func (h *IngestionHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the pipeline finishes or ctx is done. Giving up on the wait
// leaves the pipeline running.
func (h *IngestionHandle) Wait(ctx context.Context) (*dto.IngestResponse, error) {
	select {
	case <-h.done:
		return h.res, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *IngestionHandle) resolve(res *dto.IngestResponse, err error) {
	h.res = res
	h.err = err
	close(h.done)
}

type batchService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	cacheService      ICacheService
	indexerService    IIndexerService
	notifier          *eventNotifier
	logger            logger.ILogger
	cfg               BatchServiceConfig
}

func NewBatchService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	cacheService ICacheService,
	indexerService IIndexerService,
	publisher events.Publisher,
	log logger.ILogger,
	cfg BatchServiceConfig,
) IBatchService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return &batchService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		cacheService:      cacheService,
		indexerService:    indexerService,
		notifier:          newEventNotifier(publisher, log),
		logger:            log,
		cfg:               cfg,
	}
}

// Partition splits n items into consecutive [start, end) windows of at most size.
func Partition(n, size int) [][2]int {
	if n <= 0 || size <= 0 {
		return nil
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

func (s *batchService) Submit(ctx context.Context, job *BatchJob) (*IngestionHandle, error) {
	if job == nil || job.Document == nil {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "Batch job requires a document")
	}
	if len(job.Chunks) == 0 {
		return nil, apperror.Validation(apperror.CodeEmptyContent, "Batch job has no chunks")
	}

	doc := cloneDocument(job.Document)
	if doc.Id == uuid.Nil {
		doc.Id = uuid.New()
	}
	doc.Status = entity.StatusPending
	doc.CurrentVersion = 1
	doc.ChunkCount = 0
	doc.TotalTokens = 0

	version := &entity.Version{
		DocumentId:        doc.Id,
		VersionNumber:     1,
		Status:            entity.StatusPending,
		ChangeDescription: "Initial version",
	}
	if err := s.createPending(ctx, doc, version); err != nil {
		return nil, err
	}

	handle := &IngestionHandle{
		documentId: doc.Id,
		batches:    len(Partition(len(job.Chunks), s.cfg.BatchSize)),
		done:       make(chan struct{}),
	}

	s.logger.Info(batchModule, "Batch ingestion submitted", map[string]interface{}{
		"document_id": doc.Id.String(),
		"chunks":      len(job.Chunks),
		"batches":     handle.batches,
	})

	go s.run(context.WithoutCancel(ctx), handle, doc, version, job.Chunks)
	return handle, nil
}

func (s *batchService) createPending(ctx context.Context, doc *entity.Document, version *entity.Version) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return storageError(err, "Failed to start transaction")
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
		return storageError(err, "Failed to save document")
	}
	if err := uow.VersionRepository().Create(ctx, version); err != nil {
		return storageError(err, "Failed to save version")
	}
	if doc.CollectionId != nil {
		if err := uow.CollectionRepository().AdjustCounters(ctx, *doc.CollectionId, 1, 0); err != nil {
			return storageError(err, "Failed to update collection")
		}
	}
	return storageError(uow.Commit(), "Failed to commit document")
}

// batchProgress collects what the workers persisted.
type batchProgress struct {
	mu     sync.Mutex
	ids    []int64
	tokens int64
}

func (p *batchProgress) add(chunks []*entity.Chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range chunks {
		p.ids = append(p.ids, c.Id)
		p.tokens += int64(c.TokenCount)
	}
}

func (s *batchService) run(ctx context.Context, handle *IngestionHandle, doc *entity.Document, version *entity.Version, texts []string) {
	if err := s.setStatus(ctx, doc.Id, version, entity.StatusProcessing, ""); err != nil {
		s.fail(ctx, handle, doc, version, &batchProgress{}, err)
		return
	}

	progress := &batchProgress{}
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for i, window := range Partition(len(texts), s.cfg.BatchSize) {
		batchNumber, start, end := i+1, window[0], window[1]
		g.Go(func() error {
			chunks, err := embedChunks(ctx, s.embeddingProvider, doc.Id, version.VersionNumber, start, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d: %w", batchNumber, err)
			}
			if err := s.persistBatch(ctx, doc.Id, chunks); err != nil {
				return fmt.Errorf("batch %d: %w", batchNumber, err)
			}
			progress.add(chunks)
			s.logger.Debug(batchModule, "Batch persisted", map[string]interface{}{
				"document_id": doc.Id.String(),
				"batch":       batchNumber,
				"chunks":      len(chunks),
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.fail(ctx, handle, doc, version, progress, err)
		return
	}

	stored, err := s.complete(ctx, doc.Id, version, progress)
	if err != nil {
		s.fail(ctx, handle, doc, version, progress, err)
		return
	}

	s.cacheService.InvalidateDocument(stored.Id)
	if err := s.indexerService.PublishUpsert(ctx, stored.Id); err != nil {
		s.logger.Warn(batchModule, "Failed to queue full-text indexing", map[string]interface{}{
			"document_id": stored.Id.String(),
			"error":       err.Error(),
		})
	}
	s.notifier.notify(ctx, events.DocumentIngested, map[string]interface{}{
		"document_id": stored.Id.String(),
		"owner_id":    stored.OwnerId.String(),
		"chunk_count": stored.ChunkCount,
		"batches":     handle.batches,
	})
	s.logger.Info(batchModule, "Batch ingestion completed", map[string]interface{}{
		"document_id": stored.Id.String(),
		"chunks":      stored.ChunkCount,
	})

	handle.resolve(&dto.IngestResponse{
		DocumentId: stored.Id,
		ChunkCount: stored.ChunkCount,
		Summary:    stored.Summary,
	}, nil)
}

// persistBatch writes one batch unless its document is gone.
func (s *batchService) persistBatch(ctx context.Context, documentId uuid.UUID, chunks []*entity.Chunk) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	doc, err := uow.DocumentRepository().FindById(ctx, documentId)
	if err != nil {
		return err
	}
	if doc == nil {
		return apperror.NotFound(apperror.CodeDocumentNotFound, "Document was deleted during ingestion")
	}
	if err := uow.ChunkRepository().CreateBulk(ctx, chunks); err != nil {
		return err
	}
	return uow.Commit()
}

// setStatus moves the aggregate version and its document to status together.
func (s *batchService) setStatus(ctx context.Context, documentId uuid.UUID, version *entity.Version, status entity.ProcessingStatus, description string) error {
	_, err := s.updateDocument(ctx, documentId, func(uow unitofwork.UnitOfWork, doc *entity.Document) error {
		version.Status = status
		if description != "" {
			version.ChangeDescription = description
		}
		if err := uow.VersionRepository().Update(ctx, version); err != nil {
			return err
		}
		doc.Status = status
		return nil
	})
	return err
}

func (s *batchService) complete(ctx context.Context, documentId uuid.UUID, version *entity.Version, progress *batchProgress) (*entity.Document, error) {
	return s.updateDocument(ctx, documentId, func(uow unitofwork.UnitOfWork, doc *entity.Document) error {
		version.ExtendRange(progress.ids...)
		version.Status = entity.StatusCompleted
		version.IsActive = true
		if err := uow.VersionRepository().Update(ctx, version); err != nil {
			return err
		}

		doc.Status = entity.StatusCompleted
		doc.ChunkCount = len(progress.ids)
		doc.TotalTokens = progress.tokens
		if doc.CollectionId != nil {
			if err := uow.CollectionRepository().AdjustCounters(ctx, *doc.CollectionId, 0, progress.tokens); err != nil {
				return err
			}
		}
		return nil
	})
}

// updateDocument reloads the document and applies change inside one transaction,
// retrying when a concurrent writer bumped the revision.
func (s *batchService) updateDocument(ctx context.Context, documentId uuid.UUID, change func(uow unitofwork.UnitOfWork, doc *entity.Document) error) (*entity.Document, error) {
	return retry.Do(ctx, s.cfg.Retry, isVersionConflict, func(ctx context.Context) (*entity.Document, error) {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return nil, storageError(err, "Failed to start transaction")
		}
		defer uow.Rollback()

		doc, err := uow.DocumentRepository().FindById(ctx, documentId)
		if err != nil {
			return nil, storageError(err, "Failed to load document")
		}
		if doc == nil {
			return nil, apperror.NotFound(apperror.CodeDocumentNotFound, "Document not found")
		}
		if err := change(uow, doc); err != nil {
			return nil, storageError(err, "Failed to update batch state")
		}
		if err := uow.DocumentRepository().UpdateWithRevision(ctx, doc); err != nil {
			return nil, storageError(err, "Document was modified concurrently")
		}
		if err := uow.Commit(); err != nil {
			return nil, storageError(err, "Failed to commit batch state")
		}
		return doc, nil
	})
}

// fail records the failure on the version and document. Chunks that were already
// persisted stay where they are.
func (s *batchService) fail(ctx context.Context, handle *IngestionHandle, doc *entity.Document, version *entity.Version, progress *batchProgress, cause error) {
	message := cause.Error()
	s.logger.Error(batchModule, "Batch ingestion failed", map[string]interface{}{
		"document_id": doc.Id.String(),
		"persisted":   len(progress.ids),
		"error":       message,
	})

	_, err := s.updateDocument(ctx, doc.Id, func(uow unitofwork.UnitOfWork, stored *entity.Document) error {
		version.ExtendRange(progress.ids...)
		version.Status = entity.StatusFailed
		version.IsActive = false
		version.ChangeDescription = "Failed: " + message
		if err := uow.VersionRepository().Update(ctx, version); err != nil {
			return err
		}
		stored.Status = entity.StatusFailed
		stored.ChunkCount = len(progress.ids)
		stored.TotalTokens = progress.tokens
		if stored.CollectionId != nil && progress.tokens > 0 {
			return uow.CollectionRepository().AdjustCounters(ctx, *stored.CollectionId, 0, progress.tokens)
		}
		return nil
	})
	if err != nil {
		s.logger.Error(batchModule, "Failed to record batch failure", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
	}
	s.cacheService.InvalidateDocument(doc.Id)

	payload, _ := json.Marshal(map[string]interface{}{
		"document_id": doc.Id.String(),
		"batches":     handle.batches,
		"persisted":   len(progress.ids),
	})
	letter := &entity.DeadLetter{
		Topic:     batchDeadLetterTopic,
		MessageId: doc.Id.String(),
		Payload:   string(payload),
		Error:     message,
	}
	if err := s.uowFactory.NewUnitOfWork(ctx).DeadLetterRepository().Create(ctx, letter); err != nil {
		s.logger.Error(batchModule, "Failed to persist dead letter", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
	}

	s.notifier.notify(ctx, events.DocumentBatchFailed, map[string]interface{}{
		"document_id": doc.Id.String(),
		"error":       message,
	})

	handle.resolve(nil, apperror.BatchProcessing("Batch ingestion failed: "+message, cause))
}
