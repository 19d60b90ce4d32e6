package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"docrag-be/internal/apperror"
	"docrag-be/internal/dto"
	"docrag-be/internal/entity"
	"docrag-be/internal/pkg/logger"
	"docrag-be/internal/repository/contract"
	"docrag-be/internal/repository/unitofwork"
	"docrag-be/pkg/embedding"
	"docrag-be/pkg/events"
	"docrag-be/pkg/llm/factory"
	"docrag-be/pkg/lock"
	"docrag-be/pkg/retry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const documentModule = "document"

const queryPromptTemplate = `Use the following context to answer the question. If you cannot find the answer in the context, say so.

Context:
%s

Question:
%s

Answer:`

const contextSeparator = "---"

type IDocumentService interface {
	Ingest(ctx context.Context, req *dto.IngestRequest) (*dto.IngestResponse, error)
	CreateVersion(ctx context.Context, req *dto.CreateVersionRequest) (*dto.VersionResponse, error)
	Query(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error)
	Delete(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID) error

	Show(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID) (*dto.DocumentResponse, error)
	List(ctx context.Context, ownerId uuid.UUID, limit int, offset int) ([]*dto.DocumentResponse, error)
	UpdateTags(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, tags []string) (*dto.DocumentResponse, error)
	SetArchived(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, archived bool) (*dto.DocumentResponse, error)
	MoveToCollection(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, collectionId *uuid.UUID) (*dto.DocumentResponse, error)
	ListVersions(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID) ([]*dto.VersionResponse, error)
	ShowVersion(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, versionNumber int) (*dto.ShowVersionResponse, error)
	ShowChunk(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, versionNumber int, chunkIndex int) (*dto.ChunkResponse, error)
}

type DocumentServiceConfig struct {
	MaxUploadBytes int64
	MaxChunkSize   int
	SimilarChunks  int
	Retry          retry.Policy
}

type documentService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	models            *factory.Registry
	cacheService      ICacheService
	batchService      IBatchService
	indexerService    IIndexerService
	locker            lock.Locker
	notifier          *eventNotifier
	logger            logger.ILogger
	cfg               DocumentServiceConfig
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	models *factory.Registry,
	cacheService ICacheService,
	batchService IBatchService,
	indexerService IIndexerService,
	locker lock.Locker,
	publisher events.Publisher,
	log logger.ILogger,
	cfg DocumentServiceConfig,
) IDocumentService {
	if cfg.SimilarChunks <= 0 {
		cfg.SimilarChunks = 3
	}
	return &documentService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		models:            models,
		cacheService:      cacheService,
		batchService:      batchService,
		indexerService:    indexerService,
		locker:            locker,
		notifier:          newEventNotifier(publisher, log),
		logger:            log,
		cfg:               cfg,
	}
}

func (s *documentService) Ingest(ctx context.Context, req *dto.IngestRequest) (*dto.IngestResponse, error) {
	content, err := prepareContent(req.FileName, req.MimeType, req.File, s.cfg.MaxUploadBytes, s.cfg.MaxChunkSize)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if req.CollectionId != nil {
		if _, err := s.requireCollection(ctx, uow, *req.CollectionId, req.OwnerId); err != nil {
			return nil, err
		}
	}

	doc := &entity.Document{
		Id:             uuid.New(),
		FileName:       req.FileName,
		FileType:       content.FileType,
		MimeType:       req.MimeType,
		FileSize:       int64(len(req.File)),
		OwnerId:        req.OwnerId,
		CollectionId:   req.CollectionId,
		Tags:           normalizeTags(req.Tags),
		CurrentVersion: 1,
		Status:         entity.StatusPending,
		Summary:        content.Summary,
	}

	if req.UseBatch {
		handle, err := s.batchService.Submit(ctx, &BatchJob{Document: doc, Chunks: content.Chunks})
		if err != nil {
			return nil, err
		}
		return handle.Wait(ctx)
	}

	chunks, err := embedChunks(ctx, s.embeddingProvider, doc.Id, 1, 0, content.Chunks)
	if err != nil {
		return nil, err
	}

	stored, err := retry.Do(ctx, s.cfg.Retry, isVersionConflict, func(ctx context.Context) (*entity.Document, error) {
		attempt := cloneDocument(doc)
		return attempt, s.writeFirstVersion(ctx, attempt, versionChunks(chunks, 1), content.Tokens)
	})
	if err != nil {
		s.logger.Error(documentModule, "Ingest failed", map[string]interface{}{
			"file_name": req.FileName,
			"error":     err.Error(),
		})
		return nil, err
	}

	s.afterWrite(ctx, stored, events.DocumentIngested, map[string]interface{}{
		"owner_id":    stored.OwnerId.String(),
		"chunk_count": stored.ChunkCount,
	})

	return &dto.IngestResponse{
		DocumentId: stored.Id,
		ChunkCount: stored.ChunkCount,
		Summary:    stored.Summary,
	}, nil
}

// writeFirstVersion persists document, chunks and the active version 1 atomically.
func (s *documentService) writeFirstVersion(ctx context.Context, doc *entity.Document, chunks []*entity.Chunk, tokens int64) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return storageError(err, "Failed to start transaction")
	}
	defer uow.Rollback()

	doc.Status = entity.StatusCompleted
	doc.ChunkCount = len(chunks)
	doc.TotalTokens = tokens
	if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
		return storageError(err, "Failed to save document")
	}

	if err := uow.ChunkRepository().CreateBulk(ctx, chunks); err != nil {
		return storageError(err, "Failed to save chunks")
	}

	version := &entity.Version{
		DocumentId:        doc.Id,
		VersionNumber:     1,
		IsActive:          true,
		Status:            entity.StatusCompleted,
		ChangeDescription: "Initial version",
	}
	version.ExtendRange(chunkIds(chunks)...)
	if err := uow.VersionRepository().Create(ctx, version); err != nil {
		return storageError(err, "Failed to save version")
	}

	if doc.CollectionId != nil {
		if err := uow.CollectionRepository().AdjustCounters(ctx, *doc.CollectionId, 1, tokens); err != nil {
			return storageError(err, "Failed to update collection")
		}
	}

	return storageError(uow.Commit(), "Failed to commit document")
}

func (s *documentService) CreateVersion(ctx context.Context, req *dto.CreateVersionRequest) (*dto.VersionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindById(ctx, req.DocumentId)
	if err != nil {
		return nil, storageError(err, "Failed to load document")
	}
	if doc == nil {
		return nil, apperror.NotFound(apperror.CodeDocumentNotFound, "Document not found")
	}
	if !doc.OwnedBy(req.RequesterId) {
		return nil, apperror.Unauthorized("Only the owner can create a new version")
	}

	content, err := prepareContent(req.FileName, req.MimeType, req.File, s.cfg.MaxUploadBytes, s.cfg.MaxChunkSize)
	if err != nil {
		return nil, err
	}
	embedded, err := embedChunks(ctx, s.embeddingProvider, doc.Id, 0, 0, content.Chunks)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, versionLockKey(doc.Id))
	if err != nil {
		return nil, apperror.VersionConflict("Timed out waiting for the document version lock", err)
	}
	defer unlock()

	version, err := retry.Do(ctx, s.cfg.Retry, isVersionConflict, func(ctx context.Context) (*entity.Version, error) {
		return s.writeNextVersion(ctx, req, content, embedded)
	})
	if err != nil {
		s.logger.Warn(documentModule, "Create version failed", map[string]interface{}{
			"document_id": req.DocumentId.String(),
			"error":       err.Error(),
		})
		return nil, err
	}

	updated, _ := s.uowFactory.NewUnitOfWork(ctx).DocumentRepository().FindById(ctx, doc.Id)
	if updated == nil {
		updated = doc
	}
	s.afterWrite(ctx, updated, events.DocumentVersionCreated, map[string]interface{}{
		"version_number": version.VersionNumber,
	})

	res := toVersionResponse(version)
	return &res, nil
}

// writeNextVersion is the critical section: read latest, compute next, write chunks
// and version, move the active flag, bump the document revision.
func (s *documentService) writeNextVersion(ctx context.Context, req *dto.CreateVersionRequest, content *preparedContent, embedded []*entity.Chunk) (*entity.Version, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	latest, err := uow.VersionRepository().FindLatest(ctx, req.DocumentId)
	if err != nil {
		return nil, storageError(err, "Failed to load versions")
	}
	next := 1
	if latest != nil {
		if inFlight(latest) {
			return nil, errDocumentProcessing()
		}
		next = latest.VersionNumber + 1
	}

	chunks := versionChunks(embedded, next)

	if err := uow.Begin(ctx); err != nil {
		return nil, storageError(err, "Failed to start transaction")
	}
	defer uow.Rollback()

	doc, err := uow.DocumentRepository().FindById(ctx, req.DocumentId)
	if err != nil {
		return nil, storageError(err, "Failed to load document")
	}
	if doc == nil {
		return nil, apperror.NotFound(apperror.CodeDocumentNotFound, "Document not found")
	}

	if err := uow.ChunkRepository().CreateBulk(ctx, chunks); err != nil {
		return nil, storageError(err, "Failed to save chunks")
	}

	if err := uow.VersionRepository().Deactivate(ctx, doc.Id); err != nil {
		return nil, storageError(err, "Failed to deactivate previous version")
	}

	description := req.ChangeDescription
	if description == "" {
		description = fmt.Sprintf("Version %d", next)
	}
	version := &entity.Version{
		DocumentId:        doc.Id,
		VersionNumber:     next,
		IsActive:          true,
		Status:            entity.StatusCompleted,
		ChangeDescription: description,
	}
	version.ExtendRange(chunkIds(chunks)...)
	if err := uow.VersionRepository().Create(ctx, version); err != nil {
		return nil, storageError(err, "Version number already taken")
	}

	tokenDelta := content.Tokens - doc.TotalTokens
	doc.CurrentVersion = next
	doc.ChunkCount = len(chunks)
	doc.TotalTokens = content.Tokens
	doc.Summary = content.Summary
	doc.Status = entity.StatusCompleted
	if err := uow.DocumentRepository().UpdateWithRevision(ctx, doc); err != nil {
		return nil, storageError(err, "Document was modified concurrently")
	}

	if doc.CollectionId != nil && tokenDelta != 0 {
		if err := uow.CollectionRepository().AdjustCounters(ctx, *doc.CollectionId, 0, tokenDelta); err != nil {
			return nil, storageError(err, "Failed to update collection")
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, storageError(err, "Failed to commit version")
	}
	return version, nil
}

func (s *documentService) Query(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "Query must not be empty")
	}
	if req.VersionNumber != nil && req.DocumentId == nil {
		return nil, apperror.Validation(apperror.CodeVersionRequiresScope, "A version number requires a document id")
	}

	ctx, span := tracer.Start(ctx, "rag.query")
	defer span.End()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	scope := contract.ChunkScope{ActiveOnly: true}
	modelHint := req.Model

	if req.CollectionId != nil {
		collection, err := s.requireCollection(ctx, uow, *req.CollectionId, req.RequesterId)
		if err != nil {
			return nil, err
		}
		scope.CollectionIds = []uuid.UUID{collection.Id}
		if modelHint == "" {
			modelHint = collection.DefaultModel
		}
	}

	if req.DocumentId != nil {
		doc, err := s.readableDocument(ctx, uow, *req.DocumentId, req.RequesterId)
		if err != nil {
			return nil, err
		}
		scope.DocumentIds = []uuid.UUID{doc.Id}
		if req.VersionNumber != nil {
			version, err := uow.VersionRepository().FindByNumber(ctx, doc.Id, *req.VersionNumber)
			if err != nil {
				return nil, storageError(err, "Failed to load version")
			}
			if version == nil {
				return nil, apperror.NotFound(apperror.CodeVersionNotFound, "Version not found")
			}
			scope.ActiveOnly = false
			scope.Range = &contract.IdRange{Start: version.ChunkStartId, End: version.ChunkEndId}
		}
	}

	provider, modelUsed, ok := s.models.Lookup(modelHint)
	if !ok {
		return nil, apperror.NotFound(apperror.CodeModelNotFound, fmt.Sprintf("Model not found: %s", modelHint))
	}

	span.SetAttributes(attribute.String("rag.model", modelUsed))

	queryVector, err := s.embeddingProvider.Generate(ctx, req.Query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, asEmbeddingError(err)
	}

	scored, err := uow.ChunkRepository().SearchSimilar(ctx, queryVector.Embedding.Values, scope, s.cfg.SimilarChunks)
	if err != nil {
		return nil, apperror.SearchBackend("Failed to search chunks", err)
	}

	prompt := fmt.Sprintf(queryPromptTemplate, s.buildContext(ctx, scored), req.Query)
	answer, err := provider.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, apperror.Wrap(apperror.KindInternal, apperror.CodeGenerationFailed, "Failed to generate an answer", err)
	}

	sources := make([]dto.QuerySource, len(scored))
	for i, sc := range scored {
		sources[i] = dto.QuerySource{
			ChunkId:       sc.Chunk.Id,
			DocumentId:    sc.Chunk.DocumentId,
			VersionNumber: sc.Chunk.VersionNumber,
			ChunkIndex:    sc.Chunk.ChunkIndex,
			Similarity:    sc.Similarity,
			Content:       sc.Chunk.Content,
		}
	}

	return &dto.QueryResponse{
		Answer:    answer,
		ModelUsed: modelUsed,
		Sources:   sources,
	}, nil
}

// buildContext lists each document's summary once, followed by its chunks.
func (s *documentService) buildContext(ctx context.Context, scored []*contract.ScoredChunk) string {
	var b strings.Builder
	seen := make(map[uuid.UUID]bool)
	for _, sc := range scored {
		if !seen[sc.Chunk.DocumentId] {
			seen[sc.Chunk.DocumentId] = true
			if doc, err := s.cacheService.GetDocument(ctx, sc.Chunk.DocumentId); err == nil && doc != nil && doc.Summary != "" {
				fmt.Fprintf(&b, "%s\nDocument: %s\nSummary: %s\n", contextSeparator, doc.FileName, doc.Summary)
			}
		}
		fmt.Fprintf(&b, "%s\n%s\n", contextSeparator, sc.Chunk.Content)
	}
	return strings.TrimSpace(b.String())
}

func (s *documentService) Delete(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindById(ctx, documentId)
	if err != nil {
		return storageError(err, "Failed to load document")
	}
	if doc == nil {
		return apperror.NotFound(apperror.CodeDocumentNotFound, "Document not found")
	}
	if !doc.OwnedBy(requesterId) {
		return apperror.Unauthorized("Only the owner can delete this document")
	}

	unlock, err := s.locker.Lock(ctx, versionLockKey(doc.Id))
	if err != nil {
		return apperror.VersionConflict("Timed out waiting for the document version lock", err)
	}
	defer unlock()

	if err := uow.Begin(ctx); err != nil {
		return storageError(err, "Failed to start transaction")
	}
	defer uow.Rollback()

	// Chunks of a running batch would land after the delete and outlive the document.
	latest, err := uow.VersionRepository().FindLatest(ctx, doc.Id)
	if err != nil {
		return storageError(err, "Failed to load versions")
	}
	if inFlight(latest) {
		return errDocumentProcessing()
	}

	if err := uow.ChunkRepository().DeleteByDocument(ctx, doc.Id); err != nil {
		return storageError(err, "Failed to delete chunks")
	}
	if err := uow.VersionRepository().DeleteByDocument(ctx, doc.Id); err != nil {
		return storageError(err, "Failed to delete versions")
	}
	if err := uow.DocumentRepository().Delete(ctx, doc.Id); err != nil {
		return storageError(err, "Failed to delete document")
	}
	if doc.CollectionId != nil {
		err := uow.CollectionRepository().AdjustCounters(ctx, *doc.CollectionId, -1, -doc.TotalTokens)
		if err != nil && !errors.Is(err, contract.ErrNotFound) {
			return storageError(err, "Failed to update collection")
		}
	}
	if err := uow.Commit(); err != nil {
		return storageError(err, "Failed to commit delete")
	}

	s.cacheService.InvalidateDocument(doc.Id)
	if err := s.indexerService.PublishDelete(ctx, doc.Id); err != nil {
		s.logger.Warn(documentModule, "Failed to queue full-text removal", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
	}
	s.notifier.notify(ctx, events.DocumentDeleted, map[string]interface{}{
		"document_id": doc.Id.String(),
		"owner_id":    doc.OwnerId.String(),
	})
	s.logger.Info(documentModule, "Document deleted", map[string]interface{}{"document_id": doc.Id.String()})
	return nil
}

func (s *documentService) Show(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.readableDocument(ctx, s.uowFactory.NewUnitOfWork(ctx), documentId, requesterId)
	if err != nil {
		return nil, err
	}

	// Access stats are advisory; a failed write does not fail the read.
	if err := s.uowFactory.NewUnitOfWork(ctx).DocumentRepository().TouchAccess(ctx, doc.Id); err != nil {
		s.logger.Warn(documentModule, "Failed to record access", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
	}

	res := toDocumentResponse(doc)
	return &res, nil
}

func (s *documentService) List(ctx context.Context, ownerId uuid.UUID, limit int, offset int) ([]*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.DocumentRepository().FindByOwner(ctx, ownerId, contract.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, storageError(err, "Failed to list documents")
	}

	res := make([]*dto.DocumentResponse, len(docs))
	for i, d := range docs {
		r := toDocumentResponse(d)
		res[i] = &r
	}
	return res, nil
}

// mutateDocument applies change to the owner's document under the revision check.
func (s *documentService) mutateDocument(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, change func(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.Document) error) (*dto.DocumentResponse, error) {
	doc, err := retry.Do(ctx, s.cfg.Retry, isVersionConflict, func(ctx context.Context) (*entity.Document, error) {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		doc, err := uow.DocumentRepository().FindById(ctx, documentId)
		if err != nil {
			return nil, storageError(err, "Failed to load document")
		}
		if doc == nil {
			return nil, apperror.NotFound(apperror.CodeDocumentNotFound, "Document not found")
		}
		if !doc.OwnedBy(requesterId) {
			return nil, apperror.Unauthorized("Only the owner can modify this document")
		}

		if err := uow.Begin(ctx); err != nil {
			return nil, storageError(err, "Failed to start transaction")
		}
		defer uow.Rollback()

		if err := change(ctx, uow, doc); err != nil {
			return nil, err
		}
		if err := uow.DocumentRepository().UpdateWithRevision(ctx, doc); err != nil {
			return nil, storageError(err, "Document was modified concurrently")
		}
		if err := uow.Commit(); err != nil {
			return nil, storageError(err, "Failed to commit document")
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, doc, events.DocumentUpdated, nil)
	res := toDocumentResponse(doc)
	return &res, nil
}

func (s *documentService) UpdateTags(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, tags []string) (*dto.DocumentResponse, error) {
	return s.mutateDocument(ctx, documentId, requesterId, func(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.Document) error {
		doc.Tags = normalizeTags(tags)
		return nil
	})
}

func (s *documentService) SetArchived(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, archived bool) (*dto.DocumentResponse, error) {
	return s.mutateDocument(ctx, documentId, requesterId, func(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.Document) error {
		doc.IsArchived = archived
		return nil
	})
}

func (s *documentService) MoveToCollection(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, collectionId *uuid.UUID) (*dto.DocumentResponse, error) {
	return s.mutateDocument(ctx, documentId, requesterId, func(ctx context.Context, uow unitofwork.UnitOfWork, doc *entity.Document) error {
		if sameCollection(doc.CollectionId, collectionId) {
			return nil
		}
		if collectionId != nil {
			if _, err := s.requireCollection(ctx, uow, *collectionId, requesterId); err != nil {
				return err
			}
			if err := uow.CollectionRepository().AdjustCounters(ctx, *collectionId, 1, doc.TotalTokens); err != nil {
				return storageError(err, "Failed to update collection")
			}
		}
		if doc.CollectionId != nil {
			err := uow.CollectionRepository().AdjustCounters(ctx, *doc.CollectionId, -1, -doc.TotalTokens)
			if err != nil && !errors.Is(err, contract.ErrNotFound) {
				return storageError(err, "Failed to update collection")
			}
		}
		doc.CollectionId = collectionId
		return nil
	})
}

func (s *documentService) ListVersions(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID) ([]*dto.VersionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.readableDocument(ctx, uow, documentId, requesterId); err != nil {
		return nil, err
	}

	versions, err := uow.VersionRepository().FindByDocument(ctx, documentId)
	if err != nil {
		return nil, storageError(err, "Failed to list versions")
	}

	res := make([]*dto.VersionResponse, len(versions))
	for i, v := range versions {
		r := toVersionResponse(v)
		res[i] = &r
	}
	return res, nil
}

func (s *documentService) ShowVersion(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, versionNumber int) (*dto.ShowVersionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.readableDocument(ctx, uow, documentId, requesterId); err != nil {
		return nil, err
	}

	version, err := uow.VersionRepository().FindByNumber(ctx, documentId, versionNumber)
	if err != nil {
		return nil, storageError(err, "Failed to load version")
	}
	if version == nil {
		return nil, apperror.NotFound(apperror.CodeVersionNotFound, "Version not found")
	}

	chunks := []*entity.Chunk{}
	if version.HasRange() {
		chunks, err = uow.ChunkRepository().FindByRange(ctx, documentId, contract.IdRange{Start: version.ChunkStartId, End: version.ChunkEndId})
		if err != nil {
			return nil, storageError(err, "Failed to load chunks")
		}
		// Batched versions allocate ids out of index order.
		sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	}

	res := &dto.ShowVersionResponse{
		VersionResponse: toVersionResponse(version),
		Chunks:          make([]dto.ChunkResponse, len(chunks)),
	}
	for i, c := range chunks {
		res.Chunks[i] = toChunkResponse(c)
	}
	return res, nil
}

func (s *documentService) ShowChunk(ctx context.Context, documentId uuid.UUID, requesterId uuid.UUID, versionNumber int, chunkIndex int) (*dto.ChunkResponse, error) {
	if _, err := s.readableDocument(ctx, s.uowFactory.NewUnitOfWork(ctx), documentId, requesterId); err != nil {
		return nil, err
	}
	chunk, err := s.cacheService.GetChunk(ctx, documentId, versionNumber, chunkIndex)
	if err != nil {
		return nil, storageError(err, "Failed to load chunk")
	}
	if chunk == nil {
		return nil, apperror.NotFound("CHUNK_NOT_FOUND", "Chunk not found")
	}
	res := toChunkResponse(chunk)
	return &res, nil
}

// readableDocument loads through the cache and checks that requesterId owns the
// document or can access its collection.
func (s *documentService) readableDocument(ctx context.Context, uow unitofwork.UnitOfWork, documentId uuid.UUID, requesterId uuid.UUID) (*entity.Document, error) {
	doc, err := s.cacheService.GetDocument(ctx, documentId)
	if err != nil {
		return nil, storageError(err, "Failed to load document")
	}
	if doc == nil {
		return nil, apperror.NotFound(apperror.CodeDocumentNotFound, "Document not found")
	}
	if doc.OwnedBy(requesterId) {
		return doc, nil
	}
	if doc.CollectionId != nil {
		collection, err := uow.CollectionRepository().FindById(ctx, *doc.CollectionId)
		if err != nil {
			return nil, storageError(err, "Failed to load collection")
		}
		if collection != nil && collection.AccessibleBy(requesterId.String(), nil) {
			return doc, nil
		}
	}
	return nil, apperror.Unauthorized("You do not have access to this document")
}

func (s *documentService) requireCollection(ctx context.Context, uow unitofwork.UnitOfWork, collectionId uuid.UUID, requesterId uuid.UUID) (*entity.Collection, error) {
	collection, err := uow.CollectionRepository().FindById(ctx, collectionId)
	if err != nil {
		return nil, storageError(err, "Failed to load collection")
	}
	if collection == nil {
		return nil, apperror.NotFound(apperror.CodeCollectionNotFound, "Collection not found")
	}
	if !collection.AccessibleBy(requesterId.String(), nil) {
		return nil, apperror.Unauthorized("You do not have access to this collection")
	}
	return collection, nil
}

// afterWrite refreshes derived state once a document change is committed.
func (s *documentService) afterWrite(ctx context.Context, doc *entity.Document, eventType string, data map[string]interface{}) {
	s.cacheService.InvalidateDocument(doc.Id)
	s.cacheService.PutDocument(doc)

	if err := s.indexerService.PublishUpsert(ctx, doc.Id); err != nil {
		s.logger.Warn(documentModule, "Failed to queue full-text indexing", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
	}

	if data == nil {
		data = map[string]interface{}{}
	}
	data["document_id"] = doc.Id.String()
	s.notifier.notify(ctx, eventType, data)
}

// versionChunks stamps fresh, unsaved copies of template with versionNumber.
func versionChunks(template []*entity.Chunk, versionNumber int) []*entity.Chunk {
	out := make([]*entity.Chunk, len(template))
	for i, c := range template {
		cp := *c
		cp.Id = 0
		cp.VersionNumber = versionNumber
		out[i] = &cp
	}
	return out
}

func sameCollection(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func toDocumentResponse(d *entity.Document) dto.DocumentResponse {
	return dto.DocumentResponse{
		Id:             d.Id,
		FileName:       d.FileName,
		FileType:       d.FileType,
		MimeType:       d.MimeType,
		FileSize:       d.FileSize,
		OwnerId:        d.OwnerId,
		CollectionId:   d.CollectionId,
		Tags:           d.Tags,
		CurrentVersion: d.CurrentVersion,
		IsArchived:     d.IsArchived,
		Status:         string(d.Status),
		Summary:        d.Summary,
		ChunkCount:     d.ChunkCount,
		TotalTokens:    d.TotalTokens,
		AccessCount:    d.AccessCount,
		LastAccessedAt: d.LastAccessedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func toVersionResponse(v *entity.Version) dto.VersionResponse {
	return dto.VersionResponse{
		DocumentId:        v.DocumentId,
		VersionNumber:     v.VersionNumber,
		ChunkStartId:      v.ChunkStartId,
		ChunkEndId:        v.ChunkEndId,
		IsActive:          v.IsActive,
		Status:            string(v.Status),
		ChangeDescription: v.ChangeDescription,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}

func toChunkResponse(c *entity.Chunk) dto.ChunkResponse {
	return dto.ChunkResponse{
		Id:            c.Id,
		DocumentId:    c.DocumentId,
		VersionNumber: c.VersionNumber,
		ChunkIndex:    c.ChunkIndex,
		Content:       c.Content,
		TokenCount:    c.TokenCount,
	}
}
