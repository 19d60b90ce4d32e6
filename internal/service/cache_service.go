package service

import (
	"context"
	"fmt"
	"sync"

	"docrag-be/internal/entity"
	"docrag-be/internal/pkg/logger"
	"docrag-be/internal/repository/unitofwork"
	"docrag-be/pkg/cache"
	"docrag-be/pkg/events"

	"github.com/google/uuid"
)

const cacheModule = "cache"

// ICacheService fronts the document and chunk repositories. Values are copies;
// a miss always falls through to storage.
type ICacheService interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetChunk(ctx context.Context, documentId uuid.UUID, versionNumber int, chunkIndex int) (*entity.Chunk, error)
	PutDocument(document *entity.Document)
	InvalidateDocument(id uuid.UUID)
	// HandleEvent drops entries named by document events from other instances.
	HandleEvent(ctx context.Context, event events.Event) error
}

type cacheService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *cache.TTLCache
	logger     logger.ILogger

	// generations counts invalidations per document. A read-through only
	// writes back when no invalidation happened since its repository read began.
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewCacheService(uowFactory unitofwork.RepositoryFactory, c *cache.TTLCache, log logger.ILogger) ICacheService {
	return &cacheService{
		uowFactory: uowFactory,
		cache:       c,
		logger:      log,
		generations: make(map[uuid.UUID]uint64),
	}
}

func documentKey(id uuid.UUID) string {
	return "document:" + id.String()
}

func chunkKeyPrefix(documentId uuid.UUID) string {
	return "chunk:" + documentId.String() + ":"
}

func chunkKey(documentId uuid.UUID, versionNumber int, chunkIndex int) string {
	return fmt.Sprintf("%s%d:%d", chunkKeyPrefix(documentId), versionNumber, chunkIndex)
}

func (s *cacheService) GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	if v, ok := s.cache.Get(documentKey(id)); ok {
		if doc, ok := v.(*entity.Document); ok {
			return cloneDocument(doc), nil
		}
		s.logger.Warn(cacheModule, "Unexpected value type under document key", map[string]interface{}{"document_id": id.String()})
		s.cache.Delete(documentKey(id))
	}

	gen := s.generation(id)
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindById(ctx, id)
	if err != nil || doc == nil {
		return doc, err
	}
	s.setIfCurrent(id, gen, documentKey(id), cloneDocument(doc))
	return doc, nil
}

func (s *cacheService) GetChunk(ctx context.Context, documentId uuid.UUID, versionNumber int, chunkIndex int) (*entity.Chunk, error) {
	key := chunkKey(documentId, versionNumber, chunkIndex)
	if v, ok := s.cache.Get(key); ok {
		if chunk, ok := v.(*entity.Chunk); ok {
			c := *chunk
			return &c, nil
		}
		s.cache.Delete(key)
	}

	gen := s.generation(documentId)
	uow := s.uowFactory.NewUnitOfWork(ctx)
	chunk, err := uow.ChunkRepository().FindByIndex(ctx, documentId, versionNumber, chunkIndex)
	if err != nil || chunk == nil {
		return chunk, err
	}
	c := *chunk
	s.setIfCurrent(documentId, gen, key, &c)
	return chunk, nil
}

func (s *cacheService) PutDocument(document *entity.Document) {
	if document == nil {
		return
	}
	s.cache.Set(documentKey(document.Id), cloneDocument(document))
}

func (s *cacheService) InvalidateDocument(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generations[id]++
	s.cache.Delete(documentKey(id))
	s.cache.DeletePrefix(chunkKeyPrefix(id))
}

func (s *cacheService) generation(id uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[id]
}

// setIfCurrent stores value unless the document was invalidated after gen was read.
func (s *cacheService) setIfCurrent(id uuid.UUID, gen uint64, key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[id] != gen {
		return
	}
	s.cache.Set(key, value)
}

func (s *cacheService) HandleEvent(ctx context.Context, event events.Event) error {
	raw, ok := event.Payload()["document_id"].(string)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		s.logger.Warn(cacheModule, "Ignoring event with malformed document id", map[string]interface{}{
			"type":        event.EventType(),
			"document_id": raw,
		})
		return nil
	}
	s.InvalidateDocument(id)
	return nil
}

func cloneDocument(d *entity.Document) *entity.Document {
	c := *d
	c.Tags = append([]string(nil), d.Tags...)
	return &c
}
