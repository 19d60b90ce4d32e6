package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docrag-be/internal/dto"
	"docrag-be/internal/entity"
	"docrag-be/internal/pkg/logger"
	"docrag-be/internal/repository/memory"
	"docrag-be/internal/repository/unitofwork"
	"docrag-be/pkg/cache"
	"docrag-be/pkg/embedding"
	"docrag-be/pkg/fulltext"
	"docrag-be/pkg/llm"
	"docrag-be/pkg/llm/factory"
	"docrag-be/pkg/lock"
	"docrag-be/pkg/retry"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testDimensions = 16

// hashEmbedder maps each word to a bucket, so texts sharing words are close.
type hashEmbedder struct {
	calls atomic.Int64
	// gate, when set, blocks every call until it is closed.
	gate chan struct{}
	// failOn makes any text containing it fail.
	failOn string
}

func (e *hashEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	e.calls.Add(1)
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding backend unavailable")
	}

	vec := make([]float32, testDimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%testDimensions]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: vec}}, nil
}

// recordingLLM answers with a fixed string and keeps the last prompt.
type recordingLLM struct {
	mu     sync.Mutex
	name   string
	prompt string
	err    error
	calls  int
}

func (l *recordingLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return l.Generate(ctx, history[len(history)-1].Content, options...)
}

func (l *recordingLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompt = prompt
	l.calls++
	if l.err != nil {
		return "", l.err
	}
	return "answer from " + l.name, nil
}

func (l *recordingLLM) lastPrompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prompt
}

type testEnv struct {
	store       *memory.Store
	uowFactory  unitofwork.RepositoryFactory
	cache       *cache.TTLCache
	index       *fulltext.MemoryIndex
	pubSub      *gochannel.GoChannel
	embedder    *hashEmbedder
	llm         *recordingLLM
	cacheSvc    ICacheService
	indexer     IIndexerService
	batch       IBatchService
	documents   IDocumentService
	search      ISearchService
	collections ICollectionService
}

func fastRetry() retry.Policy {
	return retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.NewNopLogger()
	store := memory.NewStore()
	uowFactory := unitofwork.NewMemoryRepositoryFactory(store)
	ttlCache := cache.NewTTLCache(time.Minute, 100, time.Minute)
	index := fulltext.NewMemoryIndex()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	embedder := &hashEmbedder{}
	model := &recordingLLM{name: "llama3"}
	registry := factory.NewRegistry()
	registry.Register("llama3", model)
	registry.Register("mistral", &recordingLLM{name: "mistral"})

	cacheSvc := NewCacheService(uowFactory, ttlCache, log)
	indexer := NewIndexerService(pubSub, "fulltext.index", "fulltext.dead_letter", 3, uowFactory, index, log, log)
	batch := NewBatchService(uowFactory, embedder, cacheSvc, indexer, nil, log, BatchServiceConfig{
		BatchSize:   50,
		Concurrency: 5,
		Retry:       fastRetry(),
	})
	documents := NewDocumentService(uowFactory, embedder, registry, cacheSvc, batch, indexer, lock.NewKeyedMutex(), nil, log,
		DocumentServiceConfig{
			MaxUploadBytes: 1 << 20,
			MaxChunkSize:   1000,
			SimilarChunks:  3,
			Retry:          fastRetry(),
		})
	search := NewSearchService(uowFactory, embedder, index, log, SearchServiceConfig{
		FullTextBoost: 1.2,
		DefaultLimit:  5,
		MaxBatch:      10,
	})

	return &testEnv{
		store:       store,
		uowFactory:  uowFactory,
		cache:       ttlCache,
		index:       index,
		pubSub:      pubSub,
		embedder:    embedder,
		llm:         model,
		cacheSvc:    cacheSvc,
		indexer:     indexer,
		batch:       batch,
		documents:   documents,
		search:      search,
		collections: NewCollectionService(uowFactory, fastRetry(), log),
	}
}

// paragraphs builds n blank-line separated paragraphs, each long enough to be its own chunk.
func paragraphs(n int, topic string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("Paragraph %d about %s. %s", i, topic, strings.Repeat("filler words here ", 40))
	}
	return strings.Join(parts, "\n\n")
}

func (e *testEnv) ingest(t *testing.T, owner uuid.UUID, collectionId *uuid.UUID, content string) *dto.IngestResponse {
	t.Helper()
	res, err := e.documents.Ingest(context.Background(), &dto.IngestRequest{
		File:         []byte(content),
		FileName:     "notes.txt",
		MimeType:     "text/plain",
		OwnerId:      owner,
		CollectionId: collectionId,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) createCollection(t *testing.T, owner uuid.UUID, name string) *dto.CollectionResponse {
	t.Helper()
	res, err := e.collections.Create(context.Background(), owner, &dto.CreateCollectionRequest{Name: name})
	require.NoError(t, err)
	return res
}

func (e *testEnv) document(t *testing.T, id uuid.UUID) *entity.Document {
	t.Helper()
	doc, err := e.uowFactory.NewUnitOfWork(context.Background()).DocumentRepository().FindById(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func (e *testEnv) collection(t *testing.T, id uuid.UUID) *entity.Collection {
	t.Helper()
	c, err := e.uowFactory.NewUnitOfWork(context.Background()).CollectionRepository().FindById(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (e *testEnv) versions(t *testing.T, documentId uuid.UUID) []*entity.Version {
	t.Helper()
	vs, err := e.uowFactory.NewUnitOfWork(context.Background()).VersionRepository().FindByDocument(context.Background(), documentId)
	require.NoError(t, err)
	return vs
}
