package service

import (
	"context"
	"testing"

	"docrag-be/internal/entity"
	"docrag-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheService_DocumentReadThroughReturnsCopies(t *testing.T) {
	env := newTestEnv(t)
	doc := env.ingest(t, uuid.New(), nil, "Cached content.")
	env.cacheSvc.InvalidateDocument(doc.DocumentId)

	_, ok := env.cache.Get(documentKey(doc.DocumentId))
	require.False(t, ok)

	first, err := env.cacheSvc.GetDocument(context.Background(), doc.DocumentId)
	require.NoError(t, err)
	_, ok = env.cache.Get(documentKey(doc.DocumentId))
	assert.True(t, ok, "a miss is filled from storage")

	first.FileName = "mutated.txt"
	second, err := env.cacheSvc.GetDocument(context.Background(), doc.DocumentId)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", second.FileName)
}

func TestCacheService_ChunkKeysAreNamespaced(t *testing.T) {
	env := newTestEnv(t)
	doc := env.ingest(t, uuid.New(), nil, "First paragraph.\n\nSecond paragraph.")

	chunk, err := env.cacheSvc.GetChunk(context.Background(), doc.DocumentId, 1, 0)
	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, 0, chunk.ChunkIndex)

	assert.NotEqual(t, documentKey(doc.DocumentId), chunkKey(doc.DocumentId, 1, 0))
	cached, ok := env.cache.Get(chunkKey(doc.DocumentId, 1, 0))
	require.True(t, ok)
	cachedChunk, isChunk := cached.(*entity.Chunk)
	require.True(t, isChunk)
	assert.Equal(t, chunk.Content, cachedChunk.Content)
}

func TestCacheService_WrongTypeUnderKeyIsAMiss(t *testing.T) {
	env := newTestEnv(t)
	doc := env.ingest(t, uuid.New(), nil, "content")
	env.cache.Set(documentKey(doc.DocumentId), "garbage")

	got, err := env.cacheSvc.GetDocument(context.Background(), doc.DocumentId)
	require.NoError(t, err)
	assert.Equal(t, doc.DocumentId, got.Id)
}

func TestCacheService_HandleEventInvalidatesDocumentAndChunks(t *testing.T) {
	env := newTestEnv(t)
	doc := env.ingest(t, uuid.New(), nil, "content")
	ctx := context.Background()

	_, err := env.cacheSvc.GetDocument(ctx, doc.DocumentId)
	require.NoError(t, err)
	_, err = env.cacheSvc.GetChunk(ctx, doc.DocumentId, 1, 0)
	require.NoError(t, err)

	require.NoError(t, env.cacheSvc.HandleEvent(ctx, events.New(events.DocumentUpdated, map[string]interface{}{"document_id": "not-a-uuid"})))
	_, ok := env.cache.Get(documentKey(doc.DocumentId))
	assert.True(t, ok, "malformed events are ignored")

	require.NoError(t, env.cacheSvc.HandleEvent(ctx, events.New(events.DocumentUpdated, map[string]interface{}{"document_id": doc.DocumentId.String()})))
	_, ok = env.cache.Get(documentKey(doc.DocumentId))
	assert.False(t, ok)
	_, ok = env.cache.Get(chunkKey(doc.DocumentId, 1, 0))
	assert.False(t, ok)
}

func TestCacheService_InvalidationDuringReadSkipsWriteBack(t *testing.T) {
	env := newTestEnv(t)
	svc := env.cacheSvc.(*cacheService)
	id := uuid.New()
	stale := &entity.Document{Id: id, FileName: "stale.txt"}

	gen := svc.generation(id)
	svc.InvalidateDocument(id)
	svc.setIfCurrent(id, gen, documentKey(id), stale)
	svc.setIfCurrent(id, gen, chunkKey(id, 1, 0), &entity.Chunk{DocumentId: id})

	_, ok := env.cache.Get(documentKey(id))
	assert.False(t, ok, "a read that raced an invalidation is not cached")
	_, ok = env.cache.Get(chunkKey(id, 1, 0))
	assert.False(t, ok)

	svc.setIfCurrent(id, svc.generation(id), documentKey(id), stale)
	_, ok = env.cache.Get(documentKey(id))
	assert.True(t, ok)
}
