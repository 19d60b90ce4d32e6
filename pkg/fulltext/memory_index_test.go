package fulltext

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "42"}, Terms("Hello, world! hello 42"))
	assert.Empty(t, Terms("  ...  "))
}

func TestMemoryIndex_SearchRanksByTermCoverage(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	docA, docB := uuid.New(), uuid.New()

	require.NoError(t, idx.IndexChunk(ctx, ChunkEntry{ChunkId: 1, DocumentId: docA, Content: "vector databases store embeddings"}))
	require.NoError(t, idx.IndexChunk(ctx, ChunkEntry{ChunkId: 2, DocumentId: docB, Content: "relational databases store rows"}))

	hits, err := idx.Search(ctx, "vector databases", Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, docA, hits[0].DocumentId)
	assert.Equal(t, 1.0, hits[0].Score)
	assert.Equal(t, int64(1), hits[0].ChunkId)
	assert.Equal(t, 0.5, hits[1].Score)
}

func TestMemoryIndex_CollectionFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	col := uuid.New()
	inCol, outCol := uuid.New(), uuid.New()

	require.NoError(t, idx.IndexDocument(ctx, DocumentEntry{DocumentId: inCol, CollectionId: &col, Title: "budget.pdf", Summary: "annual budget"}))
	require.NoError(t, idx.IndexDocument(ctx, DocumentEntry{DocumentId: outCol, Title: "budget.txt", Summary: "budget draft"}))

	hits, err := idx.Search(ctx, "budget", Filters{CollectionIds: []uuid.UUID{col}}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, inCol, hits[0].DocumentId)
	assert.Equal(t, KindDocument, hits[0].Kind)
}

func TestMemoryIndex_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	doc := uuid.New()

	require.NoError(t, idx.IndexDocument(ctx, DocumentEntry{DocumentId: doc, Title: "notes.md"}))
	require.NoError(t, idx.IndexChunk(ctx, ChunkEntry{ChunkId: 7, DocumentId: doc, Content: "notes body"}))
	require.NoError(t, idx.DeleteDocument(ctx, doc))

	hits, err := idx.Search(ctx, "notes", Filters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 0, idx.Len())
}

func TestMemoryIndex_Limit(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	doc := uuid.New()
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, idx.IndexChunk(ctx, ChunkEntry{ChunkId: i, DocumentId: doc, Content: "same words"}))
	}

	hits, err := idx.Search(ctx, "same", Filters{}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{hits[0].ChunkId, hits[1].ChunkId, hits[2].ChunkId})
}

func TestMemoryIndex_DistinctDocumentsKeepsBestHitPerDocument(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	docA, docB := uuid.New(), uuid.New()

	require.NoError(t, idx.IndexChunk(ctx, ChunkEntry{ChunkId: 1, DocumentId: docA, Content: "raft"}))
	require.NoError(t, idx.IndexChunk(ctx, ChunkEntry{ChunkId: 2, DocumentId: docA, Content: "raft consensus"}))
	require.NoError(t, idx.IndexChunk(ctx, ChunkEntry{ChunkId: 3, DocumentId: docA, Content: "raft consensus"}))
	require.NoError(t, idx.IndexChunk(ctx, ChunkEntry{ChunkId: 4, DocumentId: docB, Content: "consensus"}))

	hits, err := idx.Search(ctx, "raft consensus", Filters{}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, docA, hits[1].DocumentId)

	hits, err = idx.Search(ctx, "raft consensus", Filters{DistinctDocuments: true}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, docA, hits[0].DocumentId)
	assert.Equal(t, int64(2), hits[0].ChunkId)
	assert.Equal(t, docB, hits[1].DocumentId)
	assert.Equal(t, 0.5, hits[1].Score)
}
