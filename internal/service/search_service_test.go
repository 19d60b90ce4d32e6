package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"docrag-be/internal/apperror"
	"docrag-be/internal/dto"
	"docrag-be/internal/entity"
	"docrag-be/internal/pkg/logger"
	"docrag-be/internal/repository/contract"
	"docrag-be/pkg/fulltext"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredChunk(documentId uuid.UUID, id int64, similarity float64) *contract.ScoredChunk {
	return &contract.ScoredChunk{
		Chunk:      &entity.Chunk{Id: id, DocumentId: documentId, Embedding: []float32{0.5, 0.5}},
		Distance:   1 - similarity,
		Similarity: similarity,
	}
}

func TestFuse_FullTextBoostWinsOnEqualRawScore(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	results := Fuse(
		[]fulltext.Hit{{DocumentId: a, Score: 0.5}},
		[]*contract.ScoredChunk{scoredChunk(b, 1, 0.5)},
		1.2, VectorScoreSimilarity,
	)

	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].DocumentId)
	assert.Equal(t, SourceFullText, results[0].Source)
	assert.InDelta(t, 0.6, results[0].Rank, 1e-9)
	assert.Equal(t, b, results[1].DocumentId)
	assert.InDelta(t, 0.5, results[1].Rank, 1e-9)
}

func TestFuse_DeduplicatesKeepingFullText(t *testing.T) {
	a := uuid.New()

	results := Fuse(
		[]fulltext.Hit{{DocumentId: a, Score: 0.1}, {DocumentId: a, ChunkId: 9, Score: 0.05}},
		[]*contract.ScoredChunk{scoredChunk(a, 3, 0.99), scoredChunk(a, 4, 0.98)},
		1.2, VectorScoreSimilarity,
	)

	require.Len(t, results, 1)
	assert.Equal(t, SourceFullText, results[0].Source)
	assert.InDelta(t, 0.1, results[0].Score, 1e-9)
}

func TestFuse_TiesKeepIterationOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	results := Fuse(
		nil,
		[]*contract.ScoredChunk{scoredChunk(a, 1, 0.7), scoredChunk(b, 2, 0.7), scoredChunk(c, 3, 0.9)},
		1.2, VectorScoreSimilarity,
	)

	require.Len(t, results, 3)
	assert.Equal(t, []uuid.UUID{c, a, b}, []uuid.UUID{results[0].DocumentId, results[1].DocumentId, results[2].DocumentId})
}

func TestVectorScore_LeadingComponent(t *testing.T) {
	sc := scoredChunk(uuid.New(), 1, 0.2)
	assert.InDelta(t, 0.95, VectorScore(sc, VectorScoreLeadingComponent), 1e-6)
	assert.InDelta(t, 0.2, VectorScore(sc, VectorScoreSimilarity), 1e-9)
}

func indexAll(t *testing.T, env *testEnv, ids ...uuid.UUID) {
	t.Helper()
	for _, id := range ids {
		doc := env.document(t, id)
		require.NoError(t, env.index.IndexDocument(context.Background(), fulltext.DocumentEntry{
			DocumentId:   doc.Id,
			CollectionId: doc.CollectionId,
			Title:        doc.FileName,
			Summary:      doc.Summary,
		}))
	}
}

func TestFindSimilar_MergesBothLegsWithMetadata(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	lexical := env.ingest(t, owner, nil, "kubernetes operators reconcile desired state")
	semantic := env.ingest(t, owner, nil, "gardening tips for tomatoes")
	indexAll(t, env, lexical.DocumentId)

	res, err := env.search.FindSimilar(context.Background(), &dto.SimilarRequest{Content: "kubernetes operators", Limit: 5})
	require.NoError(t, err)

	require.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.FullTextTotal)
	assert.Equal(t, lexical.DocumentId, res.Results[0].DocumentId)
	assert.Equal(t, SourceFullText, res.Results[0].Source)
	assert.Equal(t, "notes.txt", res.Results[0].Metadata.FileName)
	assert.Equal(t, semantic.DocumentId, res.Results[1].DocumentId)
	assert.Equal(t, SourceVector, res.Results[1].Source)
}

func TestFindSimilar_RestrictsBothLegsToCollections(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	col := env.createCollection(t, owner, "scoped")
	inside := env.ingest(t, owner, &col.Id, "shared words alpha")
	outside := env.ingest(t, owner, nil, "shared words alpha")
	indexAll(t, env, inside.DocumentId, outside.DocumentId)

	res, err := env.search.FindSimilar(context.Background(), &dto.SimilarRequest{
		Content:       "shared words",
		CollectionIds: []uuid.UUID{col.Id},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, inside.DocumentId, res.Results[0].DocumentId)
}

func TestFindSimilar_FullTextLegCountsDocumentsNotChunks(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	chatty := env.ingest(t, owner, nil, "alpha")
	quiet := env.ingest(t, owner, nil, "beta")

	ctx := context.Background()
	for i := 1; i <= 8; i++ {
		require.NoError(t, env.index.IndexChunk(ctx, fulltext.ChunkEntry{
			ChunkId: int64(1000 + i), DocumentId: chatty.DocumentId, Content: "raft consensus log",
		}))
	}
	require.NoError(t, env.index.IndexChunk(ctx, fulltext.ChunkEntry{
		ChunkId: 2000, DocumentId: quiet.DocumentId, Content: "raft notes",
	}))

	res, err := env.search.FindSimilar(ctx, &dto.SimilarRequest{Content: "raft", Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, res.FullTextTotal)
	require.Len(t, res.Results, 2)
	sources := map[uuid.UUID]string{}
	for _, r := range res.Results {
		sources[r.DocumentId] = r.Source
	}
	assert.Equal(t, SourceFullText, sources[chatty.DocumentId])
	assert.Equal(t, SourceFullText, sources[quiet.DocumentId])
}

type failingIndex struct{ fulltext.Index }

func (failingIndex) Search(ctx context.Context, query string, filters fulltext.Filters, limit int) ([]fulltext.Hit, error) {
	return nil, errors.New("index offline")
}

func TestFindSimilar_EitherLegFailingFailsTheCall(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, uuid.New(), nil, "content")

	broken := NewSearchService(env.uowFactory, env.embedder, failingIndex{env.index}, logger.NewNopLogger(), SearchServiceConfig{})
	_, err := broken.FindSimilar(context.Background(), &dto.SimilarRequest{Content: "content"})
	assert.True(t, apperror.Is(err, apperror.KindSearchBackend))

	env.embedder.failOn = "content"
	_, err = env.search.FindSimilar(context.Background(), &dto.SimilarRequest{Content: "content"})
	assert.True(t, apperror.Is(err, apperror.KindSearchBackend))
}

func TestFindSimilarDocuments(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	seed := env.ingest(t, owner, nil, "distributed consensus with raft")
	similar := env.ingest(t, owner, nil, "raft consensus leader election")
	indexAll(t, env, seed.DocumentId, similar.DocumentId)

	res, err := env.search.FindSimilarDocuments(context.Background(), seed.DocumentId, 5)
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	for _, r := range res.Results {
		assert.NotEqual(t, seed.DocumentId, r.DocumentId)
	}
	assert.Equal(t, similar.DocumentId, res.Results[0].DocumentId)

	_, err = env.search.FindSimilarDocuments(context.Background(), uuid.New(), 5)
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDocumentNotFound, e.Code)
}

func TestBatchFindSimilar_Limit(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, uuid.New(), nil, "content")

	requests := make([]dto.SimilarRequest, 11)
	for i := range requests {
		requests[i] = dto.SimilarRequest{Content: "content"}
	}
	_, err := env.search.BatchFindSimilar(context.Background(), &dto.BatchSimilarRequest{Requests: requests})
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBatchLimitExceeded, e.Code)

	res, err := env.search.BatchFindSimilar(context.Background(), &dto.BatchSimilarRequest{Requests: requests[:10]})
	require.NoError(t, err)
	assert.Len(t, res, 10)
}

func TestIndexer_IndexesPublishedDocuments(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, env.indexer.Consume(ctx))

	doc := env.ingest(t, uuid.New(), nil, "indexed through the queue")

	assert.Eventually(t, func() bool {
		hits, err := env.index.Search(context.Background(), "queue", fulltext.Filters{}, 5)
		return err == nil && len(hits) > 0 && hits[0].DocumentId == doc.DocumentId
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, env.indexer.PublishDelete(context.Background(), doc.DocumentId))
	assert.Eventually(t, func() bool {
		return env.index.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
