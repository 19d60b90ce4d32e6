package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"docrag-be/internal/apperror"
	"docrag-be/internal/dto"
	"docrag-be/internal/entity"
	"docrag-be/internal/repository/contract"
	"docrag-be/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngest_RoundTripReturnsChunksInOrder(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	content := paragraphs(6, "rivers")

	res := env.ingest(t, owner, nil, content)
	assert.Equal(t, 6, res.ChunkCount)
	assert.NotEmpty(t, res.Summary)

	chunks, err := env.uowFactory.NewUnitOfWork(context.Background()).ChunkRepository().FindByDocument(context.Background(), res.DocumentId)
	require.NoError(t, err)

	expected := utils.SplitParagraphs(content, 1000)
	require.Len(t, chunks, len(expected))
	for i, c := range chunks {
		assert.Equal(t, expected[i], c.Content)
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, 1, c.VersionNumber)
		assert.Len(t, c.Embedding, testDimensions)
	}

	versions := env.versions(t, res.DocumentId)
	require.Len(t, versions, 1)
	assert.True(t, versions[0].IsActive)
	assert.Equal(t, entity.StatusCompleted, versions[0].Status)
	assert.Equal(t, chunks[0].Id, versions[0].ChunkStartId)
	assert.Equal(t, chunks[len(chunks)-1].Id, versions[0].ChunkEndId)
}

func TestIngest_ValidationFailsBeforeAnyWrite(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()

	_, err := env.documents.Ingest(context.Background(), &dto.IngestRequest{
		File:     []byte("MZ binary"),
		FileName: "setup.exe",
		OwnerId:  owner,
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Equal(t, int64(0), env.embedder.calls.Load())

	docs, err := env.uowFactory.NewUnitOfWork(context.Background()).DocumentRepository().FindByOwner(context.Background(), owner, contract.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_UnknownCollectionIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	missing := uuid.New()

	_, err := env.documents.Ingest(context.Background(), &dto.IngestRequest{
		File:         []byte("hello"),
		FileName:     "a.txt",
		OwnerId:      uuid.New(),
		CollectionId: &missing,
	})
	require.Error(t, err)
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeCollectionNotFound, e.Code)
}

func TestIngest_UpdatesCollectionCounters(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	col := env.createCollection(t, owner, "research")

	res := env.ingest(t, owner, &col.Id, paragraphs(2, "tides"))

	stored := env.collection(t, col.Id)
	assert.Equal(t, 1, stored.DocumentCount)
	assert.Equal(t, env.document(t, res.DocumentId).TotalTokens, stored.TotalTokens)
	assert.Positive(t, stored.TotalTokens)
}

func TestCreateVersion_TwoConcurrentCallsGetTwoAndThree(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	doc := env.ingest(t, owner, nil, paragraphs(2, "first"))

	numbers := runConcurrentVersions(t, env, doc.DocumentId, owner, 2)
	assert.Equal(t, []int{2, 3}, numbers)
}

func TestCreateVersion_ManyConcurrentCallsAreGapFree(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	doc := env.ingest(t, owner, nil, paragraphs(2, "first"))

	numbers := runConcurrentVersions(t, env, doc.DocumentId, owner, 10)
	expected := make([]int, 10)
	for i := range expected {
		expected[i] = i + 2
	}
	assert.Equal(t, expected, numbers)

	versions := env.versions(t, doc.DocumentId)
	require.Len(t, versions, 11)

	active := 0
	for _, v := range versions {
		if v.IsActive {
			active++
			assert.Equal(t, 11, v.VersionNumber)
		}
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, 11, env.document(t, doc.DocumentId).CurrentVersion)
}

func TestCreateVersion_ChunkRangesAreDisjoint(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	doc := env.ingest(t, owner, nil, paragraphs(3, "first"))
	runConcurrentVersions(t, env, doc.DocumentId, owner, 4)

	versions := env.versions(t, doc.DocumentId)
	for i, a := range versions {
		require.True(t, a.HasRange())
		for _, b := range versions[i+1:] {
			overlap := a.ChunkStartId <= b.ChunkEndId && b.ChunkStartId <= a.ChunkEndId
			assert.False(t, overlap, "versions %d and %d overlap", a.VersionNumber, b.VersionNumber)
		}
	}
}

func runConcurrentVersions(t *testing.T, env *testEnv, documentId uuid.UUID, owner uuid.UUID, n int) []int {
	t.Helper()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.documents.CreateVersion(context.Background(), &dto.CreateVersionRequest{
				DocumentId:  documentId,
				RequesterId: owner,
				File:        []byte(paragraphs(2, "revision")),
				FileName:    "notes.txt",
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers = append(numbers, res.VersionNumber)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	sort.Ints(numbers)
	return numbers
}

func TestCreateVersion_NonOwnerIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	doc := env.ingest(t, uuid.New(), nil, "original")

	_, err := env.documents.CreateVersion(context.Background(), &dto.CreateVersionRequest{
		DocumentId:  doc.DocumentId,
		RequesterId: uuid.New(),
		File:        []byte("new"),
		FileName:    "notes.txt",
	})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
	assert.Len(t, env.versions(t, doc.DocumentId), 1)
}

func TestDelete_DecrementsCollectionAndRemovesDerivedState(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	col := env.createCollection(t, owner, "five")

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, env.ingest(t, owner, &col.Id, paragraphs(2, "delete")).DocumentId)
	}
	require.Equal(t, 5, env.collection(t, col.Id).DocumentCount)

	target := ids[2]
	require.NoError(t, env.documents.Delete(context.Background(), target, owner))

	assert.Equal(t, 4, env.collection(t, col.Id).DocumentCount)
	assert.Nil(t, env.document(t, target))
	assert.Empty(t, env.versions(t, target))

	count, err := env.uowFactory.NewUnitOfWork(context.Background()).ChunkRepository().CountByDocument(context.Background(), target)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = env.documents.Delete(context.Background(), target, owner)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDelete_NonOwnerIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	doc := env.ingest(t, uuid.New(), nil, "keep me")

	err := env.documents.Delete(context.Background(), doc.DocumentId, uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
	assert.NotNil(t, env.document(t, doc.DocumentId))
}

func TestQuery_UnknownCollectionHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	doc := env.ingest(t, owner, nil, "cached content")
	_, err := env.documents.Show(context.Background(), doc.DocumentId, owner)
	require.NoError(t, err)

	cachedBefore := env.cache.Len()
	embedCallsBefore := env.embedder.calls.Load()
	missing := uuid.New()

	_, err = env.documents.Query(context.Background(), &dto.QueryRequest{
		Query:        "anything",
		CollectionId: &missing,
		RequesterId:  owner,
	})
	require.Error(t, err)
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindNotFound, e.Kind)
	assert.Equal(t, apperror.CodeCollectionNotFound, e.Code)

	assert.Equal(t, cachedBefore, env.cache.Len())
	assert.Equal(t, embedCallsBefore, env.embedder.calls.Load())
	assert.Empty(t, env.llm.lastPrompt())
}

func TestQuery_DocumentScopeBuildsPrompt(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	doc := env.ingest(t, owner, nil, "Salmon migrate upstream to spawn.\n\nBears wait at the falls.")
	env.ingest(t, owner, nil, "Unrelated text about compilers.")

	res, err := env.documents.Query(context.Background(), &dto.QueryRequest{
		Query:       "Where do bears wait?",
		DocumentId:  &doc.DocumentId,
		RequesterId: owner,
	})
	require.NoError(t, err)

	assert.Equal(t, "llama3", res.ModelUsed)
	assert.Equal(t, "answer from llama3", res.Answer)
	require.NotEmpty(t, res.Sources)
	for _, s := range res.Sources {
		assert.Equal(t, doc.DocumentId, s.DocumentId)
	}

	prompt := env.llm.lastPrompt()
	assert.Contains(t, prompt, "Use the following context to answer the question.")
	assert.Contains(t, prompt, "Bears wait at the falls.")
	assert.Contains(t, prompt, "Question:\nWhere do bears wait?")
	assert.NotContains(t, prompt, "compilers")
}

func TestQuery_VersionScopeUsesThatVersionsChunks(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	doc := env.ingest(t, owner, nil, "version one talks about apples")
	_, err := env.documents.CreateVersion(context.Background(), &dto.CreateVersionRequest{
		DocumentId:  doc.DocumentId,
		RequesterId: owner,
		File:        []byte("version two talks about oranges"),
		FileName:    "notes.txt",
	})
	require.NoError(t, err)

	one := 1
	res, err := env.documents.Query(context.Background(), &dto.QueryRequest{
		Query:         "fruit",
		DocumentId:    &doc.DocumentId,
		VersionNumber: &one,
		RequesterId:   owner,
	})
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, 1, res.Sources[0].VersionNumber)
	assert.Contains(t, env.llm.lastPrompt(), "apples")

	res, err = env.documents.Query(context.Background(), &dto.QueryRequest{
		Query:       "fruit",
		DocumentId:  &doc.DocumentId,
		RequesterId: owner,
	})
	require.NoError(t, err)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, 2, res.Sources[0].VersionNumber)
}

func TestQuery_Validation(t *testing.T) {
	env := newTestEnv(t)
	two := 2

	_, err := env.documents.Query(context.Background(), &dto.QueryRequest{Query: "  "})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = env.documents.Query(context.Background(), &dto.QueryRequest{Query: "q", VersionNumber: &two})
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeVersionRequiresScope, e.Code)
}

func TestQuery_UnknownModelIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, uuid.New(), nil, "content")

	_, err := env.documents.Query(context.Background(), &dto.QueryRequest{Query: "q", Model: "gpt-17"})
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeModelNotFound, e.Code)
}

func TestQuery_CollectionDefaultModel(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	col, err := env.collections.Create(context.Background(), owner, &dto.CreateCollectionRequest{Name: "m", DefaultModel: "mistral"})
	require.NoError(t, err)
	env.ingest(t, owner, &col.Id, "collection content")

	res, err := env.documents.Query(context.Background(), &dto.QueryRequest{Query: "q", CollectionId: &col.Id, RequesterId: owner})
	require.NoError(t, err)
	assert.Equal(t, "mistral", res.ModelUsed)
	assert.Equal(t, "answer from mistral", res.Answer)
}

func TestQuery_GenerationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, uuid.New(), nil, "content")
	env.llm.err = errors.New("model offline")

	_, err := env.documents.Query(context.Background(), &dto.QueryRequest{Query: "q"})
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeGenerationFailed, e.Code)
}

func TestQuery_GenerationCalledOnce(t *testing.T) {
	env := newTestEnv(t)
	env.ingest(t, uuid.New(), nil, "content")
	env.llm.err = errors.New("context length exceeded")

	_, err := env.documents.Query(context.Background(), &dto.QueryRequest{Query: "q"})
	require.Error(t, err)
	assert.Equal(t, 1, env.llm.calls)
}

func TestShow_TracksAccessAndChecksOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	doc := env.ingest(t, owner, nil, "content")

	_, err := env.documents.Show(context.Background(), doc.DocumentId, owner)
	require.NoError(t, err)
	_, err = env.documents.Show(context.Background(), doc.DocumentId, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.document(t, doc.DocumentId).AccessCount)

	_, err = env.documents.Show(context.Background(), doc.DocumentId, uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestShow_SharedCollectionGrantsRead(t *testing.T) {
	env := newTestEnv(t)
	owner, reader := uuid.New(), uuid.New()
	col, err := env.collections.Create(context.Background(), owner, &dto.CreateCollectionRequest{
		Name:        "shared",
		AccessUsers: []string{reader.String()},
	})
	require.NoError(t, err)
	doc := env.ingest(t, owner, &col.Id, "shared content")

	res, err := env.documents.Show(context.Background(), doc.DocumentId, reader)
	require.NoError(t, err)
	assert.Equal(t, doc.DocumentId, res.Id)

	err = env.documents.Delete(context.Background(), doc.DocumentId, reader)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestMoveToCollection_AdjustsBothSides(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	from := env.createCollection(t, owner, "from")
	to := env.createCollection(t, owner, "to")
	doc := env.ingest(t, owner, &from.Id, paragraphs(2, "moving"))
	tokens := env.document(t, doc.DocumentId).TotalTokens

	res, err := env.documents.MoveToCollection(context.Background(), doc.DocumentId, owner, &to.Id)
	require.NoError(t, err)
	assert.Equal(t, &to.Id, res.CollectionId)

	assert.Equal(t, 0, env.collection(t, from.Id).DocumentCount)
	assert.Equal(t, int64(0), env.collection(t, from.Id).TotalTokens)
	assert.Equal(t, 1, env.collection(t, to.Id).DocumentCount)
	assert.Equal(t, tokens, env.collection(t, to.Id).TotalTokens)
}

func TestUpdateTagsAndArchive(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	doc := env.ingest(t, owner, nil, "content")

	res, err := env.documents.UpdateTags(context.Background(), doc.DocumentId, owner, []string{" Go ", "go", "RAG"})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "rag"}, res.Tags)

	res, err = env.documents.SetArchived(context.Background(), doc.DocumentId, owner, true)
	require.NoError(t, err)
	assert.True(t, res.IsArchived)
	assert.Equal(t, []string{"go", "rag"}, res.Tags)

	_, err = env.documents.UpdateTags(context.Background(), doc.DocumentId, uuid.New(), []string{"x"})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestListAndShowVersions(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	doc := env.ingest(t, owner, nil, paragraphs(2, "v1"))
	_, err := env.documents.CreateVersion(context.Background(), &dto.CreateVersionRequest{
		DocumentId:        doc.DocumentId,
		RequesterId:       owner,
		File:              []byte(paragraphs(3, "v2")),
		FileName:          "notes.txt",
		ChangeDescription: "expanded",
	})
	require.NoError(t, err)

	versions, err := env.documents.ListVersions(context.Background(), doc.DocumentId, owner)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)
	assert.Equal(t, "expanded", versions[0].ChangeDescription)
	assert.True(t, versions[0].IsActive)
	assert.False(t, versions[1].IsActive)

	v1, err := env.documents.ShowVersion(context.Background(), doc.DocumentId, owner, 1)
	require.NoError(t, err)
	assert.Len(t, v1.Chunks, 2)

	_, err = env.documents.ShowVersion(context.Background(), doc.DocumentId, owner, 9)
	e, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeVersionNotFound, e.Code)

	chunk, err := env.documents.ShowChunk(context.Background(), doc.DocumentId, owner, 2, 2)
	require.NoError(t, err)
	assert.Contains(t, chunk.Content, "Paragraph 2 about v2")
}

func TestIsVersionConflict_DocumentProcessingIsNotRetried(t *testing.T) {
	assert.True(t, isVersionConflict(apperror.VersionConflict("stale revision", nil)))
	assert.False(t, isVersionConflict(errDocumentProcessing()))
	assert.False(t, isVersionConflict(errors.New("plain")))
}
