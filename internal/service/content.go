package service

import (
	"context"
	"errors"

	"docrag-be/internal/apperror"
	"docrag-be/internal/entity"
	"docrag-be/internal/repository/contract"
	"docrag-be/pkg/embedding"
	"docrag-be/pkg/extract"
	"docrag-be/pkg/utils"

	"github.com/google/uuid"
)

const summaryMaxRunes = 500

// preparedContent is an uploaded file after validation, extraction and chunking.
type preparedContent struct {
	FileType string
	Chunks   []string
	Summary  string
	Tokens   int64
}

func prepareContent(fileName, mimeType string, data []byte, maxBytes int64, maxChunkSize int) (*preparedContent, error) {
	if err := extract.Validate(fileName, mimeType, int64(len(data)), maxBytes); err != nil {
		return nil, err
	}
	text, err := extract.ExtractText(fileName, data)
	if err != nil {
		return nil, err
	}

	chunks := utils.SplitParagraphs(text, maxChunkSize)
	if len(chunks) == 0 {
		return nil, apperror.Validation(apperror.CodeEmptyContent, "No text content could be extracted from the file")
	}

	var tokens int64
	for _, c := range chunks {
		tokens += int64(utils.EstimateTokens(c))
	}

	return &preparedContent{
		FileType: extract.DetectFileType(fileName),
		Chunks:   chunks,
		Summary:  utils.Summarize(text, summaryMaxRunes),
		Tokens:   tokens,
	}, nil
}

// embedChunks turns texts into chunk entities for one version. indexOffset is the
// position of texts[0] within the version.
func embedChunks(ctx context.Context, provider embedding.EmbeddingProvider, documentId uuid.UUID, versionNumber int, indexOffset int, texts []string) ([]*entity.Chunk, error) {
	vectors, err := embedding.EmbedAll(ctx, provider, texts, embedding.TaskRetrievalDocument)
	if err != nil {
		return nil, asEmbeddingError(err)
	}

	chunks := make([]*entity.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &entity.Chunk{
			DocumentId:    documentId,
			VersionNumber: versionNumber,
			ChunkIndex:    indexOffset + i,
			Content:       text,
			Embedding:     vectors[i],
			TokenCount:    utils.EstimateTokens(text),
		}
	}
	return chunks, nil
}

func chunkIds(chunks []*entity.Chunk) []int64 {
	ids := make([]int64, len(chunks))
	for i, c := range chunks {
		ids[i] = c.Id
	}
	return ids
}

func asEmbeddingError(err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Embedding("Failed to generate embeddings", err)
}

// storageError maps repository sentinels onto the error taxonomy.
func storageError(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, contract.ErrStaleRevision):
		return apperror.VersionConflict(message, err)
	case errors.Is(err, contract.ErrNotFound):
		return apperror.NotFound(apperror.CodeCollectionNotFound, "Collection not found")
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Wrap(apperror.KindInternal, apperror.CodeDatabase, message, err)
}

// isVersionConflict selects the conflicts worth retrying. DOCUMENT_PROCESSING
// only clears when a batch finishes, so it is returned at once.
func isVersionConflict(err error) bool {
	e, ok := apperror.As(err)
	return ok && e.Kind == apperror.KindVersionConflict && e.Code != apperror.CodeDocumentProcessing
}

// inFlight reports whether a batch is still writing chunks for v.
func inFlight(v *entity.Version) bool {
	return v != nil && (v.Status == entity.StatusPending || v.Status == entity.StatusProcessing)
}

func versionLockKey(documentId uuid.UUID) string {
	return "document-version:" + documentId.String()
}

func errDocumentProcessing() error {
	return apperror.New(apperror.KindVersionConflict, apperror.CodeDocumentProcessing, "The document is still being processed")
}
