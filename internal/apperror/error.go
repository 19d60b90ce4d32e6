package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindVersionConflict
	KindEmbedding
	KindSearchBackend
	KindBatchProcessing
)

const (
	CodeInvalidFileType      = "INVALID_FILE_TYPE"
	CodeFileTooLarge         = "FILE_TOO_LARGE"
	CodeEmptyFile            = "EMPTY_FILE"
	CodeEmptyContent         = "EMPTY_CONTENT"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeDocumentNotFound     = "DOCUMENT_NOT_FOUND"
	CodeVersionNotFound      = "VERSION_NOT_FOUND"
	CodeCollectionNotFound   = "COLLECTION_NOT_FOUND"
	CodeModelNotFound        = "MODEL_NOT_FOUND"
	CodeUnauthorizedAccess   = "UNAUTHORIZED_ACCESS"
	CodeVersionConflict      = "VERSION_CONFLICT"
	CodeDocumentProcessing   = "DOCUMENT_PROCESSING"
	CodeEmbeddingGeneration  = "EMBEDDING_GENERATION_ERROR"
	CodeEmbeddingDimension   = "EMBEDDING_DIMENSION_MISMATCH"
	CodeSearchBackend        = "SEARCH_BACKEND_ERROR"
	CodeBatchProcessing      = "BATCH_PROCESSING_ERROR"
	CodeGenerationFailed     = "GENERATION_ERROR"
	CodeDatabase             = "DATABASE_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
	CodeCollectionNotEmpty   = "COLLECTION_NOT_EMPTY"
	CodeBatchLimitExceeded   = "BATCH_LIMIT_EXCEEDED"
	CodeVersionRequiresScope = "VERSION_REQUIRES_DOCUMENT"
)

// Error is the single error type surfaced by services. Kind decides the HTTP status,
// Code is the stable machine-readable identifier returned to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Status() int {
	return StatusOf(e.Kind)
}

func StatusOf(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindVersionConflict:
		return http.StatusConflict
	case KindEmbedding, KindSearchBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, CodeUnauthorizedAccess, message)
}

func VersionConflict(message string, err error) *Error {
	return Wrap(KindVersionConflict, CodeVersionConflict, message, err)
}

func Embedding(message string, err error) *Error {
	return Wrap(KindEmbedding, CodeEmbeddingGeneration, message, err)
}

func SearchBackend(message string, err error) *Error {
	return Wrap(KindSearchBackend, CodeSearchBackend, message, err)
}

func BatchProcessing(message string, err error) *Error {
	return Wrap(KindBatchProcessing, CodeBatchProcessing, message, err)
}

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, CodeInternal, message, err)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the Kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
