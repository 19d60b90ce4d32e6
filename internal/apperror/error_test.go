package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindUnauthorized, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindVersionConflict, http.StatusConflict},
		{KindEmbedding, http.StatusBadGateway},
		{KindSearchBackend, http.StatusBadGateway},
		{KindBatchProcessing, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusOf(tt.kind))
	}
}

func TestKindOf_FollowsWrapChain(t *testing.T) {
	base := NotFound(CodeDocumentNotFound, "document not found")
	wrapped := fmt.Errorf("loading: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(wrapped, KindValidation))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeDocumentNotFound, appErr.Code)
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := SearchBackend("full-text search failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), CodeSearchBackend)
	assert.Equal(t, http.StatusBadGateway, err.Status())
}
