package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docrag-be/pkg/httpjson"
	"docrag-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_Chat(t *testing.T) {
	var received chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"  grounded answer\n"},"done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3").WithContextWindow(8192)
	answer, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "answer from context"},
		{Role: "model", Content: "earlier turn"},
	}, llm.WithModel("mistral"), llm.WithMaxTokens(256))

	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer)
	assert.Equal(t, "mistral", received.Model)
	assert.False(t, received.Stream)
	assert.Equal(t, llm.RoleAssistant, received.Messages[1].Role)
	assert.Equal(t, 256, received.Options.NumPredict)
	assert.Equal(t, 8192, received.Options.NumCtx)
	assert.InDelta(t, 0.2, received.Options.Temperature, 1e-9)
}

func TestOllamaProvider_GenerateReportsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model 'llama9' not found"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "llama9").Generate(context.Background(), "hi")

	var statusErr *httpjson.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Contains(t, statusErr.Body, "not found")
	assert.False(t, statusErr.Retryable())
}
