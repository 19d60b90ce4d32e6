package huggingface

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

func TestHuggingFaceProvider_Generate(t *testing.T) {
	var received completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"42"}}]}`))
	}))
	defer srv.Close()

	answer, err := NewHuggingFaceProvider("hf-token", srv.URL, "meta-llama/Llama-3.1-8B-Instruct").
		Generate(context.Background(), "meaning of life?", llm.WithTemperature(0))

	require.NoError(t, err)
	assert.Equal(t, "42", answer)
	assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", received.Model)
	assert.Equal(t, defaultMaxToks, received.MaxTokens)
	assert.Zero(t, received.Temperature)
	require.Len(t, received.Messages, 1)
	assert.Equal(t, llm.RoleUser, received.Messages[0].Role)
}

func TestHuggingFaceProvider_Errors(t *testing.T) {
	tests := []struct {
		name  string
		code  int
		body  string
		check func(t *testing.T, err error)
	}{
		{
			name: "no choices",
			code: http.StatusOK,
			body: `{"choices":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errNoChoices)
			},
		},
		{
			name: "api error field",
			code: http.StatusOK,
			body: `{"error":{"message":"model is loading"}}`,
			check: func(t *testing.T, err error) {
				var statusErr *httpjson.StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, "model is loading", statusErr.Body)
			},
		},
		{
			name: "rate limited",
			code: http.StatusTooManyRequests,
			body: `slow down`,
			check: func(t *testing.T, err error) {
				var statusErr *httpjson.StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.True(t, statusErr.Retryable())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHuggingFaceProvider("", srv.URL, "m").Chat(context.Background(), llm.PromptMessages("x"))
			tt.check(t, err)
		})
	}
}
