package embedding

import (
	"context"
	"net/http"
	"time"

	"docrag-be/pkg/httpjson"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1/models/"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbeddingRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"task_type,omitempty"`
}

// GeminiProvider calls text-embedding-004, which emits 768-dimensional vectors.
type GeminiProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	model := "text-embedding-004"
	return &GeminiProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: geminiEndpoint + model + ":embedContent",
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	req := geminiEmbeddingRequest{
		Model:    "models/" + p.model,
		Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
		TaskType: taskType,
	}

	var resp EmbeddingResponse
	headers := map[string]string{"x-goog-api-key": p.apiKey}
	if err := httpjson.Post(ctx, p.client, "gemini embeddings", p.endpoint, headers, req, &resp); err != nil {
		return nil, err
	}
	return unitResponse(resp.Embedding.Values), nil
}
