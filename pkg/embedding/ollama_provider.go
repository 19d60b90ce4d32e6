package embedding

import (
	"context"
	"net/http"
	"strings"
	"time"

	"docrag-be/pkg/httpjson"
)

// OllamaProvider embeds through a local Ollama model such as nomic-embed-text.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL string, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// nomic-embed-text takes the task as a text prefix.
var ollamaTaskPrefix = map[string]string{
	TaskRetrievalQuery:    "search_query: ",
	TaskRetrievalDocument: "search_document: ",
}

func (p *OllamaProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	req := ollamaEmbeddingRequest{Model: p.model, Prompt: ollamaTaskPrefix[taskType] + text}

	var resp ollamaEmbeddingResponse
	if err := httpjson.Post(ctx, p.client, "ollama embeddings", p.baseURL+"/api/embeddings", nil, req, &resp); err != nil {
		return nil, err
	}

	values := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		values[i] = float32(v)
	}
	return unitResponse(values), nil
}
