package embedding

import (
	"context"
	"errors"
	"net/http"
	"time"

	"docrag-be/pkg/httpjson"
)

var errJinaEmpty = errors.New("jina embeddings: reply carried no vectors")

// JinaProvider targets jina-embeddings-v2-base-en (768 dimensions).
type JinaProvider struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

type jinaEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type jinaEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func NewJinaProvider(apiKey string) *JinaProvider {
	return &JinaProvider{
		apiKey:   apiKey,
		endpoint: "https://api.jina.ai/v1/embeddings",
		model:    "jina-embeddings-v2-base-en",
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Generate ignores taskType; v2-base-en embeds queries and passages alike.
func (p *JinaProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	req := jinaEmbeddingRequest{Model: p.model, Input: []string{text}}

	var resp jinaEmbeddingResponse
	if err := httpjson.Post(ctx, p.client, "jina embeddings", p.endpoint, httpjson.Bearer(p.apiKey), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errJinaEmpty
	}
	return unitResponse(resp.Data[0].Embedding), nil
}
