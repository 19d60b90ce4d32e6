package ollama

import (
	"context"
	"net/http"
	"strings"

	"docrag-be/pkg/httpjson"
	"docrag-be/pkg/llm"
)

const backend = "ollama"

// OllamaProvider answers RAG prompts through a local Ollama /api/chat endpoint.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
	// numCtx widens the model window for long retrieved contexts; 0 keeps the model default.
	numCtx int
}

var _ llm.LLMProvider = (*OllamaProvider)(nil)

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: llm.DefaultTimeout},
	}
}

// WithContextWindow sets num_ctx on every request.
func (o *OllamaProvider) WithContextWindow(tokens int) *OllamaProvider {
	o.numCtx = tokens
	return o
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  modelOptions  `json:"options"`
}

type modelOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type chatResponse struct {
	Message llm.Message `json:"message"`
	Error   string      `json:"error,omitempty"`
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ResolveOptions(llm.Options{Model: o.model, Temperature: 0.2}, opts...)

	messages := make([]llm.Message, len(history))
	for i, msg := range history {
		messages[i] = msg
		if msg.Role == "model" {
			messages[i].Role = llm.RoleAssistant
		}
	}

	req := chatRequest{
		Model:    options.Model,
		Messages: messages,
		Options: modelOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
			NumCtx:      o.numCtx,
		},
	}

	var resp chatResponse
	if err := httpjson.Post(ctx, o.client, backend, o.baseURL+"/api/chat", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", &httpjson.StatusError{Backend: backend, Status: http.StatusOK, Body: resp.Error}
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.Chat(ctx, llm.PromptMessages(prompt), opts...)
}
