package huggingface

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"docrag-be/pkg/httpjson"
	"docrag-be/pkg/llm"
)

const (
	backend        = "huggingface"
	defaultRouter  = "https://router.huggingface.co/v1"
	defaultMaxToks = 800
)

// HuggingFaceProvider talks to the OpenAI-compatible chat completions router.
type HuggingFaceProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = (*HuggingFaceProvider)(nil)

var errNoChoices = errors.New("huggingface: reply carried no choices")

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message llm.Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewHuggingFaceProvider(apiKey, baseURL, model string) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = defaultRouter
	}
	return &HuggingFaceProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: llm.DefaultTimeout},
	}
}

func (p *HuggingFaceProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ResolveOptions(llm.Options{Model: p.model, MaxTokens: defaultMaxToks, Temperature: 0.2}, opts...)

	req := completionRequest{
		Model:       options.Model,
		Messages:    history,
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
	}

	var resp completionResponse
	if err := httpjson.Post(ctx, p.client, backend, p.baseURL+"/chat/completions", httpjson.Bearer(p.apiKey), req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", &httpjson.StatusError{Backend: backend, Status: http.StatusOK, Body: resp.Error.Message}
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *HuggingFaceProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, llm.PromptMessages(prompt), opts...)
}
