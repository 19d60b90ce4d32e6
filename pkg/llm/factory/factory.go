package factory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"docrag-be/pkg/llm"
	"docrag-be/pkg/llm/huggingface"
	"docrag-be/pkg/llm/ollama"
	"docrag-be/pkg/retry"
)

// ollamaContextWindow fits several retrieved chunks plus their document summaries.
const ollamaContextWindow = 8192

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName).WithContextWindow(ollamaContextWindow), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// Registry maps model names to providers. The first registered model is the default.
type Registry struct {
	mu           sync.RWMutex
	providers    map[string]llm.LLMProvider
	defaultModel string
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]llm.LLMProvider)}
}

// NewRegistryFromConfig registers one provider per comma separated model name.
// Each provider retries transient backend statuses under policy.
func NewRegistryFromConfig(providerType, models, baseURL, apiKey string, policy retry.Policy) (*Registry, error) {
	r := NewRegistry()
	for _, name := range strings.Split(models, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		p, err := NewLLMProvider(providerType, name, baseURL, apiKey)
		if err != nil {
			return nil, err
		}
		r.Register(name, llm.NewRetrying(p, policy))
	}
	if r.defaultModel == "" {
		return nil, fmt.Errorf("no LLM models configured")
	}
	return r, nil
}

func (r *Registry) Register(name string, provider llm.LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.defaultModel == "" {
		r.defaultModel = name
	}
	r.providers[name] = provider
}

// Lookup resolves a model hint. An empty hint means the default model; an
// unknown name reports ok == false instead of silently falling back.
func (r *Registry) Lookup(name string) (provider llm.LLMProvider, resolved string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultModel
	}
	provider, ok = r.providers[name]
	return provider, name, ok
}

func (r *Registry) DefaultModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultModel
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
