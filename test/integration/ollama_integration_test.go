package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"docrag-be/pkg/embedding"
	"docrag-be/pkg/llm"
	"docrag-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaURL(t *testing.T) string {
	url := os.Getenv("OLLAMA_BASE_URL")
	if url == "" || os.Getenv("OLLAMA_INTEGRATION") != "true" {
		t.Skip("Skipping Ollama test: set OLLAMA_INTEGRATION=true and OLLAMA_BASE_URL")
	}
	return url
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestOllamaEmbeddingDimensions(t *testing.T) {
	url := ollamaURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	provider := embedding.NewGuarded(
		embedding.NewOllamaProvider(url, getenv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text")),
		embedding.GuardOptions{Name: "ollama-it", Dimensions: 768},
	)

	doc, err := provider.Generate(ctx, "Postgres stores vectors with pgvector.", embedding.TaskRetrievalDocument)
	require.NoError(t, err)
	query, err := provider.Generate(ctx, "Where are vectors stored?", embedding.TaskRetrievalQuery)
	require.NoError(t, err)

	assert.Len(t, doc.Embedding.Values, 768)
	assert.Len(t, query.Embedding.Values, 768)
}

func TestOllamaGenerateAnswersFromContext(t *testing.T) {
	url := ollamaURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	provider := ollama.NewOllamaProvider(url, getenv("LLM_MODELS", "llama3"))

	answer, err := provider.Generate(ctx,
		"Context: The project codename is BLUEFIN.\n\nQuestion: What is the project codename? Answer with one word.",
		llm.WithTemperature(0),
	)
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(answer), "BLUEFIN")
}
