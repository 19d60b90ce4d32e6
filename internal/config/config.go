package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Cache    CacheConfig
	Batch    BatchConfig
	Retry    RetryConfig
	Search   SearchConfig
	Upload   UploadConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LogLevel           string
	DeadLetterLogPath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	StorageDriver      string // "postgres" or "memory"
	LockDriver         string // "local" or "redis"
	IndexTopic         string
	DeadLetterTopic    string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider   string // "ollama", "gemini" or "jina"
	OllamaBaseURL       string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingDimensions int
	EmbeddingRPS        float64
	LLMProvider         string // "ollama" or "huggingface"
	LLMModels           string // comma separated, first one is the default
	LLMBaseURL          string
	LLMAPIKey           string
}

type CacheConfig struct {
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
}

type BatchConfig struct {
	Size        int
	Concurrency int
}

type RetryConfig struct {
	Attempts   int
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	// MaxIndexRetries bounds redelivery of a full-text indexing message before it is dead-lettered.
	MaxIndexRetries int
}

type SearchConfig struct {
	FullTextBoost   float64
	DefaultLimit    int
	MaxBatch        int
	SimilarChunks   int
	VectorScoreMode string // "similarity" or "leading_component"
}

type UploadConfig struct {
	MaxBytes     int64
	MaxChunkSize int
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LogLevel:           getEnv("LOG_LEVEL", "debug"),
			DeadLetterLogPath:  getEnv("DEAD_LETTER_LOG_PATH", "logs/dead_letter.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			StorageDriver:      getEnv("STORAGE_DRIVER", "postgres"),
			LockDriver:         getEnv("LOCK_DRIVER", "local"),
			IndexTopic:         getEnv("FULLTEXT_INDEX_TOPIC", "fulltext.index"),
			DeadLetterTopic:    getEnv("FULLTEXT_DEAD_LETTER_TOPIC", "fulltext.dead_letter"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:      getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
			EmbeddingAPIKey:     getEnv("EMBEDDING_API_KEY", ""),
			EmbeddingRPS:        getEnvAsFloat("EMBEDDING_RPS", 20),
			LLMProvider:         getEnv("LLM_PROVIDER", "ollama"),
			LLMModels:           getEnv("LLM_MODELS", "llama3"),
			LLMBaseURL:          getEnv("LLM_BASE_URL", getEnv("OLLAMA_BASE_URL", "http://localhost:11434")),
			LLMAPIKey:           getEnv("LLM_API_KEY", ""),
		},
		Cache: CacheConfig{
			TTL:           getEnvAsDuration("CACHE_TTL", 30*time.Minute),
			MaxEntries:    getEnvAsInt("CACHE_MAX_ENTRIES", 1000),
			SweepInterval: getEnvAsDuration("CACHE_SWEEP_INTERVAL", 5*time.Minute),
		},
		Batch: BatchConfig{
			Size:        getEnvAsInt("BATCH_SIZE", 50),
			Concurrency: getEnvAsInt("BATCH_CONCURRENCY", 5),
		},
		Retry: RetryConfig{
			Attempts:        getEnvAsInt("RETRY_ATTEMPTS", 3),
			BaseDelay:       getEnvAsDuration("RETRY_BASE_DELAY", 100*time.Millisecond),
			Multiplier:      getEnvAsFloat("RETRY_MULTIPLIER", 2),
			MaxDelay:        getEnvAsDuration("RETRY_MAX_DELAY", 2*time.Second),
			MaxIndexRetries: getEnvAsInt("FULLTEXT_MAX_RETRIES", 3),
		},
		Search: SearchConfig{
			FullTextBoost:   getEnvAsFloat("SEARCH_FULLTEXT_BOOST", 1.2),
			DefaultLimit:    getEnvAsInt("SEARCH_DEFAULT_LIMIT", 5),
			MaxBatch:        getEnvAsInt("SEARCH_MAX_BATCH", 10),
			SimilarChunks:   getEnvAsInt("RAG_SIMILAR_CHUNKS", 3),
			VectorScoreMode: getEnv("SEARCH_VECTOR_SCORE", "similarity"),
		},
		Upload: UploadConfig{
			MaxBytes:     int64(getEnvAsInt("UPLOAD_MAX_BYTES", 50*1024*1024)),
			MaxChunkSize: getEnvAsInt("CHUNK_MAX_CHARS", 1000),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Insecure:    getEnv("OTEL_EXPORTER_OTLP_INSECURE", "true") == "true",
			ServiceName: getEnv("OTEL_SERVICE_NAME", "docrag-backend"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
