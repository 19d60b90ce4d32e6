package bootstrap

import (
	"context"
	"log"
	"time"

	"docrag-be/internal/config"
	"docrag-be/internal/controller"
	"docrag-be/internal/pkg/logger"
	"docrag-be/internal/repository/memory"
	"docrag-be/internal/repository/unitofwork"
	"docrag-be/internal/service"
	"docrag-be/pkg/cache"
	"docrag-be/pkg/embedding"
	"docrag-be/pkg/events"
	"docrag-be/pkg/fulltext"
	"docrag-be/pkg/llm/factory"
	"docrag-be/pkg/lock"
	"docrag-be/pkg/retry"

	pktNats "docrag-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const cacheConsumerName = "docrag-cache-invalidation"

type Container struct {
	// Controllers
	DocumentController   controller.IDocumentController
	CollectionController controller.ICollectionController
	SearchController     controller.ISearchController

	// Background Services (Exposed for main.go to run)
	IndexerService service.IIndexerService

	Logger logger.ILogger
	// StorageDriver is "memory" or "postgres", whichever was actually wired.
	StorageDriver string

	closers []func()
}

// NewContainer wires every service. db may be nil when the memory storage driver is selected.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(logger.Options{
		FilePath:   cfg.App.LogFilePath,
		Production: cfg.App.Environment == "production",
		Level:      cfg.App.LogLevel,
	})
	deadLetterLogger := logger.NewIsolatedLogger(cfg.App.DeadLetterLogPath)

	c := &Container{Logger: sysLogger}

	// 1. Storage
	var uowFactory unitofwork.RepositoryFactory
	var index fulltext.Index
	if cfg.App.StorageDriver == "memory" || db == nil {
		uowFactory = unitofwork.NewMemoryRepositoryFactory(memory.NewStore())
		index = fulltext.NewMemoryIndex()
		c.StorageDriver = "memory"
		log.Printf("[INFO] Using Storage Driver: MEMORY")
	} else {
		uowFactory = unitofwork.NewRepositoryFactory(db)
		index = fulltext.NewPostgresIndex(db)
		c.StorageDriver = "postgres"
		log.Printf("[INFO] Using Storage Driver: POSTGRES")
	}

	// 2. Version lock
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.App.LockDriver == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to local locks", err)
		} else {
			locker = lock.NewRedisLocker(rdb, "docrag:lock:", 30*time.Second)
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
	}

	// 3. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// A nil interface disables domain events rather than holding a typed nil.
	var publisher events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		publisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	// 4. AI Providers
	baseProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
		cfg.Ai.EmbeddingAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Embedding Provider: %v", err)
	}
	embeddingProvider := embedding.NewGuarded(baseProvider, embedding.GuardOptions{
		Name:              cfg.Ai.EmbeddingProvider,
		RequestsPerSecond: cfg.Ai.EmbeddingRPS,
		Dimensions:        cfg.Ai.EmbeddingDimensions,
	})
	log.Printf("[INFO] Using Embedding Provider: %s (%s)", cfg.Ai.EmbeddingProvider, cfg.Ai.EmbeddingModel)

	retryPolicy := retry.Policy{
		Attempts:   cfg.Retry.Attempts,
		BaseDelay:  cfg.Retry.BaseDelay,
		Multiplier: cfg.Retry.Multiplier,
		MaxDelay:   cfg.Retry.MaxDelay,
	}

	models, err := factory.NewRegistryFromConfig(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModels,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
		retryPolicy,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModels)

	// 5. Services
	ttlCache := cache.NewTTLCache(cfg.Cache.TTL, cfg.Cache.MaxEntries, cfg.Cache.SweepInterval)
	cacheService := service.NewCacheService(uowFactory, ttlCache, sysLogger)

	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.closers = append(c.closers, natsSub.Close)
		if err := natsSub.Subscribe(context.Background(), pktNats.SubjectPrefix+"document.>", cacheConsumerName, cacheService.HandleEvent); err != nil {
			log.Printf("[WARN] Cache invalidation subscription failed: %v", err)
		}
	}

	indexerService := service.NewIndexerService(
		pubSub,
		cfg.App.IndexTopic,
		cfg.App.DeadLetterTopic,
		cfg.Retry.MaxIndexRetries,
		uowFactory,
		index,
		sysLogger,
		deadLetterLogger,
	)

	batchService := service.NewBatchService(
		uowFactory,
		embeddingProvider,
		cacheService,
		indexerService,
		publisher,
		sysLogger,
		service.BatchServiceConfig{
			BatchSize:   cfg.Batch.Size,
			Concurrency: cfg.Batch.Concurrency,
			Retry:       retryPolicy,
		},
	)

	documentService := service.NewDocumentService(
		uowFactory,
		embeddingProvider,
		models,
		cacheService,
		batchService,
		indexerService,
		locker,
		publisher,
		sysLogger,
		service.DocumentServiceConfig{
			MaxUploadBytes: cfg.Upload.MaxBytes,
			MaxChunkSize:   cfg.Upload.MaxChunkSize,
			SimilarChunks:  cfg.Search.SimilarChunks,
			Retry:          retryPolicy,
		},
	)

	searchService := service.NewSearchService(
		uowFactory,
		embeddingProvider,
		index,
		sysLogger,
		service.SearchServiceConfig{
			FullTextBoost:   cfg.Search.FullTextBoost,
			DefaultLimit:    cfg.Search.DefaultLimit,
			MaxBatch:        cfg.Search.MaxBatch,
			VectorScoreMode: cfg.Search.VectorScoreMode,
		},
	)

	collectionService := service.NewCollectionService(uowFactory, retryPolicy, sysLogger)

	// 6. Controllers
	c.DocumentController = controller.NewDocumentController(documentService)
	c.CollectionController = controller.NewCollectionController(collectionService)
	c.SearchController = controller.NewSearchController(searchService)
	c.IndexerService = indexerService

	return c
}

// Close releases broker and cache connections in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
