package bootstrap

import (
	"log"

	"knowledge-base-be/internal/config"
	"knowledge-base-be/internal/controller"
	"knowledge-base-be/internal/pkg/logger"
	"knowledge-base-be/internal/queue"
	"knowledge-base-be/internal/repository/unitofwork"
	"knowledge-base-be/internal/service"
	"knowledge-base-be/internal/worker"
	"knowledge-base-be/pkg/blobstore"
	"knowledge-base-be/pkg/database"
	"knowledge-base-be/pkg/embedding"
	"knowledge-base-be/pkg/extract"
	"knowledge-base-be/pkg/ocr"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

const auditTopic = "document.lifecycle"

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	SearchController   controller.ISearchController

	// Background Services (Exposed for main.go to run)
	AuditService service.IAuditService
	Processor    *worker.Processor

	// Infrastructure handles main.go needs for lifecycle management
	Logger      logger.ILogger
	QueueClient *asynq.Client
	Store       *blobstore.Storage
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	publisherService := service.NewPublisherService(auditTopic, pubSub)
	auditService := service.NewAuditService(pubSub, auditTopic, auditLogger)

	// 3. Infrastructure
	store, err := blobstore.New(blobstore.Config{
		Endpoint:  cfg.Storage.MinioEndpoint,
		AccessKey: cfg.Storage.MinioAccessKey,
		SecretKey: cfg.Storage.MinioSecretKey,
		UseSSL:    cfg.Storage.MinioUseSSL,
		RawBucket: cfg.Storage.RawBucket,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize blob storage: %v", err)
	}

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	})

	// Embedding provider based on config; every vector in one index
	// generation comes from the same provider and model.
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "openai" {
		embeddingProvider = embedding.NewOpenAIProvider(
			cfg.Ai.OpenAIAPIKey,
			cfg.Ai.OpenAIBaseURL,
			cfg.Ai.EmbeddingModel,
			cfg.Ai.EmbeddingDim,
		)
		log.Printf("[INFO] Using Embedding Provider: OPENAI (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
			cfg.Ai.EmbeddingDim,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	}
	// The provider and the index column must agree on vector width, or every
	// chunk insert fails at runtime. Better to refuse to boot.
	if columnDim, err := database.VectorDimension(db, "chunks", "embedding"); err != nil {
		log.Fatalf("[FATAL] Failed to inspect vector column: %v", err)
	} else if columnDim > 0 && columnDim != embeddingProvider.Dimension() {
		log.Fatalf("[FATAL] Embedding dimension mismatch: index column is vector(%d), provider emits %d-dim vectors. Re-run cmd/migrate with the new EMBEDDING_DIM.",
			columnDim, embeddingProvider.Dimension())
	}

	// Query embeddings are cached; repeated queries skip the provider round trip.
	cachedEmbedder := embedding.NewCachedProvider(embeddingProvider, cfg.Ai.QueryCacheTTL)

	var ocrProvider ocr.Provider
	if cfg.Ai.OcrEndpoint != "" {
		ocrProvider = ocr.NewHTTPProvider(cfg.Ai.OcrEndpoint)
		log.Printf("[INFO] OCR enabled (endpoint: %s)", cfg.Ai.OcrEndpoint)
	}
	extractor := extract.NewExtractor(ocrProvider)

	// 4. Services
	ingestionService := service.NewIngestionService(
		uowFactory,
		store,
		queue.NewEnqueuer(queueClient),
		publisherService,
		cfg.Queue,
		sysLogger,
	)
	searchService := service.NewSearchService(
		uowFactory,
		cachedEmbedder,
		cfg.Ingest,
		sysLogger,
	)

	// 5. Worker
	processor := worker.NewProcessor(
		uowFactory,
		store,
		extractor,
		embeddingProvider,
		publisherService,
		cfg.Ingest,
		sysLogger,
	)

	// 6. Controllers
	documentController := controller.NewDocumentController(ingestionService)
	searchController := controller.NewSearchController(searchService)

	return &Container{
		DocumentController: documentController,
		SearchController:   searchController,
		AuditService:       auditService,
		Processor:          processor,
		Logger:             sysLogger,
		QueueClient:        queueClient,
		Store:              store,
	}
}
