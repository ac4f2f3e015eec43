package bootstrap

import (
	"context"
	"log"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/config"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/constant"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/pkg/logger"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/implementation"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/memory"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/service"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/embedding"
	ollamallm "github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/llm/ollama"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/memorystore"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/routing"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/semcache"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/slots"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/tools"

	pktNats "github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Logger logger.ILogger
	Index  *routing.Index

	DialogueService service.IDialogueService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

// NewContainer wires the full dialogue engine. db may be nil, in which case
// conversation memory lives in process only. registry carries the tool
// handlers supplied by the embedding binary.
func NewContainer(db *gorm.DB, cfg *config.Config, registry *tools.Registry) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Capability Providers
	// Initialize Embedding Provider based on Config
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "gemini" {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}

	// Initialize LLM Provider for slot extraction
	llmProvider := ollamallm.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel)
	extractor := slots.NewLLMExtractor(llmProvider)
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Route Index seeded with the banking intent catalog
	index := routing.NewIndex(embeddingProvider, cfg.Agent.HighDistance, cfg.Agent.MediumDistance)
	if err := SeedIndex(context.Background(), index); err != nil {
		log.Fatalf("[FATAL] Failed to seed route index: %v", err)
	}

	// Initialize In-Memory Session Storage
	sessionRepo := memory.NewSessionRepository()

	// 3.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Conversation memory: durable when a database is wired, in-process otherwise
	var memoryStore memorystore.Store
	if db != nil {
		sessionsRepo := implementation.NewChatSessionRepository(db)
		messagesRepo := implementation.NewChatMessageRepository(db)
		memoryStore = memorystore.NewGormStore(sessionsRepo, messagesRepo, embeddingProvider)
	} else {
		log.Printf("[WARN] No database configured, conversation memory is in-process only")
		memoryStore = memorystore.NewMemoryStore(embeddingProvider)
	}

	// Semantic cache: Redis-backed when enabled, noop otherwise
	var cache semcache.Cache = semcache.NewNoopCache()
	if cfg.Agent.CacheEnabled {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		cache = semcache.NewRedisCache(rdb, cfg.Agent.CacheDistance, cfg.Agent.CacheMaxSize)
	}

	// 4. Services
	publisherService := service.NewPublisherService(constant.TopicCacheStore, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		constant.TopicCacheStore,
		cache,
		sysLogger,
	)

	dialogueService := service.NewDialogueService(
		cfg.Agent,
		sysLogger,
		embeddingProvider, // Injected
		index,
		extractor,
		registry,
		memoryStore,
		cache,
		sessionRepo,
		publisherService,
		natsPub,
	)

	return &Container{
		Logger:          sysLogger,
		Index:           index,
		DialogueService: dialogueService,

		ConsumerService: consumerService,
	}
}

// SeedIndex registers the banking intent catalog and embeds its reference
// phrases through the index's provider.
func SeedIndex(ctx context.Context, index *routing.Index) error {
	for _, seed := range constant.IntentSeeds {
		if err := index.Register(routing.Intent{
			Name:            seed.Name,
			DisplayName:     seed.DisplayName,
			RequiredSlots:   seed.RequiredSlots,
			RejectThreshold: seed.RejectThreshold,
			Priority:        seed.Priority,
		}); err != nil {
			return err
		}
		for _, phrase := range seed.References {
			if err := index.AddReference(ctx, seed.Name, phrase); err != nil {
				return err
			}
		}
	}
	return nil
}
