package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"multimodal-rag-be/internal/config"
	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/controller"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/repository/memory"
	"multimodal-rag-be/internal/repository/unitofwork"
	"multimodal-rag-be/internal/service"
	"multimodal-rag-be/pkg/embedding"
	"multimodal-rag-be/pkg/embedding/jina"
	embeddingOpenAI "multimodal-rag-be/pkg/embedding/openai"
	"multimodal-rag-be/pkg/events"
	"multimodal-rag-be/pkg/llm/factory"
	"multimodal-rag-be/pkg/pii"
	"multimodal-rag-be/pkg/rag/assembler"
	"multimodal-rag-be/pkg/rag/orchestrator"
	"multimodal-rag-be/pkg/rag/prompt"
	"multimodal-rag-be/pkg/rag/search"
	"multimodal-rag-be/pkg/rag/session"
	"multimodal-rag-be/pkg/utils"
	"multimodal-rag-be/pkg/vectorstore"

	pktNats "multimodal-rag-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController
	PromptController  controller.IPromptController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	NatsSubscriber  *pktNats.Subscriber
	PromptResolver  prompt.IResolver

	Logger logger.ILogger

	db      *gorm.DB
	closers []func() error
}

// NewContainer wires the query path. A nil db runs every store in memory.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	turnLogger := logger.NewIsolatedLogger(cfg.App.TurnLogFilePath)
	c := &Container{Logger: sysLogger, db: db}
	c.closers = append(c.closers, turnLogger.Sync)

	retry := utils.RetryPolicy{
		MaxTries:        cfg.Retry.MaxTries,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, pubSub.Close)

	publishers := events.FanOut{events.NewBusPublisher(pubSub, constant.TopicTurnEvents)}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publishers = append(publishers, natsPub)
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}

		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			c.NatsSubscriber = natsSub
			c.closers = append(c.closers, func() error { natsSub.Close(); return nil })
		}
	}

	// 3. Embedding Gateway
	adapters, err := embeddingAdapters(cfg)
	if err != nil {
		return nil, err
	}
	gateway := embedding.NewGateway(sysLogger, retry, cfg.Ai.ProbeEmbeddings, adapters...)

	spaces := []vectorstore.Space{{
		Modality:  entity.ModalityText,
		Dimension: cfg.Ai.TextEmbeddingDim,
		Metric:    vectorstore.Metric(cfg.Ai.TextMetric),
	}}
	if cfg.Ai.ImageEmbeddingProvider != "" {
		spaces = append(spaces, vectorstore.Space{
			Modality:  entity.ModalityImage,
			Dimension: cfg.Ai.ImageEmbeddingDim,
			Metric:    vectorstore.Metric(cfg.Ai.ImageMetric),
		})
	}

	// 4. Stores
	var (
		store       vectorstore.IVectorStore
		sessions    session.Store
		promptStore prompt.Store
	)
	locker, closeLocker := newLocker(ctx, cfg, sysLogger)
	c.closers = append(c.closers, closeLocker)

	if db != nil {
		uowFactory := unitofwork.NewRepositoryFactory(db)
		pgStore, err := vectorstore.NewPgvectorStore(uowFactory, spaces...)
		if err != nil {
			return nil, err
		}
		if err := pgStore.VerifyStored(ctx); err != nil {
			return nil, err
		}
		store = pgStore
		sessions = session.NewGormStore(uowFactory, locker)
		promptStore = prompt.NewRepositorySource(uowFactory)
		log.Printf("[INFO] Using PostgreSQL stores")
	} else {
		memStore, err := vectorstore.NewMemoryStore(spaces...)
		if err != nil {
			return nil, err
		}
		store = memStore
		sessions = session.NewMemoryStore(locker)
		promptStore = prompt.NewMemorySource()
		log.Printf("[WARN] DB_CONNECTION_STRING is empty, running with in-memory stores")
	}

	if err := gateway.Validate(ctx, store.Dimensions()); err != nil {
		return nil, err
	}

	// 5. Prompt, Assembler, Generator
	resolver, err := prompt.NewResolver(promptStore, memory.NewPromptCache(cfg.Prompt.CacheTTL), entity.ClientPrompt{
		Name:         cfg.Prompt.DefaultName,
		SystemPrompt: cfg.Prompt.DefaultSystemPrompt,
		Template:     cfg.Prompt.DefaultTemplate,
	}, sysLogger)
	if err != nil {
		return nil, fmt.Errorf("default prompt: %w", err)
	}
	c.PromptResolver = resolver

	contextAssembler, err := assembler.NewAssembler(assembler.Budget{
		TotalTokens:        cfg.Context.TotalTokens,
		PromptReserveRatio: cfg.Context.PromptReserveRatio,
		EvidenceCapRatio:   cfg.Context.EvidenceCapRatio,
	}, assembler.NewCounterForModel(cfg.Ai.LLMModel))
	if err != nil {
		return nil, err
	}

	llmProvider, err := factory.NewLLMProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM Provider: %w", err)
	}
	if closer, ok := llmProvider.(io.Closer); ok {
		c.closers = append(c.closers, closer.Close)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	retrievalConfig := search.DefaultConfig()
	retrievalConfig.K = cfg.Retrieval.EvidenceK
	retrievalConfig.PerModalityK = cfg.Retrieval.PerModalityK
	retrievalConfig.Weights[entity.ModalityText] = cfg.Retrieval.TextWeight
	retrievalConfig.Weights[entity.ModalityImage] = cfg.Retrieval.ImageWeight
	retrievalConfig.Timeouts[entity.ModalityText] = cfg.Retrieval.TextTimeout
	retrievalConfig.Timeouts[entity.ModalityImage] = cfg.Retrieval.ImageTimeout
	retrievalConfig.Retry = retry

	// 6. Orchestrator & Services
	orch := orchestrator.NewOrchestrator(orchestrator.Dependencies{
		Redactor:  pii.NewRedactor(),
		Retriever: search.NewEnsembleRetriever(gateway, store, retrievalConfig, sysLogger),
		Resolver:  resolver,
		Assembler: contextAssembler,
		Sessions:  sessions,
		Generator: llmProvider,
		Publisher: publishers,
		Logger:    sysLogger,
	}, orchestrator.Config{
		HistoryTurns:   cfg.Context.HistoryTurns,
		RedactEvidence: cfg.Retrieval.RedactEvidence,
		EvidenceK:      cfg.Retrieval.EvidenceK,
		Retry:          retry,
	})

	chatbotService := service.NewChatbotService(orch)
	promptService := service.NewPromptService(orch, promptStore, resolver, publishers, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, constant.TopicTurnEvents, sessions, resolver, sysLogger, turnLogger)

	// 7. Controllers
	c.ChatbotController = controller.NewChatbotController(chatbotService, cfg.App.JwtSecret, sysLogger)
	c.PromptController = controller.NewPromptController(promptService, cfg.App.JwtSecret)

	return c, nil
}

// Start runs the background consumers. Every instance needs its own NATS durable so
// each one hears about prompt changes.
func (c *Container) Start(ctx context.Context) error {
	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}
	if c.NatsSubscriber == nil {
		return nil
	}

	hostname, _ := os.Hostname()
	hostname = strings.NewReplacer(".", "-", "*", "-", ">", "-", " ", "-").Replace(hostname)
	durable := fmt.Sprintf("%s-%s-%s", constant.NatsDurablePromptCache, hostname, watermill.NewShortUUID())
	return c.NatsSubscriber.Subscribe(ctx, constant.EventPromptUpdated, durable, c.ConsumerService.HandleEvent)
}

// Ping reports whether the durable store is reachable; memory mode is always ready.
func (c *Container) Ping(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("[WARN] Close failed: %v", err)
		}
	}
}

func embeddingAdapters(cfg *config.Config) ([]embedding.Adapter, error) {
	text, err := embeddingProvider(cfg, cfg.Ai.TextEmbeddingProvider, cfg.Ai.TextEmbeddingModel, cfg.Ai.TextEmbeddingDim)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Using Text Embedding Provider: %s (%s)", cfg.Ai.TextEmbeddingProvider, cfg.Ai.TextEmbeddingModel)

	adapters := []embedding.Adapter{{
		Modality:  entity.ModalityText,
		Provider:  text,
		Dimension: cfg.Ai.TextEmbeddingDim,
		Name:      cfg.Ai.TextEmbeddingProvider,
	}}

	if cfg.Ai.ImageEmbeddingProvider != "" {
		image, err := embeddingProvider(cfg, cfg.Ai.ImageEmbeddingProvider, cfg.Ai.ImageEmbeddingModel, cfg.Ai.ImageEmbeddingDim)
		if err != nil {
			return nil, err
		}
		log.Printf("[INFO] Using Image Embedding Provider: %s (%s)", cfg.Ai.ImageEmbeddingProvider, cfg.Ai.ImageEmbeddingModel)
		adapters = append(adapters, embedding.Adapter{
			Modality:  entity.ModalityImage,
			Provider:  image,
			Dimension: cfg.Ai.ImageEmbeddingDim,
			Name:      cfg.Ai.ImageEmbeddingProvider,
		})
	}
	return adapters, nil
}

func embeddingProvider(cfg *config.Config, name, model string, dim int) (embedding.EmbeddingProvider, error) {
	switch name {
	case "ollama":
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, model), nil
	case "openai":
		return embeddingOpenAI.NewOpenAIProvider(cfg.Keys.OpenAI, cfg.Ai.OpenAIBaseURL, model, dim), nil
	case "jina":
		return jina.NewJinaProvider(cfg.Keys.Jina, model), nil
	case "gemini":
		return embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
}

// newLocker prefers a Redis lock so appends stay serialized across instances.
func newLocker(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger) (session.Locker, func() error) {
	noop := func() error { return nil }
	if cfg.App.RedisURL == "" {
		return session.NewKeyedMutex(), noop
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-process session locks", err)
		_ = rdb.Close()
		return session.NewKeyedMutex(), noop
	}
	return session.NewRedisLocker(rdb, 0, sysLogger), rdb.Close
}
