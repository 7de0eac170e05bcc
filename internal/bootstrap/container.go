package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"knowledge-chat-be/internal/config"
	"knowledge-chat-be/internal/controller"
	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/internal/repository/contract"
	"knowledge-chat-be/internal/repository/memory"
	"knowledge-chat-be/internal/repository/unitofwork"
	"knowledge-chat-be/internal/service"
	"knowledge-chat-be/pkg/cluster"
	"knowledge-chat-be/pkg/events"
	"knowledge-chat-be/pkg/history"
	"knowledge-chat-be/pkg/knowledge"
	"knowledge-chat-be/pkg/llm/factory"
	"knowledge-chat-be/pkg/rehydrate"

	pktNats "knowledge-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController      controller.IChatController
	KnowledgeController controller.IKnowledgeController
	HealthController    controller.IHealthController

	// Background services, started by main.go
	ConsumerService  service.IConsumerService
	AuditService     service.IAuditService // nil without NATS
	KnowledgeService service.IKnowledgeService
	KnowledgeManager *knowledge.Manager
	Invalidator      *cluster.Invalidator

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the application. db may be nil, in which case refresh
// runs and chat events are kept in memory.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	provider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider:    cfg.Ai.LLMProvider,
		Model:       cfg.Ai.LLMModel,
		Temperature: cfg.Ai.Temperature,
		APIKey:      cfg.Ai.GeminiAPIKey,
		BaseURL:     cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 2. Repositories
	var (
		runRepo   contract.RefreshRunRepository
		eventRepo contract.ChatEventRepository
	)
	if db != nil {
		uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)
		runRepo = uow.RefreshRunRepository()
		eventRepo = uow.ChatEventRepository()
	} else {
		log.Println("[WARN] No database configured, refresh runs and chat events are kept in memory")
		runRepo = memory.NewRefreshRunRepository(0)
		eventRepo = memory.NewChatEventRepository()
	}
	sessionRepo := memory.NewSessionRepository(cfg.Chat.SessionIdleTTL)

	// 3. Infrastructure
	var sink events.Sink
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			sink = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			natsSub = nil
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}
	chatPublisher := events.NewChatPublisher(sink, sysLogger, cfg.App.InstanceID)

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if _, err := rdb.Ping(pingCtx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		cancel()
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 4. Event bus for refresh jobs
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	publisherService := service.NewPublisherService(cfg.Knowledge.RefreshTopic, pubSub)

	// 5. Knowledge
	manager := knowledge.NewManager(
		knowledge.NewClient(cfg.Knowledge.BaseURL, sysLogger),
		provider.Files,
		service.NewRefreshRunRecorder(runRepo),
		chatPublisher,
		sysLogger,
	).WithTempDir(cfg.Chat.TempDir)
	c.KnowledgeManager = manager
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Knowledge.RefreshTopic, manager, sysLogger)

	// 6. Sessions
	rehydrator := rehydrate.New(
		sessionRepo,
		provider.Chat,
		history.NewNormalizer(provider.Files, sysLogger).WithTempDir(cfg.Chat.TempDir),
		manager,
		chatPublisher,
		sysLogger,
		rehydrate.Config{SystemInstruction: cfg.Chat.SystemInstruction},
	)

	// Peer handlers close over knowledgeService, which needs the invalidator.
	var knowledgeService service.IKnowledgeService
	invalidator := cluster.NewInvalidator(rdb, cluster.DefaultChannel, cfg.App.InstanceID, cluster.Handlers{
		SessionDeleted: func(convID int64) {
			rehydrator.Forget(convID)
		},
		KnowledgeRefresh: func() {
			if err := knowledgeService.RefreshLocal(context.Background(), "cluster"); err != nil {
				sysLogger.Error("Cluster", "Failed to queue peer refresh", map[string]interface{}{"error": err.Error()})
			}
		},
	}, sysLogger)
	c.Invalidator = invalidator

	knowledgeService = service.NewKnowledgeService(manager, publisherService, invalidator, runRepo, sysLogger)
	c.KnowledgeService = knowledgeService

	chatService := service.NewChatService(
		rehydrator,
		sessionRepo,
		provider.Chat,
		provider.Files,
		chatPublisher,
		invalidator,
		eventRepo,
		sysLogger,
		service.ChatServiceConfig{
			TranscriptInstruction: cfg.Chat.TranscriptInstruction,
			TitleLanguage:         cfg.Chat.TitleLanguage,
			TempDir:               cfg.Chat.TempDir,
		},
	)

	if natsSub != nil {
		c.AuditService = service.NewAuditService(natsSub, eventRepo, sysLogger)
	}

	// 7. Controllers
	c.ChatController = controller.NewChatController(chatService)
	c.KnowledgeController = controller.NewKnowledgeController(knowledgeService)
	c.HealthController = controller.NewHealthController(chatService, knowledgeService, cfg.App.InstanceID)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
