package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/schoolchat-api/internal/config"
	"github.com/noah-isme/schoolchat-api/internal/database"
	"github.com/noah-isme/schoolchat-api/internal/handler"
	"github.com/noah-isme/schoolchat-api/internal/middleware"
	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/repository"
	"github.com/noah-isme/schoolchat-api/internal/router"
	"github.com/noah-isme/schoolchat-api/internal/safety"
	"github.com/noah-isme/schoolchat-api/internal/service"
	"github.com/noah-isme/schoolchat-api/internal/transport"
	"github.com/noah-isme/schoolchat-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.ChatThread{},
		&models.ChatMessage{},
		&models.AIVerification{},
		&models.ModerationFlag{},
		&models.OfficialRule{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	threadRepo := repository.NewThreadRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	userRepo := repository.NewUserRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	moderationRepo := repository.NewModerationRepository(db)

	var sender transport.Sender
	if cfg.TransportConfigured() {
		sender = transport.NewRESTSender(transport.Config{
			BaseURL:   cfg.TransportEndpoint,
			AccessKey: cfg.TransportAccessKey,
		}, logger)
	} else {
		logger.Warn().Msg("transport not configured, using in-memory simulator")
		sender = transport.NewSimulator()
	}

	var classifier safety.Classifier
	if cfg.SafetyConfigured() {
		classifier = safety.NewClassifier(safety.Config{
			Endpoint: cfg.SafetyEndpoint,
			APIKey:   cfg.SafetyAPIKey,
		}, logger)
	} else {
		logger.Warn().Msg("content safety not configured, send path will refuse messages")
		classifier = safety.Disabled{}
	}

	var verifier ai.Verifier
	if cfg.OracleAPIKey != "" {
		openaiVerifier, err := ai.NewOpenAIVerifier(ai.OpenAIVerifierConfig{
			APIKey:  cfg.OracleAPIKey,
			BaseURL: cfg.OracleBaseURL,
			Model:   cfg.OracleModel,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create verification oracle: %v", err)
		}
		verifier = openaiVerifier
	} else {
		logger.Warn().Msg("verification oracle not configured, using deterministic rule matching")
		verifier = ai.RuleMatchVerifier{}
	}

	var assistantClient *ai.AssistantClient
	if cfg.AssistantConfigured() {
		assistantClient, err = ai.NewAssistantClient(ai.AssistantConfig{
			Endpoint:   cfg.AssistantEndpoint,
			APIKey:     cfg.AssistantAPIKey,
			Deployment: cfg.AssistantDeployment,
			APIVersion: cfg.AssistantAPIVersion,
			Timeout:    cfg.AssistantTimeout,
			Logger:     logger,
		})
		if err != nil {
			log.Fatalf("failed to create assistant client: %v", err)
		}
	} else {
		logger.Warn().Msg("assistant upstream not configured, assistant chat disabled")
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	eventService := service.NewEventService(redisClient, "schoolchat", natsConn, logger)
	eventService.Start(appCtx)

	threadService := service.NewThreadService(threadRepo, messageRepo, userRepo, ruleRepo, verificationRepo, moderationRepo, sender, logger)
	messageService := service.NewMessageService(threadService, eventService, messageRepo, userRepo, moderationRepo, classifier, sender, validate, logger)
	moderationService := service.NewModerationService(threadService, eventService, messageRepo, moderationRepo, logger)
	verificationService := service.NewVerificationService(threadService, eventService, messageRepo, userRepo, verificationRepo, moderationRepo, verifier, classifier, sender, logger)
	auditService := service.NewAuditService(messageRepo, verificationRepo, moderationRepo, logger)
	assistantService := service.NewAssistantService(assistantClient, validate, logger)
	seedService := service.NewSeedService(ruleRepo, cfg.SeedEnabled, cfg.SeedToken, logger)

	chatHandler := handler.NewChatHandler(threadService, messageService, moderationService, verificationService, eventService, validate, logger)
	assistantHandler := handler.NewAssistantHandler(assistantService, logger)
	auditHandler := handler.NewAuditHandler(auditService, threadService, logger)
	seedHandler := handler.NewSeedHandler(seedService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ChatHandler:      chatHandler,
		AssistantHandler: assistantHandler,
		AuditHandler:     auditHandler,
		SeedHandler:      seedHandler,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
		RateLimiter:      middleware.RateLimit("chat", cfg.RateLimitPerMinute, time.Minute),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopApp)
}

func waitForShutdown(app *fiber.App, stopApp context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopApp()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
