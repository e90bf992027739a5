package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"snapgrid/services/chat-api/internal/config"
	domain "snapgrid/services/chat-api/internal/domain/chat"
	"snapgrid/services/chat-api/internal/infrastructure/auth"
	"snapgrid/services/chat-api/internal/infrastructure/database"
	"snapgrid/services/chat-api/internal/infrastructure/delivery"
	"snapgrid/services/chat-api/internal/infrastructure/logger"
	"snapgrid/services/chat-api/internal/infrastructure/observability"
	conversationrepo "snapgrid/services/chat-api/internal/infrastructure/repository/conversation"
	messagerepo "snapgrid/services/chat-api/internal/infrastructure/repository/message"
	"snapgrid/services/chat-api/internal/interfaces/httpserver"
)

// @title Chat API
// @version 1.0
// @description Direct message and conversation service with live delivery
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	conversations, messages, err := buildRepositories(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	hub := delivery.NewHub(cfg, log)
	chatService := domain.NewService(cfg, conversations, messages, hub, log)

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	httpServer := httpserver.New(cfg, log, chatService, hub, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// buildRepositories selects PostgreSQL or in-memory stores. Without a
// write DSN the service runs entirely in memory, which is only meant
// for local development.
func buildRepositories(cfg *config.Config, log zerolog.Logger) (domain.ConversationRepository, domain.MessageRepository, error) {
	if cfg.UseInMemoryStores() {
		log.Warn().Msg("no database DSN configured, using in-memory stores")
		return conversationrepo.NewInMemoryRepository(), messagerepo.NewInMemoryRepository(), nil
	}

	conn, err := database.Connect(database.Config{
		WriteDSN:        cfg.GetDatabaseWriteDSN(),
		ReadDSN:         cfg.GetDatabaseReadDSN(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	if err := database.Migrate(conn.Write, log); err != nil {
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	return conversationrepo.NewRepository(conn), messagerepo.NewRepository(conn), nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
