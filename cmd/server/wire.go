//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"snapgrid/services/chat-api/internal/config"
	domain "snapgrid/services/chat-api/internal/domain/chat"
	"snapgrid/services/chat-api/internal/infrastructure/auth"
	"snapgrid/services/chat-api/internal/infrastructure/database"
	"snapgrid/services/chat-api/internal/infrastructure/delivery"
	"snapgrid/services/chat-api/internal/infrastructure/logger"
	conversationrepo "snapgrid/services/chat-api/internal/infrastructure/repository/conversation"
	messagerepo "snapgrid/services/chat-api/internal/infrastructure/repository/message"
	"snapgrid/services/chat-api/internal/interfaces/httpserver"
)

var chatSet = wire.NewSet(
	conversationrepo.NewRepository,
	wire.Bind(new(domain.ConversationRepository), new(*conversationrepo.Repository)),
	messagerepo.NewRepository,
	wire.Bind(new(domain.MessageRepository), new(*messagerepo.Repository)),
	delivery.NewHub,
	wire.Bind(new(domain.Publisher), new(*delivery.Hub)),
	domain.NewService,
)

// BuildApplication assembles the chat API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		auth.NewValidator,
		newDatabaseConfig,
		newConnection,
		chatSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		WriteDSN:        cfg.GetDatabaseWriteDSN(),
		ReadDSN:         cfg.GetDatabaseReadDSN(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newConnection(cfg database.Config, log zerolog.Logger) (*database.Connection, error) {
	conn, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(conn.Write, log); err != nil {
		return nil, err
	}
	return conn, nil
}
