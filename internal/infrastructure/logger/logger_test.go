package logger_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"snapgrid/services/chat-api/internal/config"
	"snapgrid/services/chat-api/internal/infrastructure/logger"
)

func TestLevelParsing(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tc := range tests {
		log := logger.New(&config.Config{
			ServiceName: "chat-api",
			Environment: "test",
			LogLevel:    tc.raw,
		})
		assert.Equal(t, tc.want, log.GetLevel(), "level %q", tc.raw)
	}
}
