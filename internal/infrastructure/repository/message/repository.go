package message

import (
	"context"

	"gorm.io/gorm"

	"snapgrid/services/chat-api/internal/domain/chat"
	"snapgrid/services/chat-api/internal/infrastructure/database"
	"snapgrid/services/chat-api/internal/infrastructure/database/entities"
	"snapgrid/services/chat-api/internal/utils/platformerrors"
)

// Repository handles message persistence. History reads are served by
// the read handle; inserts always hit the primary.
type Repository struct {
	write *gorm.DB
	read  *gorm.DB
}

func NewRepository(conn *database.Connection) *Repository {
	return &Repository{write: conn.Write, read: conn.Read}
}

func (r *Repository) Create(ctx context.Context, msg *chat.Message) error {
	entity := entities.NewSchemaMessage(msg)
	if err := r.write.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create message",
			err,
			"3a5b7c9d-1e2f-4a4b-8c6d-0e2f4a6b8c9d",
		)
	}
	return nil
}

func (r *Repository) ListByConversation(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var rows []entities.Message
	err := r.read.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list messages",
			err,
			"5c7d9e1f-3a4b-4c6d-8e0f-2a4b6c8d0e1f",
		)
	}

	messages := make([]chat.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, rows[i].EtoD())
	}
	return messages, nil
}
