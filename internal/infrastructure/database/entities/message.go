package entities

import (
	"time"

	"snapgrid/services/chat-api/internal/domain/chat"
)

// Message is the persisted immutable message record.
type Message struct {
	ID             string    `gorm:"type:varchar(40);primaryKey"`
	ConversationID string    `gorm:"type:varchar(40);not null;index:idx_message_conversation_order,priority:1"`
	SenderID       string    `gorm:"type:varchar(64);not null"`
	ReceiverID     string    `gorm:"type:varchar(64);not null"`
	Text           string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (Message) TableName() string {
	return "messages"
}

// EtoD converts the entity to the domain model.
func (m *Message) EtoD() chat.Message {
	return chat.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
}

// NewSchemaMessage creates the entity from the domain model.
func NewSchemaMessage(msg *chat.Message) *Message {
	return &Message{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
	}
}
