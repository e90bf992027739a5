package chat

import (
	"context"
	"time"
)

// ConversationRepository defines conversation persistence operations
// needed by the service.
type ConversationRepository interface {
	// FindOrCreate resolves the conversation for the unordered pair,
	// inserting a fresh record under candidateID when none exists.
	// Implementations must be atomic: two racing calls for the same
	// pair yield the same conversation.
	FindOrCreate(ctx context.Context, userA, userB, candidateID string, now time.Time) (*Conversation, error)

	// FindByPair returns the conversation for the unordered pair, or
	// (nil, nil) when it does not exist.
	FindByPair(ctx context.Context, userA, userB string) (*Conversation, error)

	// GetByID returns the conversation or a NotFound error.
	GetByID(ctx context.Context, id string) (*Conversation, error)

	// RecordMessage registers message activity: clears both members'
	// deleted/cleared flags (restoring the thread for both sides) and
	// sets UpdatedAt. Fails with NotFound for an unknown id.
	RecordMessage(ctx context.Context, id string, now time.Time) error

	// MarkDeleted hides the conversation from userID's list and
	// records the delete cutoff.
	MarkDeleted(ctx context.Context, id, userID string, now time.Time) error

	// MarkCleared hides history before now for userID while keeping
	// the conversation listed.
	MarkCleared(ctx context.Context, id, userID string, now time.Time) error

	// ListForUser returns conversations containing userID that the
	// user has not deleted, ordered by UpdatedAt descending.
	ListForUser(ctx context.Context, userID string) ([]Conversation, error)
}

// MessageRepository defines message persistence operations.
type MessageRepository interface {
	Create(ctx context.Context, msg *Message) error

	// ListByConversation returns all messages of the conversation in
	// insertion order (CreatedAt ascending, id as tie-break).
	ListByConversation(ctx context.Context, conversationID string) ([]Message, error)
}

// Publisher fans events out to connected sessions of the target
// identities. Delivery is fire-and-forget, at most once per currently
// connected handle; implementations must never block.
type Publisher interface {
	Publish(event string, payload any, userIDs ...string)
}

// Delivery channel event names, shared with the client SDK.
const (
	EventNewMessage          = "newMessage"
	EventUpdateConversations = "updateConversations"
	EventOnlineUsers         = "onlineUsers"
)
