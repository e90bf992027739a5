package chat

import "time"

// NormalizePair orders two user identities canonically. Conversations
// are stored under the sorted pair so that lookup and the uniqueness
// constraint are direction independent.
func NormalizePair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// MemberState is one participant's visibility state for a conversation.
// The boolean flags control list visibility and access; the timestamps
// are permanent cutoffs and survive restoration on send.
type MemberState struct {
	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	Cleared   bool       `json:"cleared"`
	ClearedAt *time.Time `json:"clearedAt,omitempty"`
}

// Conversation is a persisted thread between exactly two identities.
// Participants holds the normalized pair and is immutable after
// creation.
type Conversation struct {
	ID           string                 `json:"id"`
	Participants [2]string              `json:"participants"`
	States       map[string]MemberState `json:"states"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Peer returns the other participant.
func (c *Conversation) Peer(userID string) (string, bool) {
	switch userID {
	case c.Participants[0]:
		return c.Participants[1], true
	case c.Participants[1]:
		return c.Participants[0], true
	default:
		return "", false
	}
}

// StateOf returns the member state for userID. An unknown user yields
// the zero state (no flags, no cutoffs).
func (c *Conversation) StateOf(userID string) MemberState {
	if c.States == nil {
		return MemberState{}
	}
	return c.States[userID]
}

// Message is an immutable message record.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationSummary is a conversation-list entry for one viewer.
// LastMessage is empty when no message passes the viewer's cutoff.
type ConversationSummary struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
