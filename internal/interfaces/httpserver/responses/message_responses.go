package responses

import (
	domain "snapgrid/services/chat-api/internal/domain/chat"
)

// SendMessageResponse confirms a persisted message. NewMessage carries
// the server-assigned id clients use to reconcile optimistic entries.
type SendMessageResponse struct {
	Success    bool            `json:"success"`
	NewMessage *domain.Message `json:"newMessage"`
}

// HistoryResponse is the visible message history for the caller.
type HistoryResponse struct {
	Success  bool             `json:"success"`
	Messages []domain.Message `json:"messages"`
}

// ConversationListResponse is the caller's conversation list, most
// recently active first.
type ConversationListResponse struct {
	Success       bool                         `json:"success"`
	Conversations []domain.ConversationSummary `json:"conversations"`
}

// StatusResponse is a bare acknowledgement for state-changing calls.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
