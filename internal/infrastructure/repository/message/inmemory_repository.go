package message

import (
	"context"
	"sort"
	"sync"

	"snapgrid/services/chat-api/internal/domain/chat"
)

// InMemoryRepository is a thread-safe message store used in development
// mode and in tests.
type InMemoryRepository struct {
	mu             sync.RWMutex
	byConversation map[string][]chat.Message
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byConversation: make(map[string][]chat.Message),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, msg *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConversation[msg.ConversationID] = append(r.byConversation[msg.ConversationID], *msg)
	return nil
}

func (r *InMemoryRepository) ListByConversation(ctx context.Context, conversationID string) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.byConversation[conversationID]
	out := make([]chat.Message, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
