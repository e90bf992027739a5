package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"snapgrid/services/chat-api/internal/domain/chat"
	"snapgrid/services/chat-api/internal/utils/platformerrors"
)

// InMemoryRepository is a thread-safe conversation store used in
// development mode (no DSN configured) and in tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*chat.Conversation
	byPair map[[2]string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[string]*chat.Conversation),
		byPair: make(map[[2]string]string),
	}
}

func (r *InMemoryRepository) FindOrCreate(ctx context.Context, userA, userB, candidateID string, now time.Time) (*chat.Conversation, error) {
	low, high := chat.NormalizePair(userA, userB)
	pair := [2]string{low, high}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPair[pair]; ok {
		return cloneConversation(r.byID[id]), nil
	}

	conv := &chat.Conversation{
		ID:           candidateID,
		Participants: pair,
		States: map[string]chat.MemberState{
			low:  {},
			high: {},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byID[candidateID] = conv
	r.byPair[pair] = candidateID
	return cloneConversation(conv), nil
}

func (r *InMemoryRepository) FindByPair(ctx context.Context, userA, userB string) (*chat.Conversation, error) {
	low, high := chat.NormalizePair(userA, userB)

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPair[[2]string{low, high}]
	if !ok {
		return nil, nil
	}
	return cloneConversation(r.byID[id]), nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.byID[id]
	if !ok {
		return nil, notFound(ctx)
	}
	return cloneConversation(conv), nil
}

func (r *InMemoryRepository) RecordMessage(ctx context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.byID[id]
	if !ok {
		return notFound(ctx)
	}
	for user, state := range conv.States {
		state.Deleted = false
		state.Cleared = false
		conv.States[user] = state
	}
	conv.UpdatedAt = now
	return nil
}

func (r *InMemoryRepository) MarkDeleted(ctx context.Context, id, userID string, now time.Time) error {
	return r.mark(ctx, id, userID, func(state *chat.MemberState) {
		state.Deleted = true
		at := now
		state.DeletedAt = &at
	})
}

func (r *InMemoryRepository) MarkCleared(ctx context.Context, id, userID string, now time.Time) error {
	return r.mark(ctx, id, userID, func(state *chat.MemberState) {
		state.Cleared = true
		at := now
		state.ClearedAt = &at
	})
}

func (r *InMemoryRepository) mark(ctx context.Context, id, userID string, apply func(*chat.MemberState)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.byID[id]
	if !ok || !conv.HasParticipant(userID) {
		return notFound(ctx)
	}
	state := conv.States[userID]
	apply(&state)
	conv.States[userID] = state
	return nil
}

func (r *InMemoryRepository) ListForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]chat.Conversation, 0)
	for _, conv := range r.byID {
		if !conv.HasParticipant(userID) || conv.StateOf(userID).Deleted {
			continue
		}
		out = append(out, *cloneConversation(conv))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func cloneConversation(conv *chat.Conversation) *chat.Conversation {
	clone := *conv
	clone.States = make(map[string]chat.MemberState, len(conv.States))
	for user, state := range conv.States {
		clone.States[user] = state
	}
	return &clone
}

func notFound(ctx context.Context) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound,
		"conversation not found",
		nil,
		"b2c4d6e8-f0a1-4b3c-8d5e-7f9a1b3c5d6e",
	)
}
