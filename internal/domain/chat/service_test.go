package chat_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapgrid/services/chat-api/internal/config"
	"snapgrid/services/chat-api/internal/domain/chat"
	"snapgrid/services/chat-api/internal/utils/platformerrors"
)

// stubConversationStore mirrors the persistence contract in memory so
// the service can be exercised without a repository package (which
// would import this one back).
type stubConversationStore struct {
	mu     sync.Mutex
	byID   map[string]*chat.Conversation
	byPair map[[2]string]string
}

func newStubConversationStore() *stubConversationStore {
	return &stubConversationStore{
		byID:   make(map[string]*chat.Conversation),
		byPair: make(map[[2]string]string),
	}
}

func (s *stubConversationStore) FindOrCreate(ctx context.Context, userA, userB, candidateID string, now time.Time) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	low, high := chat.NormalizePair(userA, userB)
	pair := [2]string{low, high}
	if id, ok := s.byPair[pair]; ok {
		return s.clone(id), nil
	}
	s.byID[candidateID] = &chat.Conversation{
		ID:           candidateID,
		Participants: pair,
		States:       map[string]chat.MemberState{low: {}, high: {}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byPair[pair] = candidateID
	return s.clone(candidateID), nil
}

func (s *stubConversationStore) FindByPair(ctx context.Context, userA, userB string) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	low, high := chat.NormalizePair(userA, userB)
	id, ok := s.byPair[[2]string{low, high}]
	if !ok {
		return nil, nil
	}
	return s.clone(id), nil
}

func (s *stubConversationStore) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "conversation not found", nil, "test")
	}
	return s.clone(id), nil
}

func (s *stubConversationStore) RecordMessage(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "conversation not found", nil, "test")
	}
	for user, state := range conv.States {
		state.Deleted = false
		state.Cleared = false
		conv.States[user] = state
	}
	conv.UpdatedAt = now
	return nil
}

func (s *stubConversationStore) MarkDeleted(ctx context.Context, id, userID string, now time.Time) error {
	return s.mark(id, userID, func(state *chat.MemberState) {
		state.Deleted = true
		at := now
		state.DeletedAt = &at
	})
}

func (s *stubConversationStore) MarkCleared(ctx context.Context, id, userID string, now time.Time) error {
	return s.mark(id, userID, func(state *chat.MemberState) {
		state.Cleared = true
		at := now
		state.ClearedAt = &at
	})
}

func (s *stubConversationStore) mark(id, userID string, apply func(*chat.MemberState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.byID[id]
	state := conv.States[userID]
	apply(&state)
	conv.States[userID] = state
	return nil
}

func (s *stubConversationStore) ListForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]chat.Conversation, 0)
	for id, conv := range s.byID {
		if !conv.HasParticipant(userID) || conv.StateOf(userID).Deleted {
			continue
		}
		out = append(out, *s.clone(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *stubConversationStore) clone(id string) *chat.Conversation {
	conv := s.byID[id]
	clone := *conv
	clone.States = make(map[string]chat.MemberState, len(conv.States))
	for user, state := range conv.States {
		clone.States[user] = state
	}
	return &clone
}

type stubMessageStore struct {
	mu     sync.Mutex
	byConv map[string][]chat.Message
}

func newStubMessageStore() *stubMessageStore {
	return &stubMessageStore{byConv: make(map[string][]chat.Message)}
}

func (s *stubMessageStore) Create(ctx context.Context, msg *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byConv[msg.ConversationID] = append(s.byConv[msg.ConversationID], *msg)
	return nil
}

func (s *stubMessageStore) ListByConversation(ctx context.Context, conversationID string) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Message, len(s.byConv[conversationID]))
	copy(out, s.byConv[conversationID])
	return out, nil
}

type publishedEvent struct {
	event   string
	userIDs []string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(event string, payload any, userIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{event: event, userIDs: userIDs})
}

func (p *recordingPublisher) byEvent(event string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, 0)
	for _, e := range p.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type serviceFixture struct {
	service       *chat.Service
	conversations *stubConversationStore
	messages      *stubMessageStore
	publisher     *recordingPublisher
	clock         time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	cfg := &config.Config{MaxMessageChars: 100}
	f := &serviceFixture{
		conversations: newStubConversationStore(),
		messages:      newStubMessageStore(),
		publisher:     &recordingPublisher{},
		clock:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = chat.NewService(cfg, f.conversations, f.messages, f.publisher, zerolog.Nop(),
		chat.WithClock(func() time.Time { return f.clock }))
	return f
}

func (f *serviceFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("persists and fans out to both participants", func(t *testing.T) {
		f := newServiceFixture(t)

		msg, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(msg.ID, "msg_"))
		assert.True(t, strings.HasPrefix(msg.ConversationID, "conv_"))
		assert.Equal(t, "alice", msg.SenderID)
		assert.Equal(t, "bob", msg.ReceiverID)

		newMessages := f.publisher.byEvent(chat.EventNewMessage)
		require.Len(t, newMessages, 1)
		assert.ElementsMatch(t, []string{"alice", "bob"}, newMessages[0].userIDs)

		updates := f.publisher.byEvent(chat.EventUpdateConversations)
		require.Len(t, updates, 1)
		assert.ElementsMatch(t, []string{"alice", "bob"}, updates[0].userIDs)
	})

	t.Run("reuses the conversation in both directions", func(t *testing.T) {
		f := newServiceFixture(t)

		first, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)
		reply, err := f.service.SendMessage(ctx, "bob", "alice", "hi")
		require.NoError(t, err)
		assert.Equal(t, first.ConversationID, reply.ConversationID)
	})

	t.Run("validation failures", func(t *testing.T) {
		f := newServiceFixture(t)

		tests := []struct {
			name     string
			sender   string
			receiver string
			text     string
		}{
			{"empty text", "alice", "bob", ""},
			{"whitespace only", "alice", "bob", "   \n\t"},
			{"too long", "alice", "bob", strings.Repeat("x", 101)},
			{"self message", "alice", "alice", "hello"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.service.SendMessage(ctx, tc.sender, tc.receiver, tc.text)
				require.Error(t, err)
				assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
			})
		}
		assert.Empty(t, f.publisher.events)
	})
}

func TestHistoryVisibility(t *testing.T) {
	ctx := context.Background()

	t.Run("missing conversation yields empty history", func(t *testing.T) {
		f := newServiceFixture(t)
		msgs, err := f.service.History(ctx, "alice", "stranger")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("clear hides existing history for the actor only", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)
		f.advance(time.Second)
		_, err = f.service.SendMessage(ctx, "bob", "alice", "hi")
		require.NoError(t, err)

		f.advance(time.Second)
		require.NoError(t, f.service.ClearChat(ctx, "alice", "bob"))

		aliceView, err := f.service.History(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Empty(t, aliceView)

		bobView, err := f.service.History(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Len(t, bobView, 2)
	})

	t.Run("send after clear restores the thread from the cutoff", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.SendMessage(ctx, "alice", "bob", "old")
		require.NoError(t, err)
		f.advance(time.Second)
		require.NoError(t, f.service.ClearChat(ctx, "alice", "bob"))

		f.advance(time.Second)
		_, err = f.service.SendMessage(ctx, "bob", "alice", "fresh")
		require.NoError(t, err)

		aliceView, err := f.service.History(ctx, "alice", "bob")
		require.NoError(t, err)
		require.Len(t, aliceView, 1)
		assert.Equal(t, "fresh", aliceView[0].Text)

		bobView, err := f.service.History(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Len(t, bobView, 2)
	})

	t.Run("deleted conversation is not accessible", func(t *testing.T) {
		f := newServiceFixture(t)

		msg, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)
		f.advance(time.Second)
		require.NoError(t, f.service.DeleteConversation(ctx, "alice", msg.ConversationID))

		_, err = f.service.History(ctx, "alice", "bob")
		require.Error(t, err)
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

		bobView, err := f.service.History(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Len(t, bobView, 1)
	})
}

func TestDeleteConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("hides the conversation from the actor's list only", func(t *testing.T) {
		f := newServiceFixture(t)

		msg, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)
		f.publisher.reset()

		require.NoError(t, f.service.DeleteConversation(ctx, "alice", msg.ConversationID))

		aliceList, err := f.service.ListConversations(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, aliceList)

		bobList, err := f.service.ListConversations(ctx, "bob")
		require.NoError(t, err)
		assert.Len(t, bobList, 1)

		updates := f.publisher.byEvent(chat.EventUpdateConversations)
		require.Len(t, updates, 1)
		assert.Equal(t, []string{"alice"}, updates[0].userIDs)
	})

	t.Run("repeat delete does not move the cutoff", func(t *testing.T) {
		f := newServiceFixture(t)

		msg, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)

		f.advance(time.Second)
		require.NoError(t, f.service.DeleteConversation(ctx, "alice", msg.ConversationID))
		conv, err := f.conversations.GetByID(ctx, msg.ConversationID)
		require.NoError(t, err)
		firstCutoff := *conv.StateOf("alice").DeletedAt

		f.advance(time.Hour)
		require.NoError(t, f.service.DeleteConversation(ctx, "alice", msg.ConversationID))
		conv, err = f.conversations.GetByID(ctx, msg.ConversationID)
		require.NoError(t, err)
		assert.True(t, conv.StateOf("alice").DeletedAt.Equal(firstCutoff))
	})

	t.Run("non-participant is rejected", func(t *testing.T) {
		f := newServiceFixture(t)

		msg, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)

		err = f.service.DeleteConversation(ctx, "mallory", msg.ConversationID)
		require.Error(t, err)
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
	})

	t.Run("by peer id", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)
		require.NoError(t, f.service.DeleteConversationWithPeer(ctx, "alice", "bob"))

		aliceList, err := f.service.ListConversations(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, aliceList)
	})

	t.Run("unknown peer is not found", func(t *testing.T) {
		f := newServiceFixture(t)
		err := f.service.DeleteConversationWithPeer(ctx, "alice", "stranger")
		require.Error(t, err)
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	})

	t.Run("send restores the deleted conversation for both sides", func(t *testing.T) {
		f := newServiceFixture(t)

		msg, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)
		f.advance(time.Second)
		require.NoError(t, f.service.DeleteConversation(ctx, "alice", msg.ConversationID))

		f.advance(time.Second)
		_, err = f.service.SendMessage(ctx, "bob", "alice", "are you there?")
		require.NoError(t, err)

		aliceList, err := f.service.ListConversations(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, aliceList, 1)
		assert.Equal(t, "are you there?", aliceList[0].LastMessage)
	})
}

func TestClearChat(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the conversation listed", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)
		f.advance(time.Second)
		f.publisher.reset()

		require.NoError(t, f.service.ClearChat(ctx, "alice", "bob"))

		aliceList, err := f.service.ListConversations(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, aliceList, 1)
		assert.Empty(t, aliceList[0].LastMessage)

		updates := f.publisher.byEvent(chat.EventUpdateConversations)
		require.Len(t, updates, 1)
		assert.Equal(t, []string{"alice"}, updates[0].userIDs)
	})

	t.Run("repeat clear does not move the cutoff", func(t *testing.T) {
		f := newServiceFixture(t)

		msg, err := f.service.SendMessage(ctx, "alice", "bob", "hello")
		require.NoError(t, err)

		f.advance(time.Second)
		require.NoError(t, f.service.ClearChat(ctx, "alice", "bob"))
		conv, err := f.conversations.GetByID(ctx, msg.ConversationID)
		require.NoError(t, err)
		firstCutoff := *conv.StateOf("alice").ClearedAt

		f.advance(time.Hour)
		require.NoError(t, f.service.ClearChat(ctx, "alice", "bob"))
		conv, err = f.conversations.GetByID(ctx, msg.ConversationID)
		require.NoError(t, err)
		assert.True(t, conv.StateOf("alice").ClearedAt.Equal(firstCutoff))
	})

	t.Run("unknown pair is not found", func(t *testing.T) {
		f := newServiceFixture(t)
		err := f.service.ClearChat(ctx, "alice", "stranger")
		require.Error(t, err)
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	})
}

func TestListConversations(t *testing.T) {
	ctx := context.Background()

	t.Run("most recently active first with per-viewer previews", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.SendMessage(ctx, "alice", "bob", "to bob")
		require.NoError(t, err)
		f.advance(time.Second)
		_, err = f.service.SendMessage(ctx, "alice", "carol", "to carol")
		require.NoError(t, err)

		list, err := f.service.ListConversations(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "carol", list[0].UserID)
		assert.Equal(t, "to carol", list[0].LastMessage)
		assert.Equal(t, "bob", list[1].UserID)
		assert.Equal(t, "to bob", list[1].LastMessage)
	})

	t.Run("empty for a user without conversations", func(t *testing.T) {
		f := newServiceFixture(t)
		list, err := f.service.ListConversations(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
