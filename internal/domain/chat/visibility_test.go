package chat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapgrid/services/chat-api/internal/domain/chat"
)

func ts(sec int) time.Time {
	return time.Date(2025, 6, 1, 12, 0, sec, 0, time.UTC)
}

func tsPtr(sec int) *time.Time {
	t := ts(sec)
	return &t
}

func pairConversation(states map[string]chat.MemberState) *chat.Conversation {
	return &chat.Conversation{
		ID:           "conv_test",
		Participants: [2]string{"alice", "bob"},
		States:       states,
		CreatedAt:    ts(0),
		UpdatedAt:    ts(0),
	}
}

func TestCutoff(t *testing.T) {
	tests := []struct {
		name       string
		state      chat.MemberState
		wantOK     bool
		wantCutoff time.Time
	}{
		{
			name:   "no cutoffs",
			state:  chat.MemberState{},
			wantOK: false,
		},
		{
			name:       "delete only",
			state:      chat.MemberState{DeletedAt: tsPtr(10)},
			wantOK:     true,
			wantCutoff: ts(10),
		},
		{
			name:       "clear only",
			state:      chat.MemberState{ClearedAt: tsPtr(20)},
			wantOK:     true,
			wantCutoff: ts(20),
		},
		{
			name:       "later clear wins",
			state:      chat.MemberState{DeletedAt: tsPtr(10), ClearedAt: tsPtr(30)},
			wantOK:     true,
			wantCutoff: ts(30),
		},
		{
			name:       "later delete wins",
			state:      chat.MemberState{DeletedAt: tsPtr(40), ClearedAt: tsPtr(30)},
			wantOK:     true,
			wantCutoff: ts(40),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conv := pairConversation(map[string]chat.MemberState{"alice": tc.state})
			cutoff, ok := chat.Cutoff(conv, "alice")
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.True(t, cutoff.Equal(tc.wantCutoff))
			}
		})
	}
}

func TestCutoffUnknownUser(t *testing.T) {
	conv := pairConversation(nil)
	_, ok := chat.Cutoff(conv, "mallory")
	assert.False(t, ok)
}

func TestVisibleMessages(t *testing.T) {
	messages := []chat.Message{
		{ID: "msg_1", Text: "one", CreatedAt: ts(5)},
		{ID: "msg_2", Text: "two", CreatedAt: ts(10)},
		{ID: "msg_3", Text: "three", CreatedAt: ts(15)},
	}

	t.Run("no cutoff returns everything", func(t *testing.T) {
		conv := pairConversation(nil)
		visible := chat.VisibleMessages(conv, "alice", messages)
		require.Len(t, visible, 3)
	})

	t.Run("cutoff is exclusive", func(t *testing.T) {
		// A message stamped exactly at the cutoff stays hidden.
		conv := pairConversation(map[string]chat.MemberState{
			"alice": {ClearedAt: tsPtr(10)},
		})
		visible := chat.VisibleMessages(conv, "alice", messages)
		require.Len(t, visible, 1)
		assert.Equal(t, "msg_3", visible[0].ID)
	})

	t.Run("cutoffs are per viewer", func(t *testing.T) {
		conv := pairConversation(map[string]chat.MemberState{
			"alice": {ClearedAt: tsPtr(10)},
		})
		visible := chat.VisibleMessages(conv, "bob", messages)
		require.Len(t, visible, 3)
	})

	t.Run("order preserved", func(t *testing.T) {
		conv := pairConversation(map[string]chat.MemberState{
			"alice": {DeletedAt: tsPtr(4)},
		})
		visible := chat.VisibleMessages(conv, "alice", messages)
		require.Len(t, visible, 3)
		assert.Equal(t, "msg_1", visible[0].ID)
		assert.Equal(t, "msg_3", visible[2].ID)
	})
}

func TestPreviewFor(t *testing.T) {
	messages := []chat.Message{
		{ID: "msg_1", Text: "hello", CreatedAt: ts(5)},
		{ID: "msg_2", Text: "world", CreatedAt: ts(10)},
	}

	t.Run("latest visible message", func(t *testing.T) {
		conv := pairConversation(nil)
		preview := chat.PreviewFor(conv, "alice", messages)
		require.NotNil(t, preview)
		assert.Equal(t, "world", preview.Text)
	})

	t.Run("nil when everything is behind the cutoff", func(t *testing.T) {
		conv := pairConversation(map[string]chat.MemberState{
			"alice": {ClearedAt: tsPtr(10)},
		})
		assert.Nil(t, chat.PreviewFor(conv, "alice", messages))
	})

	t.Run("nil without messages", func(t *testing.T) {
		conv := pairConversation(nil)
		assert.Nil(t, chat.PreviewFor(conv, "alice", nil))
	})
}

func TestNormalizePair(t *testing.T) {
	low, high := chat.NormalizePair("bob", "alice")
	assert.Equal(t, "alice", low)
	assert.Equal(t, "bob", high)

	low, high = chat.NormalizePair("alice", "bob")
	assert.Equal(t, "alice", low)
	assert.Equal(t, "bob", high)
}
