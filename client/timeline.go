// Package client implements the message timeline a chat client keeps,
// including optimistic entries that are reconciled against
// server-confirmed messages arriving over the delivery channel.
package client

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"snapgrid/services/chat-api/internal/domain/chat"
)

// MatchWindow bounds the clock skew tolerated when pairing an
// optimistic entry with its confirmed counterpart.
const MatchWindow = 5 * time.Second

// Entry is a timeline element, either Speculative or Confirmed.
type Entry interface {
	entry()
}

// Speculative is a locally composed message that the server has not
// confirmed yet.
type Speculative struct {
	TempID     string    `json:"tempId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Speculative) entry() {}

// Confirmed wraps a server-acknowledged message.
type Confirmed struct {
	Message chat.Message `json:"message"`
}

func (Confirmed) entry() {}

// Timeline holds the entries of one open thread. Safe for concurrent
// use; the delivery channel and the send path mutate it from different
// goroutines.
type Timeline struct {
	mu      sync.Mutex
	entries []Entry
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// AddSpeculative appends an optimistic entry and returns its temp id.
func (t *Timeline) AddSpeculative(senderID, receiverID, text string, at time.Time) string {
	entry := Speculative{
		TempID:     uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  at,
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.mu.Unlock()
	return entry.TempID
}

// Merge reconciles a confirmed message into the timeline. A message
// already present by id is ignored. Otherwise the first speculative
// entry with the same sender, receiver and text within MatchWindow is
// replaced in place; with no match the message is appended.
func (t *Timeline) Merge(msg chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if confirmed, ok := e.(Confirmed); ok && confirmed.Message.ID == msg.ID {
			return
		}
	}

	for i, e := range t.entries {
		draft, ok := e.(Speculative)
		if !ok {
			continue
		}
		if draft.SenderID != msg.SenderID || draft.ReceiverID != msg.ReceiverID || draft.Text != msg.Text {
			continue
		}
		if delta := msg.CreatedAt.Sub(draft.CreatedAt); delta < -MatchWindow || delta > MatchWindow {
			continue
		}
		t.entries[i] = Confirmed{Message: msg}
		return
	}

	t.entries = append(t.entries, Confirmed{Message: msg})
}

// RemoveSpeculative drops an optimistic entry after a failed send and
// returns its text so the composer can be restored.
func (t *Timeline) RemoveSpeculative(tempID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		draft, ok := e.(Speculative)
		if !ok || draft.TempID != tempID {
			continue
		}
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		return draft.Text, true
	}
	return "", false
}

// Entries returns a snapshot of the timeline in display order.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Reset replaces the timeline with server history, dropping any
// unconfirmed entries. Used when a thread is (re)opened.
func (t *Timeline) Reset(history []chat.Message) {
	entries := make([]Entry, 0, len(history))
	for _, msg := range history {
		entries = append(entries, Confirmed{Message: msg})
	}

	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
}
