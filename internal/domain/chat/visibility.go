package chat

import "time"

// Cutoff returns the visibility boundary for userID in the
// conversation: the later of the user's delete and clear timestamps.
// The second return is false when the user has no cutoff at all.
func Cutoff(conv *Conversation, userID string) (time.Time, bool) {
	state := conv.StateOf(userID)

	var cutoff time.Time
	ok := false
	if state.DeletedAt != nil {
		cutoff = *state.DeletedAt
		ok = true
	}
	if state.ClearedAt != nil && state.ClearedAt.After(cutoff) {
		cutoff = *state.ClearedAt
		ok = true
	}
	return cutoff, ok
}

// VisibleMessages filters messages for the viewer: only messages
// strictly after the cutoff survive. Input order is preserved, so
// callers passing messages in insertion order get a stable ascending
// result (equal timestamps keep id order).
func VisibleMessages(conv *Conversation, userID string, messages []Message) []Message {
	cutoff, ok := Cutoff(conv, userID)
	if !ok {
		out := make([]Message, len(messages))
		copy(out, messages)
		return out
	}

	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.CreatedAt.After(cutoff) {
			out = append(out, msg)
		}
	}
	return out
}

// PreviewFor returns the most recent message visible to the viewer, or
// nil when nothing passes the cutoff ("no messages yet").
func PreviewFor(conv *Conversation, userID string, messages []Message) *Message {
	visible := VisibleMessages(conv, userID, messages)
	if len(visible) == 0 {
		return nil
	}
	last := visible[len(visible)-1]
	return &last
}
