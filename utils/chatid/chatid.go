package chatid

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes for the two persisted record kinds.
const (
	ConversationPrefix = "conv_"
	MessagePrefix      = "msg_"
)

var (
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
	entropyMu   sync.Mutex
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

func newID(prefix string) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return prefix + strings.ToLower(id.String())
}

// NewConversationID returns a conv_* ULID string.
func NewConversationID() string {
	return newID(ConversationPrefix)
}

// NewMessageID returns a msg_* ULID string. Message IDs inherit ULID
// time ordering, so lexicographic id order matches creation order.
func NewMessageID() string {
	return newID(MessagePrefix)
}

// IsValid reports whether the string is a prefixed ULID.
func IsValid(value string) bool {
	prefix := prefixOf(value)
	if prefix == "" {
		return false
	}
	_, err := Parse(value)
	return err == nil
}

// Parse strips the prefix and returns the ULID.
func Parse(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, prefixOf(value))
	return ulid.Parse(value)
}

func prefixOf(value string) string {
	switch {
	case strings.HasPrefix(value, ConversationPrefix):
		return ConversationPrefix
	case strings.HasPrefix(value, MessagePrefix):
		return MessagePrefix
	default:
		return ""
	}
}
