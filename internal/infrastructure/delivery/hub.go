package delivery

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"snapgrid/services/chat-api/internal/config"
	"snapgrid/services/chat-api/internal/domain/chat"
	"snapgrid/services/chat-api/internal/infrastructure/metrics"
)

// envelope is the wire frame for every pushed event.
type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Hub maps user identities to their live websocket sessions and fans
// events out to them. Delivery is at most once per connected session:
// a full session queue drops the frame, and disconnected users receive
// nothing. Durability lives in the stores, not here.
type Hub struct {
	cfg *config.Config
	log zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
}

func NewHub(cfg *config.Config, log zerolog.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		log:      log.With().Str("component", "delivery-hub").Logger(),
		sessions: make(map[string]map[*Session]struct{}),
	}
}

// Register attaches a connection for the user and announces the new
// presence list to everyone. The returned session must be driven with
// Run by the caller.
func (h *Hub) Register(userID string, conn *websocket.Conn) *Session {
	session := newSession(h, userID, conn)

	h.mu.Lock()
	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*Session]struct{})
	}
	h.sessions[userID][session] = struct{}{}
	h.mu.Unlock()

	metrics.DeliveryConnections.Inc()
	h.log.Debug().Str("user_id", userID).Msg("session connected")
	h.broadcastPresence()
	return session
}

func (h *Hub) unregister(session *Session) {
	h.mu.Lock()
	set, ok := h.sessions[session.userID]
	if ok {
		if _, present := set[session]; !present {
			ok = false
		} else {
			delete(set, session)
			if len(set) == 0 {
				delete(h.sessions, session.userID)
			}
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	session.close()
	metrics.DeliveryConnections.Dec()
	h.log.Debug().Str("user_id", session.userID).Msg("session disconnected")
	h.broadcastPresence()
}

// Publish delivers an event to every live session of the target users.
// Fire and forget: marshal errors are logged, slow sessions are
// skipped.
func (h *Hub) Publish(event string, payload any, userIDs ...string) {
	frame, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal push event")
		return
	}
	metrics.RecordDelivery(event)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range userIDs {
		for session := range h.sessions[userID] {
			session.enqueue(frame)
		}
	}
}

// BroadcastAll delivers an event to every connected session regardless
// of identity.
func (h *Hub) BroadcastAll(event string, payload any) {
	frame, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal broadcast event")
		return
	}
	metrics.RecordDelivery(event)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.sessions {
		for session := range set {
			session.enqueue(frame)
		}
	}
}

// OnlineUsers returns the identities with at least one live session.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.sessions))
	for userID := range h.sessions {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

func (h *Hub) broadcastPresence() {
	h.BroadcastAll(chat.EventOnlineUsers, h.OnlineUsers())
}

var _ chat.Publisher = (*Hub)(nil)
