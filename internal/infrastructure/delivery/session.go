package delivery

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"snapgrid/services/chat-api/internal/infrastructure/metrics"
)

// Session is a single websocket connection owned by one user. Frames
// pass through a bounded queue so a stalled client never blocks the
// hub; an overflowing queue drops frames instead.
type Session struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn

	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(h *Hub, userID string, conn *websocket.Conn) *Session {
	return &Session{
		hub:    h,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, h.cfg.WSSendQueueSize),
		closed: make(chan struct{}),
	}
}

// UserID returns the owning user identity.
func (s *Session) UserID() string {
	return s.userID
}

// Run drives the connection until the client disconnects or the session
// is closed. It blocks the calling goroutine (the HTTP handler).
func (s *Session) Run() {
	go s.writePump()
	s.readPump()
	s.hub.unregister(s)
}

func (s *Session) enqueue(frame []byte) {
	select {
	case <-s.closed:
	case s.send <- frame:
	default:
		metrics.DeliveryDroppedTotal.Inc()
		s.hub.log.Warn().Str("user_id", s.userID).Msg("session queue full, frame dropped")
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}

// readPump consumes client frames. Inbound payloads carry no commands,
// the socket is push only, so everything is discarded; the read loop
// exists to surface disconnects and keep pong handling alive.
func (s *Session) readPump() {
	s.conn.SetReadLimit(int64(s.hub.cfg.WSReadBufferBytes))
	s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.WSPongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.WSPongTimeout))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.log.Debug().Err(err).Str("user_id", s.userID).Msg("session read error")
			}
			return
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.hub.cfg.WSPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WSWriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WSWriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}
