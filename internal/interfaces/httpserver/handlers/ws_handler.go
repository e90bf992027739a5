package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"snapgrid/services/chat-api/internal/config"
	"snapgrid/services/chat-api/internal/infrastructure/auth"
	"snapgrid/services/chat-api/internal/infrastructure/delivery"
	"snapgrid/services/chat-api/internal/interfaces/httpserver/responses"
	"snapgrid/services/chat-api/internal/utils/platformerrors"
)

// DeliveryHandler upgrades authenticated requests to websocket sessions
// on the delivery hub.
type DeliveryHandler struct {
	cfg      *config.Config
	hub      *delivery.Hub
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewDeliveryHandler(cfg *config.Config, hub *delivery.Hub, log zerolog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		cfg: cfg,
		hub: hub,
		log: log.With().Str("component", "delivery-handler").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WSReadBufferBytes,
			WriteBufferSize: cfg.WSWriteBufferBytes,
			// Origin is enforced at the gateway.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Connect godoc
// @Summary      Open the delivery channel
// @Description  Upgrades to a websocket carrying newMessage, updateConversations and onlineUsers events.
// @Tags         delivery
// @Success      101  "switching protocols"
// @Failure      401  {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/ws [get]
func (h *DeliveryHandler) Connect(c *gin.Context) {
	userID, ok := auth.Identity(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized,
			"missing identity", "c7d8e9f0-a1b2-4c3d-8e5f-60718293a4b5")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake error response.
		h.log.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	session := h.hub.Register(userID, conn)
	session.Run()
}
