package v1

import (
	"github.com/gin-gonic/gin"

	"snapgrid/services/chat-api/internal/infrastructure/auth"
	"snapgrid/services/chat-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
	auth     *auth.Validator
}

func NewRoutes(provider *handlers.Provider, authValidator *auth.Validator) *Routes {
	return &Routes{handlers: provider, auth: authValidator}
}

// Register attaches the authenticated routes under the /v1 prefix,
// including the delivery channel upgrade.
func (r *Routes) Register(router gin.IRouter) {
	identity := r.auth.Middleware()

	group := router.Group("/v1", identity)
	messages := group.Group("/message")
	messages.POST("/send/:peerId", r.handlers.Message.Send)
	messages.GET("/all/:peerId", r.handlers.Message.History)
	messages.GET("/conversations", r.handlers.Message.Conversations)
	messages.DELETE("/delete/:conversationId", r.handlers.Message.Delete)
	messages.DELETE("/delete-user/:peerId", r.handlers.Message.DeleteUser)
	messages.DELETE("/clear-chat/:peerId", r.handlers.Message.ClearChat)

	group.GET("/ws", r.handlers.Delivery.Connect)
}
