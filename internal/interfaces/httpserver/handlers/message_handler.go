package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"snapgrid/services/chat-api/internal/config"
	domain "snapgrid/services/chat-api/internal/domain/chat"
	"snapgrid/services/chat-api/internal/infrastructure/auth"
	"snapgrid/services/chat-api/internal/infrastructure/metrics"
	"snapgrid/services/chat-api/internal/interfaces/httpserver/requests"
	"snapgrid/services/chat-api/internal/interfaces/httpserver/responses"
	"snapgrid/services/chat-api/internal/utils/platformerrors"
)

// MessageHandler exposes the messaging endpoints.
type MessageHandler struct {
	cfg     *config.Config
	service *domain.Service
	log     zerolog.Logger
}

func NewMessageHandler(cfg *config.Config, service *domain.Service, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "message-handler").Logger(),
	}
}

func callerIdentity(c *gin.Context) (string, bool) {
	userID, ok := auth.Identity(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized,
			"missing identity", "f0a1b2c3-d4e5-4f60-8172-93a4b5c6d7e8")
	}
	return userID, ok
}

// Send godoc
// @Summary      Send a message
// @Description  Persists a message to the peer and pushes it to both participants' live sessions.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        peerId   path      string                       true  "Receiver user id"
// @Param        request  body      requests.SendMessageRequest  true  "Message body"
// @Success      200      {object}  responses.SendMessageResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/message/send/{peerId} [post]
func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"invalid request body", "2b3c4d5e-6f70-4811-92a3-b4c5d6e7f809")
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), userID, c.Param("peerId"), req.Content())
	if err != nil {
		metrics.RecordMessageSent("error")
		h.log.Warn().Err(err).Str("sender_id", userID).Msg("send message failed")
		responses.HandleError(c, err, "failed to send message")
		return
	}
	metrics.RecordMessageSent("ok")

	c.JSON(http.StatusOK, responses.SendMessageResponse{Success: true, NewMessage: msg})
}

// History godoc
// @Summary      Get message history with a peer
// @Description  Returns the messages visible to the caller, oldest first. Cleared or deleted history stays hidden.
// @Tags         messages
// @Produce      json
// @Param        peerId  path      string  true  "Peer user id"
// @Success      200     {object}  responses.HistoryResponse
// @Failure      403     {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/message/all/{peerId} [get]
func (h *MessageHandler) History(c *gin.Context) {
	userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	msgs, err := h.service.History(c.Request.Context(), userID, c.Param("peerId"))
	if err != nil {
		responses.HandleError(c, err, "failed to load history")
		return
	}

	c.JSON(http.StatusOK, responses.HistoryResponse{Success: true, Messages: msgs})
}

// Conversations godoc
// @Summary      List conversations
// @Description  Returns the caller's conversation list with per-viewer previews, most recently active first.
// @Tags         messages
// @Produce      json
// @Success      200  {object}  responses.ConversationListResponse
// @Security     ApiKeyAuth
// @Router       /v1/message/conversations [get]
func (h *MessageHandler) Conversations(c *gin.Context) {
	userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	summaries, err := h.service.ListConversations(c.Request.Context(), userID)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}

	c.JSON(http.StatusOK, responses.ConversationListResponse{Success: true, Conversations: summaries})
}

// Delete godoc
// @Summary      Delete a conversation
// @Description  Hides the conversation from the caller's list until the thread sees a new message. The peer is unaffected.
// @Tags         messages
// @Produce      json
// @Param        conversationId  path      string  true  "Conversation id"
// @Success      200             {object}  responses.StatusResponse
// @Failure      404             {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/message/delete/{conversationId} [delete]
func (h *MessageHandler) Delete(c *gin.Context) {
	userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.service.DeleteConversation(c.Request.Context(), userID, c.Param("conversationId")); err != nil {
		responses.HandleError(c, err, "failed to delete conversation")
		return
	}

	c.JSON(http.StatusOK, responses.StatusResponse{Success: true, Message: "conversation deleted"})
}

// DeleteUser godoc
// @Summary      Delete the conversation with a user
// @Description  Same as delete, addressed by the peer's user id instead of the conversation id.
// @Tags         messages
// @Produce      json
// @Param        peerId  path      string  true  "Peer user id"
// @Success      200     {object}  responses.StatusResponse
// @Failure      404     {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/message/delete-user/{peerId} [delete]
func (h *MessageHandler) DeleteUser(c *gin.Context) {
	userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.service.DeleteConversationWithPeer(c.Request.Context(), userID, c.Param("peerId")); err != nil {
		responses.HandleError(c, err, "failed to delete conversation")
		return
	}

	c.JSON(http.StatusOK, responses.StatusResponse{Success: true, Message: "conversation deleted"})
}

// ClearChat godoc
// @Summary      Clear chat history with a peer
// @Description  Hides all current messages with the peer from the caller. The conversation stays listed and the peer is unaffected.
// @Tags         messages
// @Produce      json
// @Param        peerId  path      string  true  "Peer user id"
// @Success      200     {object}  responses.StatusResponse
// @Failure      404     {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/message/clear-chat/{peerId} [delete]
func (h *MessageHandler) ClearChat(c *gin.Context) {
	userID, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.service.ClearChat(c.Request.Context(), userID, c.Param("peerId")); err != nil {
		responses.HandleError(c, err, "failed to clear chat")
		return
	}

	c.JSON(http.StatusOK, responses.StatusResponse{Success: true, Message: "chat cleared"})
}
