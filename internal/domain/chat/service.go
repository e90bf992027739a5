package chat

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"snapgrid/services/chat-api/internal/config"
	"snapgrid/services/chat-api/internal/utils/platformerrors"
	"snapgrid/services/chat-api/utils/chatid"
)

const tracerName = "snapgrid/chat-api"

// Service orchestrates conversation state, message ingestion and
// delivery-channel fan-out.
type Service struct {
	cfg           *config.Config
	conversations ConversationRepository
	messages      MessageRepository
	publisher     Publisher
	log           zerolog.Logger
	now           func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source, pinning message and cutoff
// timestamps in tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(cfg *config.Config, conversations ConversationRepository, messages MessageRepository, publisher Publisher, log zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:           cfg,
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		log:           log.With().Str("component", "chat-service").Logger(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessage validates and persists a message, restores visibility for
// both participants and fans the message out to their sessions.
//
// A send un-hides the conversation for both sides, including a
// delete/clear the receiver performed. Cutoff timestamps are kept, so
// restored threads only show messages sent after the cutoff.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID, text string) (*Message, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "chat.send",
		trace.WithAttributes(attribute.String("chat.sender_id", senderID)),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "message text is empty", nil,
			"e1f6a0c4-9d3b-4f2e-8a57-0c1b2d3e4f50")
	}
	if len(text) > s.cfg.MaxMessageChars {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "message text too long", nil,
			"b4c8e2d6-1a3f-4e5b-9c70-8d2e4f6a0b1c")
	}
	if senderID == receiverID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "cannot message yourself", nil,
			"7d9e1f3a-5b2c-4d6e-8f90-1a2b3c4d5e6f")
	}

	now := s.now()
	conv, err := s.conversations.FindOrCreate(ctx, senderID, receiverID, chatid.NewConversationID(), now)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		ID:             chatid.NewMessageID(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Text:           text,
		CreatedAt:      now,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	// Second write of the two-write send path. A failure here leaves an
	// orphaned message; the caller sees Internal and may retry, the
	// append is idempotent.
	if err := s.conversations.RecordMessage(ctx, conv.ID, now); err != nil {
		s.log.Error().Err(err).Str("conversation_id", conv.ID).Str("message_id", msg.ID).
			Msg("message persisted but conversation update failed")
		return nil, err
	}

	s.publisher.Publish(EventNewMessage, msg, senderID, receiverID)
	s.publisher.Publish(EventUpdateConversations, nil, senderID, receiverID)

	return msg, nil
}

// History returns the messages between userID and peerID that are
// visible to userID. A missing conversation yields an empty history; a
// conversation the user deleted is not accessible until restored.
func (s *Service) History(ctx context.Context, userID, peerID string) ([]Message, error) {
	conv, err := s.conversations.FindByPair(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return []Message{}, nil
	}
	if conv.StateOf(userID).Deleted {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeForbidden, "conversation not accessible", nil,
			"3c5d7e9f-1b2a-4c6d-8e0f-2a4b6c8d0e1f")
	}

	all, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	return VisibleMessages(conv, userID, all), nil
}

// ListConversations returns the viewer's conversation list, most
// recently active first, with per-viewer previews.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	convs, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		peer, ok := conv.Peer(userID)
		if !ok {
			continue
		}

		all, err := s.messages.ListByConversation(ctx, conv.ID)
		if err != nil {
			return nil, err
		}

		summary := ConversationSummary{
			ID:              conv.ID,
			UserID:          peer,
			LastMessageTime: conv.UpdatedAt,
			UpdatedAt:       conv.UpdatedAt,
		}
		if preview := PreviewFor(conv, userID, all); preview != nil {
			summary.LastMessage = preview.Text
			summary.LastMessageTime = preview.CreatedAt
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// DeleteConversation hides the conversation from the caller's list.
// Repeat calls are no-ops.
func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	return s.markDeleted(ctx, userID, conv)
}

// DeleteConversationWithPeer is DeleteConversation addressed by the
// other participant instead of the conversation id.
func (s *Service) DeleteConversationWithPeer(ctx context.Context, userID, peerID string) error {
	conv, err := s.conversations.FindByPair(ctx, userID, peerID)
	if err != nil {
		return err
	}
	if conv == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeNotFound, "conversation not found", nil,
			"9a1b3c5d-7e2f-4a6b-8c0d-3e5f7a9b1c2d")
	}
	return s.markDeleted(ctx, userID, conv)
}

func (s *Service) markDeleted(ctx context.Context, userID string, conv *Conversation) error {
	if !conv.HasParticipant(userID) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeForbidden, "not a participant of this conversation", nil,
			"5e7f9a1b-3c4d-4e6f-8a90-b1c2d3e4f5a6")
	}
	if !conv.StateOf(userID).Deleted {
		if err := s.conversations.MarkDeleted(ctx, conv.ID, userID, s.now()); err != nil {
			return err
		}
	}
	s.publisher.Publish(EventUpdateConversations, nil, userID)
	return nil
}

// ClearChat hides history with peerID before now for the caller. The
// conversation stays listed. Repeat calls are no-ops.
func (s *Service) ClearChat(ctx context.Context, userID, peerID string) error {
	conv, err := s.conversations.FindByPair(ctx, userID, peerID)
	if err != nil {
		return err
	}
	if conv == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeNotFound, "conversation not found", nil,
			"1f2e3d4c-5b6a-4798-8c1d-e2f3a4b5c6d7")
	}
	if !conv.StateOf(userID).Cleared {
		if err := s.conversations.MarkCleared(ctx, conv.ID, userID, s.now()); err != nil {
			return err
		}
	}
	s.publisher.Publish(EventUpdateConversations, nil, userID)
	return nil
}
