package handlers

import (
	"github.com/rs/zerolog"

	"snapgrid/services/chat-api/internal/config"
	domain "snapgrid/services/chat-api/internal/domain/chat"
	"snapgrid/services/chat-api/internal/infrastructure/delivery"
)

// Provider wires HTTP handlers.
type Provider struct {
	Message  *MessageHandler
	Delivery *DeliveryHandler
}

func NewProvider(cfg *config.Config, service *domain.Service, hub *delivery.Hub, log zerolog.Logger) *Provider {
	return &Provider{
		Message:  NewMessageHandler(cfg, service, log),
		Delivery: NewDeliveryHandler(cfg, hub, log),
	}
}
