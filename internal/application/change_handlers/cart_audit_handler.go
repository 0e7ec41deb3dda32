package change_handlers

import (
	"context"

	"marketplace-session-layer/internal/domain"

	"github.com/rs/zerolog"
)

// CartAuditHandler logs cart changes
type CartAuditHandler struct {
	logger zerolog.Logger
}

// NewCartAuditHandler creates a new cart audit handler
func NewCartAuditHandler(logger zerolog.Logger) *CartAuditHandler {
	return &CartAuditHandler{
		logger: logger,
	}
}

func (h *CartAuditHandler) Topic() domain.Topic {
	return domain.TopicCartUpdated
}

// Handle logs one cart change
func (h *CartAuditHandler) Handle(_ context.Context, event domain.ChangeEvent) error {
	switch {
	case event.Cleared:
		h.logger.Info().Str("clientId", event.ClientID).Msg("All carts cleared")
	case event.Removed:
		h.logger.Info().Str("clientId", event.ClientID).Str("storeId", event.StoreID).Msg("Cart dropped")
	default:
		h.logger.Info().
			Str("clientId", event.ClientID).
			Str("storeId", event.StoreID).
			Str("cartId", event.CartID).
			Str("storeName", event.StoreName).
			Msg("Cart recorded")
	}
	return nil
}
