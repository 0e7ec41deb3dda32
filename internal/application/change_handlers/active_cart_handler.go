package change_handlers

import (
	"context"
	"fmt"

	"marketplace-session-layer/internal/application"
	"marketplace-session-layer/internal/domain"

	"github.com/rs/zerolog"
)

// ActiveCartHandler records the active cart a new session points at when
// the client holds no cart for that store yet
type ActiveCartHandler struct {
	carts  *application.CartService
	logger zerolog.Logger
}

// NewActiveCartHandler creates a new active cart handler
func NewActiveCartHandler(carts *application.CartService, logger zerolog.Logger) *ActiveCartHandler {
	return &ActiveCartHandler{
		carts:  carts,
		logger: logger,
	}
}

func (h *ActiveCartHandler) Topic() domain.Topic {
	return domain.TopicSessionUpdated
}

// Handle adopts event.ActiveCartID as the store's cart when none is recorded
func (h *ActiveCartHandler) Handle(ctx context.Context, event domain.ChangeEvent) error {
	if event.Removed || event.ActiveCartID == "" || event.StoreID == "" {
		return nil
	}
	if _, ok := h.carts.GetCart(ctx, event.StoreID); ok {
		return nil
	}

	if _, err := h.carts.SetCart(ctx, event.StoreID, event.ActiveCartID, ""); err != nil {
		return fmt.Errorf("failed to adopt active cart: %w", err)
	}

	h.logger.Info().
		Str("clientId", event.ClientID).
		Str("storeId", event.StoreID).
		Str("cartId", event.ActiveCartID).
		Msg("Adopted session's active cart")
	return nil
}
