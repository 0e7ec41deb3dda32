package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/ports"

	"github.com/rs/zerolog"
)

// CartService records which cart the client holds at each store
type CartService struct {
	carts    ports.RecordTable[domain.CartRecord]
	sessions ports.RecordTable[domain.SessionRecord]
	notifier ports.ChangeNotifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCartService creates a new cart service
func NewCartService(
	carts ports.RecordTable[domain.CartRecord],
	sessions ports.RecordTable[domain.SessionRecord],
	notifier ports.ChangeNotifier,
	logger zerolog.Logger,
) *CartService {
	return &CartService{
		carts:    carts,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetCart creates or replaces the cart record for storeID and publishes
// cart-updated once the record is written
func (s *CartService) SetCart(ctx context.Context, storeID, cartID, storeName string) (domain.CartRecord, error) {
	storeID = strings.TrimSpace(storeID)
	cartID = strings.TrimSpace(cartID)
	if storeID == "" {
		return domain.CartRecord{}, fmt.Errorf("%w: store id is required", domain.ErrInvalidRecord)
	}
	if cartID == "" {
		return domain.CartRecord{}, fmt.Errorf("%w: cart id is required", domain.ErrInvalidRecord)
	}

	record := domain.CartRecord{
		CartID:    cartID,
		CreatedAt: stamp(s.now),
		StoreName: strings.TrimSpace(storeName),
	}
	if !s.carts.Set(ctx, storeID, record) {
		return domain.CartRecord{}, fmt.Errorf("failed to record cart for %s: %w", storeID, domain.ErrRecordNotPersisted)
	}

	s.notifier.Publish(domain.ChangeEvent{
		Topic:      domain.TopicCartUpdated,
		ClientID:   domain.GetClientIDFromContext(ctx),
		StoreID:    storeID,
		CartID:     record.CartID,
		StoreName:  record.StoreName,
		OccurredAt: record.CreatedAt,
	})

	s.logger.Info().
		Str("clientId", domain.GetClientIDFromContext(ctx)).
		Str("storeId", storeID).
		Str("cartId", cartID).
		Msg("Cart recorded")

	return record, nil
}

// GetCart returns the cart record for storeID
func (s *CartService) GetCart(ctx context.Context, storeID string) (domain.CartRecord, bool) {
	return s.carts.Get(ctx, storeID)
}

// ListCarts returns every cart record of the client
func (s *CartService) ListCarts(ctx context.Context) map[string]domain.CartRecord {
	return s.carts.GetAll(ctx)
}

// RemoveCart drops the cart record for storeID. Removing an absent record is
// not an error and publishes nothing, and neither does a removal the backend
// did not take.
func (s *CartService) RemoveCart(ctx context.Context, storeID string) bool {
	if !s.carts.Remove(ctx, storeID) {
		return false
	}

	s.notifier.Publish(domain.ChangeEvent{
		Topic:      domain.TopicCartUpdated,
		ClientID:   domain.GetClientIDFromContext(ctx),
		StoreID:    storeID,
		Removed:    true,
		OccurredAt: stamp(s.now),
	})

	s.logger.Info().
		Str("clientId", domain.GetClientIDFromContext(ctx)).
		Str("storeId", storeID).
		Msg("Cart removed")
	return true
}

// ClearAll drops every cart and session record of the client. Each table
// publishes its cleared event only once the backend took the delete.
func (s *CartService) ClearAll(ctx context.Context) error {
	clientID := domain.GetClientIDFromContext(ctx)
	at := stamp(s.now)

	cartsCleared := s.carts.Clear(ctx)
	if cartsCleared {
		s.notifier.Publish(domain.ChangeEvent{
			Topic:      domain.TopicCartUpdated,
			ClientID:   clientID,
			Removed:    true,
			Cleared:    true,
			OccurredAt: at,
		})
	}

	sessionsCleared := s.sessions.Clear(ctx)
	if sessionsCleared {
		s.notifier.Publish(domain.ChangeEvent{
			Topic:      domain.TopicSessionUpdated,
			ClientID:   clientID,
			Removed:    true,
			Cleared:    true,
			OccurredAt: at,
		})
	}

	if !cartsCleared || !sessionsCleared {
		return fmt.Errorf("failed to clear client records: %w", domain.ErrRecordNotPersisted)
	}

	s.logger.Info().Str("clientId", clientID).Msg("Cleared all carts and sessions")
	return nil
}

// stamp returns the current time at the millisecond precision records are persisted with
func stamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Millisecond)
}
