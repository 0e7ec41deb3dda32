package ports

import (
	"context"
	"errors"

	"marketplace-session-layer/internal/domain"
)

var (
	// ErrCartNotFound means the store no longer knows the requested cart id
	ErrCartNotFound = errors.New("cart not found on store")
	// ErrSessionRevoked means the store rejected the session token
	ErrSessionRevoked = errors.New("session token rejected by store")
)

// FetchRequest describes what the client already knows about a store
type FetchRequest struct {
	StoreID      string
	BaseURL      string
	Platform     domain.Platform
	CartID       string
	SessionToken string
}

// CartFetcher retrieves live store identity and cart data.
// A nil info with a nil error means the store reported nothing.
type CartFetcher interface {
	FetchCart(ctx context.Context, req FetchRequest) (*domain.RemoteCartInfo, error)
}
