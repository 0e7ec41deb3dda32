package openfront

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/ports"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const storeCartQuery = `query StoreCart($cartId: ID, $withCart: Boolean!) {
  storeInfo { id name logoIcon logoColor }
  activeCart(id: $cartId) @include(if: $withCart) { id }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type storeCartResponse struct {
	Data struct {
		StoreInfo *struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			LogoIcon  string `json:"logoIcon"`
			LogoColor string `json:"logoColor"`
		} `json:"storeInfo"`
		ActiveCart *struct {
			ID string `json:"id"`
		} `json:"activeCart"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// Fetcher reads store identity and the client's cart from an Openfront
// store's GraphQL endpoint
type Fetcher struct {
	client *resty.Client
	logger zerolog.Logger
}

var _ ports.CartFetcher = (*Fetcher)(nil)

// NewFetcher creates a new Openfront fetcher
func NewFetcher(timeout time.Duration, logger zerolog.Logger) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "marketplace-session-layer/1.0")

	return &Fetcher{
		client: client,
		logger: logger.With().Str("platform", string(domain.PlatformOpenfront)).Logger(),
	}
}

// FetchCart queries storeInfo and, when the client holds a cart id, activeCart
func (f *Fetcher) FetchCart(ctx context.Context, req ports.FetchRequest) (*domain.RemoteCartInfo, error) {
	endpoint := strings.TrimRight(req.BaseURL, "/") + "/api/graphql"

	var result storeCartResponse
	r := f.client.R().
		SetContext(ctx).
		SetBody(graphqlRequest{
			Query: storeCartQuery,
			Variables: map[string]any{
				"cartId":   req.CartID,
				"withCart": req.CartID != "",
			},
		}).
		SetResult(&result).
		SetError(&result)
	if req.SessionToken != "" {
		r.SetAuthToken(req.SessionToken)
	}

	resp, err := r.Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to query openfront store: %w", err)
	}

	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden || hasAuthError(result.Errors) {
		if req.SessionToken != "" {
			f.logger.Warn().
				Int("status", resp.StatusCode()).
				Str("baseUrl", req.BaseURL).
				Msg("Openfront rejected session token")
			return nil, ports.ErrSessionRevoked
		}
		return nil, fmt.Errorf("openfront store refused anonymous access (status %d)", resp.StatusCode())
	}
	if resp.IsError() {
		return nil, fmt.Errorf("openfront store returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Data.StoreInfo == nil && len(result.Errors) > 0 {
		return nil, fmt.Errorf("openfront query failed: %s", result.Errors[0].Message)
	}

	info := &domain.RemoteCartInfo{
		BaseURL:  req.BaseURL,
		Platform: domain.PlatformOpenfront,
	}
	if store := result.Data.StoreInfo; store != nil {
		info.StoreID = store.ID
		info.StoreName = store.Name
		info.LogoIcon = store.LogoIcon
		info.LogoColor = store.LogoColor
	}

	if req.CartID == "" {
		return info, nil
	}
	if result.Data.ActiveCart == nil || result.Data.ActiveCart.ID == "" {
		if len(result.Errors) > 0 {
			// a failed resolver says nothing about the cart
			return info, fmt.Errorf("openfront cart query failed: %s", result.Errors[0].Message)
		}
		f.logger.Debug().
			Str("baseUrl", req.BaseURL).
			Str("cartId", req.CartID).
			Msg("Openfront store does not know cart")
		return info, ports.ErrCartNotFound
	}
	info.CartID = result.Data.ActiveCart.ID
	return info, nil
}

func hasAuthError(errs []graphqlError) bool {
	for _, e := range errs {
		switch e.Extensions.Code {
		case "UNAUTHENTICATED", "FORBIDDEN":
			return true
		}
	}
	return false
}
