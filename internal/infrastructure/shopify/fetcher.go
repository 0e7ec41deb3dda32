package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// Options configures the Shopify fetcher
type Options struct {
	APIKey      string
	APISecret   string
	AccessToken string // used when the client holds no session for the store
	Retries     int
	HTTPClient  *http.Client
}

// Fetcher resolves a Shopify store's identity through the Admin API.
// Shopper carts are not readable there, so the cart the client already
// holds is echoed back.
type Fetcher struct {
	app    goshopify.App
	opts   Options
	logger zerolog.Logger
}

var _ ports.CartFetcher = (*Fetcher)(nil)

// NewFetcher creates a new Shopify fetcher
func NewFetcher(opts Options, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		app: goshopify.App{
			ApiKey:    opts.APIKey,
			ApiSecret: opts.APISecret,
		},
		opts:   opts,
		logger: logger.With().Str("platform", string(domain.PlatformShopify)).Logger(),
	}
}

// createClient is a helper to create a goshopify client
func (f *Fetcher) createClient(shopName, accessToken string) (*goshopify.Client, error) {
	var options []goshopify.Option
	if f.opts.Retries > 0 {
		options = append(options, goshopify.WithRetry(f.opts.Retries))
	}
	if f.opts.HTTPClient != nil {
		options = append(options, goshopify.WithHTTPClient(f.opts.HTTPClient))
	}

	client, err := goshopify.NewClient(f.app, shopName, accessToken, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// FetchCart looks the shop up with the client's session token, or the
// configured access token when there is none
func (f *Fetcher) FetchCart(ctx context.Context, req ports.FetchRequest) (*domain.RemoteCartInfo, error) {
	token := req.SessionToken
	if token == "" {
		token = f.opts.AccessToken
	}
	if token == "" {
		f.logger.Debug().Str("baseUrl", req.BaseURL).Msg("No Shopify token for store, skipping lookup")
		return nil, nil
	}

	shopName, err := ShopName(req.BaseURL)
	if err != nil {
		return nil, err
	}

	client, err := f.createClient(shopName, token)
	if err != nil {
		return nil, err
	}

	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		if isAuthFailure(err) {
			f.logger.Warn().
				Str("shop", shopName).
				Msg("Shopify rejected token: invalid or revoked")
			if req.SessionToken == "" {
				// the configured token is not the client's to drop
				return nil, fmt.Errorf("failed to get shop: %w", err)
			}
			return nil, fmt.Errorf("failed to get shop: %w", ports.ErrSessionRevoked)
		}
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	info := &domain.RemoteCartInfo{
		StoreName: shop.Name,
		BaseURL:   req.BaseURL,
		Platform:  domain.PlatformShopify,
		CartID:    req.CartID,
	}
	if shop.Id != 0 {
		info.StoreID = strconv.FormatUint(shop.Id, 10)
	}

	f.logger.Debug().
		Str("shop", shopName).
		Str("storeId", info.StoreID).
		Msg("Resolved Shopify store")
	return info, nil
}

// ShopName maps a store URL to the shop name go-shopify expects:
// a *.myshopify.com host is used as is, any other host contributes its
// first label as the shop handle
func ShopName(baseURL string) (string, error) {
	u, ok := domain.ParseAbsoluteURL(baseURL)
	if !ok {
		return "", fmt.Errorf("invalid shopify store url %q", baseURL)
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	if strings.HasSuffix(host, ".myshopify.com") {
		return host, nil
	}
	label, _, _ := strings.Cut(host, ".")
	return label, nil
}

// isAuthFailure reports whether Shopify answered with 401 or 403.
// Transport errors never count, whatever their text.
func isAuthFailure(err error) bool {
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		return isAuthStatus(respErr.Status)
	}
	var respErrPtr *goshopify.ResponseError
	if errors.As(err, &respErrPtr) && respErrPtr != nil {
		return isAuthStatus(respErrPtr.Status)
	}
	return false
}

func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
