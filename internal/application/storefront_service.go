package application

import (
	"context"
	"errors"
	"time"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StorefrontOptions tunes remote fetching
type StorefrontOptions struct {
	FetchTimeout     time.Duration
	FetchConcurrency int
	PruneStaleCarts  bool
}

// StorefrontService builds the reconciled store view for a client
type StorefrontService struct {
	directory *DirectoryService
	carts     *CartService
	sessions  *SessionService
	fetchers  map[domain.Platform]ports.CartFetcher
	metrics   ports.FetchRecorder
	logger    zerolog.Logger
	opts      StorefrontOptions
}

// NewStorefrontService creates a new storefront service. fetchers maps each
// platform to the adapter that talks to its stores.
func NewStorefrontService(
	directory *DirectoryService,
	carts *CartService,
	sessions *SessionService,
	fetchers map[domain.Platform]ports.CartFetcher,
	recorder ports.FetchRecorder,
	logger zerolog.Logger,
	opts StorefrontOptions,
) *StorefrontService {
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 1
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &StorefrontService{
		directory: directory,
		carts:     carts,
		sessions:  sessions,
		fetchers:  fetchers,
		metrics:   recorder,
		logger:    logger,
		opts:      opts,
	}
}

// View fetches every directory store's live data and reconciles it with the
// directory. Fetch failures only cost the affected store its cart fields.
func (s *StorefrontService) View(ctx context.Context) ([]domain.ReconciledEntry, error) {
	stores := s.directory.List(ctx)
	carts := s.carts.ListCarts(ctx)
	sessions := s.sessions.ListSessions(ctx)

	results := make([]fetchResult, len(stores))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)
	for i, store := range stores {
		i := i
		req := buildFetchRequest(store, carts, sessions)
		g.Go(func() error {
			results[i] = s.fetch(gctx, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	remote := make([]domain.RemoteCartInfo, 0, len(results))
	for i, res := range results {
		store := stores[i]
		localCart := ""
		if !res.cartGone {
			localCart = localCartID(store, carts, sessions)
		}

		if res.info == nil {
			// nothing answered; the client's own cart still shows
			if localCart != "" {
				remote = append(remote, domain.RemoteCartInfo{
					StoreID:   store.StoreID,
					BaseURL:   store.BaseURL,
					CartID:    localCart,
					StoreName: carts[store.StoreID].StoreName,
				})
			}
			continue
		}

		r := *res.info
		if r.BaseURL == "" {
			r.BaseURL = store.BaseURL
		}
		if r.CartID == "" {
			r.CartID = localCart
		}
		remote = append(remote, r)
	}

	view := Reconcile(stores, remote)

	if _, err := s.directory.ApplyIdentity(ctx, view); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write back store identity")
	}

	return view, nil
}

type fetchResult struct {
	info *domain.RemoteCartInfo
	// the store reported the locally recorded cart as gone
	cartGone bool
}

// fetch calls the platform fetcher and absorbs its failures
func (s *StorefrontService) fetch(ctx context.Context, req ports.FetchRequest) fetchResult {
	platform := string(req.Platform)

	fetcher, ok := s.fetchers[req.Platform]
	if !ok {
		s.metrics.RemoteFetch(platform, "no_fetcher")
		return fetchResult{}
	}

	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	info, err := fetcher.FetchCart(ctx, req)
	switch {
	case err == nil && info == nil:
		s.metrics.RemoteFetch(platform, "empty")
		return fetchResult{}
	case err == nil:
		s.metrics.RemoteFetch(platform, "ok")
		return fetchResult{info: info}
	case errors.Is(err, ports.ErrCartNotFound):
		s.metrics.RemoteFetch(platform, "cart_not_found")
		s.dropStaleCart(ctx, req)
		return fetchResult{info: info, cartGone: true}
	case errors.Is(err, ports.ErrSessionRevoked):
		s.metrics.RemoteFetch(platform, "session_revoked")
		s.dropRevokedSession(ctx, req)
		return fetchResult{}
	default:
		s.metrics.RemoteFetch(platform, "error")
		s.logger.Warn().
			Err(err).
			Str("baseUrl", req.BaseURL).
			Str("platform", platform).
			Msg("Failed to fetch remote cart")
		return fetchResult{}
	}
}

func (s *StorefrontService) dropStaleCart(ctx context.Context, req ports.FetchRequest) {
	if !s.opts.PruneStaleCarts || req.StoreID == "" {
		return
	}
	// the request context may already be past its fetch deadline
	ctx = context.WithoutCancel(ctx)
	if cart, ok := s.carts.GetCart(ctx, req.StoreID); ok && cart.CartID == req.CartID {
		s.logger.Info().
			Str("storeId", req.StoreID).
			Str("cartId", req.CartID).
			Msg("Dropping cart the store no longer knows")
		s.carts.RemoveCart(ctx, req.StoreID)
	}
}

func (s *StorefrontService) dropRevokedSession(ctx context.Context, req ports.FetchRequest) {
	if req.StoreID == "" || req.SessionToken == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.logger.Info().Str("storeId", req.StoreID).Msg("Dropping session the store rejected")
	s.sessions.RemoveSession(ctx, req.StoreID)
}

func buildFetchRequest(store domain.StoreConfig, carts map[string]domain.CartRecord, sessions map[string]domain.SessionRecord) ports.FetchRequest {
	req := ports.FetchRequest{
		StoreID:  store.StoreID,
		BaseURL:  store.BaseURL,
		Platform: store.Platform,
		CartID:   localCartID(store, carts, sessions),
	}
	if session, ok := sessions[store.StoreID]; ok && store.StoreID != "" {
		req.SessionToken = session.Token
	}
	return req
}

// localCartID is the cart the client itself recorded for store: the cart
// record first, then the session's active cart
func localCartID(store domain.StoreConfig, carts map[string]domain.CartRecord, sessions map[string]domain.SessionRecord) string {
	if store.StoreID == "" {
		return ""
	}
	if cart, ok := carts[store.StoreID]; ok {
		return cart.CartID
	}
	if session, ok := sessions[store.StoreID]; ok {
		return session.ActiveCartID
	}
	return ""
}

type noopRecorder struct{}

func (noopRecorder) RemoteFetch(string, string) {}
