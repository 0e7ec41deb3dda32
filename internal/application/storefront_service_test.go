package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorefront(env *testEnv, fetchers map[domain.Platform]ports.CartFetcher) *StorefrontService {
	return NewStorefrontService(env.directory, env.carts, env.sessions, fetchers, nil, zerolog.Nop(), StorefrontOptions{
		FetchTimeout:     time.Second,
		FetchConcurrency: 2,
		PruneStaleCarts:  true,
	})
}

func TestViewResolvesIdentityAndWritesItBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.directory.Save(ctx, []domain.StoreConfig{shop("https://shop.example.com")}))

	shopify := fetcherFunc(func(_ context.Context, req ports.FetchRequest) (*domain.RemoteCartInfo, error) {
		assert.Equal(t, "https://shop.example.com", req.BaseURL)
		return &domain.RemoteCartInfo{StoreID: "abc123", StoreName: "Example Shop", CartID: "cart_1"}, nil
	})

	view, err := newStorefront(env, map[domain.Platform]ports.CartFetcher{domain.PlatformShopify: shopify}).View(ctx)
	require.NoError(t, err)

	require.Len(t, view, 1)
	assert.Equal(t, domain.ReconciledEntry{
		StoreID:     "abc123",
		BaseURL:     "https://shop.example.com",
		Platform:    domain.PlatformShopify,
		DisplayName: "Example Shop",
		CartID:      "cart_1",
		HasCart:     true,
	}, view[0])
	assert.Equal(t, "abc123", env.directory.List(ctx)[0].StoreID)
}

func TestViewPassesLocalStateToFetchers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	store := shop("https://shop.example.com")
	store.StoreID = "s1"
	require.NoError(t, env.directory.Save(ctx, []domain.StoreConfig{store}))
	_, err := env.sessions.SetSession(ctx, "s1", SessionInput{Token: "tok", ActiveCartID: "c-session"})
	require.NoError(t, err)

	var got ports.FetchRequest
	fetcher := fetcherFunc(func(_ context.Context, req ports.FetchRequest) (*domain.RemoteCartInfo, error) {
		got = req
		return &domain.RemoteCartInfo{StoreID: "s1"}, nil
	})

	view, err := newStorefront(env, map[domain.Platform]ports.CartFetcher{domain.PlatformShopify: fetcher}).View(ctx)
	require.NoError(t, err)

	assert.Equal(t, "tok", got.SessionToken)
	assert.Equal(t, "c-session", got.CartID)
	// the remote record carried no cart, so the client's own cart shows
	assert.Equal(t, "c-session", view[0].CartID)
}

func TestViewDegradesOnFetchFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	known := shop("https://a.example.com")
	known.StoreID = "s1"
	require.NoError(t, env.directory.Save(ctx, []domain.StoreConfig{
		known,
		{BaseURL: "https://b.example.com", Platform: domain.PlatformOpenfront},
	}))
	_, err := env.carts.SetCart(ctx, "s1", "c1", "Alpha")
	require.NoError(t, err)

	failing := fetcherFunc(func(context.Context, ports.FetchRequest) (*domain.RemoteCartInfo, error) {
		return nil, errBoom
	})

	// no openfront fetcher is registered at all
	view, err := newStorefront(env, map[domain.Platform]ports.CartFetcher{domain.PlatformShopify: failing}).View(ctx)
	require.NoError(t, err)

	require.Len(t, view, 2)
	assert.Equal(t, "c1", view[0].CartID)
	assert.Equal(t, "Alpha", view[0].DisplayName)
	assert.False(t, view[1].HasCart)
	assert.Equal(t, "B", view[1].DisplayName)
}

func TestViewPrunesCartTheStoreNoLongerKnows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	store := shop("https://a.example.com")
	store.StoreID = "s1"
	require.NoError(t, env.directory.Save(ctx, []domain.StoreConfig{store}))
	_, err := env.carts.SetCart(ctx, "s1", "stale", "")
	require.NoError(t, err)
	events := env.record(t, domain.TopicCartUpdated)

	fetcher := fetcherFunc(func(context.Context, ports.FetchRequest) (*domain.RemoteCartInfo, error) {
		return &domain.RemoteCartInfo{StoreID: "s1", StoreName: "Alpha"}, ports.ErrCartNotFound
	})

	view, err := newStorefront(env, map[domain.Platform]ports.CartFetcher{domain.PlatformShopify: fetcher}).View(ctx)
	require.NoError(t, err)

	assert.False(t, view[0].HasCart)
	assert.Equal(t, "Alpha", view[0].DisplayName)
	_, ok := env.carts.GetCart(ctx, "s1")
	assert.False(t, ok)
	require.Len(t, *events, 1)
	assert.True(t, (*events)[0].Removed)
}

func TestViewWithoutPruningHidesButKeepsGoneCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	store := shop("https://a.example.com")
	store.StoreID = "s1"
	require.NoError(t, env.directory.Save(ctx, []domain.StoreConfig{store}))
	_, err := env.carts.SetCart(ctx, "s1", "stale", "")
	require.NoError(t, err)
	events := env.record(t, domain.TopicCartUpdated)

	fetcher := fetcherFunc(func(context.Context, ports.FetchRequest) (*domain.RemoteCartInfo, error) {
		return &domain.RemoteCartInfo{StoreID: "s1", StoreName: "Alpha"}, ports.ErrCartNotFound
	})
	svc := NewStorefrontService(env.directory, env.carts, env.sessions,
		map[domain.Platform]ports.CartFetcher{domain.PlatformShopify: fetcher}, nil, zerolog.Nop(),
		StorefrontOptions{FetchTimeout: time.Second, FetchConcurrency: 1})

	view, err := svc.View(ctx)
	require.NoError(t, err)

	// the store's answer wins in the view, the record is left alone
	assert.False(t, view[0].HasCart)
	assert.Empty(t, view[0].CartID)
	cart, ok := env.carts.GetCart(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, "stale", cart.CartID)
	assert.Empty(t, *events)
}

func TestViewKeepsCartOnPartialFetchError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	store := shop("https://a.example.com")
	store.StoreID = "s1"
	require.NoError(t, env.directory.Save(ctx, []domain.StoreConfig{store}))
	_, err := env.carts.SetCart(ctx, "s1", "c1", "Alpha")
	require.NoError(t, err)
	_, err = env.sessions.SetSession(ctx, "s1", SessionInput{Token: "tok"})
	require.NoError(t, err)

	fetcher := fetcherFunc(func(context.Context, ports.FetchRequest) (*domain.RemoteCartInfo, error) {
		return &domain.RemoteCartInfo{StoreID: "s1"}, fmt.Errorf("cart query failed: %w", errBoom)
	})

	view, err := newStorefront(env, map[domain.Platform]ports.CartFetcher{domain.PlatformShopify: fetcher}).View(ctx)
	require.NoError(t, err)

	assert.Equal(t, "c1", view[0].CartID)
	_, ok := env.carts.GetCart(ctx, "s1")
	assert.True(t, ok)
	_, ok = env.sessions.GetSession(ctx, "s1")
	assert.True(t, ok)
}

func TestViewDropsRevokedSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	store := shop("https://a.example.com")
	store.StoreID = "s1"
	require.NoError(t, env.directory.Save(ctx, []domain.StoreConfig{store}))
	_, err := env.sessions.SetSession(ctx, "s1", SessionInput{Token: "expired"})
	require.NoError(t, err)

	fetcher := fetcherFunc(func(context.Context, ports.FetchRequest) (*domain.RemoteCartInfo, error) {
		return nil, fmt.Errorf("shop lookup: %w", ports.ErrSessionRevoked)
	})

	_, err = newStorefront(env, map[domain.Platform]ports.CartFetcher{domain.PlatformShopify: fetcher}).View(ctx)
	require.NoError(t, err)

	_, ok := env.sessions.GetSession(ctx, "s1")
	assert.False(t, ok)
}

func TestViewBoundsConcurrencyAndTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	var stores []domain.StoreConfig
	for i := 0; i < 6; i++ {
		stores = append(stores, shop(fmt.Sprintf("https://s%d.example.com", i)))
	}
	require.NoError(t, env.directory.Save(ctx, stores))

	var inFlight, peak int32
	slow := fetcherFunc(func(ctx context.Context, _ ports.FetchRequest) (*domain.RemoteCartInfo, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	svc := NewStorefrontService(env.directory, env.carts, env.sessions,
		map[domain.Platform]ports.CartFetcher{domain.PlatformShopify: slow}, nil, zerolog.Nop(),
		StorefrontOptions{FetchTimeout: 20 * time.Millisecond, FetchConcurrency: 2})

	view, err := svc.View(ctx)
	require.NoError(t, err)
	assert.Len(t, view, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}
