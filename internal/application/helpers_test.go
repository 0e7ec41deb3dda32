package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/infrastructure/pubsub"
	"marketplace-session-layer/internal/infrastructure/recordstore"
	"marketplace-session-layer/internal/infrastructure/storage"
	"marketplace-session-layer/internal/ports"

	"github.com/rs/zerolog"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)

type memoryDirectoryRepo struct {
	mu      sync.Mutex
	stores  []domain.StoreConfig
	saves   int
	saveErr error
}

func (r *memoryDirectoryRepo) Load(context.Context) ([]domain.StoreConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.CloneStores(r.stores), nil
}

func (r *memoryDirectoryRepo) Save(_ context.Context, stores []domain.StoreConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.stores = domain.CloneStores(stores)
	return nil
}

type fetcherFunc func(ctx context.Context, req ports.FetchRequest) (*domain.RemoteCartInfo, error)

func (f fetcherFunc) FetchCart(ctx context.Context, req ports.FetchRequest) (*domain.RemoteCartInfo, error) {
	return f(ctx, req)
}

type testEnv struct {
	store     *recordstore.Store
	notifier  *pubsub.ChangePubSub
	repo      *memoryDirectoryRepo
	directory *DirectoryService
	carts     *CartService
	sessions  *SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	store := recordstore.Open(context.Background(), storage.NewMemoryBackend(), logger, nil)
	t.Cleanup(func() { _ = store.Close() })

	notifier := pubsub.NewChangePubSub(logger, nil)
	repo := &memoryDirectoryRepo{}

	carts := NewCartService(store.Carts(), store.Sessions(), notifier, logger)
	carts.now = func() time.Time { return fixedNow }
	sessions := NewSessionService(store.Sessions(), notifier, logger)
	sessions.now = func() time.Time { return fixedNow }

	return &testEnv{
		store:     store,
		notifier:  notifier,
		repo:      repo,
		directory: NewDirectoryService(repo, logger),
		carts:     carts,
		sessions:  sessions,
	}
}

// record collects events of topic published from now on
func (e *testEnv) record(t *testing.T, topic domain.Topic) *[]domain.ChangeEvent {
	t.Helper()
	var mu sync.Mutex
	events := &[]domain.ChangeEvent{}
	sub := e.notifier.Subscribe(topic, func(ev domain.ChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		*events = append(*events, ev)
	})
	t.Cleanup(sub.Unsubscribe)
	return events
}

var errBoom = errors.New("boom")
