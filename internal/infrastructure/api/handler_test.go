package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace-session-layer/internal/application"
	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/infrastructure/middleware"
	"marketplace-session-layer/internal/infrastructure/pubsub"
	"marketplace-session-layer/internal/infrastructure/recordstore"
	"marketplace-session-layer/internal/infrastructure/storage"
	"marketplace-session-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct{ stores []domain.StoreConfig }

func (r *memoryRepo) Load(context.Context) ([]domain.StoreConfig, error) {
	return domain.CloneStores(r.stores), nil
}

func (r *memoryRepo) Save(_ context.Context, stores []domain.StoreConfig) error {
	r.stores = domain.CloneStores(stores)
	return nil
}

type staticFetcher map[string]domain.RemoteCartInfo

func (f staticFetcher) FetchCart(_ context.Context, req ports.FetchRequest) (*domain.RemoteCartInfo, error) {
	info, ok := f[req.BaseURL]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func newTestServer(t *testing.T, fetcher ports.CartFetcher) *httptest.Server {
	t.Helper()
	return newTestServerWithBackend(t, fetcher, storage.NewMemoryBackend())
}

func newTestServerWithBackend(t *testing.T, fetcher ports.CartFetcher, backend ports.KeyValueBackend) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()

	store := recordstore.Open(context.Background(), backend, logger, nil)
	t.Cleanup(func() { _ = store.Close() })
	events := pubsub.NewChangePubSub(logger, nil)

	directory := application.NewDirectoryService(&memoryRepo{}, logger)
	carts := application.NewCartService(store.Carts(), store.Sessions(), events, logger)
	sessions := application.NewSessionService(store.Sessions(), events, logger)
	storefront := application.NewStorefrontService(directory, carts, sessions,
		map[domain.Platform]ports.CartFetcher{domain.PlatformShopify: fetcher}, nil, logger,
		application.StorefrontOptions{FetchTimeout: time.Second, FetchConcurrency: 2, PruneStaleCarts: true})
	editor := application.NewEditor(directory, logger)

	r := chi.NewRouter()
	r.Use(middleware.ClientIDMiddleware(logger))
	NewHandler(storefront, directory, editor, carts, sessions, events, logger).Routes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, server *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ClientIDHeader, "tab-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestStoresViewEndToEnd(t *testing.T) {
	server := newTestServer(t, staticFetcher{
		"https://shop.example.com": {StoreID: "abc123", CartID: "cart_1", StoreName: "Example Shop"},
	})

	resp := do(t, server, http.MethodPut, "/api/v1/directory", `[{"baseUrl":"https://shop.example.com","platform":"shopify"}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/v1/stores", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[[]domain.ReconciledEntry](t, resp)

	assert.Equal(t, []domain.ReconciledEntry{{
		StoreID:     "abc123",
		BaseURL:     "https://shop.example.com",
		Platform:    domain.PlatformShopify,
		DisplayName: "Example Shop",
		CartID:      "cart_1",
		HasCart:     true,
	}}, view)

	directory := decode[[]domain.StoreConfig](t, do(t, server, http.MethodGet, "/api/v1/directory", ""))
	assert.Equal(t, "abc123", directory[0].StoreID)
}

func TestEditorEndpoints(t *testing.T) {
	server := newTestServer(t, staticFetcher{})

	resp := do(t, server, http.MethodPost, "/api/v1/editor/submit", `{"baseUrl":"https://a.example.com","platform":"shopify"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, server, http.MethodPost, "/api/v1/editor/add", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, application.EditorAdding, decode[application.EditorState](t, resp).Mode)

	resp = do(t, server, http.MethodPost, "/api/v1/editor/submit", `{"baseUrl":"nope","platform":"shopify"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, domain.RuleInvalidURL, decode[errorResponse](t, resp).Rule)

	resp = do(t, server, http.MethodPost, "/api/v1/editor/submit", `{"baseUrl":"https://a.example.com","platform":"shopify"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/v1/editor", "")
	assert.Equal(t, application.EditorIdle, decode[application.EditorState](t, resp).Mode)

	resp = do(t, server, http.MethodPost, "/api/v1/editor/edit/0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, server, http.MethodDelete, "/api/v1/directory/0", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	do(t, server, http.MethodPost, "/api/v1/editor/cancel", "")
	resp = do(t, server, http.MethodDelete, "/api/v1/directory/0", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, server, http.MethodDelete, "/api/v1/directory/0", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, server, http.MethodDelete, "/api/v1/directory/zero", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCartAndSessionEndpoints(t *testing.T) {
	server := newTestServer(t, staticFetcher{})

	resp := do(t, server, http.MethodGet, "/api/v1/carts/s1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, server, http.MethodPut, "/api/v1/carts/s1", `{"cartId":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, server, http.MethodPut, "/api/v1/carts/s1", `{"cartId":"c1","storeName":"Alpha"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	carts := decode[map[string]domain.CartRecord](t, do(t, server, http.MethodGet, "/api/v1/carts", ""))
	assert.Equal(t, "c1", carts["s1"].CartID)

	resp = do(t, server, http.MethodPut, "/api/v1/sessions/s1", `{"token":"tok","email":"a@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decode[domain.SessionRecord](t, do(t, server, http.MethodGet, "/api/v1/sessions/s1", ""))
	assert.Equal(t, "a@example.com", session.Email)

	resp = do(t, server, http.MethodDelete, "/api/v1/carts/s1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, server, http.MethodGet, "/api/v1/carts/s1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, server, http.MethodDelete, "/api/v1/carts", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	sessions := decode[map[string]domain.SessionRecord](t, do(t, server, http.MethodGet, "/api/v1/sessions", ""))
	assert.Empty(t, sessions)
}

func TestRecordEndpointsReportUnavailableStorage(t *testing.T) {
	server := newTestServerWithBackend(t, staticFetcher{}, storage.Unavailable{})

	resp := do(t, server, http.MethodPut, "/api/v1/carts/s1", `{"cartId":"c1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = do(t, server, http.MethodPut, "/api/v1/sessions/s1", `{"token":"tok"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = do(t, server, http.MethodDelete, "/api/v1/carts", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestEventStream(t *testing.T) {
	server := newTestServer(t, staticFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/events?topics=cart-updated", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.ClientIDHeader, "tab-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	// subscription comment
	_, err = reader.ReadString('\n')
	require.NoError(t, err)

	do(t, server, http.MethodPut, "/api/v1/sessions/s1", `{"token":"tok"}`)
	do(t, server, http.MethodPut, "/api/v1/carts/s1", `{"cartId":"c1"}`)

	var eventLine, dataLine string
	for dataLine == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = strings.TrimSpace(line)
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
		}
	}

	assert.Equal(t, "event: cart-updated", eventLine)
	var event domain.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(dataLine), &event))
	assert.Equal(t, "s1", event.StoreID)
	assert.Equal(t, "c1", event.CartID)
	assert.Equal(t, "tab-1", event.ClientID)
}
