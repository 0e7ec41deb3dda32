package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-session-layer/internal/application"
	"marketplace-session-layer/internal/application/change_handlers"
	"marketplace-session-layer/internal/config"
	"marketplace-session-layer/internal/domain"
	apiinfra "marketplace-session-layer/internal/infrastructure/api"
	"marketplace-session-layer/internal/infrastructure/metrics"
	"marketplace-session-layer/internal/infrastructure/openfront"
	"marketplace-session-layer/internal/infrastructure/pubsub"
	"marketplace-session-layer/internal/infrastructure/recordstore"
	"marketplace-session-layer/internal/infrastructure/repository"
	shopifyinfra "marketplace-session-layer/internal/infrastructure/shopify"
	"marketplace-session-layer/internal/infrastructure/storage"
	"marketplace-session-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	securitymiddleware "marketplace-session-layer/internal/infrastructure/middleware"
)

const (
	shopifyRetries  = 3
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped")
	}
}

// run wires the service and serves until SIGINT or SIGTERM. Deferred
// teardown runs on every return path.
func run(logger zerolog.Logger) error {
	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Cart and session tables
	backend := openBackend(ctx, cfg, logger)
	records := recordstore.Open(ctx, backend, logger, m)
	defer func() {
		if err := records.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close record store")
		}
	}()

	notifier := pubsub.NewChangePubSub(logger, m)

	// Store directory
	directoryRepo, disconnect, err := openDirectoryRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer disconnect()

	seed, err := application.ParseStoreSeed(cfg.DefaultStores)
	if err != nil {
		return fmt.Errorf("invalid DEFAULT_STORES: %w", err)
	}

	directoryService := application.NewDirectoryService(directoryRepo, logger)
	if err := directoryService.Init(ctx, seed); err != nil {
		return fmt.Errorf("failed to load store directory: %w", err)
	}

	// Initialize application services
	cartService := application.NewCartService(records.Carts(), records.Sessions(), notifier, logger)
	sessionService := application.NewSessionService(records.Sessions(), notifier, logger)

	fetchers := map[domain.Platform]ports.CartFetcher{
		domain.PlatformShopify: shopifyinfra.NewFetcher(shopifyinfra.Options{
			APIKey:      cfg.ShopifyAPIKey,
			APISecret:   cfg.ShopifyAPISecret,
			AccessToken: cfg.ShopifyAccessToken,
			Retries:     shopifyRetries,
		}, logger),
		domain.PlatformOpenfront: openfront.NewFetcher(cfg.FetchTimeout, logger),
	}

	storefrontService := application.NewStorefrontService(
		directoryService,
		cartService,
		sessionService,
		fetchers,
		m,
		logger,
		application.StorefrontOptions{
			FetchTimeout:     cfg.FetchTimeout,
			FetchConcurrency: cfg.FetchConcurrency,
			PruneStaleCarts:  cfg.PruneStaleCarts,
		},
	)

	editor := application.NewEditor(directoryService, logger)

	// Register change handlers
	subscriptions := change_handlers.Register(notifier, logger,
		change_handlers.NewCartAuditHandler(logger),
		change_handlers.NewSessionAuditHandler(logger),
		change_handlers.NewActiveCartHandler(cartService, logger),
	)
	defer func() {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
	}()

	handler := apiinfra.NewHandler(
		storefrontService,
		directoryService,
		editor,
		cartService,
		sessionService,
		notifier,
		logger,
	)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(securitymiddleware.AuditLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", securitymiddleware.ClientIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(securitymiddleware.ClientIDMiddleware(logger))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"stores": directoryService.Len(),
			"events": notifier.GetStats(),
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	handler.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str("port", cfg.Port).
		Str("storage", cfg.StorageBackend).
		Str("directory", cfg.DirectoryBackend).
		Int("stores", directoryService.Len()).
		Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")

	return serve(ctx, srv, logger)
}

// serve runs srv until ctx is done, then shuts it down gracefully
func serve(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// openBackend selects the key-value backend behind the cart and session
// tables. A backend that cannot be opened degrades to Unavailable so the
// service keeps answering with empty tables.
func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) ports.KeyValueBackend {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemoryBackend()
	case config.StorageRedis:
		backend, err := storage.NewRedisBackend(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
		if err != nil {
			logger.Error().Err(err).Msg("Redis unavailable, carts and sessions will not persist")
			return storage.Unavailable{}
		}
		return backend
	case config.StorageNone:
		return storage.Unavailable{}
	default:
		backend, err := storage.NewFileBackend(cfg.StorageDir)
		if err != nil {
			logger.Error().Err(err).Str("dir", cfg.StorageDir).Msg("Storage directory unavailable, carts and sessions will not persist")
			return storage.Unavailable{}
		}
		return backend
	}
}

// openDirectoryRepository returns the directory repository and a function
// releasing its connection
func openDirectoryRepository(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ports.DirectoryRepository, func(), error) {
	if cfg.DirectoryBackend != config.DirectoryMongo {
		return repository.NewFileDirectoryRepository(cfg.DirectoryFile, logger), func() {}, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	disconnect := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}

	repo := repository.NewMongoDirectoryRepository(client.Database(cfg.MongoDatabase), cfg.DirectoryName)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ensure store directory indexes")
	}
	return repo, disconnect, nil
}
