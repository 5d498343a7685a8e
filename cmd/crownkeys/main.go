package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crownkeys/internal/api/adapter/identity"
	"crownkeys/internal/api/adapter/inmem"
	"crownkeys/internal/api/adapter/objstore"
	"crownkeys/internal/api/handler"
	"crownkeys/internal/auth"
	"crownkeys/internal/platform/config"
	"crownkeys/internal/platform/server"
	"crownkeys/internal/platform/telemetry"
	"crownkeys/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// Logging
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	shutdown, err := telemetry.Setup(context.Background(), "crownkeys")
	if err != nil {
		slog.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		slog.Error("metrics initialization failed", "error", err)
		os.Exit(1)
	}

	// Datastore
	store, err := postgres.Open(cfg.DatabaseURL, metrics)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Hosted services
	provider := identity.NewClient(cfg.IdentityURL, cfg.IdentityAPIKey)
	objects := objstore.NewClient(cfg.StorageURL, cfg.StorageBucket, cfg.StorageServiceKey)

	// Auth pipeline
	verifier := auth.NewVerifier(provider, []byte(cfg.JWTSecret), cfg.JWTTokenTTL)
	authn := auth.NewService(verifier, auth.NewResolver(store))

	// Rate limiter
	limiter := inmem.NewSlidingWindow(cfg.RateLimit.Window, cfg.RateLimit.Max, time.Now)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	// Uploads dominate body size: a full photo batch plus form fields.
	maxBodyBytes := cfg.Upload.MaxFileBytes*int64(cfg.Upload.MaxFiles) + 1<<20

	router := handler.NewRouter(handler.RouterConfig{
		Authn:      authn,
		Ownerships: store,
		Limiter:    limiter,
		Metrics:    metrics,
		Logger:     logger,
		Pinger:     store,

		Auth:       handler.NewAuth(provider, store, verifier),
		Agents:     handler.NewAgents(store, store, objects, cfg.Upload.MaxFileBytes, cfg.Upload.MaxFiles),
		Listings:   handler.NewListings(store, objects, cfg.Upload.MaxFileBytes, cfg.Upload.MaxFiles),
		Owner:      handler.NewOwner(store, objects, cfg.Upload.MaxFileBytes, cfg.Upload.MaxFiles),
		Properties: handler.NewProperties(store, store),
		Buyer:      handler.NewBuyer(store, store),

		MaxBodyBytes: maxBodyBytes,
	})

	srv := server.New(cfg.Addr, router)

	slog.Info("crownkeys starting",
		"addr", cfg.Addr,
		"env", cfg.Env,
		"identity_url", cfg.IdentityURL,
		"storage_url", cfg.StorageURL,
	)

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
	}

	if err := shutdown(context.Background()); err != nil {
		slog.Error("telemetry shutdown error", "error", err)
	}
}
