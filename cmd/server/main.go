package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/globetrotter/internal/api"
	"github.com/neexbeast/globetrotter/internal/auth"
	"github.com/neexbeast/globetrotter/internal/cache"
	"github.com/neexbeast/globetrotter/internal/itinerary"
	"github.com/neexbeast/globetrotter/internal/storage"
)

type config struct {
	databaseURL   string
	redisURL      string
	jwtSecret     string
	port          string
	migrationsDir string
	publicBaseURL string
	corsOrigins   []string
	tokenTTL      time.Duration
	cacheTTL      time.Duration
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("reading .env failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, loadConfig(log), log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func loadConfig(log *slog.Logger) config {
	return config{
		databaseURL:   mustEnv("DATABASE_URL"),
		redisURL:      mustEnv("REDIS_URL"),
		jwtSecret:     mustEnv("JWT_SECRET"),
		port:          getEnv("PORT", "8000"),
		migrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		publicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:5173"),
		corsOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		tokenTTL:      getDuration(log, "TOKEN_TTL", 24*time.Hour),
		cacheTTL:      getDuration(log, "CACHE_TTL", time.Hour),
	}
}

func run(ctx context.Context, cfg config, log *slog.Logger) error {
	pool, err := storage.Connect(ctx, cfg.databaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	applied, err := storage.RunMigrations(ctx, pool, cfg.migrationsDir)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied", "count", len(applied), "files", applied)

	redisClient, err := cache.Connect(ctx, cfg.redisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	repo := storage.NewRepository(pool)
	catalog := cache.NewCatalog(repo, cache.NewCache(redisClient, cfg.cacheTTL), log)
	authService := auth.NewService(repo, cfg.jwtSecret, cfg.tokenTTL)
	handlers := api.NewHandlers(
		repo,
		catalog,
		authService,
		itinerary.NewScheduler(catalog, itinerary.WithLogger(log)),
		itinerary.NewEstimator(catalog, log),
		cfg.publicBaseURL,
		log,
	)

	router := api.NewRouter(handlers, authService, pool, redisPinger{redisClient}, cfg.corsOrigins, log)

	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return serve(ctx, srv, log)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable not set", "key", key)
		os.Exit(1)
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(log *slog.Logger, key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn("invalid duration, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// redisPinger adapts redis.Client to the health check's Ping(ctx) error.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
