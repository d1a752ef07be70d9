package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily-diet-backend/internal/cache"
	"daily-diet-backend/internal/config"
	"daily-diet-backend/internal/database"
	"daily-diet-backend/internal/handlers"
	"daily-diet-backend/internal/middleware"
	"daily-diet-backend/internal/repository"
	"daily-diet-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 15 * time.Second

func Run() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	metricsCache, closeCache := openMetricsCache(ctx, cfg.Redis)
	defer closeCache()

	userRepo := repository.NewUserRepository(db)
	mealRepo := repository.NewMealRepository(db)

	sessionService := services.NewSessionService(userRepo, cfg.Session.Secret, cfg.Session.TTL)
	userService := services.NewUserService(userRepo, sessionService)
	metricsService := services.NewMetricsService(mealRepo, metricsCache)
	mealService := services.NewMealService(mealRepo, metricsService)
	photoService, err := services.NewPhotoService(mealRepo, cfg.AWS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create photo service")
	}
	wsHub := services.NewWSHub(metricsService)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	rateLimiter.StartCleanup(5*time.Minute, ctx.Done())

	router := handlers.NewRouter(handlers.Routes{
		Users:       handlers.NewUserHandler(userService, sessionService, metricsService, cfg.Session.Secure),
		Meals:       handlers.NewMealHandler(mealService, sessionService, wsHub),
		Photos:      handlers.NewPhotoHandler(photoService, sessionService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, sessionService),
		Health:      handlers.Health(db),
		RateLimiter: rateLimiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(wsHub.CloseAll)

	if err := serve(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server exited")
}

// openDatabase migrates the schema and returns a verified connection pool
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := cfg.DSN()

	if err := database.Migrate(dsn); err != nil {
		return nil, err
	}

	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Database connection established")
	return db, nil
}

// openMetricsCache connects to Redis when configured. A nil cache is
// returned when Redis is disabled or unreachable.
func openMetricsCache(ctx context.Context, cfg config.RedisConfig) (*cache.MetricsCache, func()) {
	if cfg.Addr == "" {
		log.Info().Msg("Metrics cache disabled")
		return nil, func() {}
	}

	client, err := cache.Connect(ctx, cfg.Addr)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unavailable, metrics will be computed on every request")
		return nil, func() {}
	}

	log.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.MetricsTTL).Msg("Metrics cache enabled")
	return cache.NewMetricsCache(client, cfg.MetricsTTL), func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis client")
		}
	}
}

// serve runs srv until ctx is cancelled, then drains in-flight requests
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	return nil
}

// setupLogger configures the global zerolog logger
func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var out io.Writer = os.Stderr
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	log.Logger = log.Output(out)

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", cfg.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
