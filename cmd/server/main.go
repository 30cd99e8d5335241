package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/anivers/internal/api"
	"github.com/dom/anivers/internal/config"
	"github.com/dom/anivers/internal/external"
	"github.com/dom/anivers/internal/logging"
	"github.com/dom/anivers/internal/repository"
	"github.com/dom/anivers/internal/repository/memory"
	"github.com/dom/anivers/internal/repository/postgres"
	"github.com/dom/anivers/internal/service"
	"github.com/dom/anivers/internal/storage"
	"github.com/dom/anivers/internal/token"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	repos := openStore(cfg)

	tokens, err := token.NewService(token.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create token service")
	}

	cache := external.NoCache()
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err := external.NewRedisCache(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logging.Warn().Err(err).Msg("catalog cache unavailable, continuing without it")
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}

	kodik := external.NewKodikClient(external.KodikConfig{
		BaseURL: cfg.KodikBaseURL,
		Token:   cfg.KodikAPIToken,
		Timeout: cfg.ExternalTimeout,
	})
	if !kodik.Configured() {
		logging.Warn().Msg("KODIK_API_TOKEN is not set, player lookup is disabled")
	}

	images, err := storage.NewLocalStore(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to prepare upload directory")
	}

	services := service.NewServices(repos, service.Deps{
		Tokens: tokens,
		Catalog: external.NewJikanClient(external.JikanConfig{
			BaseURL:  cfg.JikanBaseURL,
			Timeout:  cfg.ExternalTimeout,
			Cache:    cache,
			CacheTTL: cfg.CatalogCacheTTL,
		}),
		Players:    kodik,
		BcryptCost: bcrypt.DefaultCost,
	})

	router := api.NewRouter(services, tokens, images, cfg)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info().
			Str("port", cfg.Port).
			Str("environment", cfg.Environment).
			Str("store", cfg.Store).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	logging.Info().Msg("server stopped")
}

func openStore(cfg *config.Config) *repository.Repositories {
	if cfg.Store == "memory" {
		logging.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.NewRepositories()
	}

	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	return postgres.NewRepositories(db)
}
