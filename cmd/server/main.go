// Command assess-server starts the public assessment HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/NourhenHamza/TalentGo-sub002/internal/cache"
	"github.com/NourhenHamza/TalentGo-sub002/internal/config"
	"github.com/NourhenHamza/TalentGo-sub002/internal/docstore"
	"github.com/NourhenHamza/TalentGo-sub002/internal/identity"
	"github.com/NourhenHamza/TalentGo-sub002/internal/limiter"
	"github.com/NourhenHamza/TalentGo-sub002/internal/migrate"
	"github.com/NourhenHamza/TalentGo-sub002/internal/repository/postgres"
	"github.com/NourhenHamza/TalentGo-sub002/internal/server/httpapi"
	"github.com/NourhenHamza/TalentGo-sub002/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and starts the HTTP server.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("port", cfg.Port),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	offerRepo := postgres.NewOfferRepo(db)
	candidacyRepo := postgres.NewCandidacyRepo(db)

	// Optional offer cache
	var offerCache *cache.OfferCache
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		offerCache = cache.NewOfferCache(rdb, 5*time.Minute)
	}

	verifier := identity.NewHTTPVerifier(map[string]string{
		"google": cfg.GoogleTokenInfoURL,
	})
	lim := limiter.NewPGWithQuerier(db.Pool, 15*time.Minute, 5, 15*time.Minute)
	docs := docstore.NewDisk(cfg.UploadDir)

	// Services
	accessSvc := service.NewAccessService(offerRepo, candidacyRepo, verifier, lim, offerCache, []byte(cfg.JWTKey), cfg.SessionTTL)
	assessSvc := service.NewAssessmentService(accessSvc, offerRepo, candidacyRepo, docs, cfg.FailLockedAttempts)

	api := httpapi.New(accessSvc, assessSvc, []byte(cfg.JWTKey), logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
