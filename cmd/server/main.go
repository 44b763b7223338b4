package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"secrethobby/backend/internal/auth"
	jwtpkg "secrethobby/backend/internal/auth/jwt"
	"secrethobby/backend/internal/cache"
	"secrethobby/backend/internal/config"
	"secrethobby/backend/internal/domain"
	"secrethobby/backend/internal/health"
	"secrethobby/backend/internal/logger"
	"secrethobby/backend/internal/monitoring"
	"secrethobby/backend/internal/service"
	"secrethobby/backend/internal/storage/hybrid"
	httptransport "secrethobby/backend/internal/transport/http"
)

const identityCacheSize = 10000

// main 启动 Secret Hobby HTTP API 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.NewLogger(logger.FromAppConfig(cfg.Log))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting secrethobby server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("database", cfg.Database.Type),
		zap.Bool("redis", cfg.Redis.Enabled),
	)

	store, err := hybrid.Open(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	healthChecker := health.NewHealthChecker(store, log)

	// 身份不可变，可安全地缓存在本地
	var identities *cache.LocalCache[domain.Identity]
	if cfg.Identity.CacheTTL > 0 {
		identities = cache.NewLocalCache[domain.Identity](identityCacheSize, cfg.Identity.CacheTTL)
	}

	directory := service.NewAliasDirectory(store, identities, metrics, log)
	listings := service.NewListingService(store, metrics, log)
	requests := service.NewRequestService(store, metrics, log)

	tokens := jwtpkg.NewManager(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.Expiry)
	binder := auth.NewBinder(
		directory,
		store,
		store,
		tokens,
		auth.NewAliasDeriver(cfg.Identity.Pepper, cfg.Identity.LoginDomain),
		auth.Options{BcryptCost: cfg.Identity.BcryptCost},
		metrics,
		log,
	)

	log.Info("session configuration",
		zap.String("issuer", cfg.Session.Issuer),
		zap.Duration("expiry", cfg.Session.Expiry),
	)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:   cfg,
		Binder:   binder,
		Listings: listings,
		Requests: requests,
		Logger:   log,
		Metrics:  metrics,
		Health:   healthChecker,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关闭
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		if identities != nil {
			identities.Close()
		}
		if err := store.Close(); err != nil {
			log.Warn("store close warning", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
