// Package main provides the API server entry point for the dashboard service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sedna-dashboard/internal/adapter"
	"github.com/sedna-dashboard/internal/api"
	"github.com/sedna-dashboard/internal/config"
	"github.com/sedna-dashboard/internal/logging"
	"github.com/sedna-dashboard/internal/ratelimit"
	"github.com/sedna-dashboard/internal/retry"
	"github.com/sedna-dashboard/internal/series"
	"github.com/sedna-dashboard/internal/service"
	"github.com/sedna-dashboard/internal/storage"
	"github.com/sedna-dashboard/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	defer func() { _ = logger.Sync() }()

	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Market data: provider client, optional shared Redis cache and call budget
	clientOpts := []adapter.ClientOption{}
	marketOpts := []service.MarketServiceOption{}
	var budget *ratelimit.SharedBudget

	if cfg.Redis.Enabled() {
		retryCfg := retry.DefaultRetryConfig()
		retryCfg.MaxAttempts = 3
		redisCache, err := storage.NewRedisCache(ctx, &cfg.Redis, retryCfg)
		if err != nil {
			// the cache is an optimisation, run without it
			logger.WithError(err).Warn("Redis unavailable, market cache disabled")
		} else {
			defer redisCache.Close()
			marketOpts = append(marketOpts, service.WithMarketCache(storage.NewCacheService(redisCache, cfg.Cache.TTL)))
			logger.WithField("addr", cfg.Redis.Host+":"+cfg.Redis.Port).Info("Market cache enabled")

			if cfg.Market.SharedBudget > 0 {
				budget, err = ratelimit.NewSharedBudget(&ratelimit.BudgetConfig{
					Redis:  redisCache.Client(),
					Limit:  cfg.Market.SharedBudget,
					Window: cfg.Market.SharedBudgetWindow,
				})
				if err != nil {
					logger.WithError(err).Fatal("Failed to create shared call budget")
				}
				clientOpts = append(clientOpts, adapter.WithCallBudget(budget))
				logger.WithFields(map[string]interface{}{
					"limit":  budget.Limit(),
					"window": budget.Window().String(),
				}).Info("Shared upstream call budget enabled")
			}
		}
	}

	client := adapter.NewCoinGeckoClient(cfg.Market, clientOpts...)

	market := service.NewMarketService(client, cfg.Market.MinLoading, marketOpts...)
	defer market.Close()
	go market.InitialLoad(ctx)

	sessions := service.NewSessionManager(cfg.Session.TTL)
	if err := sessions.Start(ctx, cfg.Session.TTL/2); err != nil {
		logger.WithError(err).Fatal("Failed to start session janitor")
	}

	feed := worker.NewWhaleFeed(cfg.Feed)
	if err := feed.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start whale feed")
	}

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    cfg.RateLimit.RPS,
		RateLimitBurst:  cfg.RateLimit.Burst,
	}

	deps := api.Dependencies{
		Market:   market,
		Upstream: client,
		Sessions: sessions,
		Series:   series.NewGenerator(),
		Whales:   feed,
		Ledger:   service.NewLedgerService(),
	}
	if budget != nil {
		deps.Budget = budget
	}
	server := api.NewServer(serverConfig, deps)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host":     cfg.Server.Host,
		"port":     cfg.Server.Port,
		"provider": client.Name(),
	}).Info("Server started successfully")

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	// Stop the feed first so open streams get a close frame before the listener goes.
	if err := feed.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Whale feed did not stop cleanly")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if err := sessions.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Session janitor did not stop cleanly")
	}

	logger.Info("Server exited")
}
