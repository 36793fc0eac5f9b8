package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/instihub/portal/internal/cache"
	"github.com/instihub/portal/internal/config"
	"github.com/instihub/portal/internal/db"
	httpx "github.com/instihub/portal/internal/http"
	"github.com/instihub/portal/internal/observability"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	// tracing is opt-in: no endpoint, no exporter
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "portal-api", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	// bring the schema up and make sure there is at least one admin
	{
		ctx, cancel := config.WithTimeout(30 * time.Second)

		err = db.Bootstrap(ctx, pool)

		if err != nil {
			cancel()
			log.Error("schema bootstrap failed", "err", err)
			os.Exit(1)
		}

		err = db.EnsureAdminUser(ctx, pool, cfg)

		cancel()

		if err != nil {
			log.Error("admin seed failed", "err", err)
			os.Exit(1)
		}
	}

	// stats cache: redis when configured, a local TTL map otherwise
	var cacheStore cache.Store

	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.StatsCacheTTL,
		})

		ctx, cancel := config.WithTimeout(2 * time.Second)
		err = redisCache.Ping(ctx)
		cancel()

		if err != nil {
			log.Error("redis connection failed", "err", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}

		defer func() { _ = redisCache.Close() }()

		cacheStore = redisCache
		log.Info("stats cache backed by redis", "addr", cfg.RedisAddr)
	} else {
		cacheStore = cache.NewMemory(cfg.StatsCacheTTL)
		log.Info("stats cache in memory", "ttl", cfg.StatsCacheTTL)
	}

	promRegistry := prometheus.NewRegistry()

	// set up routers with the log
	router := httpx.NewRouter(cfg, log, pool, cacheStore, promRegistry)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
