// Package main is the entry point for the refbook API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"refbook/internal/config"
	"refbook/internal/domain/auth"
	"refbook/internal/domain/dictionary"
	"refbook/internal/domain/dictionary/validation"
	"refbook/internal/infrastructure/cache"
	v1 "refbook/internal/infrastructure/http/v1"
	"refbook/internal/infrastructure/storage/sqlite"
	"refbook/internal/infrastructure/upstream"
	"refbook/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting refbook server")

	// --- Local snapshot store ---
	store, err := sqlite.Open(cfg.Store.Path, log)
	if err != nil {
		log.Fatalw("failed to open local store", "error", err, "path", cfg.Store.Path)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		log.Fatalw("failed to ping local store", "error", err)
	}
	log.Infow("local store opened", "path", cfg.Store.Path)

	auditor, err := sqlite.NewAuditor(store)
	if err != nil {
		log.Fatalw("failed to initialize auditor", "error", err)
	}

	// --- Upstream spends API ---
	client := upstream.NewClient(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Token:   cfg.Upstream.Token,
		Timeout: cfg.Upstream.Timeout,
	}, log)
	endpoints := upstream.NewEndpoints(client)
	log.Infow("upstream client initialized", "base_url", cfg.Upstream.BaseURL)

	// --- Dictionary service ---
	svc, err := dictionary.NewService(dictionary.ServiceConfig{
		Upstream: endpoints,
		Cache: cache.New(
			cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
		),
		Store:      store,
		Validators: validation.NewManager(),
		Auditor:    auditor,
		Logger:     log,
	})
	if err != nil {
		log.Fatalw("failed to initialize dictionary service", "error", err)
	}

	// --- JWT Service ---
	jwtService := auth.NewJWTService(auth.JWTConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
	})

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Service:      svc,
		Store:        store,
		Auditor:      auditor,
		Logger:       log,
		JWTValidator: jwtService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
