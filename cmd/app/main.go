package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/koneque/marketplace-escrow/pkg/bootstrap"
	"github.com/koneque/marketplace-escrow/pkg/config"
	"github.com/koneque/marketplace-escrow/pkg/handlers"
	wshandlers "github.com/koneque/marketplace-escrow/pkg/handlers/websockets"
	"github.com/koneque/marketplace-escrow/pkg/logging"
	"github.com/koneque/marketplace-escrow/pkg/middleware"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to the YAML configuration file")
	flag.Parse()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := logging.Setup("marketplace-api", cfg.Log.Env, logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{LocalHub: true})
	if err != nil {
		return fmt.Errorf("failed to build marketplace: %w", err)
	}
	defer app.Close()

	proxies, err := cfg.HTTP.Proxies()
	if err != nil {
		return err
	}
	limiter := middleware.NewRateLimiter(cfg.HTTP.RequestsPerMinute, cfg.HTTP.Burst, proxies...)
	go limiter.Sweep(ctx, time.Minute)

	router := handlers.NewRouter(handlers.RouterDeps{
		Handler:   handlers.NewApiHandler(app.Service),
		Auth:      middleware.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.Issuer, logger),
		Limiter:   limiter,
		Metrics:   app.Metrics,
		Websocket: wshandlers.NewHandler(nil, app.Hub),
		Logger:    logger,
	})

	// The sweep finalizes what a lost timer or message missed and retries
	// unconfirmed ledger legs.
	go app.Service.RunReconciler(ctx, 0)

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("Starting server", slog.String("port", cfg.HTTP.Port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
