package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pathpioneer/config"
	"pathpioneer/handlers"
	"pathpioneer/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	model, err := services.NewTrafficModel(cfg.Artifacts.Dir, logger)
	if err != nil {
		// a missing artifact reads "trained artifacts not found: run training first"
		logger.Fatalf("Failed to load model: %v", err)
	}

	cache, err := services.NewCacheService(cfg.Redis, logger)
	if err != nil {
		logger.WithError(err).Warn("running without redis cache and live feed")
	}
	defer cache.Close()

	svc := services.NewPredictionService(model, cache, time.Duration(cfg.Redis.CacheTTLSec)*time.Second, logger)
	router := handlers.NewRouter(cfg, svc, cache, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
