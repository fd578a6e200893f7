package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aquavision/internal/app"
	"aquavision/internal/config"
	"aquavision/internal/logger"
	"aquavision/internal/routes"
)

func main() {
	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	a, err := app.Build(context.Background(), cfg, logr.Logger)
	if err != nil {
		logr.Fatal("failed to initialise services", zap.Error(err))
	}
	defer a.Close()

	r := routes.NewRouter(a.Services, cfg, logr)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// tile registration can be slow and EE_TIMEOUT_SECONDS=0 means unbounded
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server started",
			zap.String("port", cfg.Port),
			zap.Bool("potability_loaded", a.Potability.Loaded()),
			zap.Bool("detector_loaded", a.Detector.Loaded()),
			zap.Bool("auth", a.Services.Verifier != nil))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}

	logr.Info("server exited gracefully")
}
