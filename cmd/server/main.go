package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/config"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/database"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/monitoring"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/ratelimit"
)

// @title SOS2A Intake API
// @version 1.0
// @description Assessment intake, device and identity inventory, and risk heatmap scoring.
// @BasePath /
func main() {
	configPath := flag.String("config", "", "path to a TOML config file (defaults to $SOS2A_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := monitoring.NewLogger(cfg.Log)
	slog.SetDefault(logger.Logger)
	defer logger.Close()

	gin.SetMode(cfg.Server.Mode)

	if cfg.UsesDefaultSecret() {
		slog.Warn("JWT_SECRET is not set, receipts are signed with the built-in development secret")
	}

	db, err := database.NewDB(cfg.Server.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := ratelimit.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, using in-memory rate limiting", "error", err)
	}
	defer redisClient.Close()

	s := newServer(cfg, db, redisClient, logger)
	defer s.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	s.startBackground(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           setupRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "data_dir", cfg.Server.DataDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return
	}

	slog.Info("Server exited")
}
