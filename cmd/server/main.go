package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldops/internal/config"
	"fieldops/internal/handler"
	"fieldops/internal/repository"
	"fieldops/internal/service"
	"fieldops/internal/storage"
	"fieldops/internal/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		return err
	}
	logger.Info("uploads directory ready", "dir", cfg.Uploads.Dir, "max_file_size", cfg.Uploads.MaxFileSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	dbPool, err := config.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if err := config.Migrate(ctx, dbPool, config.MigrateUp, logger); err != nil {
		return err
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(dbPool)
	requestRepo := repository.NewServiceRequestRepository(dbPool)
	proofRepo := repository.NewProofRepository(dbPool)
	txManager := repository.NewTransactionManager(dbPool)

	// --- Services ---
	jwtUtil := utils.NewJWTUtil(cfg.JWT.SecretKey, cfg.JWT.ExpirationHours)
	fileStore := storage.NewFileStore(cfg.Uploads.Dir, cfg.Uploads.MaxFileSize)

	services := handler.Services{
		Auth:      service.NewAuthService(userRepo, jwtUtil, logger),
		Requests:  service.NewRequestService(requestRepo, proofRepo),
		Lifecycle: service.NewLifecycleService(requestRepo, proofRepo, txManager, fileStore, logger),
		Dispatch:  service.NewDispatchService(requestRepo, userRepo, logger),
		Users:     service.NewUserService(userRepo, logger),
		Reports:   service.NewReportService(requestRepo, userRepo),
	}

	// --- Router ---
	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterConfig{
		JWT:                jwtUtil,
		Identities:         userRepo,
		Logger:             logger,
		AllowOrigins:       cfg.CORS.AllowOrigins,
		MaxMultipartMemory: cfg.Uploads.MaxFileSize,
		HealthCheck:        dbPool.Ping,
	}, services)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Graceful Shutdown ---
	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}
