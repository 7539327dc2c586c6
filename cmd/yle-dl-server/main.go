package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yle-dl-go/api"
	"github.com/yourusername/yle-dl-go/internal/app"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"github.com/yourusername/yle-dl-go/internal/infrastructure"
	"github.com/yourusername/yle-dl-go/pkg/logger"
)

var configPath = flag.String("config", "", "Config file (default $HOME/.yle-dl/config.yaml)")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting yle-dl server",
		zap.String("version", domain.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("dest_dir", config.Download.DestDir),
		zap.Bool("history", config.History.Enabled))

	if config.Download.DestDir != "" {
		if err := os.MkdirAll(config.Download.DestDir, 0755); err != nil {
			log.Fatal("Failed to create destination directory", zap.Error(err))
		}
	}

	// Initialize repository
	var repo domain.DownloadRepository
	if config.History.Enabled {
		sqlite, err := infrastructure.NewSQLiteDownloadRepository(config.History.DatabasePath)
		if err != nil {
			log.Fatal("Failed to initialize repository", zap.Error(err))
		}
		defer sqlite.Close()
		repo = sqlite
	}

	// Initialize notification service
	var notifier app.Notifier
	if config.Notification.Enabled {
		notifier = infrastructure.NewNotificationService(&config.Notification, log)
	}

	client := fetch.NewFetcher(fetch.Options{
		UserAgent:         config.HTTP.UserAgent,
		Timeout:           config.HTTP.Timeout,
		CacheTTL:          config.HTTP.CacheTTL,
		RequestsPerSecond: config.HTTP.RequestsPerSecond,
	}, log)

	downloadMgr := app.NewDownloadManager(config, client, repo, notifier, log)
	queueMgr := app.NewQueueManager(downloadMgr, config.Server.QueueSize, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queueMgr.Start(ctx); err != nil {
		log.Fatal("Failed to start queue manager", zap.Error(err))
	}

	router := api.SetupRouter(queueMgr, downloadMgr, config.Server.Mode, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := queueMgr.Stop(); err != nil {
		log.Error("Error stopping queue manager", zap.Error(err))
	}

	log.Info("Server exited")
}
