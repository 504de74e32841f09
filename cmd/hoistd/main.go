// Command hoistd serves the hoist upload control plane: presigned upload
// URLs, the multipart lifecycle, proxy uploads, and bucket browsing over an
// S3-compatible endpoint.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/quaystone/hoist/server"
	"github.com/quaystone/hoist/server/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := server.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := storage.New(ctx, storage.Options{
		Endpoint:       cfg.S3.Endpoint,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		Region:         cfg.S3.Region,
		ForcePathStyle: cfg.S3.ForcePathStyle,
		PresignExpiry:  cfg.Upload.PresignExpiry,
		DownloadExpiry: cfg.Upload.DownloadExpiry,
	})
	if err != nil {
		logger.Error("failed to init storage", "error", err)
		os.Exit(1)
	}

	handler := server.NewHandler(store, logger, cfg.Upload)
	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler: server.NewRouter(handler, logger, cfg.CORS),
	}

	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
