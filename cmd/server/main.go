// Package main runs the gifmaker HTTP service: conversions are submitted as
// jobs and polled until the animation is ready.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maauso/gifmaker/internal/bootstrap"
	"github.com/maauso/gifmaker/internal/config"
	"github.com/maauso/gifmaker/internal/server"
)

// shutdownGrace is how long in-flight requests get once a signal arrives.
// Running conversions are detached from requests and are not waited for.
const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gifmaker-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting gifmaker server",
		slog.Int("port", cfg.Port),
		slog.String("temp_dir", cfg.TempDir),
		slog.Duration("tool_timeout", cfg.ToolTimeout),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)
	logger.Info("external tools",
		slog.String("ffprobe", cfg.FFprobePath),
		slog.String("ffmpeg", cfg.FFmpegPath),
		slog.String("convert", cfg.ConvertPath),
	)
	logger.Debug("configuration loaded", slog.String("config", cfg.String()))

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	handlers := server.NewHandlers(deps.GifService, logger, server.WithPublishing(deps.S3Enabled))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.NewRouter(handlers, logger, server.DefaultConfig()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       120 * time.Second, // uploads carry whole videos
		WriteTimeout:      120 * time.Second, // finished GIFs are inlined as base64
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, srv, logger)
}

// serve runs srv until ctx is cancelled, then drains open connections.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown requested; jobs still running will be abandoned")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("drain connections: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
