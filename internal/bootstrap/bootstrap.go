// Package bootstrap wires the conversion pipeline and its services from configuration.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/gifmaker/internal/config"
	"github.com/maauso/gifmaker/internal/gif"
	"github.com/maauso/gifmaker/internal/job"
	"github.com/maauso/gifmaker/internal/media"
	"github.com/maauso/gifmaker/internal/storage"
)

// Dependencies holds all initialized dependencies shared by the CLI and the HTTP server.
type Dependencies struct {
	Pipeline   *gif.Pipeline
	Store      storage.Storage
	GifService *job.GifService
	// S3Enabled reports whether finished animations can be published.
	S3Enabled bool
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	pipeline := gif.NewPipeline(
		media.NewFFprobeResolver(cfg.FFprobePath),
		media.NewFFmpegExtractor(cfg.FFmpegPath),
		media.NewConvertAssembler(cfg.ConvertPath),
		store,
		logger,
	)

	svc := job.NewGifService(
		job.NewMemoryRepository(),
		pipeline,
		store,
		logger,
		job.WithTimeout(cfg.ToolTimeout),
	)

	return &Dependencies{
		Pipeline:   pipeline,
		Store:      store,
		GifService: svc,
		S3Enabled:  cfg.S3Enabled(),
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Debug("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Debug("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
