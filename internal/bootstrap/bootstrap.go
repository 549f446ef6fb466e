// Package bootstrap provides dependency initialization for versesplit.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/versesplit/internal/config"
	"github.com/maauso/versesplit/internal/export"
	"github.com/maauso/versesplit/internal/media"
	"github.com/maauso/versesplit/internal/run"
	"github.com/maauso/versesplit/internal/storage"
)

// Options carries per-invocation overrides that are not part of Config.
type Options struct {
	// OutputDir is where verse files and the manifest are written.
	OutputDir string
}

// Dependencies holds all initialized dependencies for a run.
type Dependencies struct {
	Service  *run.Service
	Exporter *export.Exporter
	Storage  storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (*Dependencies, error) {
	store, publisher, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	ffmpeg := media.NewFFmpeg(cfg.FFmpegPath)
	decoder := media.NewDecoder(ffmpeg, store,
		media.WithProber(ffmpeg),
		media.WithDecoderLogger(logger),
	)

	exportOpts := []export.Option{
		export.WithFormat(cfg.ExportFormat),
		export.WithBitrate(cfg.ExportBitrate),
		export.WithMaxConcurrent(cfg.MaxConcurrentExports),
		export.WithTranscoder(ffmpeg, store),
		export.WithLogger(logger),
	}
	if publisher != nil {
		exportOpts = append(exportOpts, export.WithPublisher(publisher, cfg.S3Prefix))
	}
	exporter := export.New(opts.OutputDir, exportOpts...)

	svc := run.NewService(run.NewMemoryRepository(), decoder, exporter, logger)

	return &Dependencies{
		Service:  svc,
		Exporter: exporter,
		Storage:  store,
	}, nil
}

// initStorage creates the storage backend. The publisher is nil unless S3
// is configured.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, storage.Publisher, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Debug("local storage configured",
		slog.String("temp_dir", localStore.TempDir()),
	)
	return localStore, nil, nil
}
