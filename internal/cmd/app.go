package cmd

import (
	"log/slog"

	"github.com/couchcryptid/quake-catalog-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-catalog-etl/internal/adapter/usgs"
	"github.com/couchcryptid/quake-catalog-etl/internal/catalog"
	"github.com/couchcryptid/quake-catalog-etl/internal/config"
	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
	"github.com/couchcryptid/quake-catalog-etl/internal/observability"
	"github.com/couchcryptid/quake-catalog-etl/internal/pipeline"
)

// components is the wired acquisition stack shared by fetch and serve.
type components struct {
	pipeline *pipeline.Pipeline
	writer   *kafka.Writer
	logger   *slog.Logger
}

func wire(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, onProgress func(domain.Progress)) *components {
	builder := usgs.NewBuilder(cfg.FeedBaseURL, cfg.QueryURL)
	downloader := usgs.NewDownloader(cfg.DownloadTimeout, cfg.RetryBackoff, cfg.RequestInterval, logger, metrics)
	normalizer := catalog.NewNormalizer(domain.Validator{RejectNullIsland: cfg.RejectNullIsland}, cfg.LargeCatalogThreshold, logger, metrics)

	c := &components{logger: logger}

	// A nil *kafka.Writer must not be passed as a non-nil BatchLoader.
	var loader pipeline.BatchLoader
	if cfg.KafkaEnabled {
		c.writer = kafka.NewWriter(cfg, logger)
		loader = c.writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	c.pipeline = pipeline.New(builder, downloader, normalizer, loader, logger, metrics, pipeline.Options{
		OutputDir:  cfg.OutputDir,
		BatchSize:  cfg.BatchSize,
		OnProgress: onProgress,
	})
	return c
}

func (c *components) Close() {
	if c.writer == nil {
		return
	}
	if err := c.writer.Close(); err != nil {
		c.logger.Error("kafka writer close error", "error", err)
	}
}
