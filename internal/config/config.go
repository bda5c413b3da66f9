package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedBaseURL string
	QueryURL    string
	OutputDir   string

	DownloadTimeout time.Duration
	RetryBackoff    time.Duration
	RequestInterval time.Duration

	LargeCatalogThreshold int
	RejectNullIsland      bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Catalog publishing configuration.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
	BatchSize    int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	downloadTimeout, err := parseDuration("DOWNLOAD_TIMEOUT", "60s", false)
	if err != nil {
		return nil, err
	}
	retryBackoff, err := parseDuration("RETRY_BACKOFF", "5s", true)
	if err != nil {
		return nil, err
	}
	requestInterval, err := parseDuration("REQUEST_INTERVAL", "1s", true)
	if err != nil {
		return nil, err
	}

	threshold, err := parsePositiveInt("LARGE_CATALOG_THRESHOLD", 500000)
	if err != nil {
		return nil, err
	}

	rejectNullIsland, err := parseBool("REJECT_NULL_ISLAND", false)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FeedBaseURL:           sharedcfg.EnvOrDefault("USGS_FEED_BASE_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/"),
		QueryURL:              sharedcfg.EnvOrDefault("USGS_QUERY_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
		OutputDir:             sharedcfg.EnvOrDefault("OUTPUT_DIR", "./data"),
		DownloadTimeout:       downloadTimeout,
		RetryBackoff:          retryBackoff,
		RequestInterval:       requestInterval,
		LargeCatalogThreshold: threshold,
		RejectNullIsland:      rejectNullIsland,
		HTTPAddr:              sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:              sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:             sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:       shutdownTimeout,
		KafkaEnabled:          kafkaEnabled,
		KafkaBrokers:          sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:            sharedcfg.EnvOrDefault("KAFKA_TOPIC", "earthquake-catalog"),
		BatchSize:             batchSize,
	}

	if err := validateURL("USGS_FEED_BASE_URL", cfg.FeedBaseURL); err != nil {
		return nil, err
	}
	if err := validateURL("USGS_QUERY_URL", cfg.QueryURL); err != nil {
		return nil, err
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s: %q is not an absolute URL", key, raw)
	}
	return nil
}
