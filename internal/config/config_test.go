package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/", cfg.FeedBaseURL)
	assert.Equal(t, "https://earthquake.usgs.gov/fdsnws/event/1/query", cfg.QueryURL)
	assert.Equal(t, "./data", cfg.OutputDir)
	assert.Equal(t, 60*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, 5*time.Second, cfg.RetryBackoff)
	assert.Equal(t, 1*time.Second, cfg.RequestInterval)
	assert.Equal(t, 500000, cfg.LargeCatalogThreshold)
	assert.False(t, cfg.RejectNullIsland)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "earthquake-catalog", cfg.KafkaTopic)
	assert.Equal(t, 50, cfg.BatchSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("USGS_FEED_BASE_URL", "http://localhost:9000/feed/")
	t.Setenv("USGS_QUERY_URL", "http://localhost:9000/query")
	t.Setenv("OUTPUT_DIR", "/tmp/quakes")
	t.Setenv("DOWNLOAD_TIMEOUT", "2m")
	t.Setenv("RETRY_BACKOFF", "0s")
	t.Setenv("REQUEST_INTERVAL", "250ms")
	t.Setenv("LARGE_CATALOG_THRESHOLD", "1000")
	t.Setenv("REJECT_NULL_ISLAND", "true")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "quakes")
	t.Setenv("BATCH_SIZE", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/feed/", cfg.FeedBaseURL)
	assert.Equal(t, "http://localhost:9000/query", cfg.QueryURL)
	assert.Equal(t, "/tmp/quakes", cfg.OutputDir)
	assert.Equal(t, 2*time.Minute, cfg.DownloadTimeout)
	assert.Zero(t, cfg.RetryBackoff)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestInterval)
	assert.Equal(t, 1000, cfg.LargeCatalogThreshold)
	assert.True(t, cfg.RejectNullIsland)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "quakes", cfg.KafkaTopic)
	assert.Equal(t, 100, cfg.BatchSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidDurations(t *testing.T) {
	for key, value := range map[string]string{
		"DOWNLOAD_TIMEOUT": "0s",
		"RETRY_BACKOFF":    "-1s",
		"REQUEST_INTERVAL": "soon",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_InvalidLargeCatalogThreshold(t *testing.T) {
	t.Setenv("LARGE_CATALOG_THRESHOLD", "-5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LARGE_CATALOG_THRESHOLD")
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("REJECT_NULL_ISLAND", "sometimes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REJECT_NULL_ISLAND")
}

func TestLoad_RelativeQueryURL(t *testing.T) {
	t.Setenv("USGS_QUERY_URL", "/fdsnws/event/1/query")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USGS_QUERY_URL")
}
