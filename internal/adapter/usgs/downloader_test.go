package usgs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
	"github.com/couchcryptid/quake-catalog-etl/internal/observability"
)

const sampleCSV = "time,latitude,longitude,depth,mag\n2024-04-26T12:00:00.000Z,35.1,-117.5,8.2,2.6\n"

func newTestDownloader(backoff time.Duration) *Downloader {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDownloader(5*time.Second, backoff, 0, logger, observability.NewMetricsForTesting())
}

func TestDownloader_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(t, newTestDownloader(time.Millisecond).Fetch(context.Background(), srv.URL, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(data))
}

func TestDownloader_RetriesOnceThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	d := newTestDownloader(10 * time.Millisecond)
	dest := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(t, d.Fetch(context.Background(), srv.URL, dest))

	assert.Equal(t, int32(2), calls.Load())
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(data))
}

func TestDownloader_HTTPErrorAfterRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestDownloader(time.Millisecond).Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "raw.csv"))

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, domain.NetworkHTTP, netErr.Kind)
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)
	assert.Equal(t, srv.URL, netErr.URL)
	assert.Contains(t, netErr.UserMessage(), "HTTP 404")
	assert.Equal(t, int32(2), calls.Load(), "exactly one retry")
}

func TestDownloader_ConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	err := newTestDownloader(time.Millisecond).Fetch(context.Background(), addr, filepath.Join(t.TempDir(), "raw.csv"))

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, domain.NetworkConnectivity, netErr.Kind)
}

func TestDownloader_OtherError(t *testing.T) {
	err := newTestDownloader(time.Millisecond).Fetch(context.Background(), "ftp://example.invalid/catalog.csv", filepath.Join(t.TempDir(), "raw.csv"))

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, domain.NetworkOther, netErr.Kind)
}

func TestDownloader_UnwritableDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "missing", "raw.csv")
	err := newTestDownloader(time.Millisecond).Fetch(context.Background(), srv.URL, dest)

	var ioErr *domain.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, dest, ioErr.Path)
}

func TestDownloader_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		cancel()
	}))
	defer srv.Close()

	start := time.Now()
	err := newTestDownloader(time.Hour).Fetch(ctx, srv.URL, filepath.Join(t.TempDir(), "raw.csv"))

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, int32(1), calls.Load())
}
