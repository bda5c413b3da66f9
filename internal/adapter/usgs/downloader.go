package usgs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
	"github.com/couchcryptid/quake-catalog-etl/internal/observability"
)

// Downloader fetches catalog CSVs to local files. A failed download is
// retried exactly once after a fixed backoff.
type Downloader struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewDownloader creates a Downloader. interval spaces consecutive upstream
// requests; zero disables spacing.
func NewDownloader(timeout, backoff, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Downloader {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		backoff:    backoff,
		logger:     logger,
		metrics:    metrics,
	}
}

// Fetch downloads rawURL into dest. On failure it waits the backoff and
// tries once more; the second failure is returned as a *domain.NetworkError.
// dest may hold a partial file after a failure.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dest string) error {
	err := d.fetchOnce(ctx, rawURL, dest)
	if err == nil {
		d.metrics.DownloadsTotal.WithLabelValues("success").Inc()
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("download %s: %w", rawURL, ctx.Err())
	}

	d.logger.Warn("download failed, retrying",
		"url", rawURL,
		"backoff", d.backoff,
		"error", err,
	)
	d.metrics.DownloadRetries.Inc()

	if !retry.SleepWithContext(ctx, d.backoff) {
		return fmt.Errorf("download %s: %w", rawURL, ctx.Err())
	}

	if err := d.fetchOnce(ctx, rawURL, dest); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("download %s: %w", rawURL, ctx.Err())
		}
		d.logger.Error("download failed after retry", "url", rawURL, "error", err)
		d.metrics.DownloadsTotal.WithLabelValues(err.Kind.String()).Inc()
		return err
	}

	d.metrics.DownloadsTotal.WithLabelValues("success").Inc()
	return nil
}

func (d *Downloader) fetchOnce(ctx context.Context, rawURL, dest string) *domain.NetworkError {
	if err := d.limiter.Wait(ctx); err != nil {
		return &domain.NetworkError{Kind: domain.NetworkOther, URL: rawURL, Err: err}
	}

	start := time.Now()
	defer func() {
		d.metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &domain.NetworkError{Kind: domain.NetworkOther, URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return classify(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.NetworkError{
			Kind:       domain.NetworkHTTP,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("usgs API error: %s", body),
		}
	}

	f, err := os.Create(dest)
	if err != nil {
		return &domain.NetworkError{Kind: domain.NetworkOther, URL: rawURL, Err: &domain.IOError{Op: "create", Path: dest, Err: err}}
	}

	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return classify(rawURL, copyErr)
	}
	if closeErr != nil {
		return &domain.NetworkError{Kind: domain.NetworkOther, URL: rawURL, Err: &domain.IOError{Op: "close", Path: dest, Err: closeErr}}
	}

	d.logger.Debug("download complete", "url", rawURL, "path", dest, "bytes", n)
	return nil
}

// classify maps a transport error to connectivity (the host could not be
// reached or the connection broke) or other.
func classify(rawURL string, err error) *domain.NetworkError {
	kind := domain.NetworkOther
	if isConnectivity(err) {
		kind = domain.NetworkConnectivity
	}
	return &domain.NetworkError{Kind: kind, URL: rawURL, Err: err}
}

func isConnectivity(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) || os.IsTimeout(err) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
