// Package pipeline runs one catalog acquisition at a time: plan the
// downloads, fetch them in order, normalize them into one checked catalog
// and optionally publish the records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/quake-catalog-etl/internal/catalog"
	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
	"github.com/couchcryptid/quake-catalog-etl/internal/observability"
)

// Planner turns a query into an ordered list of downloads.
type Planner interface {
	Build(spec domain.QuerySpec) (domain.RequestPlan, error)
}

// Fetcher downloads one URL to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Normalizer merges raw files into a checked catalog at outPath.
type Normalizer interface {
	NormalizeFile(outPath string, files []string) (domain.NormalizedCatalog, error)
}

// BatchLoader publishes typed records downstream.
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []domain.EarthquakeRecord) error
}

// Options tune a Pipeline. OnProgress, when set, receives every milestone
// synchronously from the run goroutine.
type Options struct {
	OutputDir  string
	BatchSize  int
	OnProgress func(domain.Progress)
}

// Result describes a finished run.
type Result struct {
	RunID     string
	Plan      domain.RequestPlan
	RawFiles  []string
	Catalog   domain.NormalizedCatalog
	Published int
}

// Pipeline orchestrates plan, download, normalize and publish with a
// single-flight guard: at most one run is in progress.
type Pipeline struct {
	planner    Planner
	fetcher    Fetcher
	normalizer Normalizer
	loader     BatchLoader
	logger     *slog.Logger
	metrics    *observability.Metrics
	opts       Options

	running atomic.Bool

	mu     sync.Mutex
	status domain.Progress
	cancel context.CancelFunc
	done   chan struct{}
	last   *Result
}

// New creates a Pipeline. loader may be nil, in which case runs stop after
// the checked catalog is written.
func New(pl Planner, f Fetcher, n Normalizer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &Pipeline{
		planner:    pl,
		fetcher:    f,
		normalizer: n,
		loader:     l,
		logger:     logger,
		metrics:    metrics,
		opts:       opts,
		status:     domain.Progress{Status: "idle"},
	}
}

// CheckReadiness returns nil when the output directory can be written to.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	f, err := os.CreateTemp(p.opts.OutputDir, ".readyz-*")
	if err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Running reports whether a run is in progress.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Status returns the most recent progress milestone.
func (p *Pipeline) Status() domain.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// LastResult returns the result of the most recent successful run, if any.
func (p *Pipeline) LastResult() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Result{}, false
	}
	return *p.last, true
}

// Run executes one acquisition synchronously. It returns
// domain.ErrRunInProgress if another run has not finished.
func (p *Pipeline) Run(ctx context.Context, req domain.RunRequest) (Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Result{}, domain.ErrRunInProgress
	}

	ctx, cancel := context.WithCancel(ctx)
	runID := uuid.NewString()
	done := p.begin(cancel)
	defer func() {
		cancel()
		p.setCancel(nil)
		p.running.Store(false)
		close(done)
	}()

	return p.run(ctx, runID, req)
}

// Start launches a run in the background and returns its ID. The run is
// detached from ctx's cancellation; use Cancel to stop it.
func (p *Pipeline) Start(ctx context.Context, req domain.RunRequest) (string, error) {
	if !p.running.CompareAndSwap(false, true) {
		return "", domain.ErrRunInProgress
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runID := uuid.NewString()
	done := p.begin(cancel)
	p.report(runID, 0, "Queued", true, "")

	go func() {
		defer close(done)
		defer p.running.Store(false)
		defer p.setCancel(nil)
		defer cancel()
		_, _ = p.run(runCtx, runID, req)
	}()
	return runID, nil
}

// Cancel aborts the in-flight run. It reports false when nothing is running.
func (p *Pipeline) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return false
	}
	p.cancel()
	return true
}

// Wait blocks until the current run, if any, has returned or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for run: %w", ctx.Err())
	}
}

// begin records the cancel func of a new run and returns the channel to
// close once the run goroutine has finished.
func (p *Pipeline) begin(c context.CancelFunc) chan struct{} {
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel = c
	p.done = done
	p.mu.Unlock()
	return done
}

func (p *Pipeline) setCancel(c context.CancelFunc) {
	p.mu.Lock()
	p.cancel = c
	p.mu.Unlock()
}

func (p *Pipeline) run(ctx context.Context, runID string, req domain.RunRequest) (res Result, err error) {
	logger := p.logger.With("run_id", runID)
	res.RunID = runID
	start := time.Now()

	p.metrics.PipelineRunning.Set(1)
	defer func() {
		p.metrics.PipelineRunning.Set(0)
		p.metrics.RunDuration.Observe(time.Since(start).Seconds())
		p.metrics.RunsTotal.WithLabelValues(outcome(err)).Inc()
		if err != nil {
			p.fail(runID, err)
			logger.Error("catalog run failed", "outcome", outcome(err), "error", err)
			return
		}
		logger.Info("catalog run complete",
			"path", res.Catalog.Path,
			"records", res.Catalog.Count,
			"published", res.Published,
			"duration", time.Since(start),
		)
	}()

	logger.Info("catalog run started", "query", req.Spec.String())
	p.report(runID, 0, "Checking query", true, "")

	plan, err := p.planner.Build(req.Spec)
	if err != nil {
		return res, err
	}
	res.Plan = plan

	dir := req.Dir
	if dir == "" {
		dir = p.opts.OutputDir
	}
	name := req.Name
	if name == "" {
		name = defaultName()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, &domain.IOError{Op: "create directory", Path: dir, Err: err}
	}

	files, err := p.download(ctx, logger, runID, plan, dir, name)
	res.RawFiles = files
	if err != nil {
		return res, err
	}

	p.report(runID, 85, "Checking earthquake records", true, "")
	cat, err := p.normalizer.NormalizeFile(filepath.Join(dir, name+"_checked.csv"), files)
	res.Catalog = cat
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	status := fmt.Sprintf("Catalog ready: %d earthquakes", cat.Count)
	if cat.Large {
		logger.Warn("large catalog, downstream processing may be slow", "records", cat.Count)
		status = fmt.Sprintf("Catalog ready: %d earthquakes (large dataset, downstream processing may take a while)", cat.Count)
	}
	p.report(runID, 90, status, true, "")

	if p.loader != nil {
		p.report(runID, 95, "Publishing records", true, "")
		published, err := p.publish(ctx, cat.Path)
		res.Published = published
		if err != nil {
			return res, err
		}
	}

	p.mu.Lock()
	last := res
	p.last = &last
	p.mu.Unlock()

	p.report(runID, 100, status, false, "")
	return res, nil
}

// download fetches every request in order, one at a time. Record order in
// the catalog follows file order, so chunks are never fetched concurrently.
func (p *Pipeline) download(ctx context.Context, logger *slog.Logger, runID string, plan domain.RequestPlan, dir, name string) ([]string, error) {
	n := len(plan.Requests)
	files := make([]string, 0, n)
	for i, r := range plan.Requests {
		if err := ctx.Err(); err != nil {
			return files, err
		}

		p.report(runID, downloadPercent(i, n), fmt.Sprintf("Downloading %s (%d of %d)", r.Label, i+1, n), true, "")
		dest := filepath.Join(dir, fmt.Sprintf("%s_part%02d.csv", name, i+1))
		if err := p.fetcher.Fetch(ctx, r.URL, dest); err != nil {
			return files, err
		}
		files = append(files, dest)
		logger.Debug("chunk downloaded", "label", r.Label, "path", dest)
		p.report(runID, downloadPercent(i+1, n), fmt.Sprintf("Downloaded %s", r.Label), true, "")
	}
	return files, nil
}

func (p *Pipeline) publish(ctx context.Context, path string) (int, error) {
	res, err := catalog.Scan(ctx, path, p.opts.BatchSize, func(ctx context.Context, batch []domain.EarthquakeRecord) error {
		if err := p.loader.LoadBatch(ctx, batch); err != nil {
			return err
		}
		p.metrics.RecordsPublished.Add(float64(len(batch)))
		return nil
	})
	if res.Skipped > 0 {
		p.logger.Warn("records skipped while publishing", "path", path, "skipped", res.Skipped)
	}
	if err != nil {
		return res.Records, fmt.Errorf("publish catalog: %w", err)
	}
	return res.Records, nil
}

// downloadPercent spreads downloads over 10..80 percent.
func downloadPercent(done, total int) int {
	if total == 0 {
		return 80
	}
	return 10 + 70*done/total
}

func (p *Pipeline) report(runID string, percent int, status string, running bool, errMsg string) {
	pr := domain.Progress{
		RunID:   runID,
		Percent: percent,
		Status:  status,
		Running: running,
		Error:   errMsg,
		At:      domain.Now(),
	}
	p.mu.Lock()
	p.status = pr
	p.mu.Unlock()

	if p.opts.OnProgress != nil {
		p.opts.OnProgress(pr)
	}
}

func (p *Pipeline) fail(runID string, err error) {
	p.mu.Lock()
	percent := p.status.Percent
	p.mu.Unlock()
	p.report(runID, percent, "Stopped", false, UserMessage(err))
}

// UserMessage turns a run error into the text shown to an operator.
func UserMessage(err error) string {
	var specErr *domain.InvalidSpecError
	var netErr *domain.NetworkError
	var ioErr *domain.IOError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &specErr):
		return specErr.Error()
	case errors.As(err, &netErr):
		return netErr.UserMessage()
	case errors.Is(err, domain.ErrEmptyCatalog):
		return "No earthquakes matched the query. Try a wider timespan or a lower magnitude."
	case errors.Is(err, context.Canceled):
		return "The run was cancelled."
	case errors.As(err, &ioErr):
		return fmt.Sprintf("A local file operation failed: %v", ioErr)
	default:
		return err.Error()
	}
}

func outcome(err error) string {
	var specErr *domain.InvalidSpecError
	var netErr *domain.NetworkError
	var ioErr *domain.IOError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &specErr):
		return "invalid_spec"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &netErr):
		return "network_error"
	case errors.Is(err, domain.ErrEmptyCatalog):
		return "empty"
	case errors.As(err, &ioErr):
		return "io_error"
	default:
		return "error"
	}
}

func defaultName() string {
	return "usgs_" + domain.Now().UTC().Format("20060102T150405")
}
