// Package catalog merges raw USGS CSV downloads into one validated catalog
// file and reads that file back as typed records.
package catalog

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
	"github.com/couchcryptid/quake-catalog-etl/internal/observability"
)

// RowValidator decides whether a raw row belongs in the catalog.
type RowValidator interface {
	Keep(row []string) bool
}

// Normalizer merges raw catalog files in order, writing the canonical header
// once and every kept row after it.
type Normalizer struct {
	validator      RowValidator
	largeThreshold int
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// NewNormalizer creates a Normalizer. A non-positive largeThreshold falls
// back to domain.LargeCatalogThreshold.
func NewNormalizer(v RowValidator, largeThreshold int, logger *slog.Logger, metrics *observability.Metrics) *Normalizer {
	if largeThreshold <= 0 {
		largeThreshold = domain.LargeCatalogThreshold
	}
	return &Normalizer{
		validator:      v,
		largeThreshold: largeThreshold,
		logger:         logger,
		metrics:        metrics,
	}
}

// accumulator carries merge state from one file to the next.
type accumulator struct {
	headerWritten bool
	kept          int
	dropped       int
	files         []domain.FileStats
}

// NormalizeFile writes the merged catalog to outPath. The output file is
// always closed before an error is returned; on an I/O failure it is also
// removed so no partial catalog is left behind. An empty catalog keeps the
// header-only file and returns domain.ErrEmptyCatalog alongside the result.
func (n *Normalizer) NormalizeFile(outPath string, files []string) (domain.NormalizedCatalog, error) {
	out, err := os.Create(outPath)
	if err != nil {
		return domain.NormalizedCatalog{}, &domain.IOError{Op: "create", Path: outPath, Err: err}
	}

	cat, err := n.Normalize(out, files)
	closeErr := out.Close()
	cat.Path = outPath

	if err == nil && closeErr != nil {
		err = &domain.IOError{Op: "close", Path: outPath, Err: closeErr}
	}
	if err != nil && !errors.Is(err, domain.ErrEmptyCatalog) {
		_ = os.Remove(outPath)
		return domain.NormalizedCatalog{}, err
	}
	return cat, err
}

// Normalize streams files, in order, through the validator into w.
func (n *Normalizer) Normalize(w io.Writer, files []string) (domain.NormalizedCatalog, error) {
	cw := csv.NewWriter(w)

	acc := accumulator{}
	for _, path := range files {
		var err error
		acc, err = n.mergeFile(acc, cw, path)
		if err != nil {
			return domain.NormalizedCatalog{}, err
		}
	}

	// A run over no files still yields a header-only catalog.
	if !acc.headerWritten {
		if err := cw.Write(domain.CanonicalHeader); err != nil {
			return domain.NormalizedCatalog{}, &domain.IOError{Op: "write header", Err: err}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return domain.NormalizedCatalog{}, &domain.IOError{Op: "flush catalog", Err: err}
	}

	n.metrics.RecordsKept.Add(float64(acc.kept))
	n.metrics.RecordsDropped.Add(float64(acc.dropped))
	n.metrics.CatalogSize.Observe(float64(acc.kept))

	cat := domain.NormalizedCatalog{
		Header:  domain.CanonicalHeader,
		Count:   acc.kept,
		Dropped: acc.dropped,
		Large:   acc.kept >= n.largeThreshold,
		Files:   acc.files,
	}

	n.logger.Info("catalog normalized",
		"files", len(files),
		"kept", cat.Count,
		"dropped", cat.Dropped,
		"large", cat.Large,
	)

	if cat.Count == 0 {
		return cat, domain.ErrEmptyCatalog
	}
	return cat, nil
}

// mergeFile appends one raw file's kept rows and returns the updated accumulator.
func (n *Normalizer) mergeFile(acc accumulator, cw *csv.Writer, path string) (accumulator, error) {
	f, err := os.Open(path)
	if err != nil {
		return acc, &domain.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	r := newReader(f)
	stats := domain.FileStats{Path: path}

	if !acc.headerWritten {
		if err := cw.Write(domain.CanonicalHeader); err != nil {
			return acc, &domain.IOError{Op: "write header", Path: path, Err: err}
		}
		acc.headerWritten = true
	}

	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return acc, &domain.IOError{Op: "read", Path: path, Err: err}
		}

		if first {
			first = false
			if domain.IsCanonicalHeader(row) {
				stats.HeaderSkipped = true
				continue
			}
		}

		stats.Rows++
		if !n.validator.Keep(row) {
			stats.Dropped++
			continue
		}
		if err := cw.Write(row); err != nil {
			return acc, &domain.IOError{Op: "write row", Path: path, Err: err}
		}
		stats.Kept++
	}

	n.logger.Debug("raw file merged",
		"path", path,
		"header_skipped", stats.HeaderSkipped,
		"rows", stats.Rows,
		"kept", stats.Kept,
	)

	acc.kept += stats.Kept
	acc.dropped += stats.Dropped
	acc.files = append(acc.files, stats)
	return acc, nil
}

// newReader tolerates the ragged and loosely quoted rows the query service
// occasionally emits; validation decides what survives.
func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

