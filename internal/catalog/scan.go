package catalog

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
)

// ScanResult counts what Scan handed to the callback.
type ScanResult struct {
	Records int
	Skipped int
}

// Scan reads a normalized catalog and calls fn with batches of at most
// batchSize typed records, in file order. Rows that cannot be parsed into a
// record are skipped and counted. Scan stops at the first error from fn or
// when ctx is done.
func Scan(ctx context.Context, path string, batchSize int, fn func(context.Context, []domain.EarthquakeRecord) error) (ScanResult, error) {
	if batchSize <= 0 {
		batchSize = 1
	}

	f, err := os.Open(path)
	if err != nil {
		return ScanResult{}, &domain.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	r := newReader(f)
	var res ScanResult
	batch := make([]domain.EarthquakeRecord, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(ctx, batch); err != nil {
			return err
		}
		res.Records += len(batch)
		batch = make([]domain.EarthquakeRecord, 0, batchSize)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, &domain.IOError{Op: "read", Path: path, Err: err}
		}
		if domain.IsCanonicalHeader(row) {
			continue
		}

		rec, err := domain.ParseRecord(row)
		if err != nil {
			res.Skipped++
			continue
		}
		batch = append(batch, rec)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}

	err = flush()
	return res, err
}
