// Package legacyimport loads the installation records of the old contract
// administration from a semicolon CSV or XLSX export.
package legacyimport

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ardjee/forms/internal/fetcher"
	"github.com/ardjee/forms/internal/matcher"
	"github.com/ardjee/forms/internal/model"
	"github.com/ardjee/forms/internal/resilience"
)

// DefaultBatchSize is the number of records written per insert.
const DefaultBatchSize = 500

// Destination receives imported records.
type Destination interface {
	InsertInstallations(ctx context.Context, records []model.InstallationRecord) (int64, error)
	CountInstallations(ctx context.Context) (int64, error)
}

// Options configures an Importer.
type Options struct {
	BatchSize int
	// Force imports even when the destination already holds records. New
	// records are appended.
	Force  bool
	Source fetcher.Options
	Retry  resilience.RetryPolicy
}

// Result summarises an import run.
type Result struct {
	Rows     int   `json:"rows"`
	Imported int   `json:"imported"`
	Skipped  int   `json:"skipped"`
	Failed   int   `json:"failed"`
	Existing int64 `json:"existing"`
	// AlreadyPopulated is set when nothing was imported because the
	// destination held records and Force was off.
	AlreadyPopulated bool `json:"already_populated"`
}

// Importer parses export rows into installation records and writes them in
// batches.
type Importer struct {
	dst  Destination
	opts Options
	now  func() time.Time
}

// New creates an Importer writing to dst.
func New(dst Destination, opts Options) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = resilience.DefaultRetryPolicy()
	}
	return &Importer{dst: dst, opts: opts, now: time.Now}
}

// ImportFile imports the export at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rows, errs := fetcher.StreamFile(ctx, path, im.opts.Source)
	res, err := im.Import(ctx, rows, errs)
	if err != nil {
		return res, eris.Wrapf(err, "legacyimport: %s", path)
	}
	return res, nil
}

// Import consumes rows, the first of which must be the header. The source
// error channel is checked once rows is closed.
func (im *Importer) Import(ctx context.Context, rows <-chan fetcher.Row, srcErrs <-chan error) (*Result, error) {
	res := &Result{}

	existing, err := im.dst.CountInstallations(ctx)
	if err != nil {
		return res, eris.Wrap(err, "legacyimport: count existing")
	}
	res.Existing = existing
	if existing > 0 && !im.opts.Force {
		zap.L().Info("legacyimport: installations already present, skipping",
			zap.Int64("existing", existing))
		res.AlreadyPopulated = true
		return res, nil
	}

	header, ok := <-rows
	if !ok {
		if err := <-srcErrs; err != nil {
			return res, err
		}
		return res, eris.New("legacyimport: empty export, no header row")
	}
	cols, err := DetectColumns(header.Fields)
	if err != nil {
		return res, err
	}
	zap.L().Debug("legacyimport: detected columns",
		zap.Int("address", cols.Address),
		zap.Int("postal_code", cols.PostalCode),
		zap.Int("city", cols.City),
		zap.Int("description", cols.Description),
	)

	g, gctx := errgroup.WithContext(ctx)
	records := make(chan model.InstallationRecord, im.opts.BatchSize)

	g.Go(func() error {
		defer close(records)
		for row := range rows {
			res.Rows++
			rec, ok := im.parse(row, cols)
			if !ok {
				res.Skipped++
				continue
			}
			select {
			case records <- rec:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return <-srcErrs
	})

	g.Go(func() error {
		batch := make([]model.InstallationRecord, 0, im.opts.BatchSize)
		for rec := range records {
			batch = append(batch, rec)
			if len(batch) == im.opts.BatchSize {
				if err := im.flush(gctx, batch, res); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
		return im.flush(gctx, batch, res)
	})

	if err := g.Wait(); err != nil {
		return res, err
	}

	zap.L().Info("legacyimport: complete",
		zap.Int("rows", res.Rows),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (im *Importer) parse(row fetcher.Row, cols Columns) (model.InstallationRecord, bool) {
	if len(row.Fields) < cols.width() {
		zap.L().Debug("legacyimport: short row", zap.Int("line", row.Line))
		return model.InstallationRecord{}, false
	}

	rec := model.InstallationRecord{
		Address:     sanitize(row.Fields[cols.Address]),
		PostalCode:  matcher.NormalizePostalCode(sanitize(row.Fields[cols.PostalCode])),
		City:        matcher.NormalizeCity(sanitize(row.Fields[cols.City])),
		Description: sanitize(row.Fields[cols.Description]),
		ImportedAt:  im.now().UTC(),
	}
	if rec.Address == "" || rec.PostalCode == "" || rec.City == "" || rec.Description == "" {
		zap.L().Debug("legacyimport: incomplete row", zap.Int("line", row.Line))
		return model.InstallationRecord{}, false
	}
	return rec, true
}

// flush writes a batch. When the batch keeps failing, records are retried one
// by one so a single bad record does not sink its neighbours.
func (im *Importer) flush(ctx context.Context, batch []model.InstallationRecord, res *Result) error {
	if len(batch) == 0 {
		return nil
	}

	err := resilience.Retry(ctx, "insert installations", im.opts.Retry, func(ctx context.Context) error {
		_, err := im.dst.InsertInstallations(ctx, batch)
		return err
	})
	if err == nil {
		res.Imported += len(batch)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	zap.L().Warn("legacyimport: batch failed, inserting individually",
		zap.Int("size", len(batch)), zap.Error(err))
	for _, rec := range batch {
		if _, err := im.dst.InsertInstallations(ctx, []model.InstallationRecord{rec}); err != nil {
			zap.L().Error("legacyimport: record failed",
				zap.String("address", rec.Address),
				zap.String("postal_code", rec.PostalCode),
				zap.String("city", rec.City),
				zap.Error(err),
			)
			res.Failed++
			continue
		}
		res.Imported++
	}
	return nil
}
