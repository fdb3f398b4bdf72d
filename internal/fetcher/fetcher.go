// Package fetcher streams rows out of the spreadsheet exports the legacy
// installation data arrives in.
package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Row is one parsed line of a source file. Line is 1-based.
type Row struct {
	Line   int
	Fields []string
}

// Options configures StreamFile.
type Options struct {
	CSV  CSVOptions
	XLSX XLSXOptions
}

// StreamFile streams rows from a .csv or .xlsx file, chosen by extension.
// Both channels are closed when reading stops; at most one error is sent.
func StreamFile(ctx context.Context, path string, opts Options) (<-chan Row, <-chan error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return StreamXLSX(ctx, path, opts.XLSX)
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return failed(eris.Wrapf(err, "fetcher: open %s", path))
		}
		rows, errs := StreamCSV(ctx, f, opts.CSV)
		return rows, closeAfter(f, errs)
	default:
		return failed(eris.Errorf("fetcher: unsupported file type %q", filepath.Ext(path)))
	}
}

func failed(err error) (<-chan Row, <-chan error) {
	rowCh := make(chan Row)
	errCh := make(chan error, 1)
	close(rowCh)
	errCh <- err
	close(errCh)
	return rowCh, errCh
}

// closeAfter closes f once errs is drained and closed.
func closeAfter(f *os.File, errs <-chan error) <-chan error {
	out := make(chan error, 1)
	go func() {
		defer close(out)
		defer f.Close()
		for err := range errs {
			out <- err
		}
	}()
	return out
}
