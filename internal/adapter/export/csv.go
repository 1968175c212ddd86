package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/user/election-scraper/internal/entity"
)

const (
	utf8BOM      = "\ufeff"
	csvSeparator = ';'
)

// CSVWriter writes a dataset as UTF-8 text with a byte order mark and
// semicolon separated fields.
type CSVWriter struct {
	out io.Writer
}

// NewCSVWriter creates a CSVWriter that writes to out.
func NewCSVWriter(out io.Writer) *CSVWriter {
	return &CSVWriter{out: out}
}

// Write emits the header followed by one record per row.
func (w *CSVWriter) Write(ctx context.Context, ds *entity.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := io.WriteString(w.out, utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w.out)
	writer.Comma = csvSeparator

	if err := writer.Write(ds.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(ds.Records()); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}
