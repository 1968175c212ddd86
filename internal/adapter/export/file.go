package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/election-scraper/internal/entity"
	"github.com/user/election-scraper/internal/repository"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnknownFormat is returned for output formats other than csv and xlsx.
var ErrUnknownFormat = errors.New("unknown output format")

// ResolveFormat picks the output format from the file extension, falling back
// to the given default when the extension is not recognised.
func ResolveFormat(path, fallback string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	switch f := strings.ToLower(fallback); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, fallback)
}

// NewWriter returns the writer for format bound to out.
func NewWriter(format string, out io.Writer) (repository.ResultWriter, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return NewCSVWriter(out), nil
	case FormatXLSX:
		return NewXLSXWriter(out), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// FileWriter writes a dataset to a path. The file only appears once the
// whole dataset has been written.
type FileWriter struct {
	path   string
	format string
}

// NewFileWriter creates a FileWriter for path in the given format.
func NewFileWriter(path, format string) (*FileWriter, error) {
	if _, err := NewWriter(format, io.Discard); err != nil {
		return nil, err
	}
	return &FileWriter{path: path, format: format}, nil
}

// Path returns the destination path.
func (w *FileWriter) Path() string {
	return w.path
}

func (w *FileWriter) Write(ctx context.Context, ds *entity.Dataset) error {
	tmp, err := os.CreateTemp(filepath.Dir(w.path), "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer, _ := NewWriter(w.format, tmp)
	if err := writer.Write(ctx, ds); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
