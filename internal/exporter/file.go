package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gctidash/internal/dataset"
	apperrors "gctidash/internal/errors"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Write writes ds to w in format f
func Write(w io.Writer, f Format, ds *dataset.Dataset) error {
	switch f {
	case FormatCSV:
		return WriteDatasetCSV(w, ds, CSVOptions{BOMPrefix: true})
	case FormatXLSX:
		return WriteDatasetXLSX(w, ds)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// WriteFile writes ds to path, choosing the format from the extension.
// Parent directories are created as needed.
func WriteFile(path string, ds *dataset.Dataset) error {
	format, err := ParseFormat(strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return err
	}

	slog.Info("Writing dataset export",
		slog.String("file_path", path),
		slog.String("format", string(format)),
		slog.Int("record_count", ds.Len()))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return apperrors.NewStorageError("failed to open file", err).WithContext("path", path)
	}

	if err := Write(file, format, ds); err != nil {
		file.Close()
		return apperrors.NewStorageError("failed to write export", err).WithContext("path", path)
	}
	if err := file.Close(); err != nil {
		return apperrors.NewStorageError("failed to close export", err).WithContext("path", path)
	}
	return nil
}
