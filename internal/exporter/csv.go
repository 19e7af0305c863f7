package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"gctidash/internal/dataset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions configures CSV writing behavior
type CSVOptions struct {
	Comma     rune // defaults to ','
	BOMPrefix bool // UTF-8 BOM so spreadsheet tools detect the encoding
}

// WriteCSV writes a header line followed by records
func WriteCSV(w io.Writer, headers []string, records [][]string, opts CSVOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if opts.Comma != 0 {
		writer.Comma = opts.Comma
	}

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteDatasetCSV writes every row of ds under its column header
func WriteDatasetCSV(w io.Writer, ds *dataset.Dataset, opts CSVOptions) error {
	return WriteCSV(w, ds.Columns(), ds.Records(), opts)
}
