package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	apperrors "gctidash/internal/errors"
)

// ErrParse is matched by every error Parse returns
var ErrParse = errors.New("upload could not be parsed")

const csvSeparator = ';'

var (
	utf8BOMAsLatin1 = "ï»¿"
	utf16BOMs       = [][]byte{{0xFF, 0xFE}, {0xFE, 0xFF}}
)

// Parse reads name's content from r. The extension of name selects the format.
func Parse(name string, r io.Reader) (table *Table, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			table = nil
			err = parseFailure(name, apperrors.NewParsingError(fmt.Sprintf("parser panic: %v", rec), nil))
		}
	}()

	var appErr *apperrors.AppError
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		table, appErr = parseCSV(r)
	case ".xlsx":
		table, appErr = parseXLSX(r)
	default:
		if ext == "" {
			ext = "(none)"
		}
		appErr = apperrors.NewUnsupportedFormatError(ext)
	}
	if appErr != nil {
		return nil, parseFailure(name, appErr)
	}

	table.Name = filepath.Base(name)
	return table, nil
}

func parseFailure(name string, cause *apperrors.AppError) error {
	cause.WithContext("file", filepath.Base(name))
	return fmt.Errorf("%w: %s: %w", ErrParse, filepath.Base(name), cause)
}

func parseCSV(r io.Reader) (*Table, *apperrors.AppError) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewParsingError("read csv", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperrors.NewParsingError("file is empty", nil)
	}
	for _, bom := range utf16BOMs {
		if bytes.HasPrefix(raw, bom) {
			return nil, apperrors.NewParsingError("unsupported encoding: UTF-16 text, expected Latin-1", nil)
		}
	}
	if bytes.IndexByte(raw, 0) >= 0 {
		return nil, apperrors.NewParsingError("unsupported encoding: NUL bytes found, expected Latin-1 text", nil)
	}

	reader := csv.NewReader(transform.NewReader(bytes.NewReader(raw), charmap.ISO8859_1.NewDecoder()))
	reader.Comma = csvSeparator
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("malformed csv (expected ';' separated fields)", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewParsingError("file is empty", nil)
	}

	header := records[0]
	header[0] = strings.TrimPrefix(header[0], utf8BOMAsLatin1)
	if len(header) == 1 && strings.ContainsAny(header[0], ",\t") {
		return nil, apperrors.NewParsingError("wrong delimiter: header is not ';' separated", nil).
			WithContext("header", header[0])
	}

	return &Table{
		Format:  FormatCSV,
		Columns: uniqueHeaders(header),
		Rows:    records[1:],
	}, nil
}

func parseXLSX(r io.Reader) (*Table, *apperrors.AppError) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("not a valid xlsx workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("read sheet %q", sheets[0]), err)
	}

	var nonEmpty [][]string
	for _, row := range rows {
		if !isBlank(row) {
			nonEmpty = append(nonEmpty, row)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %q is empty", sheets[0]), nil)
	}

	width := 0
	for _, row := range nonEmpty {
		width = max(width, len(row))
	}

	header := pad(nonEmpty[0], width)
	data := make([][]string, 0, len(nonEmpty)-1)
	for _, row := range nonEmpty[1:] {
		data = append(data, pad(row, width))
	}

	return &Table{
		Format:  FormatXLSX,
		Columns: uniqueHeaders(header),
		Rows:    data,
	}, nil
}

// uniqueHeaders names blank headers by position and suffixes repeated ones
// with .1, .2 and so on.
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		key := strings.ToLower(h)
		if n, dup := seen[key]; dup {
			seen[key] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[key] = 0
		}
		out[i] = h
	}
	return out
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
