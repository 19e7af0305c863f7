package exporter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"gctidash/internal/dataset"
	"gctidash/pkg/contracts/domain"
)

// IncidentSheet is the worksheet name of exported workbooks
const IncidentSheet = "Incidents"

// WriteDatasetXLSX writes ds as a single-sheet workbook. Numeric columns are
// stored as numbers so spreadsheet formulas work on them.
func WriteDatasetXLSX(w io.Writer, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), IncidentSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(IncidentSheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	header := make([]interface{}, 0, len(ds.Columns()))
	for _, c := range ds.Columns() {
		header = append(header, c)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, inc := range ds.Incidents() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, incidentRow(inc)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func incidentRow(inc domain.Incident) []interface{} {
	return []interface{}{
		inc.ID,
		string(inc.Priority),
		inc.ResolutionMinutes,
		inc.EventType,
		inc.IsAuthorizedChange,
		string(inc.RiskCriticality),
		inc.MaturityLevel,
		inc.RegistrationDate.Format(domain.DateLayout),
	}
}

// ParseFormat maps a format name or file extension to a Format
func ParseFormat(s string) (Format, error) {
	switch s {
	case "csv", ".csv":
		return FormatCSV, nil
	case "xlsx", ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown export format %s", strconv.Quote(s))
}
