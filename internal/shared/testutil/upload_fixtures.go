package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Latin1CSV joins rows with ';' and encodes the text as ISO-8859-1
func Latin1CSV(t *testing.T, rows [][]string) []byte {
	t.Helper()

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(strings.Join(row, ";"))
		sb.WriteString("\r\n")
	}

	encoded, err := charmap.ISO8859_1.NewEncoder().String(sb.String())
	if err != nil {
		t.Fatalf("encode latin-1 fixture: %v", err)
	}
	return []byte(encoded)
}

// XLSX builds a single-sheet workbook holding rows
func XLSX(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// ProvinceRows is a small hospital export with provinces and hemoglobin values
func ProvinceRows() [][]string {
	return [][]string{
		{"Provincia", "hb_dx", "Paciente"},
		{"Pichincha", "12,5", "A"},
		{"Guayas", "11,0", "B"},
		{"Pichincha", "13,5", "C"},
		{"Manabí", "10,0", "D"},
		{"Pichincha", "", "E"},
	}
}
