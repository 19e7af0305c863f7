// Package exporter writes incident datasets as CSV or XLSX.
//
// CSV output is deterministic: the same dataset always produces the same
// bytes, which is what makes seeded generation checkable end to end.
//
// Example usage:
//
//	var buf bytes.Buffer
//	if err := exporter.WriteDatasetCSV(&buf, ds, exporter.CSVOptions{}); err != nil {
//	    return err
//	}
//
//	err := exporter.WriteFile("out/incidents.xlsx", ds)
package exporter
