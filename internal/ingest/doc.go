// Package ingest reads uploaded real-world tables for cross-analysis against
// the simulated incident metrics.
//
// Two formats are accepted, chosen by file extension:
//
//	.csv   semicolon separated, ISO-8859-1 (Latin-1) encoded, header row first
//	.xlsx  first worksheet of the workbook, header row first
//
// Parse never panics and never returns a partial table: on any failure it
// returns a nil *Table and an error matching ErrParse whose message says what
// was wrong with the file. Callers keep working without the table.
//
// Geographic derives the optional province and hemoglobin breakdowns. Columns
// are looked up case-insensitively and a missing column only marks that part
// of the breakdown as unavailable.
package ingest
