// Package shared holds helpers used by tests across the dashboard packages.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler for asserting on log output
//   - incident fixtures with known priorities and authorization flags
//   - upload fixtures: Latin-1 semicolon CSV and XLSX workbooks built in memory
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    ds := testutil.Incidents(testutil.High(120), testutil.Low(600).Unauthorized())
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
//
// Nothing here is imported by production code.
package shared
