package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gctidash/internal/dataset"
	apperrors "gctidash/internal/errors"
	"gctidash/internal/ingest"
	"gctidash/internal/shared/testutil"
)

func generate(t *testing.T, n int, seed uint64) *dataset.Dataset {
	t.Helper()
	opts := dataset.DefaultOptions(testutil.FixtureDate)
	opts.NEvents = n
	opts.Seed = seed
	ds, err := dataset.Generate(opts)
	require.NoError(t, err)
	return ds
}

func TestWriteDatasetCSV_ByteIdenticalForSameSeed(t *testing.T) {
	for _, n := range []int{0, 1, 250} {
		var a, b bytes.Buffer
		require.NoError(t, WriteDatasetCSV(&a, generate(t, n, 42), CSVOptions{}))
		require.NoError(t, WriteDatasetCSV(&b, generate(t, n, 42), CSVOptions{}))

		assert.Equal(t, a.Bytes(), b.Bytes(), "n=%d", n)
	}
}

func TestWriteDatasetCSV_EmptyDatasetKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDatasetCSV(&buf, generate(t, 0, 42), CSVOptions{}))

	assert.Equal(t,
		"incident_id,priority,resolution_minutes,event_type,is_authorized_change,risk_criticality,maturity_level,registration_date\n",
		buf.String())
}

func TestWriteCSV_Options(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []string{"a", "b"}, [][]string{{"1", "x;y"}}, CSVOptions{Comma: ';', BOMPrefix: true})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))
	assert.Equal(t, "a;b\n1;\"x;y\"\n", strings.TrimPrefix(buf.String(), string(utf8BOM)))
}

func TestWriteDatasetXLSX_ReadableByIngest(t *testing.T) {
	ds := generate(t, 20, 9)

	var buf bytes.Buffer
	require.NoError(t, WriteDatasetXLSX(&buf, ds))

	table, err := ingest.Parse("export.xlsx", &buf)
	require.NoError(t, err)

	assert.Equal(t, ds.Columns(), table.Columns)
	require.Equal(t, ds.Len(), table.Len())
	for i, inc := range ds.Incidents() {
		assert.Equal(t, inc.ID, table.Rows[i][0])
		assert.Equal(t, string(inc.Priority), table.Rows[i][1])
	}
}

func TestWriteFile(t *testing.T) {
	ds := generate(t, 5, 1)
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "csv", path: filepath.Join(dir, "nested", "out.csv")},
		{name: "xlsx", path: filepath.Join(dir, "out.XLSX")},
		{name: "unknown extension", path: filepath.Join(dir, "out.json"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WriteFile(tt.path, ds)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			info, err := os.Stat(tt.path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}
}

func TestWriteFile_StorageError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := WriteFile(filepath.Join(blocker, "out.csv"), generate(t, 3, 1))
	require.Error(t, err)

	typ, ok := apperrors.TypeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrTypeStorage, typ)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Contains(t, f.ContentType(), "spreadsheetml")

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", f.ContentType())

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
