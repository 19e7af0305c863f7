package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gctidash/internal/shared/testutil"
)

func TestRun_Text(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run([]string{"-n-events", "120", "-seed", "5", "-anchor", "2025-06-30"}, &out, &errOut)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "120 incidents, seed 5, ending 2025-06-30")
	for _, want := range []string{"High", "Medium", "Low", "Non-compliance", "Affected"} {
		assert.Contains(t, text, want)
	}
}

func TestRun_JSONIsDeterministic(t *testing.T) {
	args := []string{"-n-events", "80", "-seed", "11", "-anchor", "2025-01-31", "-json"}

	var first, second bytes.Buffer
	require.NoError(t, run(args, &first, &bytes.Buffer{}))
	require.NoError(t, run(args, &second, &bytes.Buffer{}))
	assert.Equal(t, first.String(), second.String())

	var report Report
	require.NoError(t, json.Unmarshal(first.Bytes(), &report))
	assert.Equal(t, 80, report.NEvents)
	assert.Len(t, report.TMTI, 3)
	require.NotNil(t, report.Compliance)
	assert.Equal(t, 80, report.Compliance.NonCompliance.Total)
}

func TestRun_EmptyDataset(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-n-events", "0", "-anchor", "2025-01-31", "-json"}, &out, &bytes.Buffer{}))

	var report Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Nil(t, report.Compliance)
	assert.Zero(t, report.Impact.AffectedCount)
	for _, s := range report.TMTI {
		assert.Nil(t, s)
	}
}

func TestRun_ExportAndUpload(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "out", "incidents.csv")
	uploadPath := filepath.Join(dir, "hospital.csv")
	require.NoError(t, os.WriteFile(uploadPath, testutil.Latin1CSV(t, testutil.ProvinceRows()), 0o644))

	var out bytes.Buffer
	err := run([]string{
		"-n-events", "40", "-anchor", "2025-06-30",
		"-export", exportPath,
		"-upload", uploadPath,
	}, &out, &bytes.Buffer{})
	require.NoError(t, err)

	raw, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 41)

	text := out.String()
	assert.Contains(t, text, "hb_dx mean")
	assert.Contains(t, text, "11.75")
	assert.Contains(t, text, "Pichincha")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad anchor", []string{"-anchor", "30/06/2025"}, "invalid anchor"},
		{"negative size", []string{"-n-events", "-1", "-anchor", "2025-06-30"}, "invalid dataset options"},
		{"unknown export format", []string{"-n-events", "5", "-anchor", "2025-06-30", "-export", filepath.Join(t.TempDir(), "x.pdf")}, "export"},
		{"missing upload", []string{"-n-events", "5", "-anchor", "2025-06-30", "-upload", "/nonexistent/file.csv"}, "file.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args, &bytes.Buffer{}, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
