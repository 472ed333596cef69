package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fluxcard/internal/config"
	"fluxcard/internal/exporter"
	"fluxcard/internal/infrastructure"
	"fluxcard/internal/shared/testutil"
)

// writeConfig writes a config file that sends logs to a file under dir
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fluxcard.yaml")
	content := fmt.Sprintf(`logging:
  level: warn
  format: text
  output: file
  file_path: %s
`, filepath.Join(dir, "logs", "fluxcard.log"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"-bogus"}, want: "flag provided but not defined"},
		{name: "positional argument", args: []string{"extra"}, want: "unexpected arguments: extra"},
		{name: "negative workers", args: []string{"-workers", "-1"}, want: "-workers must not be negative"},
		{name: "empty sample", args: []string{"-sample", " "}, want: "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestRunHelp(t *testing.T) {
	code, _, stderr := runCLI(t, "-h")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "-summary-xlsx")
}

func TestRunConfigError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  copper_conductivity: -1\n"), 0644))

	code, _, stderr := runCLI(t, "-config", path)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "CopperConductivity")

	code, _, _ = runCLI(t, "-config", filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, exitFailure, code)
}

func TestRunAnalyzesSamples(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "data")
	testutil.WriteDefaultSample(t, root, "INPL2/INPL2_1")
	testutil.WriteDefaultSample(t, root, "INPL2/INPL2_2")

	csvPath := filepath.Join(dir, "out", "summary.csv")
	xlsxPath := filepath.Join(dir, "out", "summary.xlsx")
	metricsPath := filepath.Join(dir, "out", "fluxcard.prom")

	code, stdout, stderr := runCLI(t,
		"-config", writeConfig(t, dir),
		"-root", root,
		"-sample", "INPL2/INPL2_1",
		"-sample", "INPL2/INPL2_2",
		"-workers", "2",
		"-summary-csv", csvPath,
		"-summary-xlsx", xlsxPath,
		"-metrics-file", metricsPath,
		"-strict",
	)
	require.Equal(t, exitOK, code, stderr)

	assert.Contains(t, stdout, "average flux = 13490.0000")
	assert.Contains(t, stdout, "2 completed, 0 failed")
	assert.FileExists(t, filepath.Join(root, "INPL2", "INPL2_1", config.DatacardFileName))
	assert.FileExists(t, filepath.Join(root, "INPL2", "INPL2_2", config.DatacardFileName))

	assert.FileExists(t, csvPath)

	wb, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(exporter.SheetSummary)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "fluxcard_samples_analyzed")
}

func TestRunStrictReportsFailedSamples(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "data")
	testutil.WriteDefaultSample(t, root, "INPL3/INPL3_1")
	cfgPath := writeConfig(t, dir)

	args := []string{"-config", cfgPath, "-root", root, "-sample", "INPL3/INPL3_1", "-sample", "INPL3/INPL3_9"}

	code, stdout, _ := runCLI(t, args...)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "1 completed, 1 failed")
	assert.Contains(t, stdout, "read_inputs")

	code, _, _ = runCLI(t, append(args, "-strict")...)
	assert.Equal(t, exitFailure, code)
}

func TestRunNoHeatLoss(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "data")
	f := testutil.DefaultSampleFixture()
	f.SkipParameterFile = true
	testutil.WriteSample(t, filepath.Join(root, "INPL4", "INPL4_2"), f)
	cfgPath := writeConfig(t, dir)

	args := []string{"-config", cfgPath, "-root", root, "-sample", "INPL4/INPL4_2", "-strict"}

	code, _, _ := runCLI(t, args...)
	assert.Equal(t, exitFailure, code)

	code, stdout, _ := runCLI(t, append(args, "-no-heatloss")...)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "average flux = 13490.0000 +/- 710.0000")
}

func TestRunUnwritableReport(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	code, stdout, _ := runCLI(t,
		"-config", writeConfig(t, dir),
		"-root", dir,
		"-sample", "INPL2/INPL2_1",
		"-summary-csv", filepath.Join(blocker, "summary.csv"),
	)
	assert.Equal(t, exitFailure, code)
	assert.Empty(t, stdout)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	applyFlags(cfg, &options{
		root:        "/data",
		samples:     sampleList{"A/A_1", "A/A_2"},
		workers:     3,
		noHeatLoss:  true,
		metricsFile: "m.prom",
	})

	assert.Equal(t, "/data", cfg.Samples.Root)
	assert.Equal(t, [][]string{{"A/A_1", "A/A_2"}}, cfg.Samples.Groups)
	assert.Equal(t, 3, cfg.Samples.Workers)
	assert.False(t, cfg.Analysis.ConsiderHeatLoss)
	assert.True(t, cfg.Telemetry.EnableMetrics)
	assert.Equal(t, "m.prom", cfg.Telemetry.MetricsFile)
	assert.Empty(t, cfg.Output.SummaryCSV)

	untouched := config.Default()
	applyFlags(untouched, &options{})
	assert.Equal(t, config.Default(), untouched)
}
