package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"fluxcard/internal/operations"
)

// Workbook sheet names
const (
	SheetSummary = "Summary"
	SheetFits    = "Fits"
	SheetGroups  = "Groups"
)

var (
	fitHeaders = []string{
		"location", "fit", "intercept", "intercept_error", "slope", "slope_error",
		"covariance", "chi2", "ndf", "points", "iterations", "converged",
	}
	groupHeaders = []string{
		"group", "first_location", "samples", "completed", "failed",
		"mean_average_flux", "std_average_flux", "mean_delta_t", "mean_flux_error",
	}
)

// WorkbookWriter exports run reports as spreadsheets
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a new workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger}
}

// WriteSummaryWorkbook writes the Summary, Fits and Groups sheets to filePath
func (w *WorkbookWriter) WriteSummaryWorkbook(filePath string, report *operations.RunReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetFits, SheetGroups} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummarySheet(f, report, bold); err != nil {
		return err
	}
	fitRows, err := writeFitsSheet(f, report, bold)
	if err != nil {
		return err
	}
	groups, err := writeGroupsSheet(f, report, bold)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Info("Workbook written",
		slog.String("file_path", filePath),
		slog.Int("samples", len(report.Samples)),
		slog.Int("fits", fitRows),
		slog.Int("groups", groups))
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

// writeSummarySheet stores numbers as numeric cells; quantities a sample
// did not produce stay empty.
func writeSummarySheet(f *excelize.File, report *operations.RunReport, style int) error {
	if err := writeHeader(f, SheetSummary, SummaryHeaders(), style); err != nil {
		return err
	}
	for i, s := range report.Samples {
		values := []interface{}{report.RunID, s.Group, s.Location, s.Experiment, string(s.Status), s.FailedStep}
		for _, name := range summaryQuantities {
			if v, ok := s.Quantities[name]; ok {
				values = append(values, v)
			} else {
				values = append(values, nil)
			}
		}
		values = append(values, s.Error)
		if err := writeRow(f, SheetSummary, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func writeFitsSheet(f *excelize.File, report *operations.RunReport, style int) (int, error) {
	if err := writeHeader(f, SheetFits, fitHeaders, style); err != nil {
		return 0, err
	}
	rowNum := 2
	for _, s := range report.Samples {
		for _, fit := range s.Fits {
			values := []interface{}{
				s.Location, fit.Name,
				fit.Intercept.Value, fit.Intercept.Error,
				fit.Slope.Value, fit.Slope.Error,
				fit.Covariance, fit.ChiSquare, fit.NDF, fit.Points, fit.Iterations, fit.Converged,
			}
			if err := writeRow(f, SheetFits, rowNum, values); err != nil {
				return 0, err
			}
			rowNum++
		}
	}
	return rowNum - 2, nil
}

func writeGroupsSheet(f *excelize.File, report *operations.RunReport, style int) (int, error) {
	if err := writeHeader(f, SheetGroups, groupHeaders, style); err != nil {
		return 0, err
	}
	groups := GroupSummaries(report)
	for i, g := range groups {
		values := []interface{}{
			g.Group, g.FirstLocation, g.Samples, g.Completed, g.Failed,
			g.MeanAverageFlux, g.StdAverageFlux, g.MeanDeltaT, g.MeanFluxError,
		}
		if err := writeRow(f, SheetGroups, i+2, values); err != nil {
			return 0, err
		}
	}
	return len(groups), nil
}
