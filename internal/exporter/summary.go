package exporter

import (
	"gonum.org/v1/gonum/stat"

	"fluxcard/internal/operations"
	"fluxcard/internal/thermal"
)

// summaryQuantities are the per-sample values exported, in column order
var summaryQuantities = []string{
	thermal.QuantityHeaterFlux,
	thermal.QuantityHeaterFluxError,
	thermal.QuantityPeltierFlux,
	thermal.QuantityPeltierFluxError,
	thermal.QuantityAverageFlux,
	thermal.QuantityAverageFluxError,
	thermal.QuantityFluxLossError,
	thermal.QuantityFluxImbalanceError,
	thermal.QuantityHotEndTemperature,
	thermal.QuantityHotEndError,
	thermal.QuantityColdEndTemperature,
	thermal.QuantityColdEndError,
	thermal.QuantityDeltaT,
	thermal.QuantityDeltaTError,
	thermal.QuantityHeaterPower,
	thermal.QuantityPeltierPower,
}

// SummaryHeaders returns the column names of the per-sample summary
func SummaryHeaders() []string {
	headers := []string{"run_id", "group", "location", "experiment", "status", "failed_step"}
	headers = append(headers, summaryQuantities...)
	return append(headers, "error")
}

// SummaryRecords returns one CSV record per sample in report order
func SummaryRecords(report *operations.RunReport) [][]string {
	records := make([][]string, 0, len(report.Samples))
	for _, s := range report.Samples {
		record := []string{
			report.RunID,
			formatInt(s.Group),
			s.Location,
			s.Experiment,
			string(s.Status),
			s.FailedStep,
		}
		for _, name := range summaryQuantities {
			record = append(record, formatQuantity(s.Quantities, name))
		}
		records = append(records, append(record, s.Error))
	}
	return records
}

// GroupSummary aggregates the completed samples of one sample group
type GroupSummary struct {
	Group           int
	Samples         int
	Completed       int
	Failed          int
	MeanAverageFlux float64
	StdAverageFlux  float64
	MeanDeltaT      float64
	MeanFluxError   float64
	FirstLocation   string
}

// GroupSummaries groups the samples of report by sample group, in the order
// groups first appear.
func GroupSummaries(report *operations.RunReport) []GroupSummary {
	index := make(map[int]int)
	var groups []GroupSummary
	var fluxes [][]float64

	for _, s := range report.Samples {
		i, ok := index[s.Group]
		if !ok {
			i = len(groups)
			index[s.Group] = i
			groups = append(groups, GroupSummary{Group: s.Group, FirstLocation: s.Location})
			fluxes = append(fluxes, nil)
		}
		g := &groups[i]
		g.Samples++
		if !s.Succeeded() {
			g.Failed++
			continue
		}
		g.Completed++
		fluxes[i] = append(fluxes[i], s.Quantities[thermal.QuantityAverageFlux])
		g.MeanDeltaT += s.Quantities[thermal.QuantityDeltaT]
		g.MeanFluxError += s.Quantities[thermal.QuantityFluxError]
	}

	for i := range groups {
		g := &groups[i]
		if g.Completed == 0 {
			continue
		}
		n := float64(g.Completed)
		g.MeanDeltaT /= n
		g.MeanFluxError /= n
		g.MeanAverageFlux, g.StdAverageFlux = meanStd(fluxes[i])
	}
	return groups
}

// meanStd returns the mean and sample standard deviation
func meanStd(xs []float64) (float64, float64) {
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}
