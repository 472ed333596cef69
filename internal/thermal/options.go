package thermal

import (
	"fluxcard/internal/config"
)

// Options configures an Analyzer
type Options struct {
	Conductivity       float64
	ThermistorDiameter float64
	HotEndOffset       float64
	ColdEndOffset      float64
	ConsiderHeatLoss   bool
	Bias               Bias

	ParameterFile   string
	TemperatureFile string
	DatacardFile    string

	Fitter LinearFitter
	Probes []ProbeSpec
}

// DefaultOptions returns the laboratory defaults
func DefaultOptions() Options {
	cfg := config.Default()
	return OptionsFromConfig(cfg.Analysis, cfg.Samples)
}

// OptionsFromConfig maps application configuration onto analyzer options
func OptionsFromConfig(analysis config.AnalysisConfig, samples config.SamplesConfig) Options {
	return Options{
		Conductivity:       analysis.CopperConductivity,
		ThermistorDiameter: analysis.ThermistorDiameter,
		HotEndOffset:       analysis.HotEndOffset,
		ColdEndOffset:      analysis.ColdEndOffset,
		ConsiderHeatLoss:   analysis.ConsiderHeatLoss,
		Bias: Bias{
			Heater:  analysis.HeaterBias,
			Peltier: analysis.PeltierBias,
		},
		ParameterFile:   samples.ParameterFile,
		TemperatureFile: samples.TemperatureFile,
		DatacardFile:    samples.DatacardFile,
		Fitter: LinearFitter{
			RangeMin:      analysis.FitRangeMin,
			RangeMax:      analysis.FitRangeMax,
			MaxIterations: analysis.MaxFitIterations,
			Tolerance:     analysis.FitTolerance,
		},
		Probes: DefaultProbes(),
	}
}
