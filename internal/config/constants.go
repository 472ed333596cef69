package config

import "time"

// Application constants
const (
	AppName    = "fluxcard"
	AppVersion = "1.2.0"

	// EnvPrefix namespaces every environment variable, e.g. FLUX_SAMPLES_WORKERS
	EnvPrefix = "FLUX"

	// Sample directory layout
	ParameterFileName   = "Input_parameters.txt"
	TemperatureFileName = "Input_temperatures.txt"
	DatacardFileName    = "Output_datacard.txt"

	// Copper fluxmeter and thermistor geometry
	CopperConductivity = 355.0   // W/(m K)
	ThermistorDiameter = 0.00127 // m

	// Thermistor fit window and extrapolation points along the fluxmeters (m)
	FitRangeMin   = -0.005
	FitRangeMax   = 0.045
	HotEndOffset  = 0.048
	ColdEndOffset = -0.008

	DefaultMaxFitIterations = 50
	DefaultFitTolerance     = 1e-10
	DefaultSampleTimeout    = time.Minute

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogFile   = "logs/fluxcard.log"
)
