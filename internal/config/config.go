package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Samples   SamplesConfig   `yaml:"samples" envconfig:"SAMPLES"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// AnalysisConfig holds the physical constants and fit settings applied to
// every sample.
type AnalysisConfig struct {
	CopperConductivity float64   `yaml:"copper_conductivity" envconfig:"COPPER_CONDUCTIVITY" validate:"gt=0"`
	ThermistorDiameter float64   `yaml:"thermistor_diameter" envconfig:"THERMISTOR_DIAMETER" validate:"gte=0"`
	FitRangeMin        float64   `yaml:"fit_range_min" envconfig:"FIT_RANGE_MIN"`
	FitRangeMax        float64   `yaml:"fit_range_max" envconfig:"FIT_RANGE_MAX" validate:"gtfield=FitRangeMin"`
	HotEndOffset       float64   `yaml:"hot_end_offset" envconfig:"HOT_END_OFFSET"`
	ColdEndOffset      float64   `yaml:"cold_end_offset" envconfig:"COLD_END_OFFSET"`
	ConsiderHeatLoss   bool      `yaml:"consider_heat_loss" envconfig:"CONSIDER_HEAT_LOSS"`
	HeaterBias         []float64 `yaml:"heater_bias" envconfig:"HEATER_BIAS"`
	PeltierBias        []float64 `yaml:"peltier_bias" envconfig:"PELTIER_BIAS"`
	MaxFitIterations   int       `yaml:"max_fit_iterations" envconfig:"MAX_FIT_ITERATIONS" validate:"min=1"`
	FitTolerance       float64   `yaml:"fit_tolerance" envconfig:"FIT_TOLERANCE" validate:"gt=0"`
}

// SamplesConfig describes where sample directories live and how their files
// are named.
type SamplesConfig struct {
	Root            string        `yaml:"root" envconfig:"ROOT"`
	Groups          [][]string    `yaml:"groups" ignored:"true" validate:"dive,dive,required"`
	ParameterFile   string        `yaml:"parameter_file" envconfig:"PARAMETER_FILE" validate:"required"`
	TemperatureFile string        `yaml:"temperature_file" envconfig:"TEMPERATURE_FILE" validate:"required"`
	DatacardFile    string        `yaml:"datacard_file" envconfig:"DATACARD_FILE" validate:"required"`
	Workers         int           `yaml:"workers" envconfig:"WORKERS" validate:"min=1"`
	SampleTimeout   time.Duration `yaml:"sample_timeout" envconfig:"SAMPLE_TIMEOUT" validate:"gte=0"`
}

// OutputConfig contains batch-level report destinations. Empty paths disable
// the corresponding report.
type OutputConfig struct {
	SummaryCSV  string `yaml:"summary_csv" envconfig:"SUMMARY_CSV"`
	SummaryXLSX string `yaml:"summary_xlsx" envconfig:"SUMMARY_XLSX"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	EnableMetrics bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load builds the configuration from defaults, an optional YAML file and
// FLUX_* environment variables, in increasing order of precedence.
// An empty path searches the usual locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct-level constraints and the bias vectors
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	a := c.Analysis
	if len(a.HeaterBias) > 0 && len(a.PeltierBias) > 0 && len(a.HeaterBias) != len(a.PeltierBias) {
		return fmt.Errorf("heater bias has %d entries but peltier bias has %d", len(a.HeaterBias), len(a.PeltierBias))
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"fluxcard.yaml",
		"configs/fluxcard.yaml",
		"../configs/fluxcard.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Analysis: AnalysisConfig{
			CopperConductivity: CopperConductivity,
			ThermistorDiameter: ThermistorDiameter,
			FitRangeMin:        FitRangeMin,
			FitRangeMax:        FitRangeMax,
			HotEndOffset:       HotEndOffset,
			ColdEndOffset:      ColdEndOffset,
			ConsiderHeatLoss:   true,
			MaxFitIterations:   DefaultMaxFitIterations,
			FitTolerance:       DefaultFitTolerance,
		},
		Samples: SamplesConfig{
			Root:            ".",
			Groups:          DefaultSampleGroups(),
			ParameterFile:   ParameterFileName,
			TemperatureFile: TemperatureFileName,
			DatacardFile:    DatacardFileName,
			Workers:         1,
			SampleTimeout:   DefaultSampleTimeout,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
			EnableMetrics: true,
		},
	}
}
