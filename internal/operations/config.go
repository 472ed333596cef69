package operations

import (
	"time"

	"fluxcard/internal/config"
	"fluxcard/internal/thermal"
)

// Config represents the batch execution configuration
type Config struct {
	// Maximum number of samples analysed at once
	Workers int

	// Upper bound on the time spent on one sample; zero disables it
	SampleTimeout time.Duration

	// Analyzer settings shared by every sample
	Analysis thermal.Options
}

// NewConfig returns the default batch configuration
func NewConfig() *Config {
	return NewConfigFromApp(config.Default())
}

// NewConfigFromApp derives the batch configuration from the application config
func NewConfigFromApp(cfg *config.Config) *Config {
	workers := cfg.Samples.Workers
	if workers < 1 {
		workers = 1
	}
	return &Config{
		Workers:       workers,
		SampleTimeout: cfg.Samples.SampleTimeout,
		Analysis:      thermal.OptionsFromConfig(cfg.Analysis, cfg.Samples),
	}
}
