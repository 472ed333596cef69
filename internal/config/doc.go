// Package config provides configuration management for fluxcard.
// It handles loading configuration from multiple sources, validation, and the
// default sample directory lists.
//
// # Configuration Sources
//
// Configuration is assembled in the following order, later sources winning:
//
//  1. Default values (Default)
//  2. YAML configuration file (-config flag, or fluxcard.yaml / configs/fluxcard.yaml)
//  3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern FLUX_<SECTION>_<FIELD>:
//
//	FLUX_LOGGING_LEVEL=debug
//	FLUX_ANALYSIS_COPPER_CONDUCTIVITY=385
//	FLUX_ANALYSIS_CONSIDER_HEAT_LOSS=false
//	FLUX_ANALYSIS_HEATER_BIAS=0.02,0.01,0,0,-0.01,0.03
//	FLUX_SAMPLES_ROOT=/data/inplane
//	FLUX_SAMPLES_WORKERS=4
//
// Sample groups can only be set from the YAML file:
//
//	samples:
//	  root: /data/inplane
//	  groups:
//	    - [INPL2/INPL2_1, INPL2/INPL2_2]
//	    - [INPL3/INPL3_1]
//
// # Validation
//
// Load validates the merged configuration with go-playground/validator
// struct tags; an invalid configuration is never returned.
package config
