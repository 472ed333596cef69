// Package thermal analyses heat flux measurements taken with a pair of copper
// fluxmeters, one on the heater side and one on the peltier side of a sample.
//
// For each sample directory the Analyzer:
//
//   - parses Input_parameters.txt and Input_temperatures.txt through
//     line-prefix key maps into Parameters
//   - fits T(x) = p0 + p1·x to each probe with bounded parameters and
//     errors on both axes
//   - derives heater, peltier and average flux as -k·p1 and extrapolates the
//     hot and cold end temperatures
//   - propagates the heat-loss and flux-imbalance uncertainties in quadrature
//   - writes Output_datacard.txt
//
// Requesting a quantity that an earlier stage did not produce returns a
// MISSING_QUANTITY error.
package thermal
