package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Input file names used by the fixtures
const (
	ParameterFileName   = "Input_parameters.txt"
	TemperatureFileName = "Input_temperatures.txt"
)

// SampleFixture describes the content of one sample directory. The default
// fixture has exact straight-line readings so fitted values are known.
type SampleFixture struct {
	Name              string
	Date              string
	HeatLossRatio     float64
	Width, WidthErr   float64
	Thick, ThickErr   float64
	Positions         []float64
	HeaterReadings    []float64
	HeaterDiffs       []float64
	PeltierReadings   []float64
	PeltierDiffs      []float64
	TemperatureError  float64
	SkipParameterFile bool
	SkipGeometry      bool
	ExtraLines        []string
}

// Fixture line values: heater T = 40 - 40x, peltier T = 20 - 36x
const (
	FixtureHeaterIntercept  = 40.0
	FixtureHeaterSlope      = -40.0
	FixturePeltierIntercept = 20.0
	FixturePeltierSlope     = -36.0
	FixtureHeatLossRatio    = 0.05
)

// DefaultSampleFixture returns a fixture whose probes lie exactly on known lines
func DefaultSampleFixture() SampleFixture {
	positions := []float64{0, 0.008, 0.016, 0.024, 0.032, 0.040}
	f := SampleFixture{
		Name:             "INPL2 sample 1",
		Date:             "Experiment conducted on 2023-05-17",
		HeatLossRatio:    FixtureHeatLossRatio,
		Width:            0.01,
		WidthErr:         0.0001,
		Thick:            0.005,
		ThickErr:         0.0001,
		Positions:        positions,
		TemperatureError: 0.05,
	}
	for _, x := range positions {
		f.HeaterReadings = append(f.HeaterReadings, FixtureHeaterIntercept+FixtureHeaterSlope*x)
		f.HeaterDiffs = append(f.HeaterDiffs, FixtureHeaterSlope*x)
		f.PeltierReadings = append(f.PeltierReadings, FixturePeltierIntercept+FixturePeltierSlope*x)
		f.PeltierDiffs = append(f.PeltierDiffs, FixturePeltierSlope*x)
	}
	return f
}

// ParameterFile renders the parameter file content
func (f SampleFixture) ParameterFile() string {
	var b strings.Builder
	b.WriteString("# Input parameters\n")
	fmt.Fprintf(&b, "Heat power error from ANSYS simulation: %s\n", formatFloat(f.HeatLossRatio))
	return b.String()
}

// TemperatureFile renders the temperature file content
func (f SampleFixture) TemperatureFile() string {
	errs := repeat(f.TemperatureError, len(f.Positions))
	posErrs := repeat(0.0005, len(f.Positions))

	var b strings.Builder
	fmt.Fprintf(&b, "# Temperature inputs for %s\n", f.Name)
	if f.Date != "" {
		fmt.Fprintf(&b, "# %s\n", f.Date)
	}
	if !f.SkipGeometry {
		fmt.Fprintf(&b, "Heater width (m): %s %s\n", formatFloat(f.Width), formatFloat(f.WidthErr))
		fmt.Fprintf(&b, "Heater thickness (m): %s %s\n", formatFloat(f.Thick), formatFloat(f.ThickErr))
	}
	writeVector(&b, "Heater Distances (m):", f.Positions)
	writeVector(&b, "HD Errors:", posErrs)
	writeVector(&b, "Heater Temperatures (C):", f.HeaterReadings)
	writeVector(&b, "HT Errors:", errs)
	writeVector(&b, "Heater Temperature differences (C):", f.HeaterDiffs)
	writeVector(&b, "HTD Errors:", errs)
	writeVector(&b, "Peltier Distances (m):", f.Positions)
	writeVector(&b, "PD Errors:", posErrs)
	writeVector(&b, "Peltier Temperatures (C):", f.PeltierReadings)
	writeVector(&b, "PT Errors:", errs)
	writeVector(&b, "Peltier Temperature differences (C):", f.PeltierDiffs)
	writeVector(&b, "PTD Errors:", errs)
	for _, line := range f.ExtraLines {
		b.WriteString(line + "\n")
	}
	return b.String()
}

// WriteSample writes the fixture files into dir, creating it if needed
func WriteSample(t *testing.T, dir string, f SampleFixture) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("create sample dir: %v", err)
	}
	if !f.SkipParameterFile {
		writeFile(t, filepath.Join(dir, ParameterFileName), f.ParameterFile())
	}
	writeFile(t, filepath.Join(dir, TemperatureFileName), f.TemperatureFile())
	return dir
}

// WriteDefaultSample writes the default fixture under root/location
func WriteDefaultSample(t *testing.T, root, location string) string {
	t.Helper()
	return WriteSample(t, filepath.Join(root, location), DefaultSampleFixture())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeVector(b *strings.Builder, label string, values []float64) {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	fmt.Fprintf(b, "%s %s\n", label, strings.Join(parts, " "))
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
