package thermal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches signed decimals with an optional exponent
var numberPattern = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)

// LineInput is what a key mapping sees for one matching line
type LineInput struct {
	Line    string
	Numbers []float64
}

// Bias holds per-thermistor temperature offsets subtracted from readings.
// An empty slice means no correction.
type Bias struct {
	Heater  []float64
	Peltier []float64
}

// KeyMapping turns a line starting with Prefix into named parameters
type KeyMapping struct {
	Prefix string
	Apply  func(p *Parameters, in LineInput, bias Bias) error
}

// ExtractNumbers returns every number found in line
func ExtractNumbers(line string) ([]float64, error) {
	matches := numberPattern.FindAllString(line, -1)
	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", m, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// ParameterKeyMap returns the mappings applied to the parameter file
func ParameterKeyMap(considerHeatLoss bool) []KeyMapping {
	return []KeyMapping{
		{
			Prefix: "Heat power error from ANSYS",
			Apply: func(p *Parameters, in LineInput, _ Bias) error {
				if !considerHeatLoss {
					p.SetScalar(HeatLossRatio, 0)
					return nil
				}
				if len(in.Numbers) < 1 {
					return fmt.Errorf("expected a heat loss ratio")
				}
				p.SetScalar(HeatLossRatio, in.Numbers[0])
				return nil
			},
		},
	}
}

// TemperatureKeyMap returns the mappings applied to the temperature file.
// Every mapping whose prefix matches a line is applied.
func TemperatureKeyMap() []KeyMapping {
	return []KeyMapping{
		{Prefix: "Heater width", Apply: geometry(
			[]string{HeaterWidth, PeltierWidth},
			[]string{HeaterWidthError, PeltierWidthError})},
		{Prefix: "Heater thickness", Apply: geometry(
			[]string{HeaterThickness, PeltierThickness},
			[]string{HeaterThicknessError, PeltierThicknessError})},
		{Prefix: "# Temperature inputs", Apply: func(p *Parameters, in LineInput, _ Bias) error {
			fields := strings.Fields(in.Line)
			if len(fields) > 4 {
				p.SetText(ExperimentName, strings.Join(fields[4:], " "))
			}
			p.SetText(DatacardHeader, strings.Replace(in.Line, "Temperature inputs", "Output datacard", 1))
			p.SetText(ExperimentTitle, strings.Replace(in.Line, "# ", "", 1))
			return nil
		}},
		{Prefix: "# Experiment conducted on", Apply: func(p *Parameters, in LineInput, _ Bias) error {
			p.SetText(ExperimentDate, strings.Replace(in.Line, "# ", "", 1))
			return nil
		}},
		{Prefix: "Heater Distances", Apply: vector(HeaterPositions)},
		{Prefix: "HD Errors", Apply: vector(HeaterPositionErrors)},
		{Prefix: "Heater Temperatures", Apply: biased(HeaterTemperatures, func(b Bias) []float64 { return b.Heater }, false)},
		{Prefix: "HT Errors", Apply: vector(HeaterTemperatureErrs)},
		{Prefix: "Heater Temperature differences", Apply: biased(HeaterDifferences, func(b Bias) []float64 { return b.Heater }, true)},
		{Prefix: "HTD Errors", Apply: vector(HeaterDifferenceErrs)},
		{Prefix: "Peltier Distances", Apply: vector(PeltierPositions)},
		{Prefix: "PD Errors", Apply: vector(PeltierPositionErrors)},
		{Prefix: "Peltier Temperatures", Apply: biased(PeltierTemperatures, func(b Bias) []float64 { return b.Peltier }, false)},
		{Prefix: "PT Errors", Apply: vector(PeltierTemperatureErrs)},
		{Prefix: "Peltier Temperature differences", Apply: biased(PeltierDifferences, func(b Bias) []float64 { return b.Peltier }, true)},
		{Prefix: "PTD Errors", Apply: vector(PeltierDifferenceErrs)},
	}
}

// geometry stores value and error (first two numbers) under each name pair
func geometry(values, errs []string) func(*Parameters, LineInput, Bias) error {
	return func(p *Parameters, in LineInput, _ Bias) error {
		if len(in.Numbers) < 2 {
			return fmt.Errorf("expected value and error, found %d numbers", len(in.Numbers))
		}
		for _, name := range values {
			p.SetScalar(name, in.Numbers[0])
		}
		for _, name := range errs {
			p.SetScalar(name, in.Numbers[1])
		}
		return nil
	}
}

func vector(name string) func(*Parameters, LineInput, Bias) error {
	return func(p *Parameters, in LineInput, _ Bias) error {
		if len(in.Numbers) == 0 {
			return fmt.Errorf("no values for %s", name)
		}
		p.SetVector(name, in.Numbers)
		return nil
	}
}

// biased subtracts the thermistor bias from the readings. Differences are
// re-referenced to the first thermistor by adding its bias back.
func biased(name string, pick func(Bias) []float64, difference bool) func(*Parameters, LineInput, Bias) error {
	return func(p *Parameters, in LineInput, b Bias) error {
		if len(in.Numbers) == 0 {
			return fmt.Errorf("no values for %s", name)
		}
		bias := pick(b)
		if len(bias) == 0 {
			p.SetVector(name, in.Numbers)
			return nil
		}
		if len(bias) != len(in.Numbers) {
			return fmt.Errorf("bias has %d entries, %s has %d", len(bias), name, len(in.Numbers))
		}
		out := make([]float64, len(in.Numbers))
		for i, v := range in.Numbers {
			out[i] = v - bias[i]
			if difference {
				out[i] += bias[0]
			}
		}
		p.SetVector(name, out)
		return nil
	}
}
