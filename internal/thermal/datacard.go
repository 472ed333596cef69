package thermal

import (
	"fmt"
	"io"
	"strings"
)

// Datacard is the per-sample results summary written to the output file
type Datacard struct {
	Header     string
	Date       string
	Quantities Quantities
	Fits       []FitResult
}

type datacardLine struct {
	label    string
	value    string
	errName  string
	optional bool
}

var datacardLines = []datacardLine{
	{label: "Heater Flux", value: QuantityHeaterFlux, errName: QuantityHeaterFluxError},
	{label: "Peltier Flux", value: QuantityPeltierFlux, errName: QuantityPeltierFluxError},
	{label: "Average Flux", value: QuantityAverageFlux, errName: QuantityAverageFluxError},
	{label: "Flux Loss Error", value: QuantityFluxLossError},
	{label: "Flux Imbalance Error", value: QuantityFluxImbalanceError},
	{label: "Hot End Temperature", value: QuantityHotEndTemperature, errName: QuantityHotEndError},
	{label: "Cold End Temperature", value: QuantityColdEndTemperature, errName: QuantityColdEndError},
	{label: "Delta T", value: QuantityDeltaT, errName: QuantityDeltaTError},
	{label: "Heater Power", value: QuantityHeaterPower, errName: QuantityHeaterPowerError, optional: true},
	{label: "Peltier Power", value: QuantityPeltierPower, errName: QuantityPeltierPowerError, optional: true},
}

// Render formats the datacard. Every required quantity must be present.
func (d Datacard) Render() (string, error) {
	var b strings.Builder
	if d.Header != "" {
		b.WriteString(d.Header + "\n")
	}
	if d.Date != "" {
		b.WriteString("# " + d.Date + "\n")
	}
	b.WriteString("Thermal Resistance Analysis Results:\n")

	for _, line := range datacardLines {
		if _, ok := d.Quantities[line.value]; !ok && line.optional {
			continue
		}
		v, err := d.Quantities.Get(line.value)
		if err != nil {
			return "", err
		}
		if line.errName == "" {
			fmt.Fprintf(&b, "%s: %.4f\n", line.label, v)
			continue
		}
		e, err := d.Quantities.Get(line.errName)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s: %.4f +/- %.4f\n", line.label, v, e)
	}

	for _, fit := range d.Fits {
		fmt.Fprintf(&b, "Fit %s: intercept = %.4f +/- %.4f, slope = %.4f +/- %.4f, chi2/ndf = %.4f/%d\n",
			fit.Name, fit.Intercept.Value, fit.Intercept.Error, fit.Slope.Value, fit.Slope.Error,
			fit.ChiSquare, fit.NDF)
	}
	return b.String(), nil
}

// WriteTo renders the datacard into w
func (d Datacard) WriteTo(w io.Writer) (int64, error) {
	text, err := d.Render()
	if err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, text)
	return int64(n), err
}
