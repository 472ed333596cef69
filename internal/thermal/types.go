package thermal

import (
	"slices"
	"sort"

	apperrors "fluxcard/internal/errors"
)

// Parameter names populated from the input files
const (
	HeatLossRatio = "heat_loss_ratio"

	HeaterWidth           = "heater.width"
	HeaterWidthError      = "heater.width_error"
	HeaterThickness       = "heater.thickness"
	HeaterThicknessError  = "heater.thickness_error"
	PeltierWidth          = "peltier.width"
	PeltierWidthError     = "peltier.width_error"
	PeltierThickness      = "peltier.thickness"
	PeltierThicknessError = "peltier.thickness_error"

	HeaterPositions        = "heater.positions"
	HeaterPositionErrors   = "heater.position_errors"
	HeaterTemperatures     = "heater.temperatures"
	HeaterTemperatureErrs  = "heater.temperature_errors"
	HeaterDifferences      = "heater.differences"
	HeaterDifferenceErrs   = "heater.difference_errors"
	PeltierPositions       = "peltier.positions"
	PeltierPositionErrors  = "peltier.position_errors"
	PeltierTemperatures    = "peltier.temperatures"
	PeltierTemperatureErrs = "peltier.temperature_errors"
	PeltierDifferences     = "peltier.differences"
	PeltierDifferenceErrs  = "peltier.difference_errors"

	ExperimentName  = "experiment.name"
	ExperimentTitle = "experiment.title"
	ExperimentDate  = "experiment.date"
	DatacardHeader  = "datacard.header"
)

// Derived quantity names
const (
	QuantityHeaterFlux         = "heater_flux"
	QuantityPeltierFlux        = "peltier_flux"
	QuantityAverageFlux        = "average_flux"
	QuantityHeaterFluxError    = "heater_flux_error"
	QuantityPeltierFluxError   = "peltier_flux_error"
	QuantityAverageFluxError   = "average_flux_error"
	QuantityHotEndTemperature  = "hot_end_temperature"
	QuantityHotEndError        = "hot_end_temperature_error"
	QuantityColdEndTemperature = "cold_end_temperature"
	QuantityColdEndError       = "cold_end_temperature_error"
	QuantityDeltaT             = "delta_t"
	QuantityDeltaTError        = "delta_t_error"
	QuantityFluxLossError      = "flux_loss_error"
	QuantityFluxImbalanceError = "flux_imbalance_error"
	QuantityFluxError          = "flux_error"
	QuantityHeaterPower        = "heater_power"
	QuantityHeaterPowerError   = "heater_power_error"
	QuantityPeltierPower       = "peltier_power"
	QuantityPeltierPowerError  = "peltier_power_error"
)

// Parameters holds the named inputs parsed for one sample. A name maps to
// exactly one of a scalar, a numeric sequence or a text value.
type Parameters struct {
	scalars map[string]float64
	vectors map[string][]float64
	texts   map[string]string
}

// NewParameters returns an empty parameter set
func NewParameters() *Parameters {
	return &Parameters{
		scalars: make(map[string]float64),
		vectors: make(map[string][]float64),
		texts:   make(map[string]string),
	}
}

// SetScalar stores a scalar quantity
func (p *Parameters) SetScalar(name string, v float64) {
	delete(p.vectors, name)
	delete(p.texts, name)
	p.scalars[name] = v
}

// SetVector stores a copy of a numeric sequence
func (p *Parameters) SetVector(name string, v []float64) {
	delete(p.scalars, name)
	delete(p.texts, name)
	p.vectors[name] = slices.Clone(v)
}

// SetText stores a text value
func (p *Parameters) SetText(name, v string) {
	delete(p.scalars, name)
	delete(p.vectors, name)
	p.texts[name] = v
}

// Scalar returns the named scalar or a MISSING_QUANTITY error
func (p *Parameters) Scalar(name string) (float64, error) {
	v, ok := p.scalars[name]
	if !ok {
		return 0, apperrors.NewMissingQuantityError(name)
	}
	return v, nil
}

// Vector returns a copy of the named sequence or a MISSING_QUANTITY error
func (p *Parameters) Vector(name string) ([]float64, error) {
	v, ok := p.vectors[name]
	if !ok {
		return nil, apperrors.NewMissingQuantityError(name)
	}
	return slices.Clone(v), nil
}

// Text returns the named text value and whether it was set
func (p *Parameters) Text(name string) (string, bool) {
	v, ok := p.texts[name]
	return v, ok
}

// Has reports whether any value is stored under name
func (p *Parameters) Has(name string) bool {
	if _, ok := p.scalars[name]; ok {
		return true
	}
	if _, ok := p.vectors[name]; ok {
		return true
	}
	_, ok := p.texts[name]
	return ok
}

// Names returns all stored names, sorted
func (p *Parameters) Names() []string {
	names := make([]string, 0, len(p.scalars)+len(p.vectors)+len(p.texts))
	for k := range p.scalars {
		names = append(names, k)
	}
	for k := range p.vectors {
		names = append(names, k)
	}
	for k := range p.texts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Quantities maps derived-quantity names to values
type Quantities map[string]float64

// Get returns the named quantity or a MISSING_QUANTITY error
func (q Quantities) Get(name string) (float64, error) {
	v, ok := q[name]
	if !ok {
		return 0, apperrors.NewMissingQuantityError(name)
	}
	return v, nil
}

// Clone returns an independent copy
func (q Quantities) Clone() Quantities {
	out := make(Quantities, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}
