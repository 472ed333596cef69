package thermal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	apperrors "fluxcard/internal/errors"
	"fluxcard/internal/infrastructure"
)

// Analyzer runs the read, fit, compute and write stages for one sample
// directory. It is not safe for concurrent use.
type Analyzer struct {
	location   string
	opts       Options
	logger     *slog.Logger
	params     *Parameters
	fits       map[string]FitResult
	quantities Quantities
}

// NewAnalyzer creates an analyzer for the sample directory at location
func NewAnalyzer(location string, opts Options, logger *slog.Logger) *Analyzer {
	if len(opts.Probes) == 0 {
		opts.Probes = DefaultProbes()
	}
	return &Analyzer{
		location:   location,
		opts:       opts,
		logger:     infrastructure.WithComponent(logger, "analyzer").With(slog.String("sample", location)),
		params:     NewParameters(),
		fits:       make(map[string]FitResult),
		quantities: make(Quantities),
	}
}

// Analyze runs every stage in order and stops at the first failure
func (a *Analyzer) Analyze(ctx context.Context) error {
	if err := a.ReadInputFiles(ctx); err != nil {
		return err
	}
	if err := a.FitProbes(ctx); err != nil {
		return err
	}
	if err := a.CalculateFluxAndTemperatures(); err != nil {
		return err
	}
	if err := a.CalculateFluxErrors(); err != nil {
		return err
	}
	return a.WriteOutput(ctx)
}

// ReadInputFiles parses the parameter and temperature files
func (a *Analyzer) ReadInputFiles(ctx context.Context) error {
	a.params = NewParameters()
	a.fits = make(map[string]FitResult)
	a.quantities = make(Quantities)

	paramPath := filepath.Join(a.location, a.opts.ParameterFile)
	_, err := readKeyedFile(ctx, paramPath, ParameterKeyMap(a.opts.ConsiderHeatLoss), a.params, a.opts.Bias, a.logger)
	switch {
	case err == nil:
	case apperrors.IsType(err, apperrors.ErrTypeNotFound) && !a.opts.ConsiderHeatLoss:
		a.logger.Warn("parameter file missing, heat loss ignored", slog.String("file", paramPath))
	default:
		return err
	}
	if !a.opts.ConsiderHeatLoss {
		a.params.SetScalar(HeatLossRatio, 0)
	}

	tempPath := filepath.Join(a.location, a.opts.TemperatureFile)
	applied, err := readKeyedFile(ctx, tempPath, TemperatureKeyMap(), a.params, a.opts.Bias, a.logger)
	if err != nil {
		return err
	}

	name, _ := a.params.Text(ExperimentName)
	a.logger.Info("input files read",
		slog.Int("lines_applied", applied),
		slog.String("experiment", name))
	return nil
}

// FitProbes fits a line to each configured probe. Optional probes that
// cannot be fitted are logged and left out.
func (a *Analyzer) FitProbes(ctx context.Context) error {
	a.fits = make(map[string]FitResult)
	for _, probe := range a.opts.Probes {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := a.fitProbe(probe)
		if err != nil {
			if probe.Optional {
				a.logger.Warn("optional fit skipped",
					slog.String("fit", probe.Name),
					slog.String("error", err.Error()))
				continue
			}
			return err
		}

		a.fits[probe.Name] = result
		a.logger.Debug("probe fitted",
			slog.String("fit", probe.Name),
			slog.Float64("intercept", result.Intercept.Value),
			slog.Float64("slope", result.Slope.Value),
			slog.Float64("chi2", result.ChiSquare),
			slog.Int("ndf", result.NDF),
			slog.Int("iterations", result.Iterations),
			slog.Bool("converged", result.Converged))
		if result.Slope.AtLimit || result.Intercept.AtLimit {
			a.logger.Warn("fit parameter at limit", slog.String("fit", probe.Name))
		}
	}
	return nil
}

func (a *Analyzer) fitProbe(probe ProbeSpec) (FitResult, error) {
	points, err := probe.Points(a.params, a.opts.ThermistorDiameter)
	if err != nil {
		return FitResult{}, err
	}
	return a.opts.Fitter.Fit(probe.Name, points, probe.Intercept, probe.Slope)
}

// CalculateFluxAndTemperatures derives fluxes and the extrapolated end
// temperatures from the heater and peltier fits.
func (a *Analyzer) CalculateFluxAndTemperatures() error {
	heater, err := a.requireFit(FitHeater)
	if err != nil {
		return err
	}
	peltier, err := a.requireFit(FitPeltier)
	if err != nil {
		return err
	}

	k := a.opts.Conductivity
	q := a.quantities
	q[QuantityHeaterFlux] = Flux(k, heater.Slope.Value)
	q[QuantityHeaterFluxError] = k * heater.Slope.Error
	q[QuantityPeltierFlux] = Flux(k, peltier.Slope.Value)
	q[QuantityPeltierFluxError] = k * peltier.Slope.Error
	q[QuantityAverageFlux] = AverageFlux(q[QuantityHeaterFlux], q[QuantityPeltierFlux])

	hot, hotErr := Extrapolate(heater, a.opts.HotEndOffset)
	cold, coldErr := Extrapolate(peltier, a.opts.ColdEndOffset)
	q[QuantityHotEndTemperature] = hot
	q[QuantityHotEndError] = hotErr
	q[QuantityColdEndTemperature] = cold
	q[QuantityColdEndError] = coldErr
	q[QuantityDeltaT] = hot - cold
	q[QuantityDeltaTError] = ErrorInQuadrature(hotErr, coldErr)

	a.calculatePower(QuantityHeaterFlux, QuantityHeaterFluxError, HeaterWidth, HeaterWidthError,
		HeaterThickness, HeaterThicknessError, QuantityHeaterPower, QuantityHeaterPowerError)
	a.calculatePower(QuantityPeltierFlux, QuantityPeltierFluxError, PeltierWidth, PeltierWidthError,
		PeltierThickness, PeltierThicknessError, QuantityPeltierPower, QuantityPeltierPowerError)

	for _, v := range []float64{q[QuantityHeaterFlux], q[QuantityPeltierFlux], hot, cold} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.NewFitError(FitHeater+"/"+FitPeltier, "fit produced a non-finite value", nil)
		}
	}

	a.logger.Info("flux calculated",
		slog.Float64("heater_flux", q[QuantityHeaterFlux]),
		slog.Float64("peltier_flux", q[QuantityPeltierFlux]),
		slog.Float64("average_flux", q[QuantityAverageFlux]),
		slog.Float64("delta_t", q[QuantityDeltaT]))
	return nil
}

// calculatePower sets flux·width·thickness when the geometry was parsed
func (a *Analyzer) calculatePower(flux, fluxErr, width, widthErr, thick, thickErr, power, powerErr string) {
	w, err1 := a.params.Scalar(width)
	t, err2 := a.params.Scalar(thick)
	if err1 != nil || err2 != nil {
		return
	}
	we, _ := a.params.Scalar(widthErr)
	te, _ := a.params.Scalar(thickErr)

	f := a.quantities[flux]
	p := f * w * t
	a.quantities[power] = p
	a.quantities[powerErr] = relativeProductError(p,
		[2]float64{f, a.quantities[fluxErr]},
		[2]float64{w, we},
		[2]float64{t, te})
}

// CalculateFluxErrors combines the heat-loss and imbalance uncertainties
func (a *Analyzer) CalculateFluxErrors() error {
	avg, err := a.quantities.Get(QuantityAverageFlux)
	if err != nil {
		return err
	}
	heater, err := a.quantities.Get(QuantityHeaterFlux)
	if err != nil {
		return err
	}
	peltier, err := a.quantities.Get(QuantityPeltierFlux)
	if err != nil {
		return err
	}
	ratio, err := a.params.Scalar(HeatLossRatio)
	if err != nil {
		return err
	}

	loss := math.Abs(avg * ratio)
	imbalance := math.Abs(heater-peltier) / 2
	total := ErrorInQuadrature(loss, imbalance)

	a.quantities[QuantityFluxLossError] = loss
	a.quantities[QuantityFluxImbalanceError] = imbalance
	a.quantities[QuantityFluxError] = total
	a.quantities[QuantityAverageFluxError] = total
	return nil
}

// WriteOutput writes the datacard into the sample directory
func (a *Analyzer) WriteOutput(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	header, _ := a.params.Text(DatacardHeader)
	date, _ := a.params.Text(ExperimentDate)
	card := Datacard{
		Header:     header,
		Date:       date,
		Quantities: a.quantities,
		Fits:       a.orderedFits(),
	}
	text, err := card.Render()
	if err != nil {
		return err
	}

	path := a.DatacardPath()
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write datacard %s", path), err)
	}
	a.logger.Info("datacard written", slog.String("path", path))
	return nil
}

func (a *Analyzer) requireFit(name string) (FitResult, error) {
	fit, ok := a.fits[name]
	if !ok {
		return FitResult{}, apperrors.NewMissingQuantityError(name + " fit")
	}
	return fit, nil
}

func (a *Analyzer) orderedFits() []FitResult {
	fits := make([]FitResult, 0, len(a.fits))
	for _, probe := range a.opts.Probes {
		if fit, ok := a.fits[probe.Name]; ok {
			fits = append(fits, fit)
		}
	}
	return fits
}

// Location returns the sample directory
func (a *Analyzer) Location() string { return a.location }

// DatacardPath returns where WriteOutput writes the datacard
func (a *Analyzer) DatacardPath() string {
	return filepath.Join(a.location, a.opts.DatacardFile)
}

// Parameters returns the parsed inputs
func (a *Analyzer) Parameters() *Parameters { return a.params }

// ExperimentName returns the parsed experiment name, if any
func (a *Analyzer) ExperimentName() string {
	name, _ := a.params.Text(ExperimentName)
	return name
}

// Fit returns the named fit result
func (a *Analyzer) Fit(name string) (FitResult, bool) {
	fit, ok := a.fits[name]
	return fit, ok
}

// Fits returns the fit results in probe order
func (a *Analyzer) Fits() []FitResult { return a.orderedFits() }

// Quantities returns a copy of the derived quantities
func (a *Analyzer) Quantities() Quantities { return a.quantities.Clone() }
