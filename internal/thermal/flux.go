package thermal

import "math"

// ErrorInQuadrature returns sqrt(Σ xᵢ²); zero for no arguments
func ErrorInQuadrature(errs ...float64) float64 {
	var sum float64
	for _, e := range errs {
		sum += e * e
	}
	return math.Sqrt(sum)
}

// Flux returns the heat flux -k·slope for a temperature gradient
func Flux(conductivity, slope float64) float64 {
	return -conductivity * slope
}

// AverageFlux returns the mean of the heater and peltier fluxes
func AverageFlux(heater, peltier float64) float64 {
	return (heater + peltier) / 2
}

// Extrapolate evaluates the fitted line at x and returns the value and its
// error from the fit covariance.
func Extrapolate(fit FitResult, x float64) (float64, float64) {
	return fit.Evaluate(x), fit.EvaluateError(x)
}

// relativeProductError returns |v| times the quadrature sum of relative errors
func relativeProductError(v float64, pairs ...[2]float64) float64 {
	rel := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		if p[0] == 0 {
			continue
		}
		rel = append(rel, p[1]/p[0])
	}
	return math.Abs(v) * ErrorInQuadrature(rel...)
}
