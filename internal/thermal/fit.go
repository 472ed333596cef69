package thermal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "fluxcard/internal/errors"
)

// confidenceZ scales a 1σ error to a two-sided 95% interval
const confidenceZ = 1.959963984540054

// Bounds is a closed interval for a fit parameter
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in the interval
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Clamp returns v limited to the interval
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Point is one thermistor reading with its uncertainties
type Point struct {
	X, Y       float64
	XErr, YErr float64
}

// Parameter is a fitted value with its 1σ error and 95% confidence bounds
type Parameter struct {
	Value   float64
	Error   float64
	Lower   float64
	Upper   float64
	AtLimit bool
}

// FitResult describes the line T(x) = Intercept + Slope*x fitted to a probe
type FitResult struct {
	Name       string
	Intercept  Parameter
	Slope      Parameter
	Covariance float64
	ChiSquare  float64
	NDF        int
	Points     int
	Iterations int
	Converged  bool
}

// Evaluate returns the fitted temperature at x
func (r FitResult) Evaluate(x float64) float64 {
	return r.Intercept.Value + r.Slope.Value*x
}

// EvaluateError returns the 1σ error of the fitted temperature at x
func (r FitResult) EvaluateError(x float64) float64 {
	v := r.Intercept.Error*r.Intercept.Error + x*x*r.Slope.Error*r.Slope.Error + 2*x*r.Covariance
	if v < 0 {
		return 0
	}
	return math.Sqrt(v)
}

// ReducedChiSquare returns χ²/NDF, or 0 when there are no degrees of freedom
func (r FitResult) ReducedChiSquare() float64 {
	if r.NDF <= 0 {
		return 0
	}
	return r.ChiSquare / float64(r.NDF)
}

// LinearFitter fits a bounded straight line to points with errors on both axes
type LinearFitter struct {
	RangeMin      float64
	RangeMax      float64
	MaxIterations int
	Tolerance     float64
}

// Fit minimises χ² with effective variance σy² + (slope·σx)² over the points
// whose x lies in the fitter range. Each iteration solves the weighted
// problem exactly inside the parameter box.
func (f LinearFitter) Fit(name string, points []Point, intercept, slope Bounds) (FitResult, error) {
	var xs, ys, xErrs, yErrs []float64
	for _, p := range points {
		if p.X < f.RangeMin || p.X > f.RangeMax {
			continue
		}
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
		xErrs = append(xErrs, p.XErr)
		yErrs = append(yErrs, p.YErr)
	}
	if len(xs) < 2 {
		return FitResult{}, apperrors.NewFitError(name,
			fmt.Sprintf("%d points in range [%g, %g], need at least 2", len(xs), f.RangeMin, f.RangeMax), nil)
	}

	maxIter := f.MaxIterations
	if maxIter < 1 {
		maxIter = 1
	}

	a, b := intercept.Clamp(0), slope.Clamp(0)
	weights := make([]float64, len(xs))
	result := FitResult{Name: name, Points: len(xs), NDF: len(xs) - 2}

	for iter := 1; iter <= maxIter; iter++ {
		if err := effectiveWeights(weights, xErrs, yErrs, b); err != nil {
			return FitResult{}, apperrors.NewFitError(name, "invalid point errors", err)
		}
		na, nb, err := boxedLeastSquares(xs, ys, weights, intercept, slope)
		if err != nil {
			return FitResult{}, apperrors.NewFitError(name, "weighted solve failed", err)
		}
		result.Iterations = iter
		done := iter > 1 && math.Abs(na-a) <= f.Tolerance*(1+math.Abs(na)) &&
			math.Abs(nb-b) <= f.Tolerance*(1+math.Abs(nb))
		a, b = na, nb
		if done {
			result.Converged = true
			break
		}
	}

	if err := effectiveWeights(weights, xErrs, yErrs, b); err != nil {
		return FitResult{}, apperrors.NewFitError(name, "invalid point errors", err)
	}
	cov, err := covariance(xs, weights)
	if err != nil {
		return FitResult{}, apperrors.NewFitError(name, "covariance", err)
	}

	result.Intercept = newParameter(a, math.Sqrt(cov.At(0, 0)), intercept)
	result.Slope = newParameter(b, math.Sqrt(cov.At(1, 1)), slope)
	result.Covariance = cov.At(0, 1)
	result.ChiSquare = chiSquare(xs, ys, weights, a, b)
	return result, nil
}

func newParameter(v, sigma float64, limits Bounds) Parameter {
	const eps = 1e-12
	return Parameter{
		Value:   v,
		Error:   sigma,
		Lower:   v - confidenceZ*sigma,
		Upper:   v + confidenceZ*sigma,
		AtLimit: math.Abs(v-limits.Min) < eps || math.Abs(v-limits.Max) < eps,
	}
}

// effectiveWeights fills w with 1/(σy² + (slope·σx)²)
func effectiveWeights(w, xErrs, yErrs []float64, slope float64) error {
	for i := range w {
		v := yErrs[i]*yErrs[i] + slope*slope*xErrs[i]*xErrs[i]
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("point %d has variance %g", i, v)
		}
		w[i] = 1 / v
	}
	return nil
}

// boxedLeastSquares minimises Σw(y-a-bx)² with a and b inside their bounds.
// The objective is convex, so when the free minimum is outside the box the
// answer lies on an edge, where the one-dimensional minimum is clamped.
func boxedLeastSquares(xs, ys, w []float64, ab, bb Bounds) (float64, float64, error) {
	var s, sx, sy, sxx, sxy float64
	for i := range xs {
		s += w[i]
		sx += w[i] * xs[i]
		sy += w[i] * ys[i]
		sxx += w[i] * xs[i] * xs[i]
		sxy += w[i] * xs[i] * ys[i]
	}
	if det := s*sxx - sx*sx; !(det > 0) {
		return 0, 0, fmt.Errorf("singular normal matrix (det %g)", det)
	}

	a, b := stat.LinearRegression(xs, ys, w, false)
	if ab.Contains(a) && bb.Contains(b) {
		return a, b, nil
	}

	type candidate struct{ a, b float64 }
	candidates := []candidate{
		{ab.Min, bb.Clamp((sxy - ab.Min*sx) / sxx)},
		{ab.Max, bb.Clamp((sxy - ab.Max*sx) / sxx)},
		{ab.Clamp((sy - bb.Min*sx) / s), bb.Min},
		{ab.Clamp((sy - bb.Max*sx) / s), bb.Max},
	}
	best, bestQ := candidates[0], math.Inf(1)
	for _, c := range candidates {
		if q := chiSquare(xs, ys, w, c.a, c.b); q < bestQ {
			best, bestQ = c, q
		}
	}
	return best.a, best.b, nil
}

// covariance inverts the weighted normal matrix [[S, Sx], [Sx, Sxx]]
func covariance(xs, w []float64) (*mat.SymDense, error) {
	var s, sx, sxx float64
	for i := range xs {
		s += w[i]
		sx += w[i] * xs[i]
		sxx += w[i] * xs[i] * xs[i]
	}
	normal := mat.NewSymDense(2, []float64{s, sx, sx, sxx})

	var chol mat.Cholesky
	if ok := chol.Factorize(normal); !ok {
		return nil, fmt.Errorf("normal matrix is not positive definite")
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func chiSquare(xs, ys, w []float64, a, b float64) float64 {
	var chi2 float64
	for i := range xs {
		r := ys[i] - a - b*xs[i]
		chi2 += w[i] * r * r
	}
	return chi2
}

// ProbeSpec names the parameter vectors and bounds for one probe fit
type ProbeSpec struct {
	Name        string
	Positions   string
	Values      string
	Errors      string
	Intercept   Bounds
	Slope       Bounds
	Optional    bool
	Description string
}

// Probe fit names
const (
	FitHeater            = "heater"
	FitPeltier           = "peltier"
	FitHeaterDifference  = "heater_difference"
	FitPeltierDifference = "peltier_difference"
)

// DefaultProbes returns the four fits performed for every sample
func DefaultProbes() []ProbeSpec {
	slope := Bounds{Min: -50, Max: -30}
	return []ProbeSpec{
		{
			Name: FitHeater, Positions: HeaterPositions, Values: HeaterTemperatures, Errors: HeaterTemperatureErrs,
			Intercept: Bounds{Min: 0.1, Max: 50}, Slope: slope, Description: "Heater",
		},
		{
			Name: FitPeltier, Positions: PeltierPositions, Values: PeltierTemperatures, Errors: PeltierTemperatureErrs,
			Intercept: Bounds{Min: 0, Max: 30.1545}, Slope: slope, Description: "Peltier",
		},
		{
			Name: FitHeaterDifference, Positions: HeaterPositions, Values: HeaterDifferences, Errors: HeaterDifferenceErrs,
			Intercept: Bounds{Min: -0.1, Max: 0.1}, Slope: slope, Optional: true, Description: "Heater Difference",
		},
		{
			Name: FitPeltierDifference, Positions: PeltierPositions, Values: PeltierDifferences, Errors: PeltierDifferenceErrs,
			Intercept: Bounds{Min: -0.1, Max: 0.1}, Slope: slope, Optional: true, Description: "Peltier Difference",
		},
	}
}

// Points builds fit points from the probe's parameter vectors. Every point
// gets xErr as its position uncertainty.
func (s ProbeSpec) Points(p *Parameters, xErr float64) ([]Point, error) {
	xs, err := p.Vector(s.Positions)
	if err != nil {
		return nil, err
	}
	ys, err := p.Vector(s.Values)
	if err != nil {
		return nil, err
	}
	errs, err := p.Vector(s.Errors)
	if err != nil {
		return nil, err
	}
	if len(xs) != len(ys) || len(ys) != len(errs) {
		return nil, apperrors.NewFitError(s.Name,
			fmt.Sprintf("length mismatch: %d positions, %d values, %d errors", len(xs), len(ys), len(errs)), nil)
	}
	points := make([]Point, len(xs))
	for i := range xs {
		points[i] = Point{X: xs[i], Y: ys[i], XErr: xErr, YErr: errs[i]}
	}
	return points, nil
}
