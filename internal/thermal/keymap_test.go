package thermal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNumbers(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []float64
	}{
		{"integers and decimals", "Heater width (m): 0.01 0.0001", []float64{0.01, 0.0001}},
		{"signs", "Heater Temperature differences: -0.32 +0.5 0", []float64{-0.32, 0.5, 0}},
		{"exponent", "HT Errors: 5e-2 1.5E+1", []float64{0.05, 15}},
		{"leading dot", "PD Errors: .5 -.25", []float64{0.5, -0.25}},
		{"no numbers", "# Experiment notes", []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractNumbers(tt.line)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
			assert.Len(t, got, len(tt.want))
		})
	}
}

func applyLine(t *testing.T, mappings []KeyMapping, p *Parameters, line string, bias Bias) error {
	t.Helper()
	numbers, err := ExtractNumbers(line)
	require.NoError(t, err)
	var firstErr error
	matched := false
	for _, m := range mappings {
		if len(line) >= len(m.Prefix) && line[:len(m.Prefix)] == m.Prefix {
			matched = true
			if err := m.Apply(p, LineInput{Line: line, Numbers: numbers}, bias); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	require.True(t, matched, "no mapping for %q", line)
	return firstErr
}

func TestParameterKeyMap(t *testing.T) {
	line := "Heat power error from ANSYS simulation: 0.07"

	t.Run("heat loss considered", func(t *testing.T) {
		p := NewParameters()
		require.NoError(t, applyLine(t, ParameterKeyMap(true), p, line, Bias{}))
		v, err := p.Scalar(HeatLossRatio)
		require.NoError(t, err)
		assert.InDelta(t, 0.07, v, 1e-12)
	})

	t.Run("heat loss ignored", func(t *testing.T) {
		p := NewParameters()
		require.NoError(t, applyLine(t, ParameterKeyMap(false), p, line, Bias{}))
		v, err := p.Scalar(HeatLossRatio)
		require.NoError(t, err)
		assert.Zero(t, v)
	})

	t.Run("missing number", func(t *testing.T) {
		p := NewParameters()
		assert.Error(t, applyLine(t, ParameterKeyMap(true), p, "Heat power error from ANSYS: n/a", Bias{}))
		assert.False(t, p.Has(HeatLossRatio))
	})
}

func TestTemperatureKeyMapGeometry(t *testing.T) {
	p := NewParameters()
	mappings := TemperatureKeyMap()

	require.NoError(t, applyLine(t, mappings, p, "Heater width (m): 0.012 0.0002", Bias{}))
	require.NoError(t, applyLine(t, mappings, p, "Heater thickness (m): 0.004 0.0001", Bias{}))

	for name, want := range map[string]float64{
		HeaterWidth:           0.012,
		PeltierWidth:          0.012,
		HeaterWidthError:      0.0002,
		PeltierWidthError:     0.0002,
		HeaterThickness:       0.004,
		PeltierThickness:      0.004,
		HeaterThicknessError:  0.0001,
		PeltierThicknessError: 0.0001,
	} {
		got, err := p.Scalar(name)
		require.NoError(t, err, name)
		assert.InDelta(t, want, got, 1e-12, name)
	}

	assert.Error(t, applyLine(t, mappings, NewParameters(), "Heater width (m): 0.012", Bias{}))
}

func TestTemperatureKeyMapHeaderLines(t *testing.T) {
	p := NewParameters()
	mappings := TemperatureKeyMap()

	require.NoError(t, applyLine(t, mappings, p, "# Temperature inputs for sample INPL2_1", Bias{}))
	require.NoError(t, applyLine(t, mappings, p, "# Experiment conducted on 17/05/2023", Bias{}))

	name, ok := p.Text(ExperimentName)
	require.True(t, ok)
	assert.Equal(t, "sample INPL2_1", name)

	header, _ := p.Text(DatacardHeader)
	assert.Equal(t, "# Output datacard for sample INPL2_1", header)

	title, _ := p.Text(ExperimentTitle)
	assert.Equal(t, "Temperature inputs for sample INPL2_1", title)

	date, _ := p.Text(ExperimentDate)
	assert.Equal(t, "Experiment conducted on 17/05/2023", date)
}

func TestTemperatureKeyMapBias(t *testing.T) {
	bias := Bias{
		Heater:  []float64{0.1, 0.2, 0.3},
		Peltier: []float64{-0.1, 0, 0.1},
	}
	mappings := TemperatureKeyMap()

	t.Run("temperatures subtract bias", func(t *testing.T) {
		p := NewParameters()
		require.NoError(t, applyLine(t, mappings, p, "Heater Temperatures: 30 29 28", bias))
		got, err := p.Vector(HeaterTemperatures)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{29.9, 28.8, 27.7}, got, 1e-9)
	})

	t.Run("differences are referenced to the first thermistor", func(t *testing.T) {
		p := NewParameters()
		require.NoError(t, applyLine(t, mappings, p, "Peltier Temperature differences: 0 -1 -2", bias))
		got, err := p.Vector(PeltierDifferences)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0, -1.1, -2.2}, got, 1e-9)
		assert.False(t, p.Has(PeltierTemperatures))
	})

	t.Run("empty bias leaves readings", func(t *testing.T) {
		p := NewParameters()
		require.NoError(t, applyLine(t, mappings, p, "Peltier Temperatures: 20 19", Bias{}))
		got, _ := p.Vector(PeltierTemperatures)
		assert.Equal(t, []float64{20, 19}, got)
	})

	t.Run("length mismatch", func(t *testing.T) {
		p := NewParameters()
		assert.Error(t, applyLine(t, mappings, p, "Heater Temperatures: 30 29", bias))
		assert.False(t, p.Has(HeaterTemperatures))
	})
}

func TestTemperatureKeyMapVectors(t *testing.T) {
	p := NewParameters()
	mappings := TemperatureKeyMap()

	lines := map[string]string{
		"Heater Distances (m): 0 0.01 0.02": HeaterPositions,
		"HD Errors: 0.001 0.001 0.001":      HeaterPositionErrors,
		"HT Errors: 0.05 0.05 0.05":         HeaterTemperatureErrs,
		"HTD Errors: 0.07 0.07 0.07":        HeaterDifferenceErrs,
		"PD Errors: 0.002 0.002 0.002":      PeltierPositionErrors,
		"PTD Errors: 0.08 0.08 0.08":        PeltierDifferenceErrs,
	}
	for line, name := range lines {
		require.NoError(t, applyLine(t, mappings, p, line, Bias{}))
		v, err := p.Vector(name)
		require.NoError(t, err, name)
		assert.Len(t, v, 3)
	}

	// "HT Errors" must not also feed the HTD mapping and vice versa
	herr, _ := p.Vector(HeaterTemperatureErrs)
	assert.Equal(t, 0.05, herr[0])
	hderr, _ := p.Vector(HeaterDifferenceErrs)
	assert.Equal(t, 0.07, hderr[0])
}
