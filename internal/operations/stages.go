package operations

import (
	"context"
	"fmt"
)

// ReadInputsStage parses the sample's input files
type ReadInputsStage struct {
	BaseStage
}

// NewReadInputsStage creates the input parsing step
func NewReadInputsStage() *ReadInputsStage {
	return &ReadInputsStage{BaseStage: NewBaseStage(StageIDReadInputs, StageNameReadInputs, nil)}
}

// Execute reads Input_parameters.txt and Input_temperatures.txt
func (s *ReadInputsStage) Execute(ctx context.Context, state *SampleState) error {
	if err := requireAnalyzer(state); err != nil {
		return err
	}
	return state.Analyzer.ReadInputFiles(ctx)
}

// FitProbesStage fits the thermistor lines
type FitProbesStage struct {
	BaseStage
}

// NewFitProbesStage creates the probe fitting step
func NewFitProbesStage() *FitProbesStage {
	return &FitProbesStage{BaseStage: NewBaseStage(StageIDFitProbes, StageNameFitProbes, []string{StageIDReadInputs})}
}

// Execute fits every configured probe
func (s *FitProbesStage) Execute(ctx context.Context, state *SampleState) error {
	if err := requireAnalyzer(state); err != nil {
		return err
	}
	return state.Analyzer.FitProbes(ctx)
}

// FluxStage derives fluxes and end temperatures from the fits
type FluxStage struct {
	BaseStage
}

// NewFluxStage creates the flux calculation step
func NewFluxStage() *FluxStage {
	return &FluxStage{BaseStage: NewBaseStage(StageIDFlux, StageNameFlux, []string{StageIDFitProbes})}
}

// Execute calculates flux and temperatures
func (s *FluxStage) Execute(ctx context.Context, state *SampleState) error {
	if err := requireAnalyzer(state); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return state.Analyzer.CalculateFluxAndTemperatures()
}

// FluxErrorsStage propagates the flux uncertainties
type FluxErrorsStage struct {
	BaseStage
}

// NewFluxErrorsStage creates the error propagation step
func NewFluxErrorsStage() *FluxErrorsStage {
	return &FluxErrorsStage{BaseStage: NewBaseStage(StageIDFluxErrors, StageNameFluxErrors, []string{StageIDFlux})}
}

// Execute calculates the flux errors
func (s *FluxErrorsStage) Execute(ctx context.Context, state *SampleState) error {
	if err := requireAnalyzer(state); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return state.Analyzer.CalculateFluxErrors()
}

// WriteOutputStage writes the datacard
type WriteOutputStage struct {
	BaseStage
}

// NewWriteOutputStage creates the datacard step
func NewWriteOutputStage() *WriteOutputStage {
	return &WriteOutputStage{BaseStage: NewBaseStage(StageIDWriteOutput, StageNameWriteOutput, []string{StageIDFluxErrors})}
}

// Execute writes Output_datacard.txt
func (s *WriteOutputStage) Execute(ctx context.Context, state *SampleState) error {
	if err := requireAnalyzer(state); err != nil {
		return err
	}
	return state.Analyzer.WriteOutput(ctx)
}

func requireAnalyzer(state *SampleState) error {
	if state == nil || state.Analyzer == nil {
		return fmt.Errorf("sample state has no analyzer")
	}
	return nil
}

// NewAnalysisRegistry returns a registry holding the five analysis steps
func NewAnalysisRegistry() *Registry {
	r := NewRegistry()
	for _, step := range []Step{
		NewReadInputsStage(),
		NewFitProbesStage(),
		NewFluxStage(),
		NewFluxErrorsStage(),
		NewWriteOutputStage(),
	} {
		// IDs are unique and non-empty
		_ = r.Register(step)
	}
	return r
}
