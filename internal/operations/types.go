package operations

import (
	"time"

	"fluxcard/internal/thermal"
)

// Analysis step identifiers
const (
	StageIDReadInputs  = "read_inputs"
	StageIDFitProbes   = "fit_probes"
	StageIDFlux        = "flux"
	StageIDFluxErrors  = "flux_errors"
	StageIDWriteOutput = "write_output"
)

// Analysis step names
const (
	StageNameReadInputs  = "Read Input Files"
	StageNameFitProbes   = "Fit Thermistor Probes"
	StageNameFlux        = "Calculate Flux and Temperatures"
	StageNameFluxErrors  = "Calculate Flux Errors"
	StageNameWriteOutput = "Write Datacard"
)

// SampleStatus represents the outcome of one sample
type SampleStatus string

const (
	SampleStatusPending   SampleStatus = "pending"
	SampleStatusRunning   SampleStatus = "running"
	SampleStatusCompleted SampleStatus = "completed"
	SampleStatusFailed    SampleStatus = "failed"
	SampleStatusCancelled SampleStatus = "cancelled"
)

// SampleResult summarises the analysis of one sample directory
type SampleResult struct {
	Group        int                   `json:"group"`
	Location     string                `json:"location"`
	Status       SampleStatus          `json:"status"`
	FailedStep   string                `json:"failed_step,omitempty"`
	Error        string                `json:"error,omitempty"`
	Experiment   string                `json:"experiment,omitempty"`
	DatacardPath string                `json:"datacard_path,omitempty"`
	Duration     time.Duration         `json:"duration"`
	Quantities   thermal.Quantities    `json:"quantities,omitempty"`
	Fits         []thermal.FitResult   `json:"fits,omitempty"`
	Steps        map[string]StepStatus `json:"steps"`
}

// Succeeded reports whether every step completed
func (r SampleResult) Succeeded() bool {
	return r.Status == SampleStatusCompleted
}

// RunReport is the outcome of one batch run
type RunReport struct {
	RunID     string         `json:"run_id"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Samples   []SampleResult `json:"samples"`
}

// Duration returns the wall time of the run
func (r *RunReport) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Counts returns the number of completed and failed samples. Cancelled
// samples count as failed.
func (r *RunReport) Counts() (completed, failed int) {
	for _, s := range r.Samples {
		if s.Succeeded() {
			completed++
		} else {
			failed++
		}
	}
	return completed, failed
}

// Failed returns the samples that did not complete
func (r *RunReport) Failed() []SampleResult {
	var out []SampleResult
	for _, s := range r.Samples {
		if !s.Succeeded() {
			out = append(out, s)
		}
	}
	return out
}
