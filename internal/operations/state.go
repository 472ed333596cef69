package operations

import (
	"sync"
	"time"

	"fluxcard/internal/config"
	"fluxcard/internal/thermal"
)

// SampleState is the runtime state of one sample passing through the steps.
// Each sample is owned by a single worker.
type SampleState struct {
	mu sync.RWMutex

	RunID     string
	Ref       config.SampleRef
	Analyzer  *thermal.Analyzer
	Status    SampleStatus
	StartTime time.Time
	EndTime   *time.Time
	Error     error

	steps map[string]*StepState
	order []string
}

// NewSampleState creates the state for ref with one pending entry per step
func NewSampleState(runID string, ref config.SampleRef, analyzer *thermal.Analyzer, steps []Step) *SampleState {
	s := &SampleState{
		RunID:    runID,
		Ref:      ref,
		Analyzer: analyzer,
		Status:   SampleStatusPending,
		steps:    make(map[string]*StepState, len(steps)),
	}
	for _, step := range steps {
		s.steps[step.ID()] = NewStepState(step.ID(), step.Name())
		s.order = append(s.order, step.ID())
	}
	return s
}

// Start marks the sample as running
func (s *SampleState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = SampleStatusRunning
	s.StartTime = time.Now()
}

// Complete marks the sample as completed
func (s *SampleState) Complete() {
	s.finish(SampleStatusCompleted, nil)
}

// Fail marks the sample as failed
func (s *SampleState) Fail(err error) {
	s.finish(SampleStatusFailed, err)
}

// Cancel marks the sample as cancelled
func (s *SampleState) Cancel(err error) {
	s.finish(SampleStatusCancelled, err)
}

func (s *SampleState) finish(status SampleStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if s.StartTime.IsZero() {
		s.StartTime = now
	}
	s.EndTime = &now
	s.Status = status
	s.Error = err
}

// GetStage returns the state of a specific Step
func (s *SampleState) GetStage(stepID string) *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps[stepID]
}

// SkipRemaining marks every pending step as skipped
func (s *SampleState) SkipRemaining(reason string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if st := s.steps[id]; st.GetStatus() == StepStatusPending {
			st.Skip(reason)
		}
	}
}

// Duration returns the duration of the sample analysis
func (s *SampleState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.StartTime.IsZero() {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// Result builds the summary reported for this sample
func (s *SampleState) Result() SampleResult {
	duration := s.Duration()

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := SampleResult{
		Group:    s.Ref.Group,
		Location: s.Ref.Location,
		Status:   s.Status,
		Duration: duration,
		Steps:    make(map[string]StepStatus, len(s.steps)),
	}
	for _, id := range s.order {
		st := s.steps[id]
		status := st.GetStatus()
		result.Steps[id] = status
		if status == StepStatusFailed && result.FailedStep == "" {
			result.FailedStep = id
		}
	}
	if s.Error != nil {
		result.Error = s.Error.Error()
	}
	if s.Analyzer != nil {
		result.Experiment = s.Analyzer.ExperimentName()
		result.Quantities = s.Analyzer.Quantities()
		result.Fits = s.Analyzer.Fits()
		if result.Steps[StageIDWriteOutput] == StepStatusCompleted {
			result.DatacardPath = s.Analyzer.DatacardPath()
		}
	}
	return result
}
