package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fluxcard/internal/config"
	"fluxcard/internal/infrastructure"
	"fluxcard/internal/thermal"
)

// Manager runs the analysis steps over a batch of sample directories
type Manager struct {
	registry *Registry
	config   *Config
	tracer   *OperationTracer
	logger   *slog.Logger
	base     *slog.Logger
}

// NewManager creates a new batch manager with dependency injection
func NewManager(registry *Registry, cfg *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewAnalysisRegistry()
	}
	if cfg == nil {
		cfg = NewConfig()
	}
	if tracer == nil {
		tracer = NewNoopOperationTracer()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Manager{
		registry: registry,
		config:   cfg,
		tracer:   tracer,
		logger:   infrastructure.WithComponent(logger, "operations"),
		base:     logger,
	}
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Run analyses every sample. A failing sample never stops the others; the
// returned error is non-nil only when the run itself could not proceed or
// ctx was cancelled.
func (m *Manager) Run(ctx context.Context, samples []config.SampleRef) (*RunReport, error) {
	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, NewFatalError("invalid step registry", err)
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	runID := infrastructure.GetTraceID(ctx)
	report := &RunReport{
		RunID:     runID,
		StartTime: time.Now(),
		Samples:   make([]SampleResult, len(samples)),
	}

	workers := m.config.Workers
	if workers < 1 {
		workers = 1
	}

	ctx, span := m.tracer.TraceRun(ctx, runID, len(samples), workers)
	defer span.End()

	m.logger.InfoContext(ctx, "run_started",
		slog.String("run_id", runID),
		slog.Int("samples", len(samples)),
		slog.Int("workers", workers))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, ref := range samples {
		if ctx.Err() != nil {
			report.Samples[i] = m.cancelledResult(runID, ref, steps, ctx.Err())
			continue
		}
		g.Go(func() error {
			report.Samples[i] = m.runSample(ctx, runID, ref, steps)
			return nil
		})
	}
	_ = g.Wait()

	report.EndTime = time.Now()
	completed, failed := report.Counts()
	m.tracer.RecordRunCompletion(span, completed, failed, report.Duration())

	m.logger.InfoContext(ctx, "run_finished",
		slog.String("run_id", runID),
		slog.Int("completed", completed),
		slog.Int("failed", failed),
		slog.Duration("duration", report.Duration()))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run cancelled: %w", err)
	}
	return report, nil
}

// runSample executes the steps in order for one sample. The first failing
// step fails the sample and the remaining steps are skipped.
func (m *Manager) runSample(ctx context.Context, runID string, ref config.SampleRef, steps []Step) SampleResult {
	ctx, span := m.tracer.TraceSample(ctx, runID, ref.Group, ref.Location)
	defer span.End()

	if m.config.SampleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.SampleTimeout)
		defer cancel()
	}

	logger := m.logger.With(slog.String("run_id", runID), slog.String("sample", ref.Location))
	analyzer := thermal.NewAnalyzer(ref.Location, m.config.Analysis, m.base.With(slog.String("run_id", runID)))
	state := NewSampleState(runID, ref, analyzer, steps)
	state.Start()

	logger.InfoContext(ctx, "sample_started", slog.Int("group", ref.Group))

	var sampleErr error
	for i, step := range steps {
		stepState := state.GetStage(step.ID())

		if err := ctx.Err(); err != nil {
			sampleErr = m.classify(err, step.ID(), ref.Location)
			break
		}

		stepState.Start()
		stepCtx, stepSpan := m.tracer.TraceStep(ctx, step.ID())
		start := time.Now()
		err := step.Execute(stepCtx, state)
		duration := time.Since(start)
		m.tracer.RecordStepCompletion(stepCtx, stepSpan, step.ID(), duration, err)
		stepSpan.End()

		if err != nil {
			stepState.Fail(err)
			sampleErr = m.classify(err, step.ID(), ref.Location)
			logger.ErrorContext(ctx, "step_failed",
				slog.String("step", step.ID()),
				slog.Int("step_number", i+1),
				slog.Int("total_steps", len(steps)),
				slog.Duration("duration", duration),
				slog.String("error", err.Error()))
			break
		}

		stepState.Complete()
		logger.DebugContext(ctx, "step_completed",
			slog.String("step", step.ID()),
			slog.Duration("duration", duration))
	}

	switch {
	case sampleErr == nil:
		state.Complete()
	case GetErrorType(sampleErr) == ErrorTypeCancellation:
		state.SkipRemaining("run cancelled")
		state.Cancel(sampleErr)
	default:
		state.SkipRemaining(fmt.Sprintf("previous step failed: %v", sampleErr))
		state.Fail(sampleErr)
	}

	result := state.Result()
	m.tracer.RecordSampleCompletion(ctx, span, result)

	if result.Succeeded() {
		logger.InfoContext(ctx, "sample_completed",
			slog.String("experiment", result.Experiment),
			slog.Float64("average_flux", result.Quantities[thermal.QuantityAverageFlux]),
			slog.Duration("duration", result.Duration))
	} else {
		logger.WarnContext(ctx, "sample_failed",
			slog.String("status", string(result.Status)),
			slog.String("failed_step", result.FailedStep),
			slog.String("error", result.Error))
	}
	return result
}

// classify maps a step error onto an OperationError
func (m *Manager) classify(err error, stepID, sample string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(stepID, sample, m.config.SampleTimeout.String(), err)
	case errors.Is(err, context.Canceled):
		return NewCancellationError(stepID, sample)
	default:
		return NewExecutionError(stepID, sample, err)
	}
}

func (m *Manager) cancelledResult(runID string, ref config.SampleRef, steps []Step, err error) SampleResult {
	state := NewSampleState(runID, ref, nil, steps)
	state.SkipRemaining("run cancelled")
	state.Cancel(NewCancellationError("", ref.Location))
	m.logger.Warn("sample_not_started",
		slog.String("run_id", runID),
		slog.String("sample", ref.Location),
		slog.String("reason", err.Error()))
	return state.Result()
}
