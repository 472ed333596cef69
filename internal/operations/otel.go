package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"fluxcard/internal/infrastructure"
	"fluxcard/internal/thermal"
)

// OperationTracer provides OpenTelemetry instrumentation for batch runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.AnalysisMetrics
}

// NewOperationTracer creates a tracer backed by the given providers
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	metrics, err := infrastructure.CreateAnalysisMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis metrics: %w", err)
	}
	return &OperationTracer{
		tracer:  providers.Tracer,
		metrics: metrics,
	}, nil
}

// NewNoopOperationTracer returns a tracer that records nothing
func NewNoopOperationTracer() *OperationTracer {
	t, _ := NewOperationTracer(&infrastructure.OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(infrastructure.MeterName),
	})
	return t
}

// TraceRun creates a span for a whole batch run
func (ot *OperationTracer) TraceRun(ctx context.Context, runID string, samples, workers int) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, "fluxcard.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.samples", samples),
			attribute.Int("run.workers", workers),
		),
	)
}

// RecordRunCompletion closes out the run span
func (ot *OperationTracer) RecordRunCompletion(span trace.Span, completed, failed int, duration time.Duration) {
	span.SetAttributes(
		attribute.Int("run.completed", completed),
		attribute.Int("run.failed", failed),
		attribute.Float64("run.duration_seconds", duration.Seconds()),
	)
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d samples failed", failed))
	} else {
		span.SetStatus(codes.Ok, "all samples analysed")
	}
}

// TraceSample creates a span for one sample directory
func (ot *OperationTracer) TraceSample(ctx context.Context, runID string, group int, location string) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, "fluxcard.sample",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("sample.group", group),
			attribute.String("sample.location", location),
		),
	)
}

// RecordSampleCompletion records sample metrics and closes out its span
func (ot *OperationTracer) RecordSampleCompletion(ctx context.Context, span trace.Span, result SampleResult) {
	status := attribute.String("status", string(result.Status))
	ot.metrics.SamplesAnalyzed.Add(ctx, 1, metric.WithAttributes(status))

	span.SetAttributes(
		attribute.String("sample.status", string(result.Status)),
		attribute.Float64("sample.duration_seconds", result.Duration.Seconds()),
	)

	for _, fit := range result.Fits {
		attrs := metric.WithAttributes(attribute.String("fit", fit.Name))
		ot.metrics.FitIterations.Record(ctx, int64(fit.Iterations), attrs)
		ot.metrics.FitChiSquare.Record(ctx, fit.ReducedChiSquare(), attrs)
	}

	if !result.Succeeded() {
		ot.metrics.SampleFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step", result.FailedStep),
		))
		span.SetStatus(codes.Error, result.Error)
		return
	}

	if avg, ok := result.Quantities[thermal.QuantityAverageFlux]; ok {
		ot.metrics.AverageFlux.Record(ctx, avg)
		span.SetAttributes(attribute.Float64("sample.average_flux", avg))
	}
	span.SetStatus(codes.Ok, "sample analysed")
}

// TraceStep creates a span for a single step of a sample
func (ot *OperationTracer) TraceStep(ctx context.Context, stepID string) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, fmt.Sprintf("fluxcard.step.%s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("step.id", stepID)),
	)
}

// RecordStepCompletion records the step duration and outcome
func (ot *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "step completed")
	}

	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	ot.metrics.StepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("step", stepID),
		attribute.String("status", status),
	))
}
