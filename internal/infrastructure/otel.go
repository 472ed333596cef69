package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"fluxcard/internal/config"
)

const (
	ServiceName = config.AppName
	MeterName   = "fluxcard"
)

// traceOutput receives spans when the stdout trace exporter is selected
var traceOutput io.Writer = os.Stdout

// OTelProviders holds the OpenTelemetry providers for one process run.
// Disabled signals are backed by no-op implementations so callers never
// need nil checks.
type OTelProviders struct {
	Tracer   trace.Tracer
	Meter    metric.Meter
	Registry *promclient.Registry
	Logger   *slog.Logger

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// InitializeOTel sets up tracing and metrics according to cfg
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		attribute.String("service.instance.id", GenerateTraceID()),
	)

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	if err := initializeTracing(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	logger.Debug("OpenTelemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(cfg config.TelemetryConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.TraceExporter {
	case "", "none":
		return nil
	case "stdout":
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(traceOutput),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		providers.tracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
}

// initializeMetrics wires an OpenTelemetry meter to a private Prometheus
// registry so a batch run can dump its metrics as a textfile.
func initializeMetrics(res *resource.Resource, providers *OTelProviders) error {
	registry := promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.meterProvider = mp
	providers.Registry = registry
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))
	return nil
}

// WriteMetricsFile writes the collected metrics in Prometheus text format,
// suitable for the node_exporter textfile collector.
func (p *OTelProviders) WriteMetricsFile(path string) error {
	if p.Registry == nil {
		return fmt.Errorf("metrics are disabled")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	return promclient.WriteToTextfile(path, p.Registry)
}

// Shutdown flushes pending spans and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		errs = append(errs, p.tracerProvider.Shutdown(ctx))
	}
	if p.meterProvider != nil {
		errs = append(errs, p.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// AnalysisMetrics holds the instruments recorded while analysing samples
type AnalysisMetrics struct {
	SamplesAnalyzed metric.Int64Counter
	SampleFailures  metric.Int64Counter
	StepDuration    metric.Float64Histogram
	FitIterations   metric.Int64Histogram
	FitChiSquare    metric.Float64Histogram
	AverageFlux     metric.Float64Histogram
}

// CreateAnalysisMetrics creates the fluxcard instruments on meter
func CreateAnalysisMetrics(meter metric.Meter) (*AnalysisMetrics, error) {
	samplesAnalyzed, err := meter.Int64Counter(
		"fluxcard_samples_analyzed",
		metric.WithDescription("Number of sample directories processed"),
	)
	if err != nil {
		return nil, err
	}

	sampleFailures, err := meter.Int64Counter(
		"fluxcard_sample_failures",
		metric.WithDescription("Number of samples that failed a pipeline step"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"fluxcard_step_duration",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	fitIterations, err := meter.Int64Histogram(
		"fluxcard_fit_iterations",
		metric.WithDescription("Effective-variance iterations needed per probe fit"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 10, 20, 50),
	)
	if err != nil {
		return nil, err
	}

	fitChiSquare, err := meter.Float64Histogram(
		"fluxcard_fit_chi_square_per_ndf",
		metric.WithDescription("Reduced chi-square of probe fits"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 100),
	)
	if err != nil {
		return nil, err
	}

	averageFlux, err := meter.Float64Histogram(
		"fluxcard_average_flux",
		metric.WithDescription("Average heat flux per sample in W/m^2"),
		metric.WithExplicitBucketBoundaries(1000, 5000, 10000, 15000, 20000, 30000),
	)
	if err != nil {
		return nil, err
	}

	return &AnalysisMetrics{
		SamplesAnalyzed: samplesAnalyzed,
		SampleFailures:  sampleFailures,
		StepDuration:    stepDuration,
		FitIterations:   fitIterations,
		FitChiSquare:    fitChiSquare,
		AverageFlux:     averageFlux,
	}, nil
}
