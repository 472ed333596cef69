package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fluxcard/internal/config"
	"fluxcard/internal/exporter"
	"fluxcard/internal/infrastructure"
	"fluxcard/internal/operations"
	"fluxcard/internal/thermal"
	"fluxcard/internal/validation"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// sampleList collects repeated -sample flags
type sampleList []string

func (s *sampleList) String() string { return strings.Join(*s, ",") }

func (s *sampleList) Set(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("sample location must not be empty")
	}
	*s = append(*s, v)
	return nil
}

// options holds the parsed command line
type options struct {
	configPath  string
	root        string
	samples     sampleList
	workers     int
	noHeatLoss  bool
	summaryCSV  string
	summaryXLSX string
	metricsFile string
	strict      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file (defaults to fluxcard.yaml or configs/fluxcard.yaml)")
	fs.StringVar(&opts.root, "root", "", "directory the sample locations are relative to")
	fs.Var(&opts.samples, "sample", "sample directory to analyse; repeatable, replaces the configured groups")
	fs.IntVar(&opts.workers, "workers", 0, "number of samples analysed concurrently (default from config)")
	fs.BoolVar(&opts.noHeatLoss, "no-heatloss", false, "ignore the simulated heat loss ratio")
	fs.StringVar(&opts.summaryCSV, "summary-csv", "", "write a per-sample CSV summary to this path")
	fs.StringVar(&opts.summaryXLSX, "summary-xlsx", "", "write an .xlsx summary workbook to this path")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus text metrics to this path after the run")
	fs.BoolVar(&opts.strict, "strict", false, "exit non-zero when any sample fails")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.workers < 0 {
		return nil, fmt.Errorf("-workers must not be negative, got %d", opts.workers)
	}
	return opts, nil
}

// applyFlags overlays command line settings on the loaded configuration
func applyFlags(cfg *config.Config, opts *options) {
	if opts.root != "" {
		cfg.Samples.Root = opts.root
	}
	if len(opts.samples) > 0 {
		cfg.Samples.Groups = [][]string{opts.samples}
	}
	if opts.workers > 0 {
		cfg.Samples.Workers = opts.workers
	}
	if opts.noHeatLoss {
		cfg.Analysis.ConsiderHeatLoss = false
	}
	if opts.summaryCSV != "" {
		cfg.Output.SummaryCSV = opts.summaryCSV
	}
	if opts.summaryXLSX != "" {
		cfg.Output.SummaryXLSX = opts.summaryXLSX
	}
	if opts.metricsFile != "" {
		cfg.Telemetry.MetricsFile = opts.metricsFile
		cfg.Telemetry.EnableMetrics = true
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return exitUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
		return exitFailure
	}
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s: invalid configuration: %v\n", config.AppName, err)
		return exitFailure
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "%s: failed to initialize logger: %v\n", config.AppName, err)
		return exitFailure
	}
	defer infrastructure.CloseLogFile()
	logger = infrastructure.WithComponent(logger, "cli")

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		return exitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	tracer, err := operations.NewOperationTracer(providers)
	if err != nil {
		logger.Error("Failed to create operation tracer", slog.String("error", err.Error()))
		return exitFailure
	}

	validator := validation.NewSampleValidator(logger)
	if err := validator.ValidateOutputPaths(cfg.Output.SummaryCSV, cfg.Output.SummaryXLSX, cfg.Telemetry.MetricsFile); err != nil {
		logger.Error("Report destination unusable", slog.String("error", err.Error()))
		return exitFailure
	}

	refs := cfg.Samples.SampleRefs()
	validator.CheckSamples(refs, cfg.Samples.TemperatureFile)
	logger.Info("Starting flux analysis",
		slog.String("version", config.AppVersion),
		slog.String("root", cfg.Samples.Root),
		slog.Int("samples", len(refs)),
		slog.Int("workers", cfg.Samples.Workers),
		slog.Bool("consider_heat_loss", cfg.Analysis.ConsiderHeatLoss))

	manager := operations.NewManager(nil, operations.NewConfigFromApp(cfg), tracer, logger)
	report, runErr := manager.Run(ctx, refs)
	if report == nil {
		logger.Error("Analysis run failed", slog.String("error", runErr.Error()))
		return exitFailure
	}

	printReport(stdout, report)

	code := exitOK
	if runErr != nil {
		logger.Error("Analysis run interrupted", slog.String("error", runErr.Error()))
		code = exitFailure
	}
	if err := writeReports(cfg, providers, report, logger); err != nil {
		logger.Error("Failed to write reports", slog.String("error", err.Error()))
		code = exitFailure
	}

	completed, failed := report.Counts()
	logger.Info("Flux analysis finished",
		slog.String("run_id", report.RunID),
		slog.Int("completed", completed),
		slog.Int("failed", failed),
		slog.Duration("duration", report.Duration()))

	if opts.strict && failed > 0 {
		code = exitFailure
	}
	return code
}

// writeReports writes every batch-level output enabled in cfg
func writeReports(cfg *config.Config, providers *infrastructure.OTelProviders, report *operations.RunReport, logger *slog.Logger) error {
	var errs []error
	if path := cfg.Output.SummaryCSV; path != "" {
		if err := exporter.NewCSVWriter(logger).WriteSummaryCSV(path, report); err != nil {
			errs = append(errs, fmt.Errorf("summary csv: %w", err))
		}
	}
	if path := cfg.Output.SummaryXLSX; path != "" {
		if err := exporter.NewWorkbookWriter(logger).WriteSummaryWorkbook(path, report); err != nil {
			errs = append(errs, fmt.Errorf("summary workbook: %w", err))
		}
	}
	if path := cfg.Telemetry.MetricsFile; path != "" {
		if err := providers.WriteMetricsFile(path); err != nil {
			errs = append(errs, fmt.Errorf("metrics file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// printReport writes a one-line outcome per sample followed by the totals
func printReport(w io.Writer, report *operations.RunReport) {
	for _, s := range report.Samples {
		if s.Succeeded() {
			fmt.Fprintf(w, "%-40s ok      average flux = %.4f +/- %.4f, delta T = %.4f\n",
				s.Location,
				s.Quantities[thermal.QuantityAverageFlux],
				s.Quantities[thermal.QuantityAverageFluxError],
				s.Quantities[thermal.QuantityDeltaT])
			continue
		}
		fmt.Fprintf(w, "%-40s %-7s %s: %s\n", s.Location, s.Status, s.FailedStep, s.Error)
	}
	completed, failed := report.Counts()
	fmt.Fprintf(w, "%d completed, %d failed in %s\n", completed, failed, report.Duration().Round(time.Millisecond))
}
