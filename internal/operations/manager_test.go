package operations

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fluxcard/internal/config"
	apperrors "fluxcard/internal/errors"
	"fluxcard/internal/infrastructure"
	"fluxcard/internal/shared/testutil"
	"fluxcard/internal/thermal"
)

type ManagerSuite struct {
	suite.Suite
	root    string
	handler *testutil.BufferedSlogHandler
	manager *Manager
}

func (s *ManagerSuite) SetupTest() {
	s.root = s.T().TempDir()
	logger, handler := testutil.NewTestLogger(s.T())
	s.handler = handler
	s.manager = NewManager(nil, NewConfig(), nil, logger)
}

func (s *ManagerSuite) refs(locations ...string) []config.SampleRef {
	refs := make([]config.SampleRef, len(locations))
	for i, loc := range locations {
		refs[i] = config.SampleRef{Group: i, Location: filepath.Join(s.root, loc)}
	}
	return refs
}

func (s *ManagerSuite) TestRunIsolatesFailures() {
	testutil.WriteDefaultSample(s.T(), s.root, "INPL2/INPL2_1")
	testutil.WriteDefaultSample(s.T(), s.root, "INPL2/INPL2_3")

	report, err := s.manager.Run(context.Background(), s.refs("INPL2/INPL2_1", "INPL2/INPL2_2", "INPL2/INPL2_3"))
	s.Require().NoError(err)
	s.Require().Len(report.Samples, 3)
	s.NotEmpty(report.RunID)

	ok1, missing, ok3 := report.Samples[0], report.Samples[1], report.Samples[2]

	s.Equal(SampleStatusCompleted, ok1.Status)
	s.Equal(SampleStatusCompleted, ok3.Status)
	s.InDelta(13490, ok1.Quantities[thermal.QuantityAverageFlux], 1e-6)
	s.Equal("INPL2 sample 1", ok1.Experiment)
	s.Len(ok1.Fits, 4)
	s.FileExists(ok1.DatacardPath)
	for _, status := range ok1.Steps {
		s.Equal(StepStatusCompleted, status)
	}

	s.Equal(SampleStatusFailed, missing.Status)
	s.Equal(StageIDReadInputs, missing.FailedStep)
	s.Contains(missing.Error, "not found")
	s.Empty(missing.DatacardPath)
	s.Equal(StepStatusSkipped, missing.Steps[StageIDWriteOutput])
	s.Equal(1, missing.Group)

	completed, failed := report.Counts()
	s.Equal(2, completed)
	s.Equal(1, failed)
	s.Len(report.Failed(), 1)
	s.GreaterOrEqual(report.Duration(), time.Duration(0))

	testutil.AssertLogContains(s.T(), s.handler, slog.LevelWarn, "sample_failed")
}

func (s *ManagerSuite) TestRunWithWorkersPreservesOrder() {
	locations := []string{"G/a", "G/b", "G/c", "G/d", "G/e"}
	for _, loc := range locations {
		testutil.WriteDefaultSample(s.T(), s.root, loc)
	}
	s.manager.GetConfig().Workers = 3

	report, err := s.manager.Run(context.Background(), s.refs(locations...))
	s.Require().NoError(err)
	for i, result := range report.Samples {
		s.Equal(filepath.Join(s.root, locations[i]), result.Location)
		s.True(result.Succeeded(), result.Error)
	}
}

func (s *ManagerSuite) TestRunCancelled() {
	testutil.WriteDefaultSample(s.T(), s.root, "G/a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.manager.Run(ctx, s.refs("G/a", "G/b"))
	s.Require().Error(err)
	s.ErrorIs(err, context.Canceled)
	s.Require().NotNil(report)
	for _, result := range report.Samples {
		s.Equal(SampleStatusCancelled, result.Status)
		s.Equal(StepStatusSkipped, result.Steps[StageIDReadInputs])
	}
	_, statErr := os.Stat(filepath.Join(s.root, "G/a", "Output_datacard.txt"))
	s.True(os.IsNotExist(statErr))
}

func (s *ManagerSuite) TestSampleTimeout() {
	r := NewRegistry()
	s.Require().NoError(r.Register(newFuncStep("slow", nil, func(ctx context.Context, _ *SampleState) error {
		<-ctx.Done()
		return ctx.Err()
	})))
	s.Require().NoError(r.Register(newFuncStep("after", []string{"slow"}, nil)))

	cfg := NewConfig()
	cfg.SampleTimeout = 20 * time.Millisecond
	m := NewManager(r, cfg, nil, nil)

	report, err := m.Run(context.Background(), s.refs("G/a"))
	s.Require().NoError(err)
	result := report.Samples[0]
	s.Equal(SampleStatusFailed, result.Status)
	s.Equal("slow", result.FailedStep)
	s.Contains(result.Error, "timeout")
	s.Equal(StepStatusSkipped, result.Steps["after"])
}

func (s *ManagerSuite) TestInvalidRegistry() {
	r := NewRegistry()
	s.Require().NoError(r.Register(newFuncStep("a", []string{"b"}, nil)))
	s.Require().NoError(r.Register(newFuncStep("b", []string{"a"}, nil)))

	m := NewManager(r, nil, nil, nil)
	s.Same(r, m.GetRegistry())
	s.Equal(2, m.GetRegistry().Count())

	_, err := m.Run(context.Background(), s.refs("G/a"))
	s.Require().Error(err)
	s.Equal(ErrorTypeFatal, GetErrorType(err))
}

func (s *ManagerSuite) TestStepErrorKeepsCause() {
	r := NewRegistry()
	s.Require().NoError(r.Register(newFuncStep("fit", nil, func(context.Context, *SampleState) error {
		return apperrors.NewFitError("heater", "no points", nil)
	})))

	report, err := NewManager(r, nil, nil, nil).Run(context.Background(), s.refs("G/a"))
	s.Require().NoError(err)
	s.Contains(report.Samples[0].Error, "no points")
	s.Contains(report.Samples[0].Error, "[execution] fit")
}

func (s *ManagerSuite) TestDefaultRegistryOrder() {
	steps, err := s.manager.GetRegistry().GetDependencyOrder()
	s.Require().NoError(err)
	s.Equal([]string{StageIDReadInputs, StageIDFitProbes, StageIDFlux, StageIDFluxErrors, StageIDWriteOutput}, stepIDs(steps))
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func TestManagerRecordsMetrics(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	providers, err := infrastructure.InitializeOTel(config.TelemetryConfig{TraceExporter: "none", EnableMetrics: true}, logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	tracer, err := NewOperationTracer(providers)
	require.NoError(t, err)

	root := t.TempDir()
	testutil.WriteDefaultSample(t, root, "G/a")
	refs := []config.SampleRef{
		{Group: 0, Location: filepath.Join(root, "G/a")},
		{Group: 0, Location: filepath.Join(root, "G/missing")},
	}

	_, err = NewManager(nil, nil, tracer, logger).Run(context.Background(), refs)
	require.NoError(t, err)

	families, err := providers.Registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{
		"fluxcard_samples_analyzed",
		"fluxcard_sample_failures",
		"fluxcard_step_duration",
		"fluxcard_fit_iterations",
		"fluxcard_average_flux",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestOperationErrors(t *testing.T) {
	cause := errors.New("boom")
	err := NewExecutionError("flux", "G/a", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[execution] flux: step execution failed: boom", err.Error())
	assert.Equal(t, ErrorTypeExecution, GetErrorType(err))

	assert.Equal(t, ErrorTypeTimeout, GetErrorType(NewTimeoutError("fit", "G/a", "1s", context.DeadlineExceeded)))
	assert.Equal(t, ErrorTypeCancellation, GetErrorType(NewCancellationError("", "G/a")))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(errors.New("plain")))
	assert.Equal(t, ErrorType(""), GetErrorType(nil))
}
