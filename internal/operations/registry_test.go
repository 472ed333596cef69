package operations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcStep struct {
	BaseStage
	run func(ctx context.Context, state *SampleState) error
}

func newFuncStep(id string, deps []string, run func(ctx context.Context, state *SampleState) error) *funcStep {
	return &funcStep{BaseStage: NewBaseStage(id, id, deps), run: run}
}

func (s *funcStep) Execute(ctx context.Context, state *SampleState) error {
	if s.run == nil {
		return nil
	}
	return s.run(ctx, state)
}

func stepIDs(steps []Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFuncStep("a", nil, nil)))

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newFuncStep("", nil, nil)))
	assert.Error(t, r.Register(newFuncStep("a", nil, nil)))
	assert.Equal(t, 1, r.Count())

	step, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", step.ID())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistryDependencyOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFuncStep("write", []string{"compute"}, nil)))
	require.NoError(t, r.Register(newFuncStep("read", nil, nil)))
	require.NoError(t, r.Register(newFuncStep("compute", []string{"read"}, nil)))
	require.NoError(t, r.Register(newFuncStep("audit", nil, nil)))

	steps, err := r.GetDependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "audit", "compute", "write"}, stepIDs(steps))
	assert.Equal(t, []string{"write", "read", "compute", "audit"}, stepIDs(r.List()))
}

func TestRegistryDependencyErrors(t *testing.T) {
	t.Run("missing dependency", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(newFuncStep("a", []string{"ghost"}, nil)))
		_, err := r.GetDependencyOrder()
		assert.ErrorContains(t, err, "non-existent")
	})

	t.Run("cycle", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(newFuncStep("a", []string{"b"}, nil)))
		require.NoError(t, r.Register(newFuncStep("b", []string{"a"}, nil)))
		_, err := r.GetDependencyOrder()
		assert.ErrorContains(t, err, "cycle")
	})
}

func TestAnalysisRegistryOrder(t *testing.T) {
	steps, err := NewAnalysisRegistry().GetDependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{
		StageIDReadInputs,
		StageIDFitProbes,
		StageIDFlux,
		StageIDFluxErrors,
		StageIDWriteOutput,
	}, stepIDs(steps))
}
