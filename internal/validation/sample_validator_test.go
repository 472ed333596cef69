package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxcard/internal/config"
	apperrors "fluxcard/internal/errors"
	"fluxcard/internal/shared/testutil"
)

func TestSampleValidator_ValidateSampleDirectory(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		required  []string
		errType   apperrors.ErrorType
	}{
		{
			name: "complete sample",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteDefaultSample(t, t.TempDir(), "INPL2/INPL2_1")
			},
			required: []string{testutil.ParameterFileName, testutil.TemperatureFileName},
		},
		{
			name: "no required files",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "non-existent directory",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "INPL9", "INPL9_9")
			},
			errType: apperrors.ErrTypeNotFound,
		},
		{
			name: "path is file not directory",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "sample.txt")
				require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
				return file
			},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name: "missing temperature file",
			setupFunc: func(t *testing.T) string {
				f := testutil.DefaultSampleFixture()
				dir := testutil.WriteSample(t, filepath.Join(t.TempDir(), "s"), f)
				require.NoError(t, os.Remove(filepath.Join(dir, testutil.TemperatureFileName)))
				return dir
			},
			required: []string{testutil.TemperatureFileName},
			errType:  apperrors.ErrTypeNotFound,
		},
		{
			name: "required name is a directory",
			setupFunc: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.Mkdir(filepath.Join(dir, testutil.TemperatureFileName), 0755))
				return dir
			},
			required: []string{testutil.TemperatureFileName},
			errType:  apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewSampleValidator(nil)
			err := v.ValidateSampleDirectory(tt.setupFunc(t), tt.required...)
			if tt.errType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestSampleValidator_ValidateOutputPaths(t *testing.T) {
	dir := t.TempDir()
	v := NewSampleValidator(nil)

	csvPath := filepath.Join(dir, "reports", "summary.csv")
	require.NoError(t, v.ValidateOutputPaths("", csvPath))
	assert.DirExists(t, filepath.Dir(csvPath))
	assert.NoFileExists(t, filepath.Join(dir, "reports", ".write_test"))

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	err := v.ValidateOutputPaths(filepath.Join(blocker, "summary.xlsx"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestSampleValidator_CheckSamples(t *testing.T) {
	root := t.TempDir()
	testutil.WriteDefaultSample(t, root, "INPL2/INPL2_1")
	logger, handler := testutil.NewTestLogger(t)

	refs := []config.SampleRef{
		{Group: 0, Location: filepath.Join(root, "INPL2/INPL2_1")},
		{Group: 0, Location: filepath.Join(root, "INPL2/INPL2_2")},
	}
	missing := NewSampleValidator(logger).CheckSamples(refs, testutil.TemperatureFileName)

	require.Len(t, missing, 1)
	assert.Equal(t, refs[1], missing[0])
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "Sample directory incomplete")
	testutil.AssertLogAttr(t, handler, "sample", refs[1].Location)
}
