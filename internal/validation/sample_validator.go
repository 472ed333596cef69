package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fluxcard/internal/config"
	apperrors "fluxcard/internal/errors"
)

// SampleValidator checks sample directories and report destinations before a
// batch run starts
type SampleValidator struct {
	logger *slog.Logger
}

// NewSampleValidator creates a new sample validator
func NewSampleValidator(logger *slog.Logger) *SampleValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SampleValidator{
		logger: logger,
	}
}

// ValidateSampleDirectory checks that dir exists and holds every required file
func (v *SampleValidator) ValidateSampleDirectory(dir string, required ...string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return apperrors.NewNotFoundError("sample directory "+dir, err)
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat sample directory %s", dir), err)
	}
	if !info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is not a directory", dir))
	}

	for _, name := range required {
		if err := v.ValidateFile(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFile checks that path exists and is a regular, readable file
func (v *SampleValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return apperrors.NewNotFoundError(path, err)
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures dir exists or can be created and is writable
func (v *SampleValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateOutputPaths checks the parent directory of every non-empty path
func (v *SampleValidator) ValidateOutputPaths(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := v.ValidateOutputDirectory(filepath.Dir(p)); err != nil {
			return err
		}
	}
	return nil
}

// CheckSamples returns the samples whose directory lacks the temperature
// file. Those samples still run and fail in their first step; the check only
// reports them up front.
func (v *SampleValidator) CheckSamples(refs []config.SampleRef, temperatureFile string) []config.SampleRef {
	var missing []config.SampleRef
	for _, ref := range refs {
		if err := v.ValidateSampleDirectory(ref.Location, temperatureFile); err != nil {
			v.logger.Warn("Sample directory incomplete",
				slog.String("sample", ref.Location),
				slog.Int("group", ref.Group),
				slog.String("error", err.Error()))
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		v.logger.Warn("Samples will fail to read inputs",
			slog.Int("missing", len(missing)),
			slog.Int("total", len(refs)))
	}
	return missing
}
