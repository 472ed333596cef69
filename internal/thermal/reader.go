package thermal

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	apperrors "fluxcard/internal/errors"
)

// readKeyedFile applies every matching key mapping to each line of path.
// Lines a mapping cannot use are logged and skipped.
func readKeyedFile(ctx context.Context, path string, mappings []KeyMapping, params *Parameters, bias Bias, logger *slog.Logger) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, apperrors.NewNotFoundError(path, err)
		}
		return 0, apperrors.NewStorageError("open "+path, err)
	}
	defer file.Close()

	applied := 0
	lineNo := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		if lineNo%256 == 0 {
			if err := ctx.Err(); err != nil {
				return applied, err
			}
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		for _, m := range mappings {
			if !strings.HasPrefix(line, m.Prefix) {
				continue
			}
			numbers, err := ExtractNumbers(line)
			if err == nil {
				err = m.Apply(params, LineInput{Line: line, Numbers: numbers}, bias)
			}
			if err != nil {
				logger.Warn("skipping malformed line",
					slog.String("file", path),
					slog.Int("line", lineNo),
					slog.String("prefix", m.Prefix),
					slog.String("error", err.Error()))
				continue
			}
			applied++
		}
	}
	if err := scanner.Err(); err != nil {
		return applied, apperrors.NewParsingError("read "+path, err)
	}
	return applied, nil
}
