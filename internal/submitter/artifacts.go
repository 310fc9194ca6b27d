// internal/submitter/artifacts.go
package submitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// screenshots writes diagnostic captures into the artifacts directory.
type screenshots struct {
	dir     string
	enabled bool
	logger  *zap.Logger
}

// capture saves a PNG of the page under name. Failures are logged and
// reported as an empty path; a missing screenshot never fails an attempt.
func (s *screenshots) capture(ctx context.Context, page Page, name string) string {
	if !s.enabled {
		return ""
	}
	path, err := s.write(ctx, page, name)
	if err != nil {
		s.logger.Warn("Could not save screenshot.", zap.String("file", name), zap.Error(err))
		return ""
	}
	s.logger.Info("Saved screenshot.", zap.String("path", path))
	return path
}

func (s *screenshots) write(ctx context.Context, page Page, name string) (string, error) {
	png, err := page.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	dir := s.dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create artifacts dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("could not write screenshot: %w", err)
	}
	return path, nil
}

func beforeSubmitName(attempt int) string {
	return fmt.Sprintf("form_before_submit_%d.png", attempt)
}

func afterSubmitName(attempt int) string {
	return fmt.Sprintf("form_after_submit_attempt_%d.png", attempt)
}
