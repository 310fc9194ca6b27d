package observability

import "go.uber.org/zap"

// Field keys shared by the submit loop and the log viewer.
const (
	KeyRunID   = "run_id"
	KeyAttempt = "attempt"
	KeyChain   = "chain"
)

// ForRun tags every entry of logger with the run identifier.
func ForRun(logger *zap.Logger, runID string) *zap.Logger {
	return logger.With(zap.String(KeyRunID, runID))
}

// ForAttempt tags every entry of logger with the 1-based attempt number.
func ForAttempt(logger *zap.Logger, n int) *zap.Logger {
	return logger.With(zap.Int(KeyAttempt, n))
}
