package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogs(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "previous.log")
	content := `{"level":"info","ts":"2026-03-01T10:00:00.000Z","msg":"Starting submission run.","run_id":"run-a"}
{"level":"warn","ts":"2026-03-01T10:00:05.000Z","msg":"Could not confirm if submission 1/1 was successful","run_id":"run-a","attempt":1}
{"level":"info","ts":"2026-03-01T11:00:00.000Z","msg":"Starting submission run.","run_id":"run-b"}
`
	require.NoError(t, os.WriteFile(logFile, []byte(content), 0o644))
	t.Setenv("FORMPILOT_LOGGER_LOG_FILE", logFile)

	out, err := executeCommand(t, "logs", "--run", "run-a", "--level", "warn")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T10:00:05.000Z WARN  Could not confirm if submission 1/1 was successful attempt=1\n", out)

	_, err = executeCommand(t, "logs", "--level", "loud")
	assert.ErrorContains(t, err, "invalid --level")
}
