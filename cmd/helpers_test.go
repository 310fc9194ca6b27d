// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/formpilot/internal/observability"
)

const (
	testBaseURL     = "https://docs.google.com/forms/d/e/abc/viewform?usp=pp_url"
	testMappingFile = "../internal/form/testdata/entry_mapping.json"
	testFormPage    = "../internal/inspect/testdata/viewform.html"
)

// resetForTest isolates a command run: a fresh logger writing into the
// test's temp dir and no environment-provided form settings.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	if os.Getenv("FORMPILOT_LOGGER_LOG_FILE") == "" {
		t.Setenv("FORMPILOT_LOGGER_LOG_FILE", filepath.Join(t.TempDir(), "formpilot.log"))
	}
	t.Setenv("FORMPILOT_LOGGER_LEVEL", "error")
	for _, name := range []string{"GOOGLE_FORM_BASE_PREFILL_URL", "FORMPILOT_FORM_BASE_URL", "FORMPILOT_DATABASE_URL", "USER_AGENT"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

// executeCommand runs a fresh root command and returns everything it wrote.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetForTest(t)

	rootCmd := NewRootCommand()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// createTempConfig writes a config file and returns its path.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// prefillConfig is a minimal valid prefill configuration.
func prefillConfig(t *testing.T) string {
	return createTempConfig(t, `
form:
  base_url: "`+testBaseURL+`"
  mapping_file: "`+testMappingFile+`"
`)
}
