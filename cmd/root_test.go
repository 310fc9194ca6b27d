// File: cmd/root_test.go
package cmd

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/formpilot/internal/config"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "formpilot version "+Version+"\n", out)
}

func TestRootCmd_VersionCommandNeedsNoFormConfig(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "formpilot version "+Version+"\n", out)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "formpilot fills a paged survey form")
	for _, name := range []string{"submit", "preview", "validate", "inspect", "history", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, err := executeCommand(t, "scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "scan"`)
}

func TestRootCmd_StrictConfigFails(t *testing.T) {
	// preview needs a base URL; none is configured.
	_, err := executeCommand(t, "preview")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url is required")
}

func TestRootCmd_BadConfigFile(t *testing.T) {
	path := createTempConfig(t, "form: [unclosed")
	_, err := executeCommand(t, "--config", path, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

// TestConfigPrecedence checks flag over env over file.
func TestConfigPrecedence(t *testing.T) {
	resetForTest(t)
	path := createTempConfig(t, `
form:
  base_url: "https://file.example/viewform?usp=pp_url"
  mapping_file: "`+testMappingFile+`"
  pages: 2
submit:
  count: 4
`)
	t.Setenv("FORMPILOT_SUBMIT_COUNT", "6")
	t.Setenv("GOOGLE_FORM_BASE_PREFILL_URL", "https://legacy.example/viewform?usp=pp_url")

	var got *config.Config
	rootCmd := NewRootCommand()
	submitCmd, _, err := rootCmd.Find([]string{"submit"})
	require.NoError(t, err)
	submitCmd.RunE = func(cmd *cobra.Command, args []string) error {
		got, err = getConfigFromContext(cmd.Context())
		return err
	}
	rootCmd.SetArgs([]string{"--config", path, "submit", "--randomize", "--pages", "1"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	require.NotNil(t, got)
	assert.Equal(t, 6, got.Submit().Count, "env beats file")
	assert.True(t, got.Submit().Randomize, "flag beats default")
	assert.Equal(t, 1, got.Form().Pages, "flag beats file")
	assert.Equal(t, "https://legacy.example/viewform?usp=pp_url", got.Form().BaseURL)
	assert.Equal(t, config.ModePrefill, got.Form().Mode)
}

func TestGetConfigFromContext_Missing(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)
}
