package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/formpilot/internal/form"
)

func TestPreview_Fixed(t *testing.T) {
	out, err := executeCommand(t, "--config", prefillConfig(t), "preview", "-n", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, lines[0], lines[1], "fixed answers are deterministic")
	assert.True(t, strings.HasPrefix(lines[0], testBaseURL+"&"))
	assert.Equal(t, 1, strings.Count(lines[0], "&entry.123=Middlemen"))
	assert.Equal(t, 16, strings.Count(lines[0], "&entry."))
}

func TestPreview_SeededRandomIsRepeatable(t *testing.T) {
	cfg := prefillConfig(t)
	first, err := executeCommand(t, "--config", cfg, "preview", "-n", "3", "--randomize", "--seed", "42")
	require.NoError(t, err)
	second, err := executeCommand(t, "--config", cfg, "preview", "-n", "3", "--randomize", "--seed", "42")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, strings.Split(strings.TrimSpace(first), "\n"), 3)
}

func TestPreview_MappingGap(t *testing.T) {
	mapping := filepath.Join(t.TempDir(), "mapping.json")
	require.NoError(t, os.WriteFile(mapping, []byte(`{"market": "entry.123"}`), 0o644))

	_, err := executeCommand(t, "--config", prefillConfig(t), "preview", "--mapping", mapping)
	var merr *form.MappingError
	require.True(t, errors.As(err, &merr), "got %v", err)
	assert.Contains(t, merr.Missing, "certified")
}

func TestPreview_DirectModeRejected(t *testing.T) {
	path := createTempConfig(t, `
form:
  mode: direct
  form_url: "https://docs.google.com/forms/d/e/abc/viewform"
`)
	_, err := executeCommand(t, "--config", path, "preview")
	assert.ErrorIs(t, err, errPreviewMode)
}

func TestPreview_BuiltinDonationSurvey(t *testing.T) {
	mapping := filepath.Join(t.TempDir(), "mapping.json")
	survey, err := form.Builtin("donation")
	require.NoError(t, err)
	m := form.Mapping{}
	for i, f := range survey.Fields {
		m[f.Name] = "entry." + string(rune('a'+i))
	}
	f, err := os.Create(mapping)
	require.NoError(t, err)
	require.NoError(t, m.Write(f))
	require.NoError(t, f.Close())

	out, err := executeCommand(t, "--config", prefillConfig(t), "preview", "--survey", "builtin:donation", "--mapping", mapping)
	require.NoError(t, err)
	assert.Equal(t, len(survey.Fields), strings.Count(out, "&entry."))
}
