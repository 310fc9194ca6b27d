package cmd

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/form"
)

func TestInspect_File(t *testing.T) {
	out, err := executeCommand(t, "inspect", testFormPage)
	require.NoError(t, err)
	assert.Contains(t, out, "Form: Market Access Survey\n")
	assert.Contains(t, out, "Questions: 4\n")
	assert.Contains(t, out, "[entry.123]")
}

func TestInspect_URLWithDraftMapping(t *testing.T) {
	page, err := os.ReadFile(testFormPage)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	orig := newInspectClient
	newInspectClient = func(config.BrowserConfig) *http.Client { return srv.Client() }
	defer func() { newInspectClient = orig }()

	draft := filepath.Join(t.TempDir(), "draft.json")
	out, err := executeCommand(t, "inspect", srv.URL+"/viewform", "--draft-mapping", draft)
	require.NoError(t, err)
	assert.Contains(t, out, "Draft mapping needs editing")

	m, err := form.LoadMapping(draft)
	require.NoError(t, err)
	assert.Len(t, m, 3)
	assert.Equal(t, "entry.123", m["market"])
}

func TestInspect_Errors(t *testing.T) {
	_, err := executeCommand(t, "inspect")
	assert.Error(t, err)

	_, err = executeCommand(t, "inspect", filepath.Join(t.TempDir(), "missing.html"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not open form page")
}
