// File: cmd/formpilot/main_test.go
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(context.Canceled))
	assert.Equal(t, 0, exitCode(fmt.Errorf("submit: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("invalid configuration")))
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("writes panic log", func(t *testing.T) {
		var (
			written  []byte
			path     string
			exitCode = -1
		)
		osWriteFile = func(name string, data []byte, perm os.FileMode) error {
			path, written = name, data
			return nil
		}
		osExit = func(code int) { exitCode = code }

		func() {
			defer handlePanic()
			panic("nil session")
		}()

		assert.Equal(t, panicLogFile, path)
		assert.True(t, strings.HasPrefix(string(written), "panic: nil session"))
		assert.Contains(t, string(written), "goroutine")
		assert.Equal(t, 1, exitCode)
	})

	t.Run("log write fails", func(t *testing.T) {
		exitCode := -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only file system") }
		osExit = func(code int) { exitCode = code }

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, 1, exitCode)
	})

	t.Run("no panic", func(t *testing.T) {
		called := false
		osExit = func(int) { called = true }
		func() {
			defer handlePanic()
		}()
		assert.False(t, called)
	})
}

func TestInteractive(t *testing.T) {
	t.Setenv("FORMPILOT_LOGGER_LOG_FILE", filepath.Join(t.TempDir(), "formpilot.log"))
	var out bytes.Buffer
	in := strings.NewReader("\nversion\nfrobnicate\nexit\nversion\n")

	require.NoError(t, interactive(context.Background(), in, &out))

	s := out.String()
	assert.Equal(t, 1, strings.Count(s, "formpilot version"), "commands after exit are not run")
	assert.Contains(t, s, `unknown command "frobnicate"`)
	assert.Equal(t, 4, strings.Count(s, "formpilot > "))
}
