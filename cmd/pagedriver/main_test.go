// File: cmd/pagedriver/main_test.go
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestHandlePanic(t *testing.T) {
	t.Cleanup(resetMocks)

	t.Run("writes the panic log", func(t *testing.T) {
		var written []byte
		var exitCode int
		osWriteFile = func(name string, data []byte, perm os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = data
			return nil
		}
		osExit = func(code int) { exitCode = code }

		func() {
			defer handlePanic()
			panic("kaboom")
		}()

		assert.Equal(t, 1, exitCode)
		assert.True(t, strings.HasPrefix(string(written), "panic: kaboom"))
		assert.Contains(t, string(written), "goroutine", "the stack trace is included")
	})

	t.Run("log write failure", func(t *testing.T) {
		exitCode := -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only") }
		osExit = func(code int) { exitCode = code }

		func() {
			defer handlePanic()
			panic("kaboom")
		}()
		assert.Equal(t, 1, exitCode)
	})

	t.Run("no panic", func(t *testing.T) {
		osExit = func(int) { t.Fatal("exit must not be called without a panic") }
		func() {
			defer handlePanic()
		}()
	})
}

func TestInteractive(t *testing.T) {
	in := strings.NewReader("\n--version\nbogus-command\nexit\n--version\n")
	var out bytes.Buffer

	require.NoError(t, interactive(context.Background(), in, &out))

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "pagedriver version "), "commands after exit must not run")
	assert.Contains(t, got, `Error: unknown command "bogus-command"`)
	assert.Contains(t, got, "pagedriver > ")
}

func TestInteractive_EOF(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, interactive(context.Background(), strings.NewReader("--version"), &out))
	assert.Contains(t, out.String(), "pagedriver version ")
}
