// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/raidcc/internal/config"
	"github.com/xkilldash9x/raidcc/internal/observability"
	"github.com/xkilldash9x/raidcc/internal/omsa"
	"github.com/xkilldash9x/raidcc/internal/omsa/omsatest"
)

// consoleEnv is the connection environment most tests run with.
var consoleEnv = map[string]string{
	"OMSAHOST":                 "omsa.example",
	"OMSAPORT":                 "1311",
	"USERNAME":                 "root",
	"PASSWORD":                 "calvin",
	"DELLHOST":                 "idrac-r720.example",
	"RAIDCC_RUN_POLL_INTERVAL": "5ms",
}

// setConsoleEnv sets consoleEnv for the duration of the test.
func setConsoleEnv(t *testing.T) {
	t.Helper()
	for k, v := range consoleEnv {
		t.Setenv(k, v)
	}
}

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// fakeDriver installs console as the driver of every check run in the test
// and reports how often it was shut down.
func fakeDriver(t *testing.T, console *omsatest.Console) *int {
	t.Helper()
	shutdowns := new(int)
	original := newDriver
	newDriver = func(context.Context, config.BrowserConfig, *zap.Logger) (omsa.Driver, func(context.Context) error, error) {
		return console, func(context.Context) error {
			*shutdowns++
			return nil
		}, nil
	}
	t.Cleanup(func() { newDriver = original })
	return shutdowns
}

// execute runs a fresh command tree and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
