// File: cmd/check_test.go
package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/raidcc/internal/config"
	"github.com/xkilldash9x/raidcc/internal/omsa"
	"github.com/xkilldash9x/raidcc/internal/omsa/omsatest"
)

func TestCheck_ScenarioA(t *testing.T) {
	setConsoleEnv(t)
	console := omsatest.ScenarioA()
	shutdowns := fakeDriver(t, console)

	out, _, err := execute(t, "check", "--settle-delay", "1ms")
	require.NoError(t, err)

	want := "Found: Virtual Disk 0 [state: Ready; layout: RAID-10; size: 1,862.00GB]\n" +
		"  CC for Virtual Disk 0 has been started\n" +
		"Found: Virtual Disk 1 [state: Resynching; layout: RAID-6; size: 5,026.50GB]\n" +
		"  CC for Virtual Disk 1 is still running, progress: 19% complete\n"
	assert.Equal(t, want, out)
	assert.Equal(t, "https://omsa.example:1311/OMSALogin?manageDWS=false", console.URL())
	assert.Equal(t, 1, *shutdowns)
	assert.False(t, console.LoggedIn())
}

func TestCheck_JSONToFile(t *testing.T) {
	setConsoleEnv(t)
	fakeDriver(t, omsatest.ScenarioA())
	path := filepath.Join(t.TempDir(), "report.json")

	out, _, err := execute(t, "check", "--settle-delay", "1ms", "--dry-run", "--format", "json", "--output", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcome":"WouldStart"`)
	assert.Contains(t, string(data), `"progress":"19% complete"`)
}

func TestCheck_InvalidFormat(t *testing.T) {
	setConsoleEnv(t)
	fakeDriver(t, omsatest.ScenarioA())

	_, _, err := execute(t, "check", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run.format must be one of text, json")
}

func TestCheck_LoginRejected(t *testing.T) {
	setConsoleEnv(t)
	shutdowns := fakeDriver(t, omsatest.New(nil, omsatest.RejectLogin()))

	out, _, err := execute(t, "check", "--wait-timeout", "50ms")
	require.Error(t, err)
	assert.ErrorIs(t, err, omsa.ErrNotAuthenticated)
	assert.Contains(t, err.Error(), "login")
	assert.Empty(t, out)
	assert.Equal(t, 1, *shutdowns, "the browser is shut down after a failed run")
}

func TestCheck_DriverFailure(t *testing.T) {
	setConsoleEnv(t)
	original := newDriver
	t.Cleanup(func() { newDriver = original })
	newDriver = func(context.Context, config.BrowserConfig, *zap.Logger) (omsa.Driver, func(context.Context) error, error) {
		return nil, nil, errors.New("chrome not found")
	}

	_, _, err := execute(t, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start browser: chrome not found")
}

func TestCheck_HeadlessFlag(t *testing.T) {
	setConsoleEnv(t)
	var got config.BrowserConfig
	original := newDriver
	t.Cleanup(func() { newDriver = original })
	newDriver = func(_ context.Context, cfg config.BrowserConfig, _ *zap.Logger) (omsa.Driver, func(context.Context) error, error) {
		got = cfg
		return nil, nil, errors.New("stop")
	}

	_, _, err := execute(t, "check", "--headless=false")
	require.Error(t, err)
	assert.False(t, got.Headless)
	assert.True(t, got.IgnoreTLSErrors)
}
