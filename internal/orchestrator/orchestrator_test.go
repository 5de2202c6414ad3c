// internal/orchestrator/orchestrator_test.go
package orchestrator_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/raidcc/internal/config"
	"github.com/xkilldash9x/raidcc/internal/omsa"
	"github.com/xkilldash9x/raidcc/internal/omsa/omsatest"
	"github.com/xkilldash9x/raidcc/internal/orchestrator"
	"github.com/xkilldash9x/raidcc/internal/reporting"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type nopCloser struct{ bytes.Buffer }

func (nopCloser) Close() error { return nil }

func testConfig(mutate ...func(*config.Config)) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.ConsoleCfg.Host = "omsa.example"
	cfg.ConsoleCfg.ManagedHost = "idrac-r720.example"
	cfg.ConsoleCfg.Username = "root"
	cfg.ConsoleCfg.Password = "calvin"
	cfg.RunCfg.WaitTimeout = 100 * time.Millisecond
	cfg.RunCfg.PollInterval = 5 * time.Millisecond
	cfg.RunCfg.SettleDelay = time.Millisecond
	for _, m := range mutate {
		m(cfg)
	}
	return cfg
}

func newOrchestrator(t *testing.T, cfg *config.Config, console *omsatest.Console) (*orchestrator.Orchestrator, *nopCloser) {
	t.Helper()
	out := &nopCloser{}
	o, err := orchestrator.New(cfg, zaptest.NewLogger(t), console, reporting.NewTextReporter(out))
	require.NoError(t, err)
	return o, out
}

func logoutCalls(console *omsatest.Console) int {
	n := 0
	for _, inv := range console.Invocations() {
		if inv.Function == omsa.FunctionLogout {
			n++
		}
	}
	return n
}

// failingLogout is a console whose logout entry point always fails.
type failingLogout struct {
	*omsatest.Console
	mu       sync.Mutex
	attempts int
}

func (f *failingLogout) Invoke(ctx context.Context, scope omsa.Scope, function string, args ...interface{}) error {
	if function == omsa.FunctionLogout {
		f.mu.Lock()
		f.attempts++
		f.mu.Unlock()
		return errors.New("session already expired")
	}
	return f.Console.Invoke(ctx, scope, function, args...)
}

func TestNew_NilDependencies(t *testing.T) {
	_, err := orchestrator.New(nil, zaptest.NewLogger(t), omsatest.ScenarioA(), reporting.NewTextReporter(&nopCloser{}))
	assert.Error(t, err)
	_, err = orchestrator.New(testConfig(), zaptest.NewLogger(t), nil, reporting.NewTextReporter(&nopCloser{}))
	assert.Error(t, err)
}

func TestRun_ScenarioA(t *testing.T) {
	console := omsatest.ScenarioA()
	o, out := newOrchestrator(t, testConfig(), console)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	want := "Found: Virtual Disk 0 [state: Ready; layout: RAID-10; size: 1,862.00GB]\n" +
		"  CC for Virtual Disk 0 has been started\n" +
		"Found: Virtual Disk 1 [state: Resynching; layout: RAID-6; size: 5,026.50GB]\n" +
		"  CC for Virtual Disk 1 is still running, progress: 19% complete\n"
	assert.Equal(t, want, out.String())

	assert.Equal(t, "https://omsa.example:1311/OMSALogin?manageDWS=false", console.URL())
	assert.Equal(t, "idrac-r720.example", console.Fields()["targetmachine"])
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Drives)
	assert.Equal(t, 1, summary.Outcomes[omsa.Started])
	assert.Equal(t, 1, summary.Outcomes[omsa.AlreadyRunning])
	assert.False(t, console.LoggedIn())
	assert.Equal(t, 1, logoutCalls(console))
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	console := omsatest.ScenarioA()
	o, out := newOrchestrator(t, testConfig(), console)

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	out.Reset()

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Outcomes[omsa.AlreadyRunning])
	assert.Zero(t, summary.Outcomes[omsa.Started])
	assert.Contains(t, out.String(), "  CC for Virtual Disk 0 is still running, progress: 0% complete\n")
	assert.Equal(t, 2, console.Logins())

	executes := 0
	for _, inv := range console.Invocations() {
		if inv.Function == omsa.FunctionExecute {
			executes++
		}
	}
	assert.Equal(t, 1, executes)
}

func TestRun_DryRun(t *testing.T) {
	console := omsatest.ScenarioA()
	o, out := newOrchestrator(t, testConfig(func(c *config.Config) { c.RunCfg.DryRun = true }), console)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "  CC for Virtual Disk 0 would be started (dry run)\n")
	assert.Equal(t, 1, summary.Outcomes[omsa.WouldStart])
	assert.Equal(t, "Ready", console.Drive(0).State)
}

func TestRun_NoActionAvailableContinues(t *testing.T) {
	console := omsatest.New([]omsatest.Drive{
		{Name: "Virtual Disk 0", State: "Degraded", Layout: "RAID-5", Size: "931.00GB", Options: []string{"Blink"}},
		{Name: "Virtual Disk 1", State: "Ready", Layout: "RAID-1", Size: "278.88GB",
			Options: []string{omsatest.OptionCheckConsistency}},
	})
	o, out := newOrchestrator(t, testConfig(), console)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "  NO CC option found - this should not ever happen!\n")
	assert.Contains(t, out.String(), "  CC for Virtual Disk 1 has been started\n")
	assert.Equal(t, 1, summary.Outcomes[omsa.NoActionAvailable])
	assert.Equal(t, 1, summary.Outcomes[omsa.Started])
}

func TestRun_ScenarioB_LoginRejected(t *testing.T) {
	console := omsatest.New(nil, omsatest.RejectLogin())
	o, out := newOrchestrator(t, testConfig(), console)

	summary, err := o.Run(context.Background())
	require.Error(t, err)

	var stepErr *orchestrator.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, orchestrator.StepLogin, stepErr.Step)
	assert.ErrorIs(t, err, omsa.ErrNotAuthenticated)
	assert.ErrorIs(t, err, omsa.ErrTimeout)
	assert.Zero(t, summary.Drives)
	assert.Empty(t, out.String())
	assert.Zero(t, logoutCalls(console), "an unauthenticated session must not log out")
}

func TestRun_FailureAfterLoginStillLogsOut(t *testing.T) {
	console := omsatest.New([]omsatest.Drive{
		{Name: "Virtual Disk 0", Options: []string{omsatest.OptionCheckConsistency}},
	}, omsatest.HideDriveCells())
	o, _ := newOrchestrator(t, testConfig(), console)

	_, err := o.Run(context.Background())

	var stepErr *orchestrator.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, orchestrator.StepDrives, stepErr.Step)
	assert.ErrorIs(t, err, omsa.ErrMissingDriveAttribute)
	assert.Equal(t, 1, logoutCalls(console))
	assert.False(t, console.LoggedIn())
}

func TestRun_FailedLogoutIsNotRetried(t *testing.T) {
	driver := &failingLogout{Console: omsatest.ScenarioA()}
	out := &nopCloser{}
	o, err := orchestrator.New(testConfig(), zaptest.NewLogger(t), driver, reporting.NewTextReporter(out))
	require.NoError(t, err)

	summary, err := o.Run(context.Background())

	var stepErr *orchestrator.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, orchestrator.StepLogout, stepErr.Step)
	assert.Equal(t, "logout: calling logout: session already expired", err.Error())
	assert.Equal(t, 1, driver.attempts)
	assert.Equal(t, 2, summary.Drives)
	assert.Contains(t, out.String(), "  CC for Virtual Disk 0 has been started\n")
}

func TestRun_NoDrivesTimesOut(t *testing.T) {
	console := omsatest.New(nil)
	o, _ := newOrchestrator(t, testConfig(), console)

	_, err := o.Run(context.Background())

	assert.ErrorIs(t, err, omsa.ErrElementTimeout)
	assert.ErrorIs(t, err, omsa.ErrTimeout)
	assert.Contains(t, err.Error(), orchestrator.StepDrives)
	assert.Equal(t, 1, logoutCalls(console))
}

func TestRun_CancelledContext(t *testing.T) {
	console := omsatest.ScenarioA()
	o, _ := newOrchestrator(t, testConfig(), console)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := o.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, summary.Drives)
	assert.Zero(t, console.Logins())
}

func TestRun_Timeout(t *testing.T) {
	console := omsatest.ScenarioA()
	o, _ := newOrchestrator(t, testConfig(func(c *config.Config) {
		c.RunCfg.Timeout = 250 * time.Millisecond
		c.RunCfg.SettleDelay = time.Hour
	}), console)

	_, err := o.Run(context.Background())

	var stepErr *orchestrator.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, orchestrator.StepDrives, stepErr.Step)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, logoutCalls(console), "logout runs on a detached context after the run deadline")
}
