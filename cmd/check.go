// -- cmd/check.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/raidcc/internal/browser"
	"github.com/xkilldash9x/raidcc/internal/config"
	"github.com/xkilldash9x/raidcc/internal/observability"
	"github.com/xkilldash9x/raidcc/internal/omsa"
	"github.com/xkilldash9x/raidcc/internal/orchestrator"
	"github.com/xkilldash9x/raidcc/internal/reporting"
)

// shutdownTimeout bounds closing the browser after a run.
const shutdownTimeout = 15 * time.Second

// newDriver launches the browser that drives the console. The returned
// function shuts it down. Tests replace it with a fake console.
var newDriver = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (omsa.Driver, func(context.Context) error, error) {
	manager := browser.NewManager(ctx, cfg, logger)
	session, err := manager.NewSession(ctx)
	if err != nil {
		return nil, nil, errors.Join(err, manager.Shutdown(ctx))
	}
	return session, manager.Shutdown, nil
}

// newCheckCmd creates the `check` command.
func newCheckCmd(a *app) *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Start a consistency check on every virtual drive that is not already running one",
		Long: `check logs in to the OMSA console, walks the storage tree of the first
controller and, for each virtual drive, starts a consistency check unless one
is already in progress. Connection settings come from OMSAHOST, OMSAPORT,
USERNAME, PASSWORD and DELLHOST, the config file or an --env-file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, a.cfg)
		},
	}

	flags := checkCmd.Flags()
	flags.Bool("dry-run", false, "report what would be started without starting anything")
	flags.StringP("format", "f", "text", "report format (text, json)")
	flags.StringP("output", "o", "", "report file (default stdout)")
	flags.Duration("settle-delay", 2*time.Second, "delay before each drive is read")
	flags.Duration("wait-timeout", 30*time.Second, "upper bound of every frame and element wait")
	flags.Duration("timeout", 10*time.Minute, "upper bound of the whole run")
	flags.Bool("headless", true, "run the browser without a window")

	annotate(flags, "dry-run", "run.dry_run")
	annotate(flags, "format", "run.format")
	annotate(flags, "output", "run.output")
	annotate(flags, "settle-delay", "run.settle_delay")
	annotate(flags, "wait-timeout", "run.wait_timeout")
	annotate(flags, "timeout", "run.timeout")
	annotate(flags, "headless", "browser.headless")

	return checkCmd
}

func runCheck(cmd *cobra.Command, cfg *config.Config) (err error) {
	ctx := cmd.Context()
	logger := observability.GetLogger()
	run := cfg.Run()

	var reporter reporting.Reporter
	if run.Output == "" {
		reporter, err = reporting.NewWithWriter(run.Format, reporting.NopCloser(cmd.OutOrStdout()))
	} else {
		reporter, err = reporting.New(run.Format, run.Output)
	}
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := reporter.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("closing report: %w", closeErr))
		}
	}()

	driver, shutdown, err := newDriver(ctx, cfg.Browser(), logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if shutdownErr := shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("Browser shutdown failed.", zap.Error(shutdownErr))
		}
	}()

	o, err := orchestrator.New(cfg, logger, driver, reporter)
	if err != nil {
		return err
	}
	summary, err := o.Run(ctx)
	if err != nil {
		return fmt.Errorf("run %s: %w", summary.RunID, err)
	}
	return nil
}
