// internal/orchestrator/orchestrator.go
// Description: Runs the consistency check workflow against one console as an
// explicit list of steps, each gated by a named precondition.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/raidcc/internal/config"
	"github.com/xkilldash9x/raidcc/internal/omsa"
	"github.com/xkilldash9x/raidcc/internal/reporting"
)

// Step names, used in errors and logs.
const (
	StepOpen    = "open console"
	StepLogin   = "login"
	StepStorage = "open storage"
	StepDrives  = "dispatch drives"
	StepLogout  = "logout"
)

// Summary describes a finished or aborted run.
type Summary struct {
	RunID    string
	Drives   int
	Outcomes map[omsa.Outcome]int
	Duration time.Duration
}

func (s *Summary) add(res omsa.ActionResult) {
	s.Drives++
	s.Outcomes[res.Outcome]++
}

// Orchestrator drives one console session from login to logout. It is not
// safe for concurrent use; a run owns the driver exclusively.
type Orchestrator struct {
	cfg      config.Interface
	logger   *zap.Logger
	driver   omsa.Driver
	reporter reporting.Reporter

	sessions   *omsa.SessionManager
	discoverer *omsa.Discoverer
	dispatcher *omsa.Dispatcher
}

// New creates an Orchestrator. The reporter is written to but not closed.
func New(cfg config.Interface, logger *zap.Logger, driver omsa.Driver, reporter reporting.Reporter) (*Orchestrator, error) {
	if cfg == nil || logger == nil || driver == nil || reporter == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		cfg:        cfg,
		logger:     logger.Named("orchestrator"),
		driver:     driver,
		reporter:   reporter,
		sessions:   omsa.NewSessionManager(logger),
		discoverer: omsa.NewDiscoverer(logger),
		dispatcher: omsa.NewDispatcher(logger, omsa.WithDryRun(cfg.Run().DryRun)),
	}, nil
}

// runState is threaded through the steps of one run.
type runState struct {
	nav     *omsa.NavigationContext
	session *omsa.Session
	summary *Summary
	logger  *zap.Logger
	// loggedOut is set once logout has been attempted, whatever its result.
	loggedOut bool
}

func (o *Orchestrator) steps() []step {
	run := o.cfg.Run()
	return []step{
		{
			name: StepOpen,
			run: func(ctx context.Context, st *runState) error {
				return st.nav.Navigate(ctx, st.session.ConsoleURL)
			},
		},
		{
			name: StepLogin,
			pre:  ElementPresent{Scope: omsa.Scope{}, Selector: omsa.SelectorFrameset},
			run: func(ctx context.Context, st *runState) error {
				return o.sessions.Login(ctx, st.nav, st.session)
			},
		},
		{
			name: StepStorage,
			pre:  ElementPresent{Scope: omsa.Scope{omsa.FrameBody, omsa.FrameTree}, Selector: omsa.SelectorStorageLink},
			run: func(ctx context.Context, st *runState) error {
				return o.discoverer.OpenStorage(ctx, st.nav)
			},
		},
		{
			name: StepDrives,
			run: func(ctx context.Context, st *runState) error {
				return o.dispatchDrives(ctx, st, Elapsed(run.SettleDelay))
			},
		},
		{
			name: StepLogout,
			run: func(ctx context.Context, st *runState) error {
				st.loggedOut = true
				return o.sessions.Logout(ctx, st.nav, st.session)
			},
		},
	}
}

// Run executes the step list once. On failure it still attempts to log out
// when the session is authenticated, and returns a *StepError naming the
// failing step. The summary is returned in both cases.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	run := o.cfg.Run()
	if run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, run.Timeout)
		defer cancel()
	}

	start := time.Now()
	summary := &Summary{RunID: uuid.NewString(), Outcomes: make(map[omsa.Outcome]int)}
	logger := o.logger.With(zap.String("run_id", summary.RunID))
	st := &runState{
		nav: omsa.NewNavigationContext(o.driver, logger,
			omsa.WithWaitTimeout(run.WaitTimeout), omsa.WithPollInterval(run.PollInterval)),
		session: o.newSession(),
		summary: summary,
		logger:  logger,
	}
	logger.Info("Starting run.", zap.Stringer("session", st.session), zap.Bool("dry_run", run.DryRun))

	err := o.execute(ctx, st)
	summary.Duration = time.Since(start)
	if err != nil {
		o.abort(ctx, st)
	}
	o.logSummary(logger, summary, err)
	return summary, err
}

func (o *Orchestrator) execute(ctx context.Context, st *runState) error {
	for _, s := range o.steps() {
		log := st.logger.With(zap.String("step", s.name))
		if s.pre != nil {
			log.Debug("Awaiting precondition.", zap.Stringer("precondition", s.pre))
			if err := s.pre.Await(ctx, st.nav); err != nil {
				return &StepError{Step: s.name, Err: fmt.Errorf("%s: %w", s.pre, err)}
			}
		}
		log.Debug("Running step.")
		if err := s.run(ctx, st); err != nil {
			return &StepError{Step: s.name, Err: err}
		}
	}
	return nil
}

func (o *Orchestrator) dispatchDrives(ctx context.Context, st *runState, settle Elapsed) error {
	for drive, err := range o.discoverer.Drives(ctx, st.nav, settle.Pacer()) {
		if err != nil {
			return err
		}
		if err := o.reporter.Found(drive); err != nil {
			return fmt.Errorf("reporting %s: %w", drive.Name, err)
		}
		res, err := o.dispatcher.Dispatch(ctx, st.nav, drive)
		if err != nil {
			return err
		}
		if err := o.reporter.Write(res); err != nil {
			return fmt.Errorf("reporting %s: %w", drive.Name, err)
		}
		st.summary.add(res)
	}
	return nil
}

// abort logs out on a context detached from ctx's cancellation, so an
// interrupted or timed out run still releases its console session. Logout is
// attempted at most once per run.
func (o *Orchestrator) abort(ctx context.Context, st *runState) {
	if !st.session.Authenticated || st.loggedOut {
		return
	}
	st.loggedOut = true
	logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.Run().WaitTimeout)
	defer cancel()
	if err := o.sessions.Logout(logoutCtx, st.nav, st.session); err != nil {
		st.logger.Warn("Best-effort logout failed.", zap.Error(err))
	}
}

func (o *Orchestrator) newSession() *omsa.Session {
	console := o.cfg.Console()
	return &omsa.Session{
		TargetHost:        console.ManagedHost,
		Username:          console.Username,
		Password:          console.Password,
		ConsoleURL:        console.URL(),
		IgnoreCertificate: console.IgnoreCertificate,
	}
}

func (o *Orchestrator) logSummary(logger *zap.Logger, s *Summary, err error) {
	fields := []zap.Field{
		zap.Int("drives", s.Drives),
		zap.Int("started", s.Outcomes[omsa.Started]),
		zap.Int("already_running", s.Outcomes[omsa.AlreadyRunning]),
		zap.Int("would_start", s.Outcomes[omsa.WouldStart]),
		zap.Int("no_action", s.Outcomes[omsa.NoActionAvailable]),
		zap.Duration("duration", s.Duration),
	}
	switch {
	case err == nil:
		logger.Info("Run finished.", fields...)
	case errors.Is(err, context.Canceled):
		logger.Warn("Run interrupted.", fields...)
	default:
		logger.Error("Run failed.", append(fields, zap.Error(err))...)
	}
}
