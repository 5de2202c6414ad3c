// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/raidcc/internal/config"
	"github.com/xkilldash9x/raidcc/internal/omsa"
)

// Session is a browser tab driving the console. It implements omsa.Driver by
// evaluating small scripts in the top-level document that walk the frame
// tree by name on every call, so frames reloaded by the console are picked
// up without bookkeeping on this side.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.BrowserConfig
	logger *zap.Logger

	// handlers tracks dialog handlers still talking to the tab.
	handlers sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ omsa.Driver = (*Session)(nil)

func newSession(ctx context.Context, cancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger) *Session {
	return &Session{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger.Named("session"),
	}
}

// start launches the browser and attaches to its first tab. The browser is
// bound to s.ctx, so ctx only limits how long startup may take.
func (s *Session) start(ctx context.Context) error {
	if s.cfg.EchoConsole || s.cfg.AcceptDialogs {
		s.listen()
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(s.ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// Navigate loads url in the top-level document and waits for its load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	if err := s.runActions(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (s *Session) FramePresent(ctx context.Context, scope omsa.Scope, name string) (bool, error) {
	var present bool
	if err := s.evaluate(ctx, framePresentScript(scope, name), &present); err != nil {
		return false, fmt.Errorf("looking up frame %q in %s: %w", name, scope, err)
	}
	return present, nil
}

func (s *Session) ElementPresent(ctx context.Context, scope omsa.Scope, selector string) (bool, error) {
	var present bool
	if err := s.evaluate(ctx, elementPresentScript(scope, selector), &present); err != nil {
		return false, fmt.Errorf("looking up %q in %s: %w", selector, scope, err)
	}
	return present, nil
}

func (s *Session) Click(ctx context.Context, scope omsa.Scope, selector string) error {
	s.logger.Debug("Clicking.", zap.Stringer("scope", scope), zap.String("selector", selector))
	return s.perform(ctx, fmt.Sprintf("click %q in %s", selector, scope), clickScript(scope, selector))
}

func (s *Session) SetValue(ctx context.Context, scope omsa.Scope, selector, value string) error {
	return s.perform(ctx, fmt.Sprintf("set value of %q in %s", selector, scope), setValueScript(scope, selector, value))
}

func (s *Session) Query(ctx context.Context, scope omsa.Scope, selector string) ([]omsa.Element, error) {
	var res queryResult
	if err := s.evaluate(ctx, queryScript(scope, selector), &res); err != nil {
		return nil, fmt.Errorf("querying %q in %s: %w", selector, scope, err)
	}
	if !res.Loaded {
		return nil, fmt.Errorf("querying %q: scope %s is not loaded", selector, scope)
	}
	return res.Elements, nil
}

func (s *Session) Invoke(ctx context.Context, scope omsa.Scope, function string, args ...interface{}) error {
	s.logger.Debug("Invoking page function.",
		zap.Stringer("scope", scope), zap.String("function", function), zap.Any("args", args))
	return s.perform(ctx, fmt.Sprintf("call %s in %s", function, scope), invokeScript(scope, function, args))
}

// Close shuts the tab and its browser down, waiting at most until ctx is done.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.ctx) }()

	var err error
	select {
	case err = <-done:
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	case <-ctx.Done():
		s.logger.Warn("Browser did not close in time, killing it.", zap.Error(ctx.Err()))
		err = ctx.Err()
	}
	s.cancel()
	s.handlers.Wait()
	return err
}

// evaluate runs script and decodes its result into res.
func (s *Session) evaluate(ctx context.Context, script string, res interface{}) error {
	return s.runActions(ctx, chromedp.Evaluate(script, res))
}

// perform runs a script that returns "" on success or an error message.
func (s *Session) perform(ctx context.Context, op, script string) error {
	var msg string
	if err := s.evaluate(ctx, script, &msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if msg != "" {
		return fmt.Errorf("%s: %s", op, msg)
	}
	return nil
}

// runActions executes actions bounded by both the tab's lifetime and ctx.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}
