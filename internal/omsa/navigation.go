// internal/omsa/navigation.go
package omsa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultWaitTimeout  = 30 * time.Second
	defaultPollInterval = 250 * time.Millisecond
)

// NavigationContext is an explicit stack of nested browsing contexts. Every
// element operation it forwards to the Driver is scoped to the top of the
// stack. Top-level phases must Reset before they start so frame depth left
// over from a previous phase cannot leak into the next one.
type NavigationContext struct {
	driver       Driver
	logger       *zap.Logger
	waitTimeout  time.Duration
	pollInterval time.Duration
	stack        []string
}

// NavOption configures a NavigationContext.
type NavOption func(*NavigationContext)

// WithWaitTimeout sets the budget of every bounded wait.
func WithWaitTimeout(d time.Duration) NavOption {
	return func(n *NavigationContext) {
		if d > 0 {
			n.waitTimeout = d
		}
	}
}

// WithPollInterval sets how often presence checks are repeated while waiting.
func WithPollInterval(d time.Duration) NavOption {
	return func(n *NavigationContext) {
		if d > 0 {
			n.pollInterval = d
		}
	}
}

// NewNavigationContext returns a context positioned at the document root.
func NewNavigationContext(driver Driver, logger *zap.Logger, opts ...NavOption) *NavigationContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &NavigationContext{
		driver:       driver,
		logger:       logger.Named("navigation"),
		waitTimeout:  defaultWaitTimeout,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Scope returns a copy of the current frame path.
func (n *NavigationContext) Scope() Scope {
	s := make(Scope, len(n.stack))
	copy(s, n.stack)
	return s
}

// Depth is the number of frames entered below the root.
func (n *NavigationContext) Depth() int { return len(n.stack) }

// Reset returns to the document root.
func (n *NavigationContext) Reset() {
	n.stack = n.stack[:0]
}

// Pop returns to the parent browsing context.
func (n *NavigationContext) Pop() error {
	if len(n.stack) == 0 {
		return ErrAtRoot
	}
	n.stack = n.stack[:len(n.stack)-1]
	return nil
}

// Enter waits for the named frame under the current scope and pushes it.
func (n *NavigationContext) Enter(ctx context.Context, name string) error {
	scope := n.Scope()
	err := n.await(ctx, FrameNotFound, scope, name, func(c context.Context) (bool, error) {
		return n.driver.FramePresent(c, scope, name)
	})
	if err != nil {
		return err
	}
	n.stack = append(n.stack, name)
	n.logger.Debug("Entered frame.", zap.Stringer("scope", n.Scope()))
	return nil
}

// WaitElement blocks until selector matches in the current scope.
func (n *NavigationContext) WaitElement(ctx context.Context, selector string) error {
	scope := n.Scope()
	return n.await(ctx, ElementTimeout, scope, selector, func(c context.Context) (bool, error) {
		return n.driver.ElementPresent(c, scope, selector)
	})
}

// Navigate resets the stack and loads url at the top level.
func (n *NavigationContext) Navigate(ctx context.Context, url string) error {
	n.Reset()
	if err := n.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigating to console: %w", err)
	}
	return nil
}

// Click clicks selector in the current scope.
func (n *NavigationContext) Click(ctx context.Context, selector string) error {
	return n.driver.Click(ctx, n.Scope(), selector)
}

// WaitAndClick waits for selector and clicks it.
func (n *NavigationContext) WaitAndClick(ctx context.Context, selector string) error {
	if err := n.WaitElement(ctx, selector); err != nil {
		return err
	}
	return n.Click(ctx, selector)
}

// SetValue assigns value to selector in the current scope.
func (n *NavigationContext) SetValue(ctx context.Context, selector, value string) error {
	return n.driver.SetValue(ctx, n.Scope(), selector, value)
}

// Query snapshots every element matching selector in the current scope.
func (n *NavigationContext) Query(ctx context.Context, selector string) ([]Element, error) {
	return n.driver.Query(ctx, n.Scope(), selector)
}

// Invoke calls a page-global function of the current scope's window.
func (n *NavigationContext) Invoke(ctx context.Context, function string, args ...interface{}) error {
	return n.driver.Invoke(ctx, n.Scope(), function, args...)
}

// await polls check until it reports true or the wait budget runs out.
// Driver errors while polling are remembered but not fatal: frames are
// routinely torn down and rebuilt while the console reloads.
func (n *NavigationContext) await(ctx context.Context, kind WaitKind, scope Scope, target string, check func(context.Context) (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, n.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := check(waitCtx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
			n.logger.Debug("Presence check failed, polling again.",
				zap.Stringer("kind", kind), zap.String("target", target), zap.Error(err))
		}

		select {
		case <-waitCtx.Done():
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
				return fmt.Errorf("waiting for %q in %s: %w", target, scope, ctxErr)
			}
			cause := waitCtx.Err()
			if lastErr != nil {
				cause = errors.Join(cause, lastErr)
			}
			return &WaitError{Kind: kind, Scope: scope, Target: target, Err: cause}
		case <-ticker.C:
		}
	}
}
