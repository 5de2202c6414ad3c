// internal/omsa/session.go
package omsa

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Session is the single authenticated console session of a run.
type Session struct {
	// TargetHost is the managed server selected on the login form.
	TargetHost string
	Username   string
	Password   string
	ConsoleURL string
	// IgnoreCertificate ticks the login form's "ignore certificate" box.
	IgnoreCertificate bool
	Authenticated     bool
}

// String omits the password.
func (s *Session) String() string {
	return fmt.Sprintf("%s@%s via %s (authenticated=%t)", s.Username, s.TargetHost, s.ConsoleURL, s.Authenticated)
}

// SessionManager logs in to and out of the console.
type SessionManager struct {
	logger *zap.Logger
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{logger: logger.Named("session")}
}

// Login fills and submits the login form, then waits for the post-login
// frameset. The form response itself is not inspected: the body frame
// appearing under the root is the only success signal.
func (m *SessionManager) Login(ctx context.Context, nav *NavigationContext, s *Session) error {
	m.logger.Info("Logging in to console.",
		zap.String("user", s.Username), zap.String("target", s.TargetHost))

	nav.Reset()
	if err := nav.WaitElement(ctx, SelectorFrameset); err != nil {
		return fmt.Errorf("login page did not render: %w", err)
	}
	if err := nav.Enter(ctx, FrameLogin); err != nil {
		return fmt.Errorf("login page did not render: %w", err)
	}
	if err := nav.WaitElement(ctx, SelectorLoginUser); err != nil {
		return fmt.Errorf("login form did not render: %w", err)
	}

	ignoreCert := ""
	if s.IgnoreCertificate {
		ignoreCert = "1"
	}
	fields := []struct{ selector, value string }{
		{SelectorTargetMachine, s.TargetHost},
		{SelectorUser, s.Username},
		{SelectorPassword, s.Password},
		{SelectorIgnoreCertificate, ignoreCert},
	}
	for _, f := range fields {
		if err := nav.SetValue(ctx, f.selector, f.value); err != nil {
			return fmt.Errorf("filling login field %s: %w", f.selector, err)
		}
	}
	if err := nav.Click(ctx, SelectorLoginSubmit); err != nil {
		return fmt.Errorf("submitting login form: %w", err)
	}

	// The form targets the top window, so the frameset to look for is at the root.
	nav.Reset()
	if err := nav.Enter(ctx, FrameBody); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	s.Authenticated = true
	m.logger.Info("Logged in.", zap.String("target", s.TargetHost))
	return nil
}

// Logout invokes the console's logout entry point from the navigation frame.
func (m *SessionManager) Logout(ctx context.Context, nav *NavigationContext, s *Session) error {
	if !s.Authenticated {
		m.logger.Debug("Logout skipped, session is not authenticated.")
		return nil
	}
	nav.Reset()
	if err := nav.Enter(ctx, FrameNavigation); err != nil {
		return fmt.Errorf("navigation frame: %w", err)
	}
	if err := nav.Invoke(ctx, FunctionLogout); err != nil {
		return fmt.Errorf("calling %s: %w", FunctionLogout, err)
	}
	s.Authenticated = false
	m.logger.Info("Logged out.")
	return nil
}
