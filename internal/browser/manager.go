// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/raidcc/internal/config"
)

// Manager owns the Chrome exec allocator and the sessions launched from it.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	sessions []*Session
}

// NewManager prepares an allocator for cfg. No browser is started until
// NewSession is called. Canceling ctx kills every browser of the manager.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)
	return &Manager{
		cfg:         cfg,
		logger:      logger.Named("browser"),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}
}

// NewSession launches a browser and returns a session on its first tab.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	sugar := m.logger.Named("cdp").Sugar()
	tabCtx, cancel := chromedp.NewContext(m.allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	s := newSession(tabCtx, cancel, m.cfg, m.logger)
	if err := s.start(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("launching chrome: %w", err)
	}

	m.mu.Lock()
	m.sessions = append(m.sessions, s)
	m.mu.Unlock()

	m.logger.Info("Browser started.", zap.Bool("headless", m.cfg.Headless))
	return s, nil
}

// Shutdown closes every session and releases the allocator.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = nil
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	m.allocCancel()
	m.logger.Debug("Browser manager shut down.")
	return errors.Join(errs...)
}
