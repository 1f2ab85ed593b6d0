package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/example/forkbridge/internal/metrics"
)

// Session owns at most one running browser. The browser is launched on the
// first AcquirePage and shared by every page until Shutdown.
type Session struct {
	launcher Launcher
	opts     LaunchOptions
	log      *slog.Logger
	pages    *semaphore.Weighted

	mu      sync.Mutex
	browser Browser

	open     atomic.Int64
	launches atomic.Int64
}

func NewSession(l Launcher, opts LaunchOptions, maxPages int, logger *slog.Logger) *Session {
	if maxPages < 1 {
		maxPages = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.Args) == 0 {
		opts.Args = SandboxArgs
	}
	return &Session{
		launcher: l,
		opts:     opts,
		log:      logger.With("component", "browser"),
		pages:    semaphore.NewWeighted(int64(maxPages)),
	}
}

// ensure launches the browser if none is running. The mutex is held across
// Launch so concurrent first callers start exactly one process; a failed
// launch leaves the handle empty and the next caller tries again.
func (s *Session) ensure(ctx context.Context) (Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		if c, ok := s.browser.(interface{ Connected() bool }); !ok || c.Connected() {
			return s.browser, nil
		}
		s.log.Warn("browser disconnected, relaunching")
		_ = s.browser.Close()
		s.browser = nil
	}

	s.log.Info("launching browser", "headless", s.opts.Headless)
	b, err := s.launcher.Launch(ctx, s.opts)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	s.browser = b
	s.launches.Add(1)
	metrics.BrowserLaunches.Inc()
	return b, nil
}

// AcquirePage returns a fresh isolated page. It blocks while the page limit
// is reached. Every page must be handed back through ReleasePage.
func (s *Session) AcquirePage(ctx context.Context) (Page, error) {
	if err := s.pages.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	b, err := s.ensure(ctx)
	if err != nil {
		s.pages.Release(1)
		return nil, err
	}
	p, err := b.NewPage()
	if err != nil {
		s.pages.Release(1)
		return nil, fmt.Errorf("new page: %w", err)
	}
	s.open.Add(1)
	metrics.OpenPages.Inc()
	return &leasedPage{Page: p, session: s}, nil
}

// ReleasePage closes p. The shared browser is never closed here.
func (s *Session) ReleasePage(p Page) error {
	if p == nil {
		return nil
	}
	return p.Close()
}

// Shutdown closes the browser if one is running. It is safe to call more
// than once and before any page was ever acquired. Shutdown only clears the
// handle: a later AcquirePage launches a fresh browser, so a session is never
// permanently closed. ErrClosed reports a browser that went away under a
// page, not a shut-down session.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	s.log.Info("browser closed")
	return err
}

// OpenPages reports pages acquired and not yet released.
func (s *Session) OpenPages() int64 { return s.open.Load() }

// Launches reports how many browser processes this session has started.
func (s *Session) Launches() int64 { return s.launches.Load() }

// Running reports whether a browser handle is currently held.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser != nil
}

type leasedPage struct {
	Page
	session *Session
	once    sync.Once
}

func (p *leasedPage) Close() error {
	var err error
	p.once.Do(func() {
		err = p.Page.Close()
		p.session.open.Add(-1)
		metrics.OpenPages.Dec()
		p.session.pages.Release(1)
	})
	return err
}
