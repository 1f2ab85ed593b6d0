package browser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPage struct {
	closed atomic.Bool
}

func (p *stubPage) Goto(context.Context, string) error { return nil }
func (p *stubPage) FindByTestID(id string) (Element, error) { return nil, NotFound(TestIDSelector(id)) }
func (p *stubPage) FindByVisibleText(s, _ string) (Element, error) { return nil, NotFound(s) }
func (p *stubPage) Find(s string) (Element, error) { return nil, NotFound(s) }
func (p *stubPage) FindAll(string) ([]Element, error) { return nil, nil }
func (p *stubPage) WaitFor(s string, _ time.Duration) error { return NotFound(s) }
func (p *stubPage) HTML() (string, error) { return "", nil }
func (p *stubPage) Close() error {
	p.closed.Store(true)
	return nil
}

type stubBrowser struct {
	closed atomic.Int32
}

func (b *stubBrowser) NewPage() (Page, error) { return &stubPage{}, nil }
func (b *stubBrowser) Close() error {
	b.closed.Add(1)
	return nil
}

type stubLauncher struct {
	calls atomic.Int32
	delay time.Duration
	err   error
	last  *stubBrowser
	opts  LaunchOptions
}

func (l *stubLauncher) Launch(_ context.Context, opts LaunchOptions) (Browser, error) {
	l.calls.Add(1)
	l.opts = opts
	time.Sleep(l.delay)
	if l.err != nil {
		return nil, l.err
	}
	l.last = &stubBrowser{}
	return l.last, nil
}

func TestConcurrentAcquireLaunchesOnce(t *testing.T) {
	l := &stubLauncher{delay: 20 * time.Millisecond}
	s := NewSession(l, LaunchOptions{Headless: true}, 16, nil)

	var wg sync.WaitGroup
	pages := make(chan Page, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.AcquirePage(context.Background())
			if assert.NoError(t, err) {
				pages <- p
			}
		}()
	}
	wg.Wait()
	close(pages)

	assert.EqualValues(t, 1, l.calls.Load())
	assert.EqualValues(t, 1, s.Launches())
	assert.EqualValues(t, 10, s.OpenPages())
	assert.Equal(t, SandboxArgs, l.opts.Args)

	for p := range pages {
		require.NoError(t, s.ReleasePage(p))
	}
	assert.EqualValues(t, 0, s.OpenPages())
	assert.True(t, s.Running(), "releasing pages must not close the browser")
	assert.EqualValues(t, 0, l.last.closed.Load())
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := NewSession(&stubLauncher{}, LaunchOptions{}, 1, nil)
	p, err := s.AcquirePage(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.ReleasePage(p))
	require.NoError(t, s.ReleasePage(p))
	assert.EqualValues(t, 0, s.OpenPages())

	// the single slot must be free again
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p2, err := s.AcquirePage(ctx)
	require.NoError(t, err)
	require.NoError(t, s.ReleasePage(p2))
}

func TestPageLimitBlocks(t *testing.T) {
	s := NewSession(&stubLauncher{}, LaunchOptions{}, 1, nil)
	p, err := s.AcquirePage(context.Background())
	require.NoError(t, err)
	defer s.ReleasePage(p)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = s.AcquirePage(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, s.OpenPages())
}

func TestLaunchFailurePropagatesAndRetries(t *testing.T) {
	boom := errors.New("no chromium")
	l := &stubLauncher{err: boom}
	s := NewSession(l, LaunchOptions{}, 2, nil)

	_, err := s.AcquirePage(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, s.Running())
	assert.EqualValues(t, 0, s.OpenPages())

	l.err = nil
	p, err := s.AcquirePage(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.ReleasePage(p))
	assert.EqualValues(t, 2, l.calls.Load())
}

func TestShutdownIdempotent(t *testing.T) {
	l := &stubLauncher{}
	s := NewSession(l, LaunchOptions{}, 1, nil)
	require.NoError(t, s.Shutdown(), "shutdown before launch")

	p, err := s.AcquirePage(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.ReleasePage(p))

	require.NoError(t, s.Shutdown())
	require.NoError(t, s.Shutdown())
	assert.EqualValues(t, 1, l.last.closed.Load())
	assert.False(t, s.Running())
}

func TestAcquireAfterShutdownRelaunches(t *testing.T) {
	l := &stubLauncher{}
	s := NewSession(l, LaunchOptions{}, 1, nil)
	ctx := context.Background()

	p, err := s.AcquirePage(ctx)
	require.NoError(t, err)
	require.NoError(t, s.ReleasePage(p))
	require.NoError(t, s.Shutdown())
	assert.False(t, s.Running())

	p, err = s.AcquirePage(ctx)
	require.NoError(t, err)
	require.NoError(t, s.ReleasePage(p))
	assert.True(t, s.Running())
	assert.EqualValues(t, 2, s.Launches())
	assert.EqualValues(t, 2, l.calls.Load())
	assert.Zero(t, s.OpenPages())
}
