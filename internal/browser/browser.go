// Package browser owns the shared headless browser and hands out isolated
// pages. Callers see only the Page and Element capabilities below, so the
// widget automation can run against playwright or an in-memory fake.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("element not found")
	ErrClosed   = errors.New("browser session closed")
)

// NotFound wraps ErrNotFound with the selector that matched nothing.
func NotFound(selector string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, selector)
}

// Element is a single located node.
type Element interface {
	Click() error
	Text() (string, error)
	Disabled() (bool, error)
	// Type clicks the element, clears it and enters text one key at a time
	// with delay between keystrokes.
	Type(text string, delay time.Duration) error
	// Find locates the first descendant matching selector.
	Find(selector string) (Element, error)
}

// Page is one isolated browsing context owned by a single operation.
type Page interface {
	Goto(ctx context.Context, url string) error
	// FindByTestID locates the first element with the given data-testid.
	FindByTestID(id string) (Element, error)
	// FindByVisibleText locates the first element matching selector whose
	// text contains text.
	FindByVisibleText(selector, text string) (Element, error)
	Find(selector string) (Element, error)
	FindAll(selector string) ([]Element, error)
	// WaitFor blocks until selector is attached or timeout elapses.
	WaitFor(selector string, timeout time.Duration) error
	HTML() (string, error)
	Close() error
}

type LaunchOptions struct {
	Headless bool
	Args     []string
	// DefaultTimeout bounds each element action on pages of this browser.
	DefaultTimeout time.Duration
}

// SandboxArgs are passed to every launch; the service runs as root inside
// containers where the chromium sandbox is unavailable.
var SandboxArgs = []string{"--no-sandbox", "--disable-setuid-sandbox"}

type Browser interface {
	NewPage() (Page, error)
	Close() error
}

type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// TestIDSelector renders the CSS selector for a data-testid attribute.
func TestIDSelector(id string) string {
	return fmt.Sprintf(`[data-testid=%q]`, id)
}
