package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher starts chromium through the playwright driver.
type PlaywrightLauncher struct{}

// InstallChromium downloads the playwright driver and chromium build.
func InstallChromium() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

func (PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &pwBrowser{pw: pw, browser: b, timeout: opts.DefaultTimeout}, nil
}

type pwBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	timeout time.Duration
}

func (b *pwBrowser) Connected() bool { return b.browser.IsConnected() }

func (b *pwBrowser) NewPage() (Page, error) {
	if !b.browser.IsConnected() {
		return nil, ErrClosed
	}
	p, err := b.browser.NewPage()
	if err != nil {
		return nil, err
	}
	if b.timeout > 0 {
		p.SetDefaultTimeout(millis(b.timeout))
	}
	return &pwPage{page: p}, nil
}

func (b *pwBrowser) Close() error {
	err := b.browser.Close()
	if serr := b.pw.Stop(); err == nil {
		err = serr
	}
	return err
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (p *pwPage) FindByTestID(id string) (Element, error) {
	return p.Find(TestIDSelector(id))
}

func (p *pwPage) FindByVisibleText(selector, text string) (Element, error) {
	loc := p.page.Locator(selector).Filter(playwright.LocatorFilterOptions{HasText: text})
	return first(loc, fmt.Sprintf("%s with text %q", selector, text))
}

func (p *pwPage) Find(selector string) (Element, error) {
	return first(p.page.Locator(selector), selector)
}

func (p *pwPage) FindAll(selector string) ([]Element, error) {
	all, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(all))
	for _, l := range all {
		out = append(out, &pwElement{loc: l})
	}
	return out, nil
}

func (p *pwPage) WaitFor(selector string, timeout time.Duration) error {
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotFound, selector, err)
	}
	return nil
}

func (p *pwPage) HTML() (string, error) { return p.page.Content() }

func (p *pwPage) Close() error { return p.page.Close() }

type pwElement struct {
	loc playwright.Locator
}

func (e *pwElement) Click() error { return e.loc.Click() }

func (e *pwElement) Text() (string, error) { return e.loc.TextContent() }

func (e *pwElement) Disabled() (bool, error) { return e.loc.IsDisabled() }

func (e *pwElement) Type(text string, delay time.Duration) error {
	if err := e.loc.Click(); err != nil {
		return err
	}
	if err := e.loc.Clear(); err != nil {
		return err
	}
	return e.loc.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(millis(delay)),
	})
}

func (e *pwElement) Find(selector string) (Element, error) {
	return first(e.loc.Locator(selector), selector)
}

func first(loc playwright.Locator, desc string) (Element, error) {
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", desc, err)
	}
	if n == 0 {
		return nil, NotFound(desc)
	}
	return &pwElement{loc: loc.First()}, nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
