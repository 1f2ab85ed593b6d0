package thefork

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/forkbridge/internal/browser"
)

// widget describes what the fake reservation widget renders. Every page
// opened from it starts at the calendar.
type widget struct {
	sel           Selectors
	dates         map[string]bool
	partyOptions  []string
	slots         []string
	disabledSlots []string
	// "marker", "text" or "" for a page with no confirmation signal.
	success string
	hidden  map[string]bool
	gotoErr error
	panicOn string
	// calendarDays keeps day buttons 1-31 rendered ahead of every popover,
	// so any selector that matches plain buttons also matches them.
	calendarDays bool

	mu    sync.Mutex
	pages []*fakePage
}

func newWidget() *widget {
	w := &widget{
		sel:     DefaultSelectors(),
		dates:   map[string]bool{"2025-12-03": true, "2025-12-04": false},
		slots:   []string{"19:00", "20:00", "21:00"},
		success: "marker",
		hidden:  map[string]bool{},
	}
	for i := 1; i <= 40; i++ {
		w.partyOptions = append(w.partyOptions, fmt.Sprintf("%d Pers.", i))
	}
	return w
}

func (w *widget) lastPage() *fakePage {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pages) == 0 {
		return nil
	}
	return w.pages[len(w.pages)-1]
}

func (w *widget) Launch(context.Context, browser.LaunchOptions) (browser.Browser, error) {
	return w, nil
}

func (w *widget) NewPage() (browser.Page, error) {
	p := &fakePage{w: w, fields: map[string]string{}}
	w.mu.Lock()
	w.pages = append(w.pages, p)
	w.mu.Unlock()
	return p, nil
}

func (w *widget) Close() error { return nil }

const (
	stepCalendar = iota
	stepContact
	stepAdditional
	stepDone
)

type fakePage struct {
	w *widget

	mu           sync.Mutex
	loaded       bool
	date         string
	paxOpen      bool
	hourOpen     bool
	party        string
	time         string
	step         int
	dropdownOpen bool
	infant       string
	civility     string
	fields       map[string]string
	clicks       []string
	closed       bool
}

func (p *fakePage) Goto(_ context.Context, url string) error {
	if p.w.gotoErr != nil {
		return p.w.gotoErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = true
	return nil
}

func (p *fakePage) el(key, text string, onClick func()) *fakeElement {
	return &fakeElement{p: p, key: key, text: text, onClick: onClick}
}

func (p *fakePage) FindByTestID(id string) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.w.sel
	if p.w.hidden[id] || !p.loaded {
		return nil, browser.NotFound(browser.TestIDSelector(id))
	}
	if strings.HasPrefix(id, sel.DateCellPrefix) {
		date := strings.TrimPrefix(id, sel.DateCellPrefix)
		if enabled, ok := p.w.dates[date]; ok {
			e := p.el(id, date[len(date)-2:], func() { p.date = date })
			e.disabled = !enabled
			return e, nil
		}
		return nil, browser.NotFound(browser.TestIDSelector(id))
	}
	switch {
	case id == sel.PartySizeControl && p.date != "":
		return p.el(id, "Pers.", func() { p.paxOpen = true }), nil
	case id == sel.HourControl && p.date != "":
		return p.el(id, "Hour", func() { p.hourOpen = true }), nil
	case id == sel.NextButton && p.step >= stepContact:
		return p.el(id, "Next", func() { p.step = stepAdditional }), nil
	case id == sel.BookButton && p.step >= stepAdditional:
		return p.el(id, "Book", func() { p.step = stepDone }), nil
	case id == sel.InfantField && p.step >= stepAdditional:
		return p.el(id, "", nil), nil
	case (id == sel.Allergies || id == sel.SpecialRequests) && p.step >= stepAdditional:
		return p.el(id, "", nil), nil
	}
	return nil, browser.NotFound(browser.TestIDSelector(id))
}

func (p *fakePage) FindByVisibleText(selector, text string) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if selector == p.w.sel.InfantOption && p.dropdownOpen && !p.w.hidden[selector] {
		return p.el(selector+"/"+text, text, func() { p.infant = text }), nil
	}
	return nil, browser.NotFound(selector)
}

func (p *fakePage) Find(selector string) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.w.sel
	if p.w.hidden[selector] || p.step < stepContact {
		return nil, browser.NotFound(selector)
	}
	switch selector {
	case sel.FirstName, sel.LastName, sel.Email, sel.Phone:
		return p.el(selector, "", nil), nil
	}
	for _, c := range []string{"mr", "mrs", "mx"} {
		if selector == sel.Civility(c) {
			return p.el(selector, c, func() { p.civility = c }), nil
		}
	}
	return nil, browser.NotFound(selector)
}

func (p *fakePage) FindAll(selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.w.sel
	var out []browser.Element
	if selector != sel.Buttons && selector != sel.EnabledButtons && selector != sel.PartySizeOptions {
		return nil, nil
	}
	if p.w.calendarDays && p.loaded && (selector == sel.Buttons || selector == sel.EnabledButtons) {
		for d := 1; d <= 31; d++ {
			day := fmt.Sprintf("day-%d", d)
			out = append(out, p.el(day, strconv.Itoa(d), func() { p.date = "clicked-" + day }))
		}
	}
	if p.paxOpen {
		for _, o := range p.w.partyOptions {
			o := o
			out = append(out, p.el("party", o, func() { p.party = o }))
		}
	}
	if p.hourOpen {
		for _, s := range p.w.slots {
			s := s
			out = append(out, p.el("slot", s, func() {
				p.time = s
				p.step = stepContact
			}))
		}
		if selector == sel.Buttons {
			for _, s := range p.w.disabledSlots {
				e := p.el("slot", s, nil)
				e.disabled = true
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (p *fakePage) WaitFor(selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.w.sel
	if !p.w.hidden[selector] {
		switch {
		case selector == sel.FirstName && p.step >= stepContact:
			return nil
		case selector == browser.TestIDSelector(sel.BookButton) && p.step >= stepAdditional:
			return nil
		}
	}
	return browser.NotFound(selector)
}

func (p *fakePage) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.step < stepDone {
		return `<html><body><h1>Book a table</h1></body></html>`, nil
	}
	switch p.w.success {
	case "marker":
		return `<html><body><div data-testid="wizard-layout-success"><h1>Booked</h1></div></body></html>`, nil
	case "text":
		return `<html><body><h1>¡Gracias!</h1><p>Tu reserva ha sido registrada.</p></body></html>`, nil
	}
	return `<html><body><p>Something went wrong, please try again.</p></body></html>`, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// pageState is a copy of what a page recorded, safe to inspect after the
// operation finished.
type pageState struct {
	date, party, time string
	step              int
	infant, civility  string
	fields            map[string]string
	clicks            []string
	closed            bool
}

func (p *fakePage) state() pageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	fields := make(map[string]string, len(p.fields))
	for k, v := range p.fields {
		fields[k] = v
	}
	return pageState{
		date:     p.date,
		party:    p.party,
		time:     p.time,
		step:     p.step,
		infant:   p.infant,
		civility: p.civility,
		fields:   fields,
		clicks:   append([]string(nil), p.clicks...),
		closed:   p.closed,
	}
}

type fakeElement struct {
	p        *fakePage
	key      string
	text     string
	disabled bool
	onClick  func()
}

func (e *fakeElement) Click() error {
	if e.p.w.panicOn != "" && e.p.w.panicOn == e.key {
		panic("widget crashed on " + e.key)
	}
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	if e.disabled {
		return fmt.Errorf("element %s is disabled", e.key)
	}
	e.p.clicks = append(e.p.clicks, e.key)
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Text() (string, error) { return e.text, nil }

func (e *fakeElement) Disabled() (bool, error) { return e.disabled, nil }

func (e *fakeElement) Type(text string, _ time.Duration) error {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	e.p.fields[e.key] = text
	return nil
}

func (e *fakeElement) Find(selector string) (browser.Element, error) {
	if e.key == e.p.w.sel.InfantField && selector == e.p.w.sel.InfantControl {
		return e.p.el(selector, "", func() { e.p.dropdownOpen = true }), nil
	}
	return nil, browser.NotFound(selector)
}
