package thefork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/example/forkbridge/internal/browser"
	"github.com/example/forkbridge/internal/domain/reservation"
)

var (
	ErrIllegalTransition = errors.New("illegal navigator transition")
	ErrTimeNotFound      = errors.New("time slot not found")
)

type State int

const (
	Unloaded State = iota
	DateSelected
	PeopleSelected
	TimesListed
	TimeSelected
	Blocked
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case DateSelected:
		return "date_selected"
	case PeopleSelected:
		return "people_selected"
	case TimesListed:
		return "times_listed"
	case TimeSelected:
		return "time_selected"
	case Blocked:
		return "blocked"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

var (
	slotPattern    = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	leadingInteger = regexp.MustCompile(`\d+`)
)

// Navigator walks one page through the widget's date, party size and time
// steps. Each primitive checks the current state first and refuses to touch
// the page when called out of order.
type Navigator struct {
	page   browser.Page
	url    string
	sel    Selectors
	timing Timings
	log    *slog.Logger

	state    State
	loaded   bool
	hourOpen bool
}

func NewNavigator(page browser.Page, url string, sel Selectors, timing Timings, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{page: page, url: url, sel: sel, timing: timing, log: logger}
}

func (n *Navigator) State() State { return n.state }

func (n *Navigator) require(op string, from ...State) error {
	if !slices.Contains(from, n.state) {
		return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, op, n.state)
	}
	return nil
}

func (n *Navigator) block(err error) error {
	n.state = Blocked
	return err
}

// Load opens the widget and waits for it to render. It is the only entry
// point and leaves the navigator in Unloaded.
func (n *Navigator) Load(ctx context.Context) error {
	if err := n.require("load", Unloaded); err != nil {
		return err
	}
	if err := n.page.Goto(ctx, n.url); err != nil {
		return n.block(err)
	}
	if err := sleep(ctx, n.timing.Settle); err != nil {
		return n.block(err)
	}
	n.loaded = true
	return nil
}

// SelectDate clicks the calendar cell for date (YYYY-MM-DD). A missing or
// disabled cell is reported as false, not as an error.
func (n *Navigator) SelectDate(ctx context.Context, date string) (bool, error) {
	if err := n.require("select date", Unloaded); err != nil {
		return false, err
	}
	if !n.loaded {
		return false, fmt.Errorf("%w: select date before load", ErrIllegalTransition)
	}

	cell, err := n.page.FindByTestID(n.sel.DateCell(date))
	if errors.Is(err, browser.ErrNotFound) {
		n.log.Info("date cell not found", "date", date)
		n.state = Blocked
		return false, nil
	}
	if err != nil {
		return false, n.block(err)
	}
	disabled, err := cell.Disabled()
	if err != nil {
		return false, n.block(err)
	}
	if disabled {
		n.log.Info("date disabled", "date", date)
		n.state = Blocked
		return false, nil
	}
	if err := cell.Click(); err != nil {
		return false, n.block(fmt.Errorf("click date %s: %w", date, err))
	}
	if err := sleep(ctx, n.timing.Step); err != nil {
		return false, n.block(err)
	}
	n.state = DateSelected
	return true, nil
}

// SelectPeople picks the party size, clamped to what the widget offers. An
// option whose label's first number equals the count is clicked; if none
// matches the widget default is kept.
func (n *Navigator) SelectPeople(ctx context.Context, count int) error {
	if err := n.require("select people", DateSelected); err != nil {
		return err
	}
	count = reservation.ClampPartySize(count)

	control, err := n.page.FindByTestID(n.sel.PartySizeControl)
	if err != nil {
		return n.block(fmt.Errorf("party size control: %w", err))
	}
	if err := control.Click(); err != nil {
		return n.block(fmt.Errorf("open party size: %w", err))
	}
	if err := sleep(ctx, n.timing.Step); err != nil {
		return n.block(err)
	}

	options, err := n.page.FindAll(n.sel.PartySizeOptions)
	if err != nil {
		return n.block(err)
	}
	picked := false
	for _, opt := range options {
		text, err := opt.Text()
		if err != nil {
			continue
		}
		if v, ok := firstInt(text); ok && v == count {
			if err := opt.Click(); err != nil {
				return n.block(fmt.Errorf("click party size %d: %w", count, err))
			}
			picked = true
			break
		}
	}
	if !picked {
		n.log.Warn("party size option not found, keeping widget default", "people", count)
	}
	if err := sleep(ctx, n.timing.Step); err != nil {
		return n.block(err)
	}
	n.state = PeopleSelected
	return nil
}

// ListAvailableTimes opens the hour list and returns every HH:MM found on
// an enabled button, deduplicated and ascending. No slots is an empty
// slice, not an error.
func (n *Navigator) ListAvailableTimes(ctx context.Context) ([]string, error) {
	if err := n.require("list times", PeopleSelected); err != nil {
		return nil, err
	}
	if err := n.openHours(ctx, n.timing.Settle, true); err != nil {
		return nil, n.block(err)
	}

	buttons, err := n.page.FindAll(n.sel.EnabledButtons)
	if err != nil {
		return nil, n.block(err)
	}
	var times []string
	for _, b := range buttons {
		text, err := b.Text()
		if err != nil {
			continue
		}
		if t, ok := extractSlot(text); ok {
			times = append(times, t)
		}
	}
	times = reservation.NormalizeSlots(times)
	n.log.Info("times listed", "count", len(times))
	n.state = TimesListed
	return times, nil
}

// SelectTime clicks the first button whose text contains t.
func (n *Navigator) SelectTime(ctx context.Context, t string) error {
	if err := n.require("select time", PeopleSelected, TimesListed); err != nil {
		return err
	}
	if !n.hourOpen {
		if err := n.openHours(ctx, n.timing.Step, false); err != nil {
			return n.block(err)
		}
	}

	buttons, err := n.page.FindAll(n.sel.Buttons)
	if err != nil {
		return n.block(err)
	}
	for _, b := range buttons {
		text, err := b.Text()
		if err != nil || !containsSlot(text, t) {
			continue
		}
		if err := b.Click(); err != nil {
			return n.block(fmt.Errorf("click time %s: %w", t, err))
		}
		if err := sleep(ctx, n.timing.Step); err != nil {
			return n.block(err)
		}
		n.state = TimeSelected
		return nil
	}
	return n.block(fmt.Errorf("%w: %s", ErrTimeNotFound, t))
}

// openHours clicks the hour control. When required is false a missing
// control is tolerated since the list may already be rendered.
func (n *Navigator) openHours(ctx context.Context, settle time.Duration, required bool) error {
	control, err := n.page.FindByTestID(n.sel.HourControl)
	if err != nil {
		if !required && errors.Is(err, browser.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("hour control: %w", err)
	}
	if err := control.Click(); err != nil {
		return fmt.Errorf("open hours: %w", err)
	}
	n.hourOpen = true
	return sleep(ctx, settle)
}

func extractSlot(text string) (string, bool) {
	m := slotPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	if h > 23 {
		return "", false
	}
	return fmt.Sprintf("%02d:%s", h, m[2]), true
}

// containsSlot matches t against every time on the label, so "9:30" on the
// page satisfies a request for "09:30".
func containsSlot(text, t string) bool {
	for _, m := range slotPattern.FindAllStringSubmatch(text, -1) {
		h, _ := strconv.Atoi(m[1])
		if fmt.Sprintf("%02d:%s", h, m[2]) == t {
			return true
		}
	}
	return false
}

func firstInt(text string) (int, bool) {
	m := leadingInteger.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	return v, err == nil
}
