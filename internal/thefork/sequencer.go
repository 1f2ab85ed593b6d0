package thefork

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/forkbridge/internal/browser"
	"github.com/example/forkbridge/internal/domain/reservation"
)

const DefaultConfirmationTag = "ALAKRAN"

// Sequencer drives the two committal clicks (next, then book) and reads the
// outcome from the resulting page.
type Sequencer struct {
	page   browser.Page
	sel    Selectors
	timing Timings
	form   *FormFiller
	tag    string
	now    func() time.Time
	log    *slog.Logger
}

func NewSequencer(page browser.Page, sel Selectors, timing Timings, form *FormFiller, tag string, logger *slog.Logger) *Sequencer {
	if tag == "" {
		tag = DefaultConfirmationTag
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{page: page, sel: sel, timing: timing, form: form, tag: tag, now: time.Now, log: logger}
}

// Submit returns a locally minted confirmation id when the result page
// looks successful, or "" when no confirmation signal was found.
func (s *Sequencer) Submit(ctx context.Context, c reservation.CustomerInfo) (string, error) {
	next, err := s.page.FindByTestID(s.sel.NextButton)
	if err != nil {
		return "", fmt.Errorf("next button: %w", err)
	}
	if err := sleep(ctx, s.timing.Step); err != nil {
		return "", err
	}
	if err := next.Click(); err != nil {
		return "", fmt.Errorf("click next: %w", err)
	}
	if err := sleep(ctx, s.timing.Settle); err != nil {
		return "", err
	}

	if err := s.form.FillAdditional(ctx, c); err != nil {
		return "", err
	}

	book, err := s.page.FindByTestID(s.sel.BookButton)
	if err != nil {
		return "", fmt.Errorf("book button: %w", err)
	}
	if err := book.Click(); err != nil {
		return "", fmt.Errorf("click book: %w", err)
	}
	s.log.Info("booking submitted")
	if err := sleep(ctx, s.timing.Submit); err != nil {
		return "", err
	}

	html, err := s.page.HTML()
	if err != nil {
		return "", fmt.Errorf("read result page: %w", err)
	}
	ok, signal := DetectConfirmation(html, s.sel)
	if !ok {
		s.log.Warn("no confirmation signal after submit")
		return "", nil
	}
	id := fmt.Sprintf("%s-%d", s.tag, s.now().UnixMilli())
	s.log.Info("confirmation detected", "signal", signal, "confirmation", id)
	return id, nil
}
