package thefork

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/forkbridge/internal/browser"
	"github.com/example/forkbridge/internal/domain/reservation"
)

// FormFiller types the customer's details into the two form steps that
// follow time selection. Missing contact inputs are errors; the optional
// extras on the second step are skipped with a warning.
type FormFiller struct {
	page   browser.Page
	sel    Selectors
	timing Timings
	log    *slog.Logger
}

func NewFormFiller(page browser.Page, sel Selectors, timing Timings, logger *slog.Logger) *FormFiller {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormFiller{page: page, sel: sel, timing: timing, log: logger}
}

func (f *FormFiller) FillContact(ctx context.Context, c reservation.CustomerInfo) error {
	if err := f.page.WaitFor(f.sel.FirstName, f.timing.ElementTimeout); err != nil {
		return fmt.Errorf("contact form: %w", err)
	}
	if err := sleep(ctx, f.timing.Settle); err != nil {
		return err
	}

	civility := string(c.Civility())
	if label, err := f.page.Find(f.sel.Civility(civility)); err != nil {
		f.log.Warn("civility option not found", "civility", civility)
	} else if err := label.Click(); err != nil {
		f.log.Warn("civility click failed", "civility", civility, "err", err)
	}
	if err := sleep(ctx, f.timing.fieldPause()); err != nil {
		return err
	}

	fields := []struct {
		name, selector, value string
	}{
		{"first name", f.sel.FirstName, c.FirstName},
		{"last name", f.sel.LastName, c.LastName},
		{"email", f.sel.Email, c.Email},
		{"phone", f.sel.Phone, reservation.NormalizePhone(c.Phone)},
	}
	for i, fld := range fields {
		el, err := f.page.Find(fld.selector)
		if err != nil {
			return fmt.Errorf("%s field: %w", fld.name, err)
		}
		if err := el.Type(fld.value, f.timing.KeyDelay); err != nil {
			return fmt.Errorf("type %s: %w", fld.name, err)
		}
		if i < len(fields)-1 {
			if err := sleep(ctx, f.timing.fieldPause()); err != nil {
				return err
			}
		}
	}
	f.log.Info("contact details filled")

	// client side validation runs after the last keystroke
	return sleep(ctx, f.timing.Settle)
}

// FillAdditional fills the optional second step. Only the wait for the step
// itself can fail.
func (f *FormFiller) FillAdditional(ctx context.Context, c reservation.CustomerInfo) error {
	if err := f.page.WaitFor(browser.TestIDSelector(f.sel.BookButton), f.timing.ElementTimeout); err != nil {
		return fmt.Errorf("additional information step: %w", err)
	}
	if err := sleep(ctx, f.timing.Step); err != nil {
		return err
	}

	if c.Infant != nil {
		if err := f.selectInfant(ctx, *c.Infant); err != nil {
			f.log.Warn("infant option skipped", "err", err)
		}
	}
	if c.Allergies != "" {
		if err := f.typeOptional(f.sel.Allergies, c.Allergies); err != nil {
			f.log.Warn("allergies skipped", "err", err)
		}
	}
	if c.SpecialRequests != "" {
		if err := f.typeOptional(f.sel.SpecialRequests, c.SpecialRequests); err != nil {
			f.log.Warn("special requests skipped", "err", err)
		}
	}
	return sleep(ctx, f.timing.Step)
}

func (f *FormFiller) selectInfant(ctx context.Context, infant bool) error {
	field, err := f.page.FindByTestID(f.sel.InfantField)
	if err != nil {
		return err
	}
	control, err := field.Find(f.sel.InfantControl)
	if err != nil {
		return err
	}
	if err := control.Click(); err != nil {
		return err
	}
	if err := sleep(ctx, f.timing.Step); err != nil {
		return err
	}
	label := f.sel.InfantNo
	if infant {
		label = f.sel.InfantYes
	}
	opt, err := f.page.FindByVisibleText(f.sel.InfantOption, label)
	if err != nil {
		return err
	}
	return opt.Click()
}

func (f *FormFiller) typeOptional(testID, text string) error {
	el, err := f.page.FindByTestID(testID)
	if err != nil {
		return err
	}
	return el.Type(text, f.timing.optionalKeyDelay())
}
