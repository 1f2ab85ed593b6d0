package thefork

import (
	"context"
	"time"
)

// Timings are the fixed settle delays between widget steps. The widget
// renders client side with no completion signal, so each step waits a
// bounded amount of time instead of an event.
type Timings struct {
	// After navigation and after opening the hour list.
	Settle time.Duration
	// After each click that advances the wizard.
	Step time.Duration
	// After the final book click, before reading the result page.
	Submit time.Duration
	// Upper bound when waiting for a form step to appear.
	ElementTimeout time.Duration
	// Between keystrokes on contact fields.
	KeyDelay time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		Settle:         2 * time.Second,
		Step:           time.Second,
		Submit:         3 * time.Second,
		ElementTimeout: 10 * time.Second,
		KeyDelay:       50 * time.Millisecond,
	}
}

func (t Timings) fieldPause() time.Duration { return t.Step / 2 }

func (t Timings) optionalKeyDelay() time.Duration { return t.KeyDelay * 3 / 5 }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
