package reservation

import (
	"slices"

	"github.com/samber/lo"
)

// MaxAlternatives is how many other slots a caller-facing message offers.
const MaxAlternatives = 3

// NormalizeSlots dedupes and sorts HH:MM strings. Zero-padded times sort
// correctly as plain strings.
func NormalizeSlots(times []string) []string {
	out := lo.Uniq(lo.Compact(times))
	slices.Sort(out)
	return out
}

// Alternatives returns the first MaxAlternatives slots other than requested,
// in ascending order.
func Alternatives(requested string, available []string) []string {
	alts := lo.Filter(available, func(t string, _ int) bool { return t != requested })
	if len(alts) > MaxAlternatives {
		alts = alts[:MaxAlternatives]
	}
	return alts
}

// Classify turns a bookable date's slot list into a result. It upholds the
// invariant that Available implies q.Time is listed in AvailableTimes.
func Classify(q AvailabilityQuery, times []string) AvailabilityResult {
	times = NormalizeSlots(times)
	if len(times) == 0 {
		return AvailabilityResult{
			Available: false,
			Message:   noSlotsMessage(q),
			Outcome:   OutcomeNoSlots,
		}
	}
	if slices.Contains(times, q.Time) {
		return AvailabilityResult{
			Available:      true,
			AvailableTimes: times,
			Message:        availableMessage(q, times),
			Outcome:        OutcomeAvailable,
		}
	}
	return AvailabilityResult{
		Available:      false,
		AvailableTimes: times,
		Message:        timeTakenMessage(q, Alternatives(q.Time, times)),
		Outcome:        OutcomeTimeTaken,
	}
}

// DateUnavailable is the result for a date cell that is absent or disabled.
func DateUnavailable(q AvailabilityQuery) AvailabilityResult {
	return AvailabilityResult{Available: false, Message: dateUnavailableMessage(q), Outcome: OutcomeDateUnavailable}
}
