package reservation

import (
	"fmt"
	"strings"
)

func dateUnavailableMessage(q AvailabilityQuery) string {
	return fmt.Sprintf("The date %s is not available for reservations.", q.Date)
}

func noSlotsMessage(q AvailabilityQuery) string {
	return fmt.Sprintf("No available times on %s for %d people.", q.Date, q.PartySize)
}

func availableMessage(q AvailabilityQuery, times []string) string {
	return fmt.Sprintf("Available! %d time slots found for %s.", len(times), q.Date)
}

func timeTakenMessage(q AvailabilityQuery, alts []string) string {
	return fmt.Sprintf("The time %s is not available. Available times: %s", q.Time, strings.Join(alts, ", "))
}

func CheckFailed(err error) AvailabilityResult {
	return AvailabilityResult{
		Available: false,
		Message:   fmt.Sprintf("Error checking availability: %v", err),
		Outcome:   OutcomeError,
	}
}

func ReservationDateUnavailable(q AvailabilityQuery) ReservationResult {
	return ReservationResult{
		Success: false,
		Message: fmt.Sprintf("Date %s is not available.", q.Date),
		Outcome: OutcomeDateUnavailable,
	}
}

func ReservationFailed(err error) ReservationResult {
	return ReservationResult{
		Success: false,
		Message: fmt.Sprintf("Error making reservation: %v", err),
		Outcome: OutcomeError,
	}
}

func Confirmed(id string) ReservationResult {
	return ReservationResult{
		Success:            true,
		ConfirmationNumber: id,
		ConfirmationSource: ConfirmationLocal,
		Message:            fmt.Sprintf("Reservation confirmed! Confirmation number: %s", id),
		Outcome:            OutcomeBooked,
	}
}

func Unconfirmed() ReservationResult {
	return ReservationResult{
		Success: false,
		Message: "Reservation submitted but no confirmation number received.",
		Outcome: OutcomeUnconfirmed,
	}
}
