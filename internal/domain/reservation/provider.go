package reservation

import (
	"context"
	"time"
)

// Booker is implemented by anything that can answer availability questions
// and place bookings against a restaurant. Neither method returns an error:
// every failure is folded into the result's message.
type Booker interface {
	CheckAvailability(ctx context.Context, q AvailabilityQuery) AvailabilityResult
	MakeReservation(ctx context.Context, q AvailabilityQuery, c CustomerInfo) ReservationResult
}

type Operation string

const (
	OperationCheck   Operation = "check"
	OperationReserve Operation = "reserve"
)

type Outcome string

const (
	OutcomeAvailable       Outcome = "available"
	OutcomeTimeTaken       Outcome = "time_taken"
	OutcomeNoSlots         Outcome = "no_slots"
	OutcomeDateUnavailable Outcome = "date_unavailable"
	OutcomeBooked          Outcome = "booked"
	OutcomeUnconfirmed     Outcome = "unconfirmed"
	OutcomeError           Outcome = "error"
)

// Attempt is one automation run as seen by operators. It carries the query
// and outcome only, never the customer's details.
type Attempt struct {
	Operation          Operation
	Date               string
	Time               string
	PartySize          int
	Outcome            Outcome
	Message            string
	ConfirmationNumber string
	StartedAt          time.Time
	Duration           time.Duration
}

type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}
