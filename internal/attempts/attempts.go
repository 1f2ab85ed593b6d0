// Package attempts is the operator journal of widget automation runs. It
// records what was tried and how it ended, never who the customer was.
package attempts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/example/forkbridge/internal/db"
	"github.com/example/forkbridge/internal/domain/reservation"
)

type Entry struct {
	ID string
	reservation.Attempt
	CreatedAt time.Time
}

type Filter struct {
	Operation reservation.Operation
	Outcome   reservation.Outcome
	Since     time.Time
	// Limit defaults to 50.
	Limit int
}

type Repo struct{ db db.Querier }

var _ reservation.AttemptRecorder = (*Repo)(nil)

func NewRepo(q db.Querier) *Repo { return &Repo{db: q} }

func (r *Repo) RecordAttempt(ctx context.Context, a reservation.Attempt) error {
	var confirmation *string
	if a.ConfirmationNumber != "" {
		confirmation = &a.ConfirmationNumber
	}
	_, err := r.db.Exec(ctx, `
INSERT INTO attempts(id,operation,reservation_date,reservation_time,party_size,outcome,message,confirmation_number,started_at,duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		xid.New().String(), string(a.Operation), a.Date, a.Time, a.PartySize, string(a.Outcome), a.Message, confirmation,
		a.StartedAt.UTC(), a.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (r *Repo) List(ctx context.Context, f Filter) ([]Entry, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Operation != "" {
		add("operation=$%d", string(f.Operation))
	}
	if f.Outcome != "" {
		add("outcome=$%d", string(f.Outcome))
	}
	if !f.Since.IsZero() {
		add("started_at>=$%d", f.Since.UTC())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	q := `
SELECT id,operation,reservation_date,reservation_time,party_size,outcome,message,confirmation_number,started_at,duration_ms,created_at
FROM attempts`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf("\nORDER BY started_at DESC\nLIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var op, outcome string
		var confirmation *string
		var durationMs int64
		if err := rows.Scan(
			&e.ID, &op, &e.Date, &e.Time, &e.PartySize, &outcome, &e.Message, &confirmation, &e.StartedAt, &durationMs, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.Operation = reservation.Operation(op)
		e.Outcome = reservation.Outcome(outcome)
		if confirmation != nil {
			e.ConfirmationNumber = *confirmation
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes entries that started before cutoff and reports how many.
func (r *Repo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.db.Exec(ctx, `DELETE FROM attempts WHERE started_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return n, nil
}
