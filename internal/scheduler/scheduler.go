package scheduler

import (
	"context"
	"log/slog"
	"time"
)

type Journal interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner periodically deletes journal entries older than Retention.
type Pruner struct {
	Journal   Journal
	Retention time.Duration
	Interval  time.Duration
	Logger    *slog.Logger

	now func() time.Time
}

func (p *Pruner) Run(ctx context.Context) error {
	t := time.NewTicker(p.Interval)
	defer t.Stop()

	// kick immediately
	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.tick(ctx)
		}
	}
}

func (p *Pruner) tick(ctx context.Context) {
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	cutoff := now().Add(-p.Retention)
	n, err := p.Journal.Prune(ctx, cutoff)
	if err != nil {
		log.Warn("prune journal", "err", err)
		return
	}
	if n > 0 {
		log.Info("pruned journal", "deleted", n, "cutoff", cutoff)
	}
}
