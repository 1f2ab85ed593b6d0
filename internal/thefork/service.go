package thefork

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/forkbridge/internal/browser"
	"github.com/example/forkbridge/internal/domain/reservation"
	"github.com/example/forkbridge/internal/metrics"
)

const tracerName = "github.com/example/forkbridge/internal/thefork"

// PageSource hands out pages; *browser.Session is the production one.
type PageSource interface {
	AcquirePage(ctx context.Context) (browser.Page, error)
	ReleasePage(p browser.Page) error
}

type Options struct {
	WidgetURL       string
	Timings         Timings
	ConfirmationTag string
	// Recorder is optional.
	Recorder reservation.AttemptRecorder
}

// Service is the reservation.Booker backed by the widget.
type Service struct {
	pages    PageSource
	catalog  *Catalog
	opts     Options
	log      *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
	recorder reservation.AttemptRecorder
}

var _ reservation.Booker = (*Service)(nil)

func NewService(pages PageSource, catalog *Catalog, opts Options, logger *slog.Logger) *Service {
	if opts.WidgetURL == "" {
		opts.WidgetURL = DefaultWidgetURL
	}
	if opts.ConfirmationTag == "" {
		opts.ConfirmationTag = DefaultConfirmationTag
	}
	if catalog == nil {
		catalog = NewCatalog(DefaultSelectors())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pages:    pages,
		catalog:  catalog,
		opts:     opts,
		log:      logger.With("component", "thefork"),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		recorder: opts.Recorder,
	}
}

// WidgetURL is the widget page every operation starts from.
func (s *Service) WidgetURL() string { return s.opts.WidgetURL }

func (s *Service) CheckAvailability(ctx context.Context, q reservation.AvailabilityQuery) reservation.AvailabilityResult {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "thefork.CheckAvailability", trace.WithAttributes(queryAttrs(q)...))
	defer span.End()

	res := s.checkAvailability(ctx, q)

	span.SetAttributes(attribute.String("outcome", string(res.Outcome)), attribute.Bool("available", res.Available))
	if res.Outcome == reservation.OutcomeError {
		span.SetStatus(codes.Error, res.Message)
	}
	s.finish(ctx, reservation.Attempt{
		Operation: reservation.OperationCheck,
		Date:      q.Date,
		Time:      q.Time,
		PartySize: q.PartySize,
		Outcome:   res.Outcome,
		Message:   res.Message,
		StartedAt: start,
	})
	return res
}

func (s *Service) checkAvailability(ctx context.Context, q reservation.AvailabilityQuery) (res reservation.AvailabilityResult) {
	log := s.log.With("op", reservation.OperationCheck, "date", q.Date, "time", q.Time, "people", q.PartySize)
	log.Info("checking availability")

	page, err := s.pages.AcquirePage(ctx)
	if err != nil {
		log.Error("acquire page", "err", err)
		return reservation.CheckFailed(err)
	}
	defer s.release(page, log)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during availability check", "panic", r)
			res = reservation.CheckFailed(fmt.Errorf("panic: %v", r))
		}
	}()

	nav := NewNavigator(page, s.opts.WidgetURL, s.catalog.Get(), s.opts.Timings, log)
	if err := nav.Load(ctx); err != nil {
		log.Error("load widget", "err", err)
		return reservation.CheckFailed(err)
	}
	ok, err := nav.SelectDate(ctx, q.Date)
	if err != nil {
		log.Error("select date", "err", err)
		return reservation.CheckFailed(err)
	}
	if !ok {
		return reservation.DateUnavailable(q)
	}
	if err := nav.SelectPeople(ctx, q.PartySize); err != nil {
		log.Error("select people", "err", err)
		return reservation.CheckFailed(err)
	}
	times, err := nav.ListAvailableTimes(ctx)
	if err != nil {
		log.Error("list times", "err", err)
		return reservation.CheckFailed(err)
	}

	res = reservation.Classify(q, times)
	log.Info("availability checked", "outcome", res.Outcome, "slots", len(res.AvailableTimes))
	return res
}

func (s *Service) MakeReservation(ctx context.Context, q reservation.AvailabilityQuery, c reservation.CustomerInfo) reservation.ReservationResult {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "thefork.MakeReservation", trace.WithAttributes(queryAttrs(q)...))
	defer span.End()

	res := s.makeReservation(ctx, q, c)

	span.SetAttributes(attribute.String("outcome", string(res.Outcome)), attribute.Bool("success", res.Success))
	if res.Outcome == reservation.OutcomeError {
		span.SetStatus(codes.Error, res.Message)
	}
	s.finish(ctx, reservation.Attempt{
		Operation:          reservation.OperationReserve,
		Date:               q.Date,
		Time:               q.Time,
		PartySize:          q.PartySize,
		Outcome:            res.Outcome,
		Message:            res.Message,
		ConfirmationNumber: res.ConfirmationNumber,
		StartedAt:          start,
	})
	return res
}

func (s *Service) makeReservation(ctx context.Context, q reservation.AvailabilityQuery, c reservation.CustomerInfo) (res reservation.ReservationResult) {
	log := s.log.With("op", reservation.OperationReserve, "date", q.Date, "time", q.Time, "people", q.PartySize)
	log.Info("making reservation")

	page, err := s.pages.AcquirePage(ctx)
	if err != nil {
		log.Error("acquire page", "err", err)
		return reservation.ReservationFailed(err)
	}
	defer s.release(page, log)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during reservation", "panic", r)
			res = reservation.ReservationFailed(fmt.Errorf("panic: %v", r))
		}
	}()

	sel := s.catalog.Get()
	nav := NewNavigator(page, s.opts.WidgetURL, sel, s.opts.Timings, log)
	if err := nav.Load(ctx); err != nil {
		log.Error("load widget", "err", err)
		return reservation.ReservationFailed(err)
	}
	ok, err := nav.SelectDate(ctx, q.Date)
	if err != nil {
		log.Error("select date", "err", err)
		return reservation.ReservationFailed(err)
	}
	if !ok {
		return reservation.ReservationDateUnavailable(q)
	}
	if err := nav.SelectPeople(ctx, q.PartySize); err != nil {
		log.Error("select people", "err", err)
		return reservation.ReservationFailed(err)
	}
	if err := nav.SelectTime(ctx, q.Time); err != nil {
		log.Error("select time", "err", err)
		return reservation.ReservationFailed(err)
	}

	form := NewFormFiller(page, sel, s.opts.Timings, log)
	if err := form.FillContact(ctx, c); err != nil {
		log.Error("fill contact", "err", err)
		return reservation.ReservationFailed(err)
	}
	seq := NewSequencer(page, sel, s.opts.Timings, form, s.opts.ConfirmationTag, log)
	seq.now = s.now
	id, err := seq.Submit(ctx, c)
	if err != nil {
		log.Error("submit", "err", err)
		return reservation.ReservationFailed(err)
	}
	if id == "" {
		return reservation.Unconfirmed()
	}
	return reservation.Confirmed(id)
}

func (s *Service) release(page browser.Page, log *slog.Logger) {
	if err := s.pages.ReleasePage(page); err != nil {
		log.Warn("release page", "err", err)
	}
}

func (s *Service) finish(ctx context.Context, a reservation.Attempt) {
	a.Duration = s.now().Sub(a.StartedAt)
	metrics.Operations.WithLabelValues(string(a.Operation), string(a.Outcome)).Inc()
	metrics.OperationDuration.WithLabelValues(string(a.Operation)).Observe(a.Duration.Seconds())
	if s.recorder == nil {
		return
	}
	// the caller's context may already be cancelled once the result is in
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.RecordAttempt(rctx, a); err != nil {
		s.log.Warn("record attempt", "err", err)
	}
}

func queryAttrs(q reservation.AvailabilityQuery) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("reservation.date", q.Date),
		attribute.String("reservation.time", q.Time),
		attribute.Int("reservation.party_size", q.PartySize),
	}
}
