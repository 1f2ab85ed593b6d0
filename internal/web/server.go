package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/example/forkbridge/internal/domain/reservation"
	"github.com/example/forkbridge/internal/metrics"
	"github.com/example/forkbridge/internal/vapi"
)

const maxBodyBytes = 1 << 20

type Server struct {
	Booker reservation.Booker
	Logger *slog.Logger

	// FunctionName is the availability tool the assistant is configured with.
	FunctionName string
	// ContactEmail fills the widget's required email field; calls do not
	// collect one.
	ContactEmail string
	ServiceName  string
	Version      string
	// Location is the restaurant's time zone, used for "today".
	Location *time.Location

	now    func() time.Time
	flight singleflight.Group
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(Logging(s.logger()))
	r.Use(Recover(s.logger()))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/assistant-request", s.handleAssistantRequest)
		r.Post("/check-availability", s.handleCheckAvailability)
		r.Post("/reservation-complete", s.handleReservationComplete)
	})

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)
	return r
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) functionName() string {
	if s.FunctionName == "" {
		return vapi.DefaultAvailabilityFunction
	}
	return s.FunctionName
}

// clock is the current time in the restaurant's zone.
func (s *Server) clock() time.Time {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	if s.Location == nil {
		return now()
	}
	return now().In(s.Location)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   s.ServiceName,
		"timestamp": s.clock().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": s.ServiceName,
		"version": s.Version,
		"endpoints": map[string]string{
			"health":              "/health",
			"metrics":             "/metrics",
			"assistantRequest":    "POST /webhooks/assistant-request (Vapi Server URL)",
			"checkAvailability":   "POST /webhooks/check-availability",
			"reservationComplete": "POST /webhooks/reservation-complete",
		},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, apiResponse{Success: false, Message: "Endpoint not found"})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func invalidRequest(w http.ResponseWriter, err error) {
	var verr *vapi.ValidationError
	errs := []vapi.FieldError{{Message: err.Error()}}
	if errors.As(err, &verr) {
		errs = verr.Errors
	}
	writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "Invalid request data", Errors: errs})
}

// Start serves h on addr until ctx is cancelled, then drains in-flight
// requests for up to drain.
func Start(ctx context.Context, addr string, h http.Handler, drain time.Duration, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
	}()
	logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	<-drained
	return nil
}
