package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/forkbridge/internal/domain/reservation"
	"github.com/example/forkbridge/internal/metrics"
	"github.com/example/forkbridge/internal/vapi"
)

var knownEvents = map[string]bool{
	vapi.EventAssistantRequest:   true,
	vapi.EventFunctionCall:       true,
	vapi.EventToolCalls:          true,
	vapi.EventStatusUpdate:       true,
	vapi.EventConversationUpdate: true,
	vapi.EventEndOfCallReport:    true,
}

func countEvent(event string) {
	if !knownEvents[event] {
		event = "other"
	}
	metrics.Webhooks.WithLabelValues(event).Inc()
}

func (s *Server) requestLogger(r *http.Request) *slog.Logger {
	return s.logger().With("request_id", RequestID(r.Context()))
}

// handleAssistantRequest is the assistant's server URL. It answers every
// event with 200 so a failure here never breaks a live call; an empty object
// tells Vapi to keep its dashboard configuration.
func (s *Server) handleAssistantRequest(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	defer func() {
		if v := recover(); v != nil {
			log.Error("server url handler panic", "panic", v)
			writeJSON(w, http.StatusOK, struct{}{})
		}
	}()

	body, err := readBody(w, r)
	if err != nil {
		log.Warn("read body", "err", err)
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	msg, err := vapi.ParseEvent(body)
	if err != nil {
		log.Warn("undecodable server url event", "err", err)
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	countEvent(msg.Type)
	log = log.With("event", msg.Type)

	switch msg.Type {
	case vapi.EventAssistantRequest:
		if msg.Call != nil {
			log.Info("call starting", "call_id", msg.Call.ID, "phone", msg.CustomerNumber())
		}
		writeJSON(w, http.StatusOK, vapi.NewAssistantOverride(vapi.DateContext(s.clock(), s.functionName())))

	case vapi.EventStatusUpdate:
		log.Info("status update", "status", msg.Status)
		writeJSON(w, http.StatusOK, struct{}{})

	case vapi.EventEndOfCallReport:
		if !msg.HasReservation() {
			log.Info("end of call without reservation data")
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}
		c, err := vapi.CompletionFromEvent(msg)
		if err != nil {
			log.Warn("invalid reservation in end of call report", "err", err)
			invalidRequest(w, err)
			return
		}
		s.completeReservation(w, r, c, log)

	case vapi.EventFunctionCall, vapi.EventToolCalls:
		// answered on /webhooks/check-availability
		log.Debug("tool call on server url ignored")
		writeJSON(w, http.StatusOK, struct{}{})

	default:
		log.Debug("unhandled event")
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func (s *Server) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	body, err := readBody(w, r)
	if err != nil {
		invalidRequest(w, err)
		return
	}
	calls, err := vapi.ParseAvailabilityRequest(body, s.functionName())
	if err != nil {
		log.Warn("invalid availability request", "err", err)
		invalidRequest(w, err)
		return
	}

	resp := vapi.ToolResponse{Results: make([]vapi.ToolResult, 0, len(calls))}
	for _, call := range calls {
		countEvent(vapi.EventToolCalls)
		resp.Results = append(resp.Results, vapi.ToolResult{
			ToolCallID: call.ID,
			Result:     s.answer(r.Context(), call, log.With("tool_call_id", call.ID)),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) answer(ctx context.Context, call vapi.Invocation, log *slog.Logger) string {
	if call.Name != s.functionName() {
		log.Warn("unsupported tool", "name", call.Name)
		return vapi.UnsupportedReply
	}
	if call.Err != nil {
		log.Warn("undecodable tool arguments", "err", call.Err)
		return vapi.InvalidDataReply
	}
	q, err := call.Params.Query(s.clock())
	if err != nil {
		log.Warn("invalid availability parameters", "err", err,
			"fecha", call.Params.Fecha, "hora", call.Params.Hora, "personas", call.Params.Personas)
		return vapi.InvalidDataReply
	}
	res := s.checkAvailability(ctx, q)
	log.Info("availability answered", "date", q.Date, "time", q.Time, "people", q.PartySize, "outcome", res.Outcome)
	return vapi.AvailabilityReply(q, res)
}

// checkAvailability coalesces identical in-flight checks onto one browser run.
// The shared run is detached from any single caller's cancellation.
func (s *Server) checkAvailability(ctx context.Context, q reservation.AvailabilityQuery) reservation.AvailabilityResult {
	key := fmt.Sprintf("%s|%s|%d", q.Date, q.Time, q.PartySize)
	v, _, _ := s.flight.Do(key, func() (any, error) {
		return s.Booker.CheckAvailability(context.WithoutCancel(ctx), q), nil
	})
	return v.(reservation.AvailabilityResult)
}

func (s *Server) handleReservationComplete(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)
	body, err := readBody(w, r)
	if err != nil {
		invalidRequest(w, err)
		return
	}
	c, err := vapi.ParseCompletion(body)
	if err != nil {
		log.Warn("invalid reservation completion", "err", err)
		invalidRequest(w, err)
		return
	}
	countEvent(vapi.EventEndOfCallReport)
	s.completeReservation(w, r, c, log)
}

type reservationSummary struct {
	ReservationID      string                         `json:"reservationId,omitempty"`
	ConfirmationSource reservation.ConfirmationSource `json:"confirmationSource,omitempty"`
	Customer           string                         `json:"customer"`
	PhoneNumber        string                         `json:"phoneNumber"`
	DateTime           string                         `json:"dateTime"`
	GuestCount         int                            `json:"guestCount"`
	HasBaby            *bool                          `json:"hasBaby,omitempty"`
	Allergies          string                         `json:"allergies"`
	SpecialRequests    string                         `json:"specialRequests"`
	Status             string                         `json:"status"`
	CreatedAt          string                         `json:"createdAt"`
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}

func (s *Server) completeReservation(w http.ResponseWriter, r *http.Request, c *vapi.Completion, log *slog.Logger) {
	log = log.With("call_id", c.CallID)
	if !c.Reservation.Complete() {
		log.Warn("incomplete reservation data")
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "Incomplete reservation data"})
		return
	}
	q, cust, err := c.Booking(s.clock(), s.ContactEmail)
	if err != nil {
		log.Warn("unusable reservation data", "err", err)
		invalidRequest(w, err)
		return
	}

	// a dropped webhook connection must not abandon a half-submitted form
	res := s.Booker.MakeReservation(context.WithoutCancel(r.Context()), q, cust)
	log.Info("reservation processed", "date", q.Date, "time", q.Time, "people", q.PartySize, "outcome", res.Outcome)

	status := string(res.Outcome)
	if res.Success {
		status = "confirmed"
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: res.Success,
		Message: res.Message,
		Data: reservationSummary{
			ReservationID:      res.ConfirmationNumber,
			ConfirmationSource: res.ConfirmationSource,
			Customer:           strings.TrimSpace(c.Reservation.Honorific + " " + c.Reservation.FullName),
			PhoneNumber:        c.Phone,
			DateTime:           fmt.Sprintf("%s at %s", q.Date, q.Time),
			GuestCount:         q.PartySize,
			HasBaby:            cust.Infant,
			Allergies:          orNone(cust.Allergies),
			SpecialRequests:    orNone(cust.SpecialRequests),
			Status:             status,
			CreatedAt:          s.clock().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
	})
}
