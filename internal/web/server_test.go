package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/forkbridge/internal/domain/reservation"
	"github.com/example/forkbridge/internal/vapi"
)

type fakeBooker struct {
	mu       sync.Mutex
	checks   []reservation.AvailabilityQuery
	bookings []reservation.CustomerInfo
	times    []string
	checkN   atomic.Int32
	gate     chan struct{}
	book     reservation.ReservationResult
}

func (f *fakeBooker) CheckAvailability(ctx context.Context, q reservation.AvailabilityQuery) reservation.AvailabilityResult {
	f.checkN.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.checks = append(f.checks, q)
	f.mu.Unlock()
	if q.Date == "2025-12-04" {
		return reservation.DateUnavailable(q)
	}
	return reservation.Classify(q, f.times)
}

func (f *fakeBooker) MakeReservation(ctx context.Context, q reservation.AvailabilityQuery, c reservation.CustomerInfo) reservation.ReservationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, q)
	f.bookings = append(f.bookings, c)
	return f.book
}

func newTestServer(t *testing.T, b *fakeBooker) *httptest.Server {
	t.Helper()
	s := &Server{
		Booker:       b,
		ServiceName:  "forkbridge",
		Version:      "test",
		ContactEmail: "reservas@example.com",
		now:          func() time.Time { return time.Date(2025, time.November, 20, 12, 0, 0, 0, time.UTC) },
	}
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func functionCall(params string) string {
	return `{"message":{"type":"function-call","functionCall":{"id":"fc-1","name":"checkAvailabilityALAKRAN","parameters":` + params + `}}}`
}

func results(t *testing.T, out map[string]any) []map[string]any {
	t.Helper()
	raw, ok := out["results"].([]any)
	require.True(t, ok, "no results in %v", out)
	res := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		res = append(res, r.(map[string]any))
	}
	return res
}

func TestHealthAndIndex(t *testing.T) {
	srv := newTestServer(t, &fakeBooker{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "2025-11-20T12:00:00.000Z", health["timestamp"])

	resp2, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv := newTestServer(t, &fakeBooker{})
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeBooker{})

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Endpoint not found", out.Message)

	// webhooks only accept POST
	resp2, err := http.Get(srv.URL + "/webhooks/check-availability")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeBooker{})
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheckAvailabilityAvailable(t *testing.T) {
	b := &fakeBooker{times: []string{"20:00", "21:00"}}
	srv := newTestServer(t, b)

	resp, out := post(t, srv, "/webhooks/check-availability", functionCall(`{"hora":"21:00","fecha":"3 de diciembre","personas":4}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	res := results(t, out)
	require.Len(t, res, 1)
	assert.Equal(t, "fc-1", res[0]["toolCallId"])
	assert.Equal(t, "Perfecto, tenemos disponibilidad para 4 personas el miércoles 3 de diciembre a las 21:00. ¿Desea confirmar la reserva?", res[0]["result"])
	assert.Equal(t, []reservation.AvailabilityQuery{{Date: "2025-12-03", Time: "21:00", PartySize: 4}}, b.checks)
}

func TestCheckAvailabilityToolCalls(t *testing.T) {
	b := &fakeBooker{times: []string{"13:00", "13:30", "14:30"}}
	srv := newTestServer(t, b)

	body := `{"message":{"type":"tool-calls","toolCalls":[
		{"id":"t1","type":"function","function":{"name":"checkAvailabilityALAKRAN","arguments":"{\"hora\":\"14:00\",\"fecha\":\"2025-12-03\",\"personas\":2}"}},
		{"id":"t2","type":"function","function":{"name":"checkAvailabilityALAKRAN","arguments":{"hora":"14:00","fecha":"2025-12-04","personas":2}}},
		{"id":"t3","type":"function","function":{"name":"transferCall","arguments":{}}},
		{"id":"t4","type":"function","function":{"name":"checkAvailabilityALAKRAN","arguments":{"hora":"14:00","fecha":"diciembre","personas":2}}}
	]}}`
	resp, out := post(t, srv, "/webhooks/check-availability", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	res := results(t, out)
	require.Len(t, res, 4)

	assert.Equal(t, "t1", res[0]["toolCallId"])
	assert.Contains(t, res[0]["result"], "13:00, 13:30 y 14:30")
	assert.Contains(t, res[1]["result"], "no admite reservas")
	assert.Equal(t, vapi.UnsupportedReply, res[2]["result"])
	assert.Equal(t, vapi.InvalidDataReply, res[3]["result"])
	assert.Len(t, b.checks, 2)
}

func TestCheckAvailabilityInvalidData(t *testing.T) {
	b := &fakeBooker{}
	srv := newTestServer(t, b)

	resp, out := post(t, srv, "/webhooks/check-availability", functionCall(`{"hora":"25:00","fecha":"2025-12-03","personas":4}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, vapi.InvalidDataReply, results(t, out)[0]["result"])
	assert.Empty(t, b.checks)
}

func TestCheckAvailabilitySchemaFailure(t *testing.T) {
	srv := newTestServer(t, &fakeBooker{})

	resp, out := post(t, srv, "/webhooks/check-availability", functionCall(`{"hora":"21:00","fecha":"2025-12-03"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Invalid request data", out["message"])
	errs, ok := out["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "message.functionCall.parameters.personas", errs[0].(map[string]any)["path"])

	resp, _ = post(t, srv, "/webhooks/check-availability", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConcurrentIdenticalChecksShareOneRun(t *testing.T) {
	b := &fakeBooker{times: []string{"21:00"}, gate: make(chan struct{})}
	srv := newTestServer(t, b)
	body := functionCall(`{"hora":"21:00","fecha":"2025-12-03","personas":2}`)

	const callers = 4
	var wg sync.WaitGroup
	replies := make([]string, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, out := post(t, srv, "/webhooks/check-availability", body)
			replies[i], _ = results(t, out)[0]["result"].(string)
		}()
	}

	// let every request reach the booker before the first run finishes
	time.Sleep(200 * time.Millisecond)
	close(b.gate)
	wg.Wait()

	assert.Less(t, int(b.checkN.Load()), callers)
	for _, r := range replies {
		assert.Contains(t, r, "Perfecto")
	}
}

func TestAssistantRequestInjectsDateContext(t *testing.T) {
	srv := newTestServer(t, &fakeBooker{})

	resp, out := post(t, srv, "/webhooks/assistant-request", `{"message":{"type":"assistant-request","call":{"id":"c1","customer":{"number":"+34600111222"}}}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var override vapi.AssistantOverride
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &override))
	msgs := override.Assistant.Model.Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "FECHA DE HOY: jueves, 20 de noviembre de 2025")
}

func TestAssistantRequestOtherEvents(t *testing.T) {
	srv := newTestServer(t, &fakeBooker{})
	for _, body := range []string{
		`{"message":{"type":"status-update","status":"in-progress"}}`,
		`{"message":{"type":"conversation-update"}}`,
		`{"message":{"type":"function-call"}}`,
		`{"message":{"type":"tool-calls"}}`,
		`{"message":{"type":"transcript"}}`,
		`{"message":{"type":"end-of-call-report","analysis":{"summary":"no booking"}}}`,
		`not json`,
	} {
		resp, out := post(t, srv, "/webhooks/assistant-request", body)
		assert.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.Empty(t, out, body)
	}
}

const completion = `{"message":{"type":"end-of-call-report","call":{"id":"call-1","customer":{"number":"+34600111222"}},
	"analysis":{"structuredData":{"reservation":{"date":"3 de diciembre","time":"21:00","people":4,"full_name":"Ana García","honorific":"Sra.","baby":true,"allergies":"nueces"}}}}}`

func TestReservationComplete(t *testing.T) {
	b := &fakeBooker{book: reservation.Confirmed("ALAKRAN-1")}
	srv := newTestServer(t, b)

	resp, out := post(t, srv, "/webhooks/reservation-complete", completion)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])

	data := out["data"].(map[string]any)
	assert.Equal(t, "ALAKRAN-1", data["reservationId"])
	assert.Equal(t, "local", data["confirmationSource"])
	assert.Equal(t, "Sra. Ana García", data["customer"])
	assert.Equal(t, "2025-12-03 at 21:00", data["dateTime"])
	assert.Equal(t, "confirmed", data["status"])
	assert.Equal(t, "None", data["specialRequests"])

	require.Len(t, b.bookings, 1)
	c := b.bookings[0]
	assert.Equal(t, "Ana", c.FirstName)
	assert.Equal(t, "García", c.LastName)
	assert.Equal(t, "reservas@example.com", c.Email)
	assert.Equal(t, "+34600111222", c.Phone)
	require.NotNil(t, c.Infant)
	assert.True(t, *c.Infant)
}

func TestReservationCompleteViaServerURL(t *testing.T) {
	b := &fakeBooker{book: reservation.Unconfirmed()}
	srv := newTestServer(t, b)

	resp, out := post(t, srv, "/webhooks/assistant-request", completion)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "unconfirmed", out["data"].(map[string]any)["status"])
	assert.Len(t, b.bookings, 1)
}

func TestReservationCompleteRejects(t *testing.T) {
	b := &fakeBooker{}
	srv := newTestServer(t, b)

	resp, out := post(t, srv, "/webhooks/reservation-complete",
		`{"message":{"type":"end-of-call-report","analysis":{"structuredData":{"reservation":{"date":"","time":"21:00","people":4,"full_name":"Ana"}}}}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Incomplete reservation data", out["message"])

	resp, out = post(t, srv, "/webhooks/reservation-complete",
		`{"message":{"type":"end-of-call-report","analysis":{"structuredData":{"reservation":{"date":"2025-12-03","time":"21:00","people":"4","full_name":"Ana"}}}}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request data", out["message"])

	resp, _ = post(t, srv, "/webhooks/reservation-complete",
		`{"message":{"type":"end-of-call-report","analysis":{"structuredData":{"reservation":{"date":"diciembre","time":"21:00","people":4,"full_name":"Ana"}}}}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Empty(t, b.bookings)
}

func TestReservationCompleteWithoutCallerNumber(t *testing.T) {
	b := &fakeBooker{}
	srv := newTestServer(t, b)

	for _, path := range []string{"/webhooks/reservation-complete", "/webhooks/assistant-request"} {
		resp, out := post(t, srv, path,
			`{"message":{"type":"end-of-call-report","call":{"id":"call-2"},"analysis":{"structuredData":{"reservation":{"date":"2025-12-03","time":"21:00","people":2,"full_name":"Ana"}}}}}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		assert.Equal(t, "Invalid request data", out["message"], path)
	}
	assert.Empty(t, b.bookings, "the widget must not be driven without a phone number")
}

func TestRecoverReturnsJSON(t *testing.T) {
	h := Recover(slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
