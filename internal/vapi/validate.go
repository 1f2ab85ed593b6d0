package vapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FieldError locates one schema violation in a request body.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError is returned when a request body does not match the shape
// of the event it claims to be.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		if fe.Path == "" {
			msgs = append(msgs, fe.Message)
			continue
		}
		msgs = append(msgs, fe.Path+": "+fe.Message)
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

func invalid(errs ...FieldError) error {
	return &ValidationError{Errors: errs}
}

type kind int

const (
	kindString kind = iota
	kindNumber
	kindBool
	kindObject
	kindArray
)

func (k kind) String() string {
	return [...]string{"string", "number", "boolean", "object", "array"}[k]
}

type field struct {
	name     string
	kind     kind
	optional bool
}

func kindOf(raw json.RawMessage) (kind, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	switch c := raw[0]; {
	case c == '"':
		return kindString, true
	case c == '{':
		return kindObject, true
	case c == '[':
		return kindArray, true
	case c == 't' || c == 'f':
		return kindBool, true
	case c == '-' || (c >= '0' && c <= '9'):
		return kindNumber, true
	}
	// null
	return 0, false
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// checkObject verifies raw is an object carrying fields of the expected
// JSON kinds. Extra members are allowed. A null optional member counts as
// absent.
func checkObject(path string, raw json.RawMessage, fields []field) []FieldError {
	if k, ok := kindOf(raw); !ok || k != kindObject {
		return []FieldError{{Path: path, Message: "expected object"}}
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return []FieldError{{Path: path, Message: err.Error()}}
	}
	var errs []FieldError
	for _, f := range fields {
		v, present := members[f.name]
		k, ok := kindOf(v)
		switch {
		case !present || !ok:
			if !f.optional {
				errs = append(errs, FieldError{Path: join(path, f.name), Message: "required"})
			}
		case k != f.kind:
			errs = append(errs, FieldError{Path: join(path, f.name), Message: fmt.Sprintf("expected %s, received %s", f.kind, k)})
		}
	}
	return errs
}

var availabilityFields = []field{
	{name: "hora", kind: kindString},
	{name: "fecha", kind: kindString},
	{name: "personas", kind: kindNumber},
}

func decodeParams(path string, raw json.RawMessage) (AvailabilityParams, []FieldError) {
	var p AvailabilityParams
	if errs := checkObject(path, raw, availabilityFields); len(errs) > 0 {
		return p, errs
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, []FieldError{{Path: path, Message: err.Error()}}
	}
	return p, nil
}

// Invocation is one request to run a function, whichever wire format it
// arrived in.
type Invocation struct {
	ID     string
	Name   string
	Params AvailabilityParams
	// Err is set when the arguments could not be decoded. The call is still
	// answered so the assistant hears why.
	Err error
}

func decodeEnvelope(body []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return Message{}, invalid(FieldError{Path: te.Field, Message: "unexpected " + te.Value})
		}
		return Message{}, invalid(FieldError{Message: "malformed JSON: " + err.Error()})
	}
	return env.Message, nil
}

// ParseAvailabilityRequest accepts either the function-call or the tool-calls
// format. A function-call must name functionName and carry well-formed
// parameters. Tool calls may name any function; their argument problems are
// reported per Invocation rather than failing the request.
func ParseAvailabilityRequest(body []byte, functionName string) ([]Invocation, error) {
	msg, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case EventFunctionCall:
		fc := msg.FunctionCall
		if fc == nil {
			return nil, invalid(FieldError{Path: "message.functionCall", Message: "required"})
		}
		if fc.Name != functionName {
			return nil, invalid(FieldError{Path: "message.functionCall.name", Message: fmt.Sprintf("expected %q", functionName)})
		}
		params, errs := decodeParams("message.functionCall.parameters", fc.Parameters)
		if len(errs) > 0 {
			return nil, invalid(errs...)
		}
		id := fc.ID
		if id == "" {
			id = "unknown"
		}
		return []Invocation{{ID: id, Name: fc.Name, Params: params}}, nil

	case EventToolCalls:
		if len(msg.ToolCalls) == 0 {
			return nil, invalid(FieldError{Path: "message.toolCalls", Message: "at least one tool call is required"})
		}
		var errs []FieldError
		calls := make([]Invocation, 0, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			path := fmt.Sprintf("message.toolCalls.%d", i)
			if tc.ID == "" {
				errs = append(errs, FieldError{Path: path + ".id", Message: "required"})
			}
			if tc.Type != "function" {
				errs = append(errs, FieldError{Path: path + ".type", Message: `expected "function"`})
			}
			if tc.Function.Name == "" {
				errs = append(errs, FieldError{Path: path + ".function.name", Message: "required"})
			}
			inv := Invocation{ID: tc.ID, Name: tc.Function.Name}
			args, err := unwrapArguments(tc.Function.Arguments)
			if err != nil {
				inv.Err = invalid(FieldError{Path: path + ".function.arguments", Message: err.Error()})
			} else if p, perrs := decodeParams(path+".function.arguments", args); len(perrs) > 0 {
				inv.Err = invalid(perrs...)
			} else {
				inv.Params = p
			}
			calls = append(calls, inv)
		}
		if len(errs) > 0 {
			return nil, invalid(errs...)
		}
		return calls, nil
	}
	return nil, invalid(FieldError{Path: "message.type", Message: fmt.Sprintf("expected %q or %q", EventFunctionCall, EventToolCalls)})
}

// unwrapArguments returns the arguments object, decoding it first when it was
// sent as a JSON string.
func unwrapArguments(raw json.RawMessage) (json.RawMessage, error) {
	k, ok := kindOf(raw)
	if !ok {
		return nil, errors.New("required")
	}
	switch k {
	case kindObject:
		return raw, nil
	case kindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if !json.Valid([]byte(s)) {
			return nil, errors.New("string is not valid JSON")
		}
		return json.RawMessage(s), nil
	}
	return nil, fmt.Errorf("expected string or object, received %s", k)
}

var reservationFields = []field{
	{name: "date", kind: kindString},
	{name: "time", kind: kindString},
	{name: "people", kind: kindNumber},
	{name: "full_name", kind: kindString},
	{name: "honorific", kind: kindString, optional: true},
	{name: "baby", kind: kindBool, optional: true},
	{name: "allergies", kind: kindString, optional: true},
	{name: "special_requests", kind: kindString, optional: true},
}

// Completion is a decoded end-of-call report that carries a reservation.
type Completion struct {
	CallID      string
	Phone       string
	Reservation ReservationData
}

// ParseCompletion validates an end-of-call report's reservation payload.
func ParseCompletion(body []byte) (*Completion, error) {
	msg, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	return completionFrom(msg)
}

func completionFrom(msg Message) (*Completion, error) {
	if msg.Type != EventEndOfCallReport {
		return nil, invalid(FieldError{Path: "message.type", Message: fmt.Sprintf("expected %q", EventEndOfCallReport)})
	}
	if msg.Analysis == nil {
		return nil, invalid(FieldError{Path: "message.analysis", Message: "required"})
	}
	if msg.Analysis.StructuredData == nil {
		return nil, invalid(FieldError{Path: "message.analysis.structuredData", Message: "required"})
	}
	const path = "message.analysis.structuredData.reservation"
	raw := msg.Analysis.StructuredData.Reservation
	if !msg.HasReservation() {
		return nil, invalid(FieldError{Path: path, Message: "required"})
	}
	if errs := checkObject(path, raw, reservationFields); len(errs) > 0 {
		return nil, invalid(errs...)
	}
	c := &Completion{Phone: msg.CustomerNumber()}
	if msg.Call != nil {
		c.CallID = msg.Call.ID
	}
	if err := json.Unmarshal(raw, &c.Reservation); err != nil {
		return nil, invalid(FieldError{Path: path, Message: err.Error()})
	}
	return c, nil
}

// ParseEvent decodes any server-URL event far enough to route it.
func ParseEvent(body []byte) (Message, error) {
	return decodeEnvelope(body)
}

// CompletionFromEvent is ParseCompletion for an already decoded event.
func CompletionFromEvent(msg Message) (*Completion, error) {
	return completionFrom(msg)
}
