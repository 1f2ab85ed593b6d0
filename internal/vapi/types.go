package vapi

import "encoding/json"

// Event types sent to a server URL.
const (
	EventAssistantRequest   = "assistant-request"
	EventFunctionCall       = "function-call"
	EventToolCalls          = "tool-calls"
	EventStatusUpdate       = "status-update"
	EventConversationUpdate = "conversation-update"
	EventEndOfCallReport    = "end-of-call-report"
)

// DefaultAvailabilityFunction is the function name the assistant is
// configured with.
const DefaultAvailabilityFunction = "checkAvailabilityALAKRAN"

type Envelope struct {
	Message Message `json:"message"`
}

// Message carries every event shape. Only the fields relevant to the event
// type are set; unknown fields are ignored.
type Message struct {
	Type         string        `json:"type"`
	Status       string        `json:"status,omitempty"`
	Call         *Call         `json:"call,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
	ToolCalls    []ToolCall    `json:"toolCalls,omitempty"`
	Analysis     *Analysis     `json:"analysis,omitempty"`
}

type Call struct {
	ID       string    `json:"id"`
	Customer *Customer `json:"customer,omitempty"`
}

type Customer struct {
	Number string `json:"number"`
}

// CustomerNumber returns the caller's phone number, or "" when the call
// carries none.
func (m Message) CustomerNumber() string {
	if m.Call == nil || m.Call.Customer == nil {
		return ""
	}
	return m.Call.Customer.Number
}

type FunctionCall struct {
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction.Arguments is either a JSON object or a string holding one.
type ToolFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type Analysis struct {
	Summary        string          `json:"summary,omitempty"`
	StructuredData *StructuredData `json:"structuredData,omitempty"`
}

type StructuredData struct {
	Reservation json.RawMessage `json:"reservation,omitempty"`
}

// HasReservation reports whether an end-of-call report carries reservation
// data at all.
func (m Message) HasReservation() bool {
	if m.Analysis == nil || m.Analysis.StructuredData == nil {
		return false
	}
	r := m.Analysis.StructuredData.Reservation
	return len(r) > 0 && string(r) != "null"
}

// AvailabilityParams are the availability function's arguments as the
// assistant sends them.
type AvailabilityParams struct {
	Hora     string  `json:"hora"`
	Fecha    string  `json:"fecha"`
	Personas float64 `json:"personas"`
}

// ReservationData is the structured reservation extracted at the end of a
// call.
type ReservationData struct {
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	People          float64 `json:"people"`
	FullName        string  `json:"full_name"`
	Honorific       string  `json:"honorific,omitempty"`
	Baby            *bool   `json:"baby,omitempty"`
	Allergies       string  `json:"allergies,omitempty"`
	SpecialRequests string  `json:"special_requests,omitempty"`
}

type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

type ToolResponse struct {
	Results []ToolResult `json:"results"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantOverride is merged by Vapi into the dashboard configuration, so
// it only names the fields being replaced.
type AssistantOverride struct {
	Assistant AssistantPatch `json:"assistant"`
}

type AssistantPatch struct {
	Model ModelPatch `json:"model"`
}

type ModelPatch struct {
	Messages []ChatMessage `json:"messages"`
}

func NewAssistantOverride(systemPrompt string) AssistantOverride {
	return AssistantOverride{
		Assistant: AssistantPatch{
			Model: ModelPatch{Messages: []ChatMessage{{Role: "system", Content: systemPrompt}}},
		},
	}
}
