package websocket

import "github.com/somaedu/soma-backend/internal/attempt"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNavigate Action = "navigate"
	ActionReview   Action = "review"
	ActionSubmit   Action = "submit"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// RequestPayload is the single client message shape; unused fields stay
// empty depending on the action.
type RequestPayload struct {
	Action Action `json:"action"`
	// Answer action
	QID      string `json:"q_id,omitempty"`
	Selected string `json:"selected,omitempty"`
	// Navigate action: "next", "prev", or "jump"
	Direction string `json:"direction,omitempty"`
	Index     int    `json:"index,omitempty"`
	// Review action: "enter" or "exit"
	Mode string `json:"mode,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateResponse carries an attempt snapshot after every accepted action.
type StateResponse struct {
	Event Event            `json:"event"`
	State attempt.Snapshot `json:"state"`
}

// SubmittedResponse is sent once when the attempt reaches SUBMITTED.
type SubmittedResponse struct {
	Event    Event   `json:"event"`
	Score    float64 `json:"score"`
	MaxScore int     `json:"max_score"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
