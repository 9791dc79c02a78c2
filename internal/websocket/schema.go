package websocket

import "time"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload is the single message shape sent by the client. Fields not
// used by an action are ignored.
type RequestPayload struct {
	Action         Action  `json:"action"`
	ItemID         string  `json:"item_id,omitempty"`
	SelectedOption *string `json:"selected_option,omitempty"`
	TimeSpent      int     `json:"time_spent,omitempty"`
	Flagged        bool    `json:"flagged,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSaved     Event = "saved"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event      Event     `json:"event"`
	ItemID     string    `json:"item_id"`
	AnsweredAt time.Time `json:"answered_at"`
}

type SubmittedResponse struct {
	Event  Event       `json:"event"`
	Result interface{} `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
