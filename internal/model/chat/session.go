package chat

import "time"

// State is the orchestrator's position in the per-topic dialogue cycle.
type State string

const (
	StateIdle                   State = "idle"
	StateAwaitingModelResponse  State = "awaiting_model_response"
	StateAwaitingFollowUpAnswer State = "awaiting_follow_up_answer"
)

// Session is the externally visible snapshot of a conversation.
type Session struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId,omitempty"`
	Language        string    `json:"language"`
	State           State     `json:"state"`
	PendingFollowUp bool      `json:"pendingFollowUp"`
	FollowUpBudget  int       `json:"followUpBudget"`
	LastTurnID      string    `json:"lastTurnId,omitempty"`
	Closed          bool      `json:"closed"`
	CreatedAt       time.Time `json:"createdAt"`
}
