package turn

import (
	"time"

	"github.com/healbuddy/backend/internal/model/chat"
)

// SessionType classifies a persisted consultation.
type SessionType string

const (
	SessionSymptomCheck   SessionType = "symptom_check"
	SessionGeneralHealth  SessionType = "general_health"
	SessionPreventiveCare SessionType = "preventive_care"
	SessionEmergency      SessionType = "emergency"
)

// FollowUp pairs a clarifying question with the user's answer.
type FollowUp struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Turn is one completed user query → advisory exchange. Turns are never
// mutated after creation.
type Turn struct {
	UserMessage        string        `json:"user_message"`
	BotResponse        string        `json:"bot_response"`
	Language           string        `json:"language"`
	SeverityAssessment chat.Severity `json:"severity_assessment,omitempty"`
	SessionType        SessionType   `json:"session_type,omitempty"`
	FollowUpQuestions  []FollowUp    `json:"follow_up_questions"`
}

// Ref identifies a stored turn.
type Ref struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Record is a stored turn together with its reference.
type Record struct {
	Ref
	UserID string `json:"userId,omitempty"`
	Turn
}

// CloneFollowUps returns an independent copy of a follow-up history.
func CloneFollowUps(items []FollowUp) []FollowUp {
	if items == nil {
		return nil
	}
	out := make([]FollowUp, len(items))
	copy(out, items)
	return out
}
