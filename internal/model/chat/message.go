package chat

import (
	"strings"
	"time"
)

// Origin identifies who authored a message.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

// Severity is the ordinal urgency attached to assistant messages.
type Severity string

const (
	SeverityLow       Severity = "low"
	SeverityMedium    Severity = "medium"
	SeverityHigh      Severity = "high"
	SeverityEmergency Severity = "emergency"
)

// Severities lists every valid severity in ascending urgency.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityEmergency}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityEmergency:
		return true
	default:
		return false
	}
}

// ParseSeverity normalises raw model output into a Severity.
func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Message is one entry in a session transcript. Messages are immutable once
// appended; ID is the 1-based insertion ordinal within the session.
type Message struct {
	ID        int       `json:"id"`
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	Origin    Origin    `json:"origin"`
	Severity  Severity  `json:"severity,omitempty"`
	FollowUp  bool      `json:"followUp,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// IsAssistant reports whether the message was produced by the assistant.
func (m Message) IsAssistant() bool {
	return m.Origin == OriginAssistant
}
