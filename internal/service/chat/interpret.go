package chat

import (
	"strings"

	"github.com/healbuddy/backend/internal/model/advisory"
	"github.com/healbuddy/backend/internal/model/chat"
)

const (
	emergencyPrefix = "\n\n🚨 EMERGENCY ACTION: "
	doctorNotice    = "\n\n👨‍⚕️ Please consult a doctor for proper diagnosis and treatment."
	// FollowUpPrefix introduces a clarifying question.
	FollowUpPrefix = "To help you better, may I ask: "
)

// Decision is the interpretation of one advisory against the session state.
type Decision struct {
	DisplayText  string
	AskFollowUp  bool
	FollowUpText string
	Budget       int
}

// Interpret builds the display text and decides whether to surface the
// model's follow-up question. A question is asked only when none is pending
// and the budget allows it; asking spends the budget. Otherwise the budget
// is returned unchanged.
func Interpret(result advisory.Result, pending bool, budget int) Decision {
	d := Decision{
		DisplayText: DisplayText(result),
		Budget:      budget,
	}
	if result.HasFollowUp() && !pending && budget > 0 {
		d.AskFollowUp = true
		d.FollowUpText = FollowUpPrefix + strings.TrimSpace(*result.FollowUpQuestion)
		d.Budget = 0
	}
	return d
}

// DisplayText renders the advisory as shown to the user: the response, then
// the emergency action, then the doctor notice.
func DisplayText(result advisory.Result) string {
	var b strings.Builder
	b.WriteString(result.Response)
	if result.HasEmergencyAction() {
		b.WriteString(emergencyPrefix)
		b.WriteString(strings.TrimSpace(*result.EmergencyAction))
	}
	if result.SeeDoctor && result.Severity != chat.SeverityEmergency {
		b.WriteString(doctorNotice)
	}
	return b.String()
}
