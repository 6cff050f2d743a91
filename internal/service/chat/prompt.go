package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/healbuddy/backend/internal/model/language"
	"github.com/healbuddy/backend/internal/model/profile"
	"github.com/healbuddy/backend/internal/model/turn"
)

// PromptInput carries everything embedded in an advisory prompt.
type PromptInput struct {
	Query     string
	Language  string
	Profile   *profile.Profile
	FollowUps []turn.FollowUp
}

const promptInstructions = `INSTRUCTIONS:
1. Give accurate, medically sound advice in simple %s (max 60 words)
2. Use current medical knowledge and best practices
3. For serious symptoms, clearly recommend seeing a doctor immediately
4. For emergencies, strongly advise calling 108 (Indian ambulance)
5. Ask ONE relevant follow-up question if needed to assess better
6. Be empathetic but professional
7. Include preventive tips when appropriate
8. Consider Indian healthcare context and common conditions

SAFETY RULES:
- Never diagnose specific diseases
- Always recommend professional medical consultation for concerning symptoms
- Be conservative with severity assessment
- Emphasize emergency care when needed

RESPONSE FORMAT (JSON):
{
  "response": "Your helpful, accurate health advice in simple words",
  "severity": "low/medium/high/emergency",
  "follow_up_question": "One relevant question to help assess better" or null,
  "see_doctor": true/false,
  "emergency_action": "Specific emergency instruction" or null
}`

// BuildPrompt renders the advisory prompt. Follow-up history is included
// only when non-empty.
func BuildPrompt(in PromptInput) string {
	lang := language.Lookup(in.Language)

	var b strings.Builder
	b.WriteString("You are HealBuddy, a professional AI health assistant for Indian users. You provide accurate, evidence-based health information.\n\n")
	fmt.Fprintf(&b, "USER QUERY: %q\n", in.Query)
	fmt.Fprintf(&b, "USER LANGUAGE: %s\n", lang.ID)

	if info := demographics(in.Profile); info != "" {
		fmt.Fprintf(&b, "USER INFO: %s\n", info)
	}
	if in.Profile != nil && len(in.Profile.MedicalConditions) > 0 {
		fmt.Fprintf(&b, "MEDICAL CONDITIONS: %s\n", strings.Join(in.Profile.MedicalConditions, ", "))
	}
	if len(in.FollowUps) > 0 {
		if encoded, err := json.Marshal(in.FollowUps); err == nil {
			fmt.Fprintf(&b, "PREVIOUS CONVERSATION: %s\n", encoded)
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, promptInstructions, lang.Name)
	return b.String()
}

func demographics(p *profile.Profile) string {
	if p == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if p.Age != nil {
		parts = append(parts, fmt.Sprintf("Age %d", *p.Age))
	}
	if p.Gender != "" {
		parts = append(parts, "Gender "+p.Gender)
	}
	return strings.Join(parts, ", ")
}
