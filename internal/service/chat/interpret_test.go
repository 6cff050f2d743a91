package chat

import (
	"strings"
	"testing"

	"github.com/healbuddy/backend/internal/model/advisory"
	"github.com/healbuddy/backend/internal/model/chat"
	"github.com/healbuddy/backend/internal/model/profile"
	"github.com/healbuddy/backend/internal/model/turn"
)

func ptr(s string) *string { return &s }

func TestDisplayTextSegmentOrder(t *testing.T) {
	got := DisplayText(advisory.Result{
		Response:        "Base.",
		Severity:        chat.SeverityHigh,
		SeeDoctor:       true,
		EmergencyAction: ptr("Go to the nearest hospital"),
	})
	want := "Base.\n\n🚨 EMERGENCY ACTION: Go to the nearest hospital\n\n👨‍⚕️ Please consult a doctor for proper diagnosis and treatment."
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestDisplayTextPlain(t *testing.T) {
	if got := DisplayText(advisory.Result{Response: "Drink water.", Severity: chat.SeverityLow}); got != "Drink water." {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestInterpretFollowUpConditions(t *testing.T) {
	withQuestion := advisory.Result{Response: "r", Severity: chat.SeverityLow, FollowUpQuestion: ptr("Any fever?")}

	d := Interpret(withQuestion, false, 1)
	if !d.AskFollowUp || d.Budget != 0 || d.FollowUpText != "To help you better, may I ask: Any fever?" {
		t.Fatalf("expected follow-up: %+v", d)
	}
	if d := Interpret(withQuestion, true, 1); d.AskFollowUp || d.Budget != 1 {
		t.Fatalf("pending question blocks a new one: %+v", d)
	}
	if d := Interpret(withQuestion, false, 0); d.AskFollowUp || d.Budget != 0 {
		t.Fatalf("spent budget blocks a follow-up: %+v", d)
	}
	if d := Interpret(advisory.Fallback(), false, 1); d.AskFollowUp || d.Budget != 1 {
		t.Fatalf("no question means no follow-up and untouched budget: %+v", d)
	}
}

func TestBuildPromptIncludesProfileAndHistory(t *testing.T) {
	age := 52
	prompt := BuildPrompt(PromptInput{
		Query:     "I feel breathless",
		Language:  "hindi",
		Profile:   &profile.Profile{Age: &age, Gender: "male", MedicalConditions: []string{"Asthma", "Diabetes"}},
		FollowUps: []turn.FollowUp{{Question: "When did it start?", Answer: "Today"}},
	})

	for _, want := range []string{
		`USER QUERY: "I feel breathless"`,
		"USER LANGUAGE: hindi",
		"USER INFO: Age 52, Gender male",
		"MEDICAL CONDITIONS: Asthma, Diabetes",
		`PREVIOUS CONVERSATION: [{"question":"When did it start?","answer":"Today"}]`,
		"in simple Hindi (max 60 words)",
		`"see_doctor": true/false`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptWithoutProfile(t *testing.T) {
	prompt := BuildPrompt(PromptInput{Query: "cold", Language: "unknown"})
	for _, unwanted := range []string{"USER INFO", "MEDICAL CONDITIONS", "PREVIOUS CONVERSATION"} {
		if strings.Contains(prompt, unwanted) {
			t.Fatalf("prompt should not contain %s:\n%s", unwanted, prompt)
		}
	}
	if !strings.Contains(prompt, "USER LANGUAGE: english") {
		t.Fatalf("unknown language should fall back to english:\n%s", prompt)
	}
}
