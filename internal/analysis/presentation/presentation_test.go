package presentation

import (
	"reflect"
	"testing"

	"github.com/healbuddy/backend/internal/model/chat"
)

func TestStyleForSeverity(t *testing.T) {
	cases := map[chat.Severity]Style{
		chat.SeverityEmergency: {Tone: ToneRed, Label: "Emergency Alert", Icon: "phone"},
		chat.SeverityHigh:      {Tone: ToneOrange, Label: "Important", Icon: "alert"},
		chat.SeverityMedium:    {Tone: ToneYellow, Label: "Advisory"},
		chat.SeverityLow:       {Tone: ToneNeutral},
		chat.Severity("bogus"): {Tone: ToneNeutral},
	}
	for severity, want := range cases {
		if got := StyleFor(severity); got != want {
			t.Fatalf("severity %s: got %+v want %+v", severity, got, want)
		}
	}
}

func TestQuickRepliesOnFollowUp(t *testing.T) {
	msg := chat.Message{Origin: chat.OriginAssistant, Text: "To help you better, may I ask: Do you have fever?"}
	if got := QuickReplies(msg); !reflect.DeepEqual(got, []string{"Yes", "No", "Sometimes"}) {
		t.Fatalf("unexpected quick replies: %v", got)
	}

	msg.Origin = chat.OriginUser
	if got := QuickReplies(msg); got != nil {
		t.Fatalf("user messages never get quick replies: %v", got)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	msgs := []chat.Message{
		{ID: 1, Origin: chat.OriginAssistant, Text: "Welcome", Severity: chat.SeverityLow},
		{ID: 2, Origin: chat.OriginUser, Text: "chest pain"},
		{ID: 3, Origin: chat.OriginAssistant, Text: "Call 108", Severity: chat.SeverityEmergency},
	}
	first := RenderAll(msgs)
	second := RenderAll(msgs)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("rendering the same transcript twice must match")
	}
	if first[1].Style != nil {
		t.Fatal("user message should not be styled")
	}
	if first[2].Style.Tone != ToneRed {
		t.Fatalf("unexpected tone %s", first[2].Style.Tone)
	}
}
