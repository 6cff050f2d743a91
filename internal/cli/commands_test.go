package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/healbuddy/backend/internal/app"
	"github.com/healbuddy/backend/internal/model/advisory"
	"github.com/healbuddy/backend/internal/model/profile"
	"github.com/healbuddy/backend/internal/model/turn"
	chatservice "github.com/healbuddy/backend/internal/service/chat"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	// Keep the run offline: no model credentials means fallback advisories.
	t.Setenv("AI_PROVIDER", "ark")
	t.Setenv("ARK_API_KEY", "")
	t.Setenv("ARK_ACCESS_KEY", "")
	t.Setenv("ARK_SECRET_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SPEECH_OPENAI_API_KEY", "")
	t.Setenv("STORE_DRIVER", "memory")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestEmergencyListsAmbulance(t *testing.T) {
	out := run(t, "", "emergency")
	if !strings.Contains(out, "108") {
		t.Fatalf("expected ambulance number in output:\n%s", out)
	}
}

func TestAskWithoutModelPrintsFallback(t *testing.T) {
	out := run(t, "", "ask", "I", "feel", "dizzy")
	if !strings.Contains(out, advisory.FallbackResponse) {
		t.Fatalf("expected fallback advisory:\n%s", out)
	}
}

func TestInteractiveSession(t *testing.T) {
	out := run(t, "/lang hindi\nheadache\n/quit\n")
	if !strings.Contains(out, "HealBuddy") {
		t.Fatalf("expected welcome banner:\n%s", out)
	}
	if !strings.Contains(out, "Replies will be in Hindi") {
		t.Fatalf("expected language confirmation:\n%s", out)
	}
	if !strings.Contains(out, advisory.FallbackResponse) {
		t.Fatalf("expected fallback reply:\n%s", out)
	}
}

func TestHistoryRequiresUser(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"history"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without --user")
	}
}

func TestLangFlagBecomesPreferredLanguage(t *testing.T) {
	ctx := context.Background()
	profiles := profile.NewMemoryStore(profile.Profile{UserID: "u1", PreferredLanguage: "english"})
	svc := chatservice.NewService(nil, turn.NewMemoryStore(), profiles, chatservice.DefaultOptions())
	a := &app.App{Chat: svc, Profiles: profiles}

	session, err := openSession(ctx, a, &options{userID: "u1", language: "hindi"})
	if err != nil {
		t.Fatalf("openSession err: %v", err)
	}
	if session.Language() != "hindi" {
		t.Fatalf("unexpected session language: %s", session.Language())
	}

	svc.Shutdown()
	p, err := profiles.Read(ctx, "u1")
	if err != nil {
		t.Fatalf("Read err: %v", err)
	}
	if p.PreferredLanguage != "hindi" {
		t.Fatalf("--lang should be saved to the profile, got %s", p.PreferredLanguage)
	}

	usage := NewRootCmd().PersistentFlags().Lookup("lang").Usage
	if !strings.Contains(usage, "saved") {
		t.Fatalf("--lang help should say the choice is saved: %q", usage)
	}
}
