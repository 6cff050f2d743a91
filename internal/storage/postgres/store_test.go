package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/healbuddy/backend/internal/model/chat"
	"github.com/healbuddy/backend/internal/model/profile"
	"github.com/healbuddy/backend/internal/model/turn"
)

func openTestDB(t *testing.T) *TurnStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewTurnStore(db)
}

func TestTurnStoreRoundTrip(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()
	userID := "test-" + uuid.NewString()

	ref, err := store.Create(ctx, userID, turn.Turn{
		UserMessage:        "I have a headache",
		BotResponse:        "Rest and hydrate.",
		Language:           "english",
		SeverityAssessment: chat.SeverityLow,
		SessionType:        turn.SessionSymptomCheck,
		FollowUpQuestions:  []turn.FollowUp{{Question: "Since when?", Answer: "Two days"}},
	})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	records, err := store.List(ctx, userID, 10)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(records) != 1 || records[0].ID != ref.ID {
		t.Fatalf("unexpected records: %+v", records)
	}
	if got := records[0].FollowUpQuestions; len(got) != 1 || got[0].Answer != "Two days" {
		t.Fatalf("unexpected follow-ups: %+v", got)
	}
}

func TestProfileStoreUpdateAndRead(t *testing.T) {
	turns := openTestDB(t)
	store := NewProfileStore(turns.DB)
	ctx := context.Background()
	userID := "test-" + uuid.NewString()

	if _, err := store.Read(ctx, userID); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	age := 41
	conditions := []string{"Hypertension"}
	if err := store.Update(ctx, userID, profile.Update{Age: &age, MedicalConditions: &conditions}); err != nil {
		t.Fatalf("Update err: %v", err)
	}
	if err := store.Update(ctx, userID, profile.LanguageUpdate("marathi")); err != nil {
		t.Fatalf("Update err: %v", err)
	}

	p, err := store.Read(ctx, userID)
	if err != nil {
		t.Fatalf("Read err: %v", err)
	}
	if p.Age == nil || *p.Age != 41 || p.PreferredLanguage != "marathi" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if len(p.MedicalConditions) != 1 || p.MedicalConditions[0] != "Hypertension" {
		t.Fatalf("unexpected conditions: %v", p.MedicalConditions)
	}
}
