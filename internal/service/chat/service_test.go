package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/healbuddy/backend/internal/model/advisory"
	chatmodel "github.com/healbuddy/backend/internal/model/chat"
	"github.com/healbuddy/backend/internal/model/profile"
	"github.com/healbuddy/backend/internal/model/turn"
	"github.com/healbuddy/backend/internal/service/ai"
	chat "github.com/healbuddy/backend/internal/service/chat"
)

type step struct {
	result advisory.Result
	err    error
}

// fakeGateway replays scripted results and records every request.
type fakeGateway struct {
	mu       sync.Mutex
	steps    []step
	requests []ai.Request
}

func (f *fakeGateway) Advise(_ context.Context, req ai.Request) (advisory.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.steps) == 0 {
		return advisory.Result{Response: "ok", Severity: chatmodel.SeverityLow}, nil
	}
	next := f.steps[0]
	f.steps = f.steps[1:]
	return next.result, next.err
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// blockingGateway parks until released or its context ends.
type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func newBlockingGateway() *blockingGateway {
	return &blockingGateway{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
}

func (b *blockingGateway) Advise(ctx context.Context, _ ai.Request) (advisory.Result, error) {
	b.entered <- struct{}{}
	select {
	case <-b.release:
		return advisory.Result{Response: "done", Severity: chatmodel.SeverityLow}, nil
	case <-ctx.Done():
		b.ctxErr <- ctx.Err()
		return advisory.Result{}, ctx.Err()
	}
}

type failingTurnStore struct{}

func (failingTurnStore) Create(context.Context, string, turn.Turn) (turn.Ref, error) {
	return turn.Ref{}, errors.New("database unavailable")
}

func (failingTurnStore) List(context.Context, string, int) ([]turn.Record, error) {
	return nil, errors.New("database unavailable")
}

type failingProfileStore struct{ profile.Store }

func (failingProfileStore) Update(context.Context, string, profile.Update) error {
	return errors.New("profile service down")
}

func strPtr(s string) *string { return &s }

func testOptions() chat.Options {
	return chat.Options{Timeout: time.Second, FollowUpDelay: 10 * time.Millisecond}
}

func TestCreateSessionEmitsWelcome(t *testing.T) {
	svc := chat.NewService(&fakeGateway{}, turn.NewMemoryStore(), nil, testOptions())
	session, err := svc.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	msgs := session.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected welcome only, got %d messages", len(msgs))
	}
	if msgs[0].Text != chat.WelcomeMessage || msgs[0].Severity != chatmodel.SeverityLow || !msgs[0].IsAssistant() {
		t.Fatalf("unexpected welcome message: %+v", msgs[0])
	}

	snap := session.Snapshot()
	if snap.State != chatmodel.StateIdle || snap.FollowUpBudget != 1 || snap.PendingFollowUp {
		t.Fatalf("unexpected initial state: %+v", snap)
	}
	if snap.Language != "english" {
		t.Fatalf("expected default language, got %s", snap.Language)
	}
}

func TestCreateSessionUsesProfileLanguage(t *testing.T) {
	profiles := profile.NewMemoryStore(profile.Profile{UserID: "u1", PreferredLanguage: "hindi"})
	svc := chat.NewService(&fakeGateway{}, turn.NewMemoryStore(), profiles, testOptions())

	session, err := svc.CreateSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if got := session.Language(); got != "hindi" {
		t.Fatalf("expected hindi, got %s", got)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	svc := chat.NewService(&fakeGateway{}, turn.NewMemoryStore(), nil, testOptions())
	if _, err := svc.GetSession(context.Background(), "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSubmitEmergencyOmitsDoctorNotice(t *testing.T) {
	gateway := &fakeGateway{steps: []step{{result: advisory.Result{
		Response:        "This could be serious.",
		Severity:        chatmodel.SeverityEmergency,
		SeeDoctor:       true,
		EmergencyAction: strPtr("Call 108 now"),
	}}}}
	svc := chat.NewService(gateway, turn.NewMemoryStore(), nil, testOptions())
	session, _ := svc.CreateSession(context.Background(), "")

	reply, err := session.Submit(context.Background(), "I have chest pain")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	msgs := session.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[1].Origin != chatmodel.OriginUser || msgs[1].Text != "I have chest pain" {
		t.Fatalf("user message must precede the advisory: %+v", msgs[1])
	}
	text := reply.Messages[0].Text
	if !strings.HasSuffix(text, "\n\n🚨 EMERGENCY ACTION: Call 108 now") {
		t.Fatalf("emergency action must end the message: %q", text)
	}
	if strings.Contains(text, "consult a doctor") {
		t.Fatalf("doctor notice must be omitted for emergencies: %q", text)
	}
	if msgs[2].Severity != chatmodel.SeverityEmergency {
		t.Fatalf("unexpected severity %s", msgs[2].Severity)
	}
}

func TestSubmitEmptyIsNoop(t *testing.T) {
	gateway := &fakeGateway{}
	svc := chat.NewService(gateway, turn.NewMemoryStore(), nil, testOptions())
	session, _ := svc.CreateSession(context.Background(), "")

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := session.Submit(context.Background(), input); !errors.Is(err, chat.ErrEmptyMessage) {
			t.Fatalf("input %q: expected ErrEmptyMessage, got %v", input, err)
		}
	}
	if gateway.calls() != 0 {
		t.Fatalf("gateway must not be called, got %d calls", gateway.calls())
	}
	if n := len(session.Messages()); n != 1 {
		t.Fatalf("no message may be appended, got %d", n)
	}
}

func TestSubmitGatewayFailureUsesFallback(t *testing.T) {
	gateway := &fakeGateway{steps: []step{{err: errors.New("connection reset")}}}
	svc := chat.NewService(gateway, turn.NewMemoryStore(), nil, testOptions())
	session, _ := svc.CreateSession(context.Background(), "")

	reply, err := session.Submit(context.Background(), "I feel dizzy")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if len(reply.Messages) != 1 {
		t.Fatalf("expected exactly one assistant message, got %d", len(reply.Messages))
	}
	msg := reply.Messages[0]
	if msg.Severity != chatmodel.SeverityMedium {
		t.Fatalf("fallback must be medium severity, got %s", msg.Severity)
	}
	if !strings.HasPrefix(msg.Text, advisory.FallbackResponse) {
		t.Fatalf("unexpected fallback text: %q", msg.Text)
	}
	if !reply.Advisory.SeeDoctor || reply.Advisory.EmergencyAction != nil || reply.Advisory.FollowUpQuestion != nil {
		t.Fatalf("unexpected fallback advisory: %+v", reply.Advisory)
	}
}

func TestSubmitTimeoutUsesFallback(t *testing.T) {
	gateway := newBlockingGateway()
	opts := testOptions()
	opts.Timeout = 20 * time.Millisecond
	svc := chat.NewService(gateway, turn.NewMemoryStore(), nil, opts)
	session, _ := svc.CreateSession(context.Background(), "")

	reply, err := session.Submit(context.Background(), "fever")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if reply.Advisory.Severity != chatmodel.SeverityMedium {
		t.Fatalf("timeout must fall back, got %+v", reply.Advisory)
	}
	if err := <-gateway.ctxErr; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFollowUpSequencing(t *testing.T) {
	gateway := &fakeGateway{steps: []step{
		{result: advisory.Result{Response: "Headaches are common.", Severity: chatmodel.SeverityLow, FollowUpQuestion: strPtr("Do you have fever?")}},
		{result: advisory.Result{Response: "Rest and hydrate.", Severity: chatmodel.SeverityMedium, SeeDoctor: true, FollowUpQuestion: strPtr("Any rash?")}},
	}}
	turns := turn.NewMemoryStore()
	svc := chat.NewService(gateway, turns, nil, testOptions())
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "u1")

	reply, err := session.Submit(ctx, "I have a headache")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if len(reply.Messages) != 2 {
		t.Fatalf("expected advisory and follow-up, got %d messages", len(reply.Messages))
	}
	if reply.Messages[1].Text != "To help you better, may I ask: Do you have fever?" || reply.Messages[1].Severity != chatmodel.SeverityLow {
		t.Fatalf("unexpected follow-up message: %+v", reply.Messages[1])
	}
	if reply.Messages[1].ID != reply.Messages[0].ID+1 || !reply.Messages[1].FollowUp {
		t.Fatal("follow-up must come after the advisory")
	}
	snap := session.Snapshot()
	if !snap.PendingFollowUp || snap.FollowUpBudget != 0 || snap.State != chatmodel.StateAwaitingFollowUpAnswer {
		t.Fatalf("unexpected state after follow-up: %+v", snap)
	}

	reply, err = session.Submit(ctx, "Yes")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if len(reply.Messages) != 1 {
		t.Fatalf("a second follow-up must never be offered, got %d messages", len(reply.Messages))
	}
	if !strings.Contains(gateway.requests[1].Prompt, `[{"question":"Do you have fever?","answer":"Yes"}]`) {
		t.Fatalf("answer prompt missing follow-up history:\n%s", gateway.requests[1].Prompt)
	}
	if strings.Contains(gateway.requests[0].Prompt, "PREVIOUS CONVERSATION") {
		t.Fatal("first prompt must not carry follow-up history")
	}
	snap = session.Snapshot()
	if snap.PendingFollowUp || snap.FollowUpBudget != 0 || snap.State != chatmodel.StateIdle {
		t.Fatalf("unexpected state after answer: %+v", snap)
	}

	records, err := turns.List(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 persisted turns, got %d", len(records))
	}
	latest, first := records[0], records[1]
	if len(first.FollowUpQuestions) != 0 {
		t.Fatalf("first turn should have empty history: %+v", first.FollowUpQuestions)
	}
	if len(latest.FollowUpQuestions) != 1 || latest.FollowUpQuestions[0].Answer != "Yes" {
		t.Fatalf("answer turn should carry the Q/A pair: %+v", latest.FollowUpQuestions)
	}
	if latest.SessionType != turn.SessionSymptomCheck || latest.BotResponse != "Rest and hydrate." {
		t.Fatalf("unexpected persisted turn: %+v", latest.Turn)
	}
	if session.Snapshot().LastTurnID != latest.ID {
		t.Fatal("last persisted turn should be tracked")
	}
}

func TestFollowUpBudgetRearmsForNewTopic(t *testing.T) {
	q := strPtr("How long has it lasted?")
	gateway := &fakeGateway{steps: []step{
		{result: advisory.Result{Response: "a", Severity: chatmodel.SeverityLow, FollowUpQuestion: q}},
		{result: advisory.Result{Response: "b", Severity: chatmodel.SeverityLow, FollowUpQuestion: q}},
		{result: advisory.Result{Response: "c", Severity: chatmodel.SeverityLow, FollowUpQuestion: q}},
	}}
	svc := chat.NewService(gateway, turn.NewMemoryStore(), nil, testOptions())
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	if reply, _ := session.Submit(ctx, "cough"); len(reply.Messages) != 2 {
		t.Fatalf("first topic should get a follow-up")
	}
	if reply, _ := session.Submit(ctx, "two weeks"); len(reply.Messages) != 1 {
		t.Fatalf("answer must not get another follow-up")
	}
	if reply, _ := session.Submit(ctx, "also my knee hurts"); len(reply.Messages) != 2 {
		t.Fatalf("new topic should re-arm the follow-up")
	}
}

func TestSubmitRejectsConcurrentRequest(t *testing.T) {
	gateway := newBlockingGateway()
	svc := chat.NewService(gateway, turn.NewMemoryStore(), nil, testOptions())
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	done := make(chan error, 1)
	go func() {
		_, err := session.Submit(ctx, "first")
		done <- err
	}()
	<-gateway.entered

	if _, err := session.Submit(ctx, "second"); !errors.Is(err, chat.ErrRequestInFlight) {
		t.Fatalf("expected ErrRequestInFlight, got %v", err)
	}
	if n := len(session.Messages()); n != 2 {
		t.Fatalf("rejected submit must not append, got %d messages", n)
	}
	if state := session.Snapshot().State; state != chatmodel.StateAwaitingModelResponse {
		t.Fatalf("unexpected state while in flight: %s", state)
	}

	close(gateway.release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit err: %v", err)
	}
	if n := len(session.Messages()); n != 3 {
		t.Fatalf("expected 3 messages, got %d", n)
	}
}

func TestCloseCancelsInFlightRequest(t *testing.T) {
	gateway := newBlockingGateway()
	svc := chat.NewService(gateway, turn.NewMemoryStore(), nil, testOptions())
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	done := make(chan error, 1)
	go func() {
		_, err := session.Submit(ctx, "headache")
		done <- err
	}()
	<-gateway.entered

	if err := svc.CloseSession(ctx, session.ID()); err != nil {
		t.Fatalf("CloseSession err: %v", err)
	}
	if err := <-done; !errors.Is(err, chat.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if err := <-gateway.ctxErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("gateway call should be cancelled, got %v", err)
	}
	if _, err := session.Submit(ctx, "again"); !errors.Is(err, chat.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed after teardown, got %v", err)
	}
	if _, err := svc.GetSession(ctx, session.ID()); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("closed session should be unregistered, got %v", err)
	}
}

func TestCloseDuringFollowUpDelaySkipsQuestion(t *testing.T) {
	gateway := &fakeGateway{steps: []step{{result: advisory.Result{
		Response: "ok", Severity: chatmodel.SeverityLow, FollowUpQuestion: strPtr("Since when?"),
	}}}}
	opts := testOptions()
	opts.FollowUpDelay = time.Minute
	svc := chat.NewService(gateway, turn.NewMemoryStore(), nil, opts)
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	events, cancel := session.Subscribe()
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := session.Submit(ctx, "back pain")
		done <- err
	}()

	// user message, then advisory
	<-events
	<-events
	session.Close()

	select {
	case err := <-done:
		if !errors.Is(err, chat.ErrSessionClosed) {
			t.Fatalf("expected ErrSessionClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit did not return after Close")
	}
	if n := len(session.Messages()); n != 3 {
		t.Fatalf("follow-up must not be appended after teardown, got %d messages", n)
	}
}

func TestPersistenceFailureDoesNotSurface(t *testing.T) {
	svc := chat.NewService(&fakeGateway{}, failingTurnStore{}, nil, testOptions())
	session, _ := svc.CreateSession(context.Background(), "u1")

	if _, err := session.Submit(context.Background(), "sore throat"); err != nil {
		t.Fatalf("store failure must not surface: %v", err)
	}
	if id := session.Snapshot().LastTurnID; id != "" {
		t.Fatalf("no turn reference expected, got %s", id)
	}
}

func TestSetLanguageWritesThrough(t *testing.T) {
	profiles := profile.NewMemoryStore(profile.Profile{UserID: "u1", PreferredLanguage: "english"})
	svc := chat.NewService(&fakeGateway{}, turn.NewMemoryStore(), profiles, testOptions())
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "u1")

	lang, err := session.SetLanguage(ctx, "tamil")
	if err != nil {
		t.Fatalf("SetLanguage err: %v", err)
	}
	if lang.Locale != "ta-IN" || session.Language() != "tamil" {
		t.Fatalf("unexpected language: %+v", lang)
	}

	svc.Shutdown()
	p, err := profiles.Read(ctx, "u1")
	if err != nil {
		t.Fatalf("Read err: %v", err)
	}
	if p.PreferredLanguage != "tamil" {
		t.Fatalf("language not persisted: %s", p.PreferredLanguage)
	}
}

func TestSetLanguageUnknownFallsBackAndIgnoresWriteFailure(t *testing.T) {
	profiles := failingProfileStore{Store: profile.NewMemoryStore()}
	svc := chat.NewService(&fakeGateway{}, turn.NewMemoryStore(), profiles, testOptions())
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "u1")

	lang, err := session.SetLanguage(ctx, "klingon")
	if err != nil {
		t.Fatalf("SetLanguage err: %v", err)
	}
	if lang.ID != "english" {
		t.Fatalf("expected fallback to english, got %s", lang.ID)
	}
	svc.Shutdown()
}

func TestSubscribersReceiveMessagesInOrder(t *testing.T) {
	svc := chat.NewService(&fakeGateway{}, turn.NewMemoryStore(), nil, testOptions())
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	events, cancel := session.Subscribe()
	if _, err := session.Submit(ctx, "hello"); err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	first, second := <-events, <-events
	if first.Origin != chatmodel.OriginUser || second.Origin != chatmodel.OriginAssistant {
		t.Fatalf("unexpected order: %s then %s", first.Origin, second.Origin)
	}
	cancel()
	if _, ok := <-events; ok {
		t.Fatal("channel should be closed after cancel")
	}
}

func TestCallerCancelSkipsPersistence(t *testing.T) {
	gateway := newBlockingGateway()
	turns := turn.NewMemoryStore()
	svc := chat.NewService(gateway, turns, nil, testOptions())
	session, _ := svc.CreateSession(context.Background(), "u1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := session.Submit(ctx, "chest tightness")
		done <- err
	}()
	<-gateway.entered
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if n := len(session.Messages()); n != 3 {
		t.Fatalf("fallback should still be shown, got %d messages", n)
	}
	if id := session.Snapshot().LastTurnID; id != "" {
		t.Fatalf("abandoned turn must not be persisted, got %s", id)
	}
	records, err := turns.List(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no stored turns, got %d", len(records))
	}
}

func TestHistoryWithoutTurnStore(t *testing.T) {
	svc := chat.NewService(&fakeGateway{}, nil, nil, testOptions())
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "u1")
	if _, err := session.Submit(ctx, "cough"); err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	records, err := svc.History(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty history, got %#v", records)
	}
}
