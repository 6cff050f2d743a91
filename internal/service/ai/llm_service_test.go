package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/healbuddy/backend/internal/model/advisory"
	"github.com/healbuddy/backend/internal/model/chat"
	"github.com/healbuddy/backend/internal/service/websearch"
)

type fakeRunner struct {
	reply *schema.Message
	err   error
	input map[string]any
}

func (f *fakeRunner) Invoke(_ context.Context, input map[string]any, _ ...compose.Option) (*schema.Message, error) {
	f.input = input
	return f.reply, f.err
}

type fakeSearch struct {
	snippets []websearch.Snippet
	err      error
	query    string
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]websearch.Snippet, error) {
	f.query = query
	return f.snippets, f.err
}

func TestAdviseParsesFencedJSON(t *testing.T) {
	runner := &fakeRunner{reply: schema.AssistantMessage("```json\n{\"response\":\"Rest well.\",\"severity\":\"LOW\",\"follow_up_question\":\"\",\"see_doctor\":false,\"emergency_action\":null}\n```", nil)}
	svc := &Service{chain: runner}

	result, err := svc.Advise(context.Background(), Request{Prompt: "I feel tired", Schema: advisory.Schema()})
	if err != nil {
		t.Fatalf("Advise err: %v", err)
	}
	if result.Severity != chat.SeverityLow || result.Response != "Rest well." {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.FollowUpQuestion != nil {
		t.Fatal("blank follow-up should be normalised to nil")
	}
	system, _ := runner.input["system"].(string)
	if !strings.Contains(system, "\"see_doctor\"") {
		t.Fatalf("schema missing from system prompt: %s", system)
	}
}

func TestAdviseRejectsSchemaMismatch(t *testing.T) {
	cases := []string{
		"I cannot answer that.",
		`{"response":"ok","severity":"critical","see_doctor":true}`,
		`{"response":"ok","severity":"low"}`,
		`{"response":"","severity":"low","see_doctor":false}`,
	}
	for _, content := range cases {
		svc := &Service{chain: &fakeRunner{reply: schema.AssistantMessage(content, nil)}}
		if _, err := svc.Advise(context.Background(), Request{Prompt: "q"}); !errors.Is(err, ErrInvalidAdvisory) {
			t.Fatalf("content %q: expected ErrInvalidAdvisory, got %v", content, err)
		}
	}
}

func TestAdvisePropagatesChainError(t *testing.T) {
	svc := &Service{chain: &fakeRunner{err: errors.New("boom")}}
	if _, err := svc.Advise(context.Background(), Request{Prompt: "q"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestAdviseAddsWebContext(t *testing.T) {
	runner := &fakeRunner{reply: schema.AssistantMessage(`{"response":"ok","severity":"medium","see_doctor":true}`, nil)}
	search := &fakeSearch{snippets: []websearch.Snippet{{Title: "Dengue", Text: "Watch for high fever."}}}
	svc := &Service{chain: runner, web: search}

	if _, err := svc.Advise(context.Background(), Request{Prompt: "long prompt", Query: "high fever", AugmentWithExternalContext: true}); err != nil {
		t.Fatalf("Advise err: %v", err)
	}
	if search.query != "high fever" {
		t.Fatalf("unexpected search query %q", search.query)
	}
	msgs, _ := runner.input["context"].([]*schema.Message)
	if len(msgs) != 1 || !strings.Contains(msgs[0].Content, "Dengue: Watch for high fever.") {
		t.Fatalf("unexpected context messages: %+v", msgs)
	}
}

func TestAdviseContinuesWhenWebContextFails(t *testing.T) {
	runner := &fakeRunner{reply: schema.AssistantMessage(`{"response":"ok","severity":"high","see_doctor":true}`, nil)}
	svc := &Service{chain: runner, web: &fakeSearch{err: errors.New("offline")}}

	if _, err := svc.Advise(context.Background(), Request{Prompt: "q", AugmentWithExternalContext: true}); err != nil {
		t.Fatalf("Advise err: %v", err)
	}
	if msgs, _ := runner.input["context"].([]*schema.Message); len(msgs) != 0 {
		t.Fatalf("expected no context, got %d", len(msgs))
	}
}

func TestNilServiceIsUnavailable(t *testing.T) {
	var svc *Service
	if _, err := svc.Advise(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
