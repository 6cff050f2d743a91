package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/healbuddy/backend/internal/config"
	"github.com/healbuddy/backend/internal/model/advisory"
	"github.com/healbuddy/backend/internal/service/websearch"
)

// ErrInvalidAdvisory is returned when the model reply cannot be turned into
// an advisory. It wraps advisory.ErrInvalid for schema violations.
var ErrInvalidAdvisory = errors.New("invalid advisory output")

// ErrUnavailable is returned by a nil Service, used when no model is configured.
var ErrUnavailable = errors.New("inference gateway not configured")

// Request is one inference call.
type Request struct {
	Prompt string
	// Query is the raw user text used for web lookups; Prompt is used when empty.
	Query                      string
	AugmentWithExternalContext bool
	Schema                     map[string]any
}

// ContextProvider supplies live web snippets for a query.
type ContextProvider interface {
	Search(ctx context.Context, query string) ([]websearch.Snippet, error)
}

type runner interface {
	Invoke(ctx context.Context, input map[string]any, opts ...compose.Option) (*schema.Message, error)
}

// Service is the inference gateway: an eino chain that turns a prompt into a
// validated advisory.
type Service struct {
	chain runner
	web   ContextProvider
}

// NewService builds the gateway from configuration. web may be nil.
func NewService(ctx context.Context, cfg config.AIConfig, web ContextProvider) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	if !cfg.WebContext {
		web = nil
	}
	return NewServiceWithModel(ctx, chatModel, web)
}

// NewServiceWithModel compiles the advisory chain around an existing model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, web ContextProvider) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("context", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile advisory chain: %w", err)
	}

	return &Service{chain: runnable, web: web}, nil
}

// Advise runs one inference call and validates the reply.
func (s *Service) Advise(ctx context.Context, req Request) (advisory.Result, error) {
	if s == nil {
		return advisory.Result{}, ErrUnavailable
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return advisory.Result{}, fmt.Errorf("%w: empty prompt", ErrInvalidAdvisory)
	}

	input := map[string]any{
		"system":  buildSystemPrompt(req.Schema),
		"context": s.buildContextMessages(ctx, req),
		"query":   req.Prompt,
	}

	msg, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return advisory.Result{}, fmt.Errorf("failed to run advisory chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return advisory.Result{}, fmt.Errorf("%w: empty model reply", ErrInvalidAdvisory)
	}

	result, err := parseAdvisory(msg.Content)
	if err != nil {
		return advisory.Result{}, err
	}

	log.Printf("[ai] advisory severity=%s follow_up=%t see_doctor=%t", result.Severity, result.HasFollowUp(), result.SeeDoctor)
	return result, nil
}

func (s *Service) buildContextMessages(ctx context.Context, req Request) []*schema.Message {
	if !req.AugmentWithExternalContext || s.web == nil {
		return nil
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = req.Prompt
	}

	snippets, err := s.web.Search(ctx, query)
	if err != nil {
		log.Printf("[ai] web context unavailable, continuing without it: %v", err)
		return nil
	}
	if len(snippets) == 0 {
		return nil
	}

	var builder strings.Builder
	builder.WriteString("Current information from the web (may be incomplete, use with care):")
	for _, snippet := range snippets {
		builder.WriteString("\n- ")
		builder.WriteString(snippet.String())
	}
	return []*schema.Message{schema.SystemMessage(builder.String())}
}

func buildSystemPrompt(responseSchema map[string]any) string {
	base := "You answer with exactly one JSON object and no other text."
	if len(responseSchema) == 0 {
		return base
	}
	encoded, err := json.Marshal(responseSchema)
	if err != nil {
		return base
	}
	return base + " The object must conform to this JSON schema: " + string(encoded)
}

// parseAdvisory extracts the outermost JSON object from the reply and
// validates it.
func parseAdvisory(content string) (advisory.Result, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return advisory.Result{}, fmt.Errorf("%w: missing json object", ErrInvalidAdvisory)
	}

	var raw advisory.Raw
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &raw); err != nil {
		return advisory.Result{}, fmt.Errorf("%w: %v", ErrInvalidAdvisory, err)
	}

	result, err := raw.Validate()
	if err != nil {
		return advisory.Result{}, fmt.Errorf("%w: %w", ErrInvalidAdvisory, err)
	}
	return result, nil
}
