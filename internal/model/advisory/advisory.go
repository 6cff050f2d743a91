package advisory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/healbuddy/backend/internal/model/chat"
)

// ErrInvalid marks model output that does not satisfy the advisory schema.
var ErrInvalid = errors.New("advisory does not match schema")

// FallbackResponse is shown whenever the inference step fails.
const FallbackResponse = "I'm having technical issues. For any health concerns, please consult a doctor or call 108 for emergencies."

// Result is the structured output of one inference call.
type Result struct {
	Response         string        `json:"response"`
	Severity         chat.Severity `json:"severity"`
	FollowUpQuestion *string       `json:"follow_up_question"`
	SeeDoctor        bool          `json:"see_doctor"`
	EmergencyAction  *string       `json:"emergency_action"`
}

// Fallback returns the conservative result used when the gateway fails. It
// never reports low severity and always recommends a doctor.
func Fallback() Result {
	return Result{
		Response:  FallbackResponse,
		Severity:  chat.SeverityMedium,
		SeeDoctor: true,
	}
}

// HasFollowUp reports whether the model proposed a clarifying question.
func (r Result) HasFollowUp() bool {
	return r.FollowUpQuestion != nil && strings.TrimSpace(*r.FollowUpQuestion) != ""
}

// HasEmergencyAction reports whether the model supplied an emergency instruction.
func (r Result) HasEmergencyAction() bool {
	return r.EmergencyAction != nil && strings.TrimSpace(*r.EmergencyAction) != ""
}

// Raw mirrors the wire shape with every field optional so that missing
// required fields can be detected.
type Raw struct {
	Response         *string `json:"response"`
	Severity         *string `json:"severity"`
	FollowUpQuestion *string `json:"follow_up_question"`
	SeeDoctor        *bool   `json:"see_doctor"`
	EmergencyAction  *string `json:"emergency_action"`
}

// Validate converts the wire shape into a Result, rejecting anything that
// violates the schema. Blank nullable strings collapse to nil.
func (r Raw) Validate() (Result, error) {
	if r.Response == nil || strings.TrimSpace(*r.Response) == "" {
		return Result{}, fmt.Errorf("%w: response is required", ErrInvalid)
	}
	if r.Severity == nil {
		return Result{}, fmt.Errorf("%w: severity is required", ErrInvalid)
	}
	severity, ok := chat.ParseSeverity(*r.Severity)
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown severity %q", ErrInvalid, *r.Severity)
	}
	if r.SeeDoctor == nil {
		return Result{}, fmt.Errorf("%w: see_doctor is required", ErrInvalid)
	}

	return Result{
		Response:         strings.TrimSpace(*r.Response),
		Severity:         severity,
		FollowUpQuestion: nullable(r.FollowUpQuestion),
		SeeDoctor:        *r.SeeDoctor,
		EmergencyAction:  nullable(r.EmergencyAction),
	}, nil
}

func nullable(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return nil
	}
	return &trimmed
}

// Schema is the JSON schema requested from the inference gateway.
func Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"response": map[string]any{"type": "string"},
			"severity": map[string]any{
				"type": "string",
				"enum": []string{"low", "medium", "high", "emergency"},
			},
			"follow_up_question": map[string]any{"type": "string", "nullable": true},
			"see_doctor":         map[string]any{"type": "boolean"},
			"emergency_action":   map[string]any{"type": "string", "nullable": true},
		},
		"required": []string{"response", "severity", "see_doctor"},
	}
}
